package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/jobs"
)

func TestBuildTask(t *testing.T) {
	task, err := buildTask(jobs.TaskIdempotencyCleanup, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, jobs.TaskIdempotencyCleanup, task.Type())
	require.Contains(t, string(task.Payload()), "2024-03-01T00:00:00Z")

	_, err = buildTask(jobs.TaskLedgerActionRecorded, time.Now())
	require.ErrorContains(t, err, "unsupported job")
}

func TestRunRejectsBadUsage(t *testing.T) {
	var c *JobsCLI
	var out bytes.Buffer
	ctx := context.Background()

	require.Error(t, c.Run(ctx, nil, &out))
	require.ErrorContains(t, c.Run(ctx, []string{"trigger"}, &out), "task name")
	require.ErrorContains(t, c.Run(ctx, []string{"purge"}, &out), "unknown subcommand")
	require.ErrorContains(t, c.Run(ctx, []string{"trigger", jobs.TaskIdempotencyCleanup}, &out), "not configured")
	require.ErrorContains(t, c.Run(ctx, []string{"stats"}, &out), "not configured")
	require.Empty(t, out.String())

	_, err := NewJobsCLI("")
	require.Error(t, err)
}
