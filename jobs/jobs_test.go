package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/stockledger/internal/jobs"
	"github.com/odyssey-erp/stockledger/internal/ledger"
)

type stubWarmer struct {
	ids []int64
	err error
}

func (s *stubWarmer) WarmActionCache(_ context.Context, id int64) error {
	s.ids = append(s.ids, id)
	return s.err
}

type stubCleaner struct {
	retention time.Duration
	deleted   int64
	err       error
}

func (s *stubCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.retention = olderThan
	return s.deleted, s.err
}

func TestNewActionRecordedTask(t *testing.T) {
	evt := ledger.ActionRecordedEvent{ActionID: 42, StoreID: 3, Kind: ledger.KindSales, Lines: 2, ActorID: 7}
	task, err := NewActionRecordedTask(evt)
	require.NoError(t, err)
	require.Equal(t, TaskLedgerActionRecorded, task.Type())

	var decoded ledger.ActionRecordedEvent
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, evt.ActionID, decoded.ActionID)
	require.Equal(t, ledger.KindSales, decoded.Kind)
}

func TestActionRecordedJobWarmsCache(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewActionRecordedJob(warmer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewActionRecordedTask(ledger.ActionRecordedEvent{ActionID: 9, StoreID: 1, Kind: ledger.KindWriteOff})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int64{9}, warmer.ids)
}

func TestActionRecordedJobErrors(t *testing.T) {
	job := NewActionRecordedJob(&stubWarmer{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerActionRecorded, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	missing := NewActionRecordedJob(&stubWarmer{err: ledger.ErrActionNotFound}, nil, nil)
	task, err := NewActionRecordedTask(ledger.ActionRecordedEvent{ActionID: 5})
	require.NoError(t, err)
	require.ErrorIs(t, missing.Handle(context.Background(), task), asynq.SkipRetry)

	boom := errors.New("redis down")
	failing := NewActionRecordedJob(&stubWarmer{err: boom}, nil, nil)
	require.ErrorIs(t, failing.Handle(context.Background(), task), boom)
}

func TestIdempotencyCleanupJob(t *testing.T) {
	cleaner := &stubCleaner{deleted: 12}
	job := NewIdempotencyCleanupJob(cleaner, 72*time.Hour, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewIdempotencyCleanupTask(time.Now())
	require.NoError(t, err)
	require.Equal(t, TaskIdempotencyCleanup, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 72*time.Hour, cleaner.retention)

	boom := errors.New("pg down")
	cleaner.err = boom
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)

	disabled := NewIdempotencyCleanupJob(cleaner, 0, nil, nil)
	require.ErrorIs(t, disabled.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}
