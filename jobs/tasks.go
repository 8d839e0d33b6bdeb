package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockledger/internal/ledger"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerActionRecorded follows every committed ledger batch.
	TaskLedgerActionRecorded = "ledger:action.recorded"
	// TaskIdempotencyCleanup purges expired submission keys.
	TaskIdempotencyCleanup = "maintenance:idempotency.cleanup"
)

// IdempotencyCleanupPayload carries scheduling metadata.
type IdempotencyCleanupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewActionRecordedTask constructs an Asynq task from a ledger event.
func NewActionRecordedTask(evt ledger.ActionRecordedEvent) (*asynq.Task, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerActionRecorded, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
