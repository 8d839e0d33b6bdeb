package ledger

import (
	"context"
	"time"
)

// ActionRecordedEvent announces a committed batch.
type ActionRecordedEvent struct {
	ActionID   int64      `json:"action_id"`
	StoreID    int64      `json:"store_id"`
	Kind       ActionKind `json:"kind"`
	Lines      int        `json:"lines"`
	ActorID    int64      `json:"actor_id"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// EventPublisher receives ledger events after commit.
type EventPublisher interface {
	PublishActionRecorded(ctx context.Context, evt ActionRecordedEvent) error
}

// MetricsRecorder counts batch outcomes.
type MetricsRecorder interface {
	ObserveBatch(kind, result string, lines int)
}

// Batch outcomes reported to MetricsRecorder.
const (
	ResultCommitted = "committed"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)
