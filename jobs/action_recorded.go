package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/stockledger/internal/jobs"
	"github.com/odyssey-erp/stockledger/internal/ledger"
)

// ActionWarmer loads an action header into the read cache.
type ActionWarmer interface {
	WarmActionCache(ctx context.Context, id int64) error
}

// ActionRecordedJob reacts to committed ledger batches.
type ActionRecordedJob struct {
	Warmer  ActionWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewActionRecordedJob wires dependencies for the action-recorded handler.
func NewActionRecordedJob(warmer ActionWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ActionRecordedJob {
	return &ActionRecordedJob{Warmer: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLedgerActionRecorded tasks.
func (j *ActionRecordedJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil {
		return errors.New("action recorded: handler not configured")
	}
	var evt ledger.ActionRecordedEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil || evt.ActionID <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskLedgerActionRecorded)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.Int64("action_id", evt.ActionID),
		slog.Int64("store_id", evt.StoreID),
		slog.String("kind", string(evt.Kind)),
	)
	if j.Warmer != nil {
		if err := j.Warmer.WarmActionCache(ctx, evt.ActionID); err != nil {
			if errors.Is(err, ledger.ErrActionNotFound) {
				logger.Warn("recorded action missing")
				return asynq.SkipRetry
			}
			logger.Error("warm action cache", slog.Any("error", err))
			return err
		}
	}
	logger.Info("action recorded", slog.Int("lines", evt.Lines), slog.Int64("actor_id", evt.ActorID))
	return nil
}

func (j *ActionRecordedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
