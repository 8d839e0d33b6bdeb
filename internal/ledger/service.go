package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/shared"
	"github.com/odyssey-erp/stockledger/internal/stores"
	"github.com/odyssey-erp/stockledger/internal/units"
)

const idempotencyModule = "ledger"

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListActions(ctx context.Context, filter ActionFilter) ([]ActionSummary, error)
	CountActions(ctx context.Context, filter ActionFilter) (int, error)
	GetAction(ctx context.Context, id int64) (Action, error)
	ListTransactions(ctx context.Context, actionID int64) ([]TransactionDetail, error)
}

// UnitLookup resolves unit existence and ownership outside the batch
// transaction.
type UnitLookup interface {
	GetByIDs(ctx context.Context, ids []int64) ([]units.Ref, error)
}

// StoreLookup confirms a store exists.
type StoreLookup interface {
	Get(ctx context.Context, id int64) (stores.Store, error)
}

// IdempotencyPort claims submission keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// ServiceOptions groups optional collaborators. Nil members are skipped.
type ServiceOptions struct {
	Units       UnitLookup
	Stores      StoreLookup
	Cache       *ActionCache
	Idempotency IdempotencyPort
	Events      EventPublisher
	Metrics     MetricsRecorder
	Logger      *slog.Logger

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Service coordinates ledger operations.
type Service struct {
	repo   RepositoryPort
	opts   ServiceOptions
	tracer trace.Tracer
}

// NewService builds Service.
func NewService(repo RepositoryPort, opts ServiceOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	return &Service{
		repo:   repo,
		opts:   opts,
		tracer: opts.TracerProvider.Tracer("github.com/odyssey-erp/stockledger/internal/ledger"),
	}
}

// SubmitBatch applies a batch atomically and returns the new action id. The
// actor's store role is checked before any store access.
func (s *Service) SubmitBatch(ctx context.Context, actor access.Principal, input BatchInput) (actionID int64, err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.SubmitBatch", trace.WithAttributes(
		attribute.String("ledger.kind", string(input.Kind)),
		attribute.Int64("ledger.store_id", input.StoreID),
		attribute.Int("ledger.lines", len(input.Lines)),
	))
	defer func() {
		result := batchResult(err)
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveBatch(string(input.Kind), result, len(input.Lines))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		} else {
			span.SetAttributes(attribute.Int64("ledger.action_id", actionID))
		}
		span.End()
	}()

	rule, ok := rules[input.Kind]
	if !ok {
		return 0, ErrUnknownActionKind
	}
	if !actor.HasStoreRole(input.StoreID, rule.roles...) {
		return 0, ErrActionAccessForbidden
	}
	if err := validateLines(input.Kind, input.Lines); err != nil {
		return 0, err
	}
	if dups := duplicateUnitIDs(input.Lines); len(dups) > 0 {
		return 0, newUnitIDsError(ErrDuplicateUnitID, dups)
	}

	if err := s.claim(ctx, input.IdempotencyKey); err != nil {
		return 0, err
	}

	action, err := s.apply(ctx, actor, input)
	if err != nil {
		s.release(ctx, input.IdempotencyKey)
		return 0, err
	}

	s.afterCommit(ctx, actor, input, action)
	return action.ID, nil
}

func (s *Service) apply(ctx context.Context, actor access.Principal, input BatchInput) (Action, error) {
	ids := unitIDs(input.Lines)
	changes := unitChanges(input.Kind, input.Lines)

	if s.opts.Units != nil {
		refs, err := s.opts.Units.GetByIDs(ctx, ids)
		if err != nil {
			return Action{}, err
		}
		owners := make(map[int64]int64, len(refs))
		quantities := make(map[int64]decimal.Decimal, len(refs))
		for _, ref := range refs {
			owners[ref.ID] = ref.StoreID
			quantities[ref.ID] = ref.Quantity
		}
		if err := checkOwnership(input.StoreID, ids, owners); err != nil {
			return Action{}, err
		}
		if err := checkStock(changes, quantities); err != nil {
			return Action{}, err
		}
	}

	var action Action
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		states, err := tx.LockUnits(ctx, ids)
		if err != nil {
			return err
		}
		owners := make(map[int64]int64, len(states))
		quantities := make(map[int64]decimal.Decimal, len(states))
		for _, st := range states {
			owners[st.ID] = st.StoreID
			quantities[st.ID] = st.Quantity
		}
		if err := checkOwnership(input.StoreID, ids, owners); err != nil {
			return err
		}
		if err := checkStock(changes, quantities); err != nil {
			return err
		}

		snapshots, err := tx.ApplyUnitChanges(ctx, changes)
		if err != nil {
			return err
		}
		byID := make(map[int64]UnitSnapshot, len(snapshots))
		for _, snap := range snapshots {
			byID[snap.ID] = snap
		}
		var missing []int64
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return newUnitIDsError(ErrUnitNotFound, missing)
		}

		action, err = tx.InsertAction(ctx, input.Kind, input.StoreID)
		if err != nil {
			return err
		}
		return tx.InsertTransactions(ctx, buildTransactions(action, actor.UserID, input.Lines, byID))
	})
	if err != nil {
		return Action{}, err
	}
	return action, nil
}

func (s *Service) claim(ctx context.Context, key string) error {
	if key == "" || s.opts.Idempotency == nil {
		return nil
	}
	if err := s.opts.Idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return ErrDuplicateSubmission
		}
		return err
	}
	return nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key == "" || s.opts.Idempotency == nil {
		return
	}
	if err := s.opts.Idempotency.Delete(context.WithoutCancel(ctx), key, idempotencyModule); err != nil {
		s.opts.Logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
	}
}

// afterCommit runs best-effort follow-ups. The batch is already durable, so
// failures here are logged and never returned.
func (s *Service) afterCommit(ctx context.Context, actor access.Principal, input BatchInput, action Action) {
	if err := s.opts.Cache.Store(ctx, action); err != nil {
		s.opts.Logger.Warn("cache action header", slog.Int64("action_id", action.ID), slog.Any("error", err))
	}
	if s.opts.Events == nil {
		return
	}
	evt := ActionRecordedEvent{
		ActionID:   action.ID,
		StoreID:    action.StoreID,
		Kind:       action.Kind,
		Lines:      len(input.Lines),
		ActorID:    actor.UserID,
		RecordedAt: action.CreatedAt,
	}
	if err := s.opts.Events.PublishActionRecorded(ctx, evt); err != nil {
		s.opts.Logger.Warn("publish action recorded", slog.Int64("action_id", action.ID), slog.Any("error", err))
	}
}

// ActionPage is one page of the action listing.
type ActionPage struct {
	Items      []ActionSummary   `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// ListActions returns actions visible to the actor. Admins may omit the store
// to list every store; everyone else must name a store they can read.
func (s *Service) ListActions(ctx context.Context, actor access.Principal, storeID *int64, kind *ActionKind, page shared.PageRequest) (ActionPage, error) {
	if storeID == nil {
		if !actor.IsAdmin() {
			return ActionPage{}, ErrAllStoresForbidden
		}
	} else {
		if s.opts.Stores != nil {
			if _, err := s.opts.Stores.Get(ctx, *storeID); err != nil {
				return ActionPage{}, err
			}
		}
		if !actor.CanRead(*storeID) {
			return ActionPage{}, ErrStoreAccessForbidden
		}
	}

	filter := ActionFilter{StoreID: storeID, Kind: kind, Offset: page.Offset, Limit: page.Limit}
	var (
		items []ActionSummary
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.ListActions(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountActions(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return ActionPage{}, err
	}
	if items == nil {
		items = []ActionSummary{}
	}
	return ActionPage{Items: items, Pagination: shared.NewPagination(page, total)}, nil
}

// GetActionDetail returns an action with its transactions in submission
// order.
func (s *Service) GetActionDetail(ctx context.Context, actor access.Principal, id int64) (ActionDetail, error) {
	var (
		action       Action
		transactions []TransactionDetail
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		action, err = s.opts.Cache.Fetch(gctx, id, s.repo.GetAction)
		return err
	})
	g.Go(func() error {
		var err error
		transactions, err = s.repo.ListTransactions(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return ActionDetail{}, err
	}
	if !actor.CanRead(action.StoreID) {
		return ActionDetail{}, ErrStoreAccessForbidden
	}
	if transactions == nil {
		transactions = []TransactionDetail{}
	}
	return ActionDetail{Action: action, Transactions: transactions}, nil
}

// WarmActionCache loads the action header into the cache.
func (s *Service) WarmActionCache(ctx context.Context, id int64) error {
	_, err := s.opts.Cache.Fetch(ctx, id, s.repo.GetAction)
	return err
}

// IsDomainError reports errors caused by the request rather than the system.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrEmptyBatch, ErrInvalidLineItem, ErrDuplicateUnitID, ErrUnitNotFound,
		ErrUnitBelongsToAnotherStore, ErrInsufficientStock, ErrActionAccessForbidden,
		ErrUnknownActionKind, ErrActionNotFound, ErrStoreAccessForbidden,
		ErrAllStoresForbidden, ErrDuplicateSubmission, stores.ErrStoreNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func batchResult(err error) string {
	switch {
	case err == nil:
		return ResultCommitted
	case IsDomainError(err):
		return ResultRejected
	default:
		return ResultFailed
	}
}

