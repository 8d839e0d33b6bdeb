package units

import (
	"context"
	"strings"

	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateUnitInput) (Unit, error)
	Get(ctx context.Context, id int64) (Unit, error)
	List(ctx context.Context, filter ListFilter) ([]Unit, int, error)
	UpdateDetails(ctx context.Context, id int64, input UpdateUnitInput) (Unit, error)
	Delete(ctx context.Context, id int64) error
	HasTransactions(ctx context.Context, id int64) (bool, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Ref, error)
}

// Service coordinates unit use cases outside the ledger write path.
type Service struct {
	repo RepositoryPort
}

// NewService builds a unit service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a unit with zero stock in the given store.
func (s *Service) Create(ctx context.Context, actor access.Principal, input CreateUnitInput) (Unit, error) {
	if !actor.CanWrite(input.StoreID) {
		return Unit{}, access.ErrForbidden
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Measurement == "" {
		input.Measurement = MeasurementPieces
	}
	return s.repo.Create(ctx, input)
}

// Get returns a unit the actor can read.
func (s *Service) Get(ctx context.Context, actor access.Principal, id int64) (Unit, error) {
	unit, err := s.repo.Get(ctx, id)
	if err != nil {
		return Unit{}, err
	}
	if !actor.CanRead(unit.StoreID) {
		return Unit{}, access.ErrForbidden
	}
	return unit, nil
}

// ListByStore returns a page of the store's units, optionally filtered by a
// title or description search.
func (s *Service) ListByStore(ctx context.Context, actor access.Principal, storeID int64, search string, page shared.PageRequest) ([]Unit, shared.Pagination, error) {
	if !actor.CanRead(storeID) {
		return nil, shared.Pagination{}, access.ErrForbidden
	}
	list, total, err := s.repo.List(ctx, ListFilter{StoreID: storeID, Search: search, Offset: page.Offset, Limit: page.Limit})
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, total), nil
}

// UpdateDetails edits title and description.
func (s *Service) UpdateDetails(ctx context.Context, actor access.Principal, id int64, input UpdateUnitInput) (Unit, error) {
	unit, err := s.repo.Get(ctx, id)
	if err != nil {
		return Unit{}, err
	}
	if !actor.CanWrite(unit.StoreID) {
		return Unit{}, access.ErrForbidden
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		input.Title = &title
	}
	return s.repo.UpdateDetails(ctx, id, input)
}

// Delete removes a unit that has never been touched by the ledger.
func (s *Service) Delete(ctx context.Context, actor access.Principal, id int64) error {
	unit, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanWrite(unit.StoreID) {
		return access.ErrForbidden
	}
	used, err := s.repo.HasTransactions(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return ErrUnitHasTransactions
	}
	return s.repo.Delete(ctx, id)
}

// GetByIDs exposes the existence/ownership lookup used by ledger callers.
func (s *Service) GetByIDs(ctx context.Context, ids []int64) ([]Ref, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.GetByIDs(ctx, ids)
}
