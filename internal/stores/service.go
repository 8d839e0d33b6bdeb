package stores

import (
	"context"
	"strings"

	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, title string) (Store, error)
	Get(ctx context.Context, id int64) (Store, error)
	List(ctx context.Context, filter ListFilter) ([]Store, int, error)
}

// Service coordinates store use cases.
type Service struct {
	repo RepositoryPort
}

// NewService builds a store service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a new store. Only company admins may create stores.
func (s *Service) Create(ctx context.Context, actor access.Principal, input CreateStoreInput) (Store, error) {
	if !actor.IsAdmin() {
		return Store{}, access.ErrForbidden
	}
	return s.repo.Create(ctx, strings.TrimSpace(input.Title))
}

// Get returns a store the actor can read.
func (s *Service) Get(ctx context.Context, actor access.Principal, id int64) (Store, error) {
	if !actor.CanRead(id) {
		return Store{}, access.ErrForbidden
	}
	return s.repo.Get(ctx, id)
}

// List returns the stores visible to the actor.
func (s *Service) List(ctx context.Context, actor access.Principal, page shared.PageRequest) ([]Store, shared.Pagination, error) {
	filter := ListFilter{Offset: page.Offset, Limit: page.Limit}
	if !actor.IsAdmin() {
		filter.StoreIDs = make([]int64, 0, len(actor.StoreRoles))
		for id := range actor.StoreRoles {
			filter.StoreIDs = append(filter.StoreIDs, id)
		}
	}
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, total), nil
}
