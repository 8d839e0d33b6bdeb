package stores

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type memoryRepo struct {
	nextID int64
	stores map[int64]Store
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, stores: make(map[int64]Store)}
}

func (m *memoryRepo) Create(_ context.Context, title string) (Store, error) {
	for _, s := range m.stores {
		if s.Title == title {
			return Store{}, ErrDuplicateTitle
		}
	}
	s := Store{ID: m.nextID, Title: title, CreatedAt: time.Now()}
	m.stores[s.ID] = s
	m.nextID++
	return s, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Store, error) {
	s, ok := m.stores[id]
	if !ok {
		return Store{}, ErrStoreNotFound
	}
	return s, nil
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Store, int, error) {
	var matched []Store
	for _, s := range m.stores {
		if filter.StoreIDs != nil && !containsID(filter.StoreIDs, s.ID) {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	if filter.Offset >= total {
		return []Store{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

var (
	owner  = access.Principal{UserID: 1, CompanyRole: access.CompanyRoleOwner}
	member = access.Principal{UserID: 2, CompanyRole: access.CompanyRoleMember, StoreRoles: map[int64]access.StoreRole{2: access.StoreRoleSeller}}
)

func TestServiceCreateRequiresAdmin(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, member, CreateStoreInput{Title: "Downtown"})
	require.ErrorIs(t, err, access.ErrForbidden)

	store, err := svc.Create(ctx, owner, CreateStoreInput{Title: "  Downtown "})
	require.NoError(t, err)
	require.Equal(t, "Downtown", store.Title)

	_, err = svc.Create(ctx, owner, CreateStoreInput{Title: "Downtown"})
	require.ErrorIs(t, err, ErrDuplicateTitle)
}

func TestServiceListScopesNonAdmins(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	for _, title := range []string{"North", "South", "East"} {
		_, err := svc.Create(ctx, owner, CreateStoreInput{Title: title})
		require.NoError(t, err)
	}

	all, meta, err := svc.List(ctx, owner, shared.NewPageRequest(0, 2))
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 3, meta.Total)
	require.True(t, meta.HasMore)

	mine, meta, err := svc.List(ctx, member, shared.NewPageRequest(0, 10))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "South", mine[0].Title)
	require.Equal(t, 1, meta.Total)
}

func TestServiceGet(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	_, err := svc.Create(ctx, owner, CreateStoreInput{Title: "North"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, member, 1)
	require.ErrorIs(t, err, access.ErrForbidden)

	_, err = svc.Get(ctx, owner, 42)
	require.ErrorIs(t, err, ErrStoreNotFound)
}
