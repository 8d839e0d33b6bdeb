package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/observability"
	"github.com/odyssey-erp/stockledger/internal/shared"
	"github.com/odyssey-erp/stockledger/internal/stores"
	"github.com/odyssey-erp/stockledger/jobs"
)

type principalTable map[int64]access.Principal

func (p principalTable) LoadPrincipal(_ context.Context, userID int64) (access.Principal, error) {
	principal, ok := p[userID]
	if !ok {
		return access.Principal{}, access.ErrUserNotFound
	}
	return principal, nil
}

type storeTable struct {
	stores []stores.Store
}

func (s *storeTable) Create(_ context.Context, title string) (stores.Store, error) {
	store := stores.Store{ID: int64(len(s.stores)) + 1, Title: title, CreatedAt: time.Now()}
	s.stores = append(s.stores, store)
	return store, nil
}

func (s *storeTable) Get(_ context.Context, id int64) (stores.Store, error) {
	for _, store := range s.stores {
		if store.ID == id {
			return store, nil
		}
	}
	return stores.Store{}, stores.ErrStoreNotFound
}

func (s *storeTable) List(_ context.Context, filter stores.ListFilter) ([]stores.Store, int, error) {
	return s.stores, len(s.stores), nil
}

type adminTable struct{}

func (adminTable) GetUser(_ context.Context, id int64) (access.User, error) {
	return access.User{ID: id, CompanyRole: access.CompanyRoleMember}, nil
}

func (adminTable) StoreExists(_ context.Context, id int64) (bool, error) { return id == 1, nil }

func (adminTable) StoreWithUsers(_ context.Context, storeID int64) (access.StoreWithUsers, error) {
	if storeID != 1 {
		return access.StoreWithUsers{}, access.ErrStoreNotFound
	}
	return access.StoreWithUsers{ID: 1, Title: "Main street", Users: []access.StoreMember{}}, nil
}

func (adminTable) InsertStoreRole(context.Context, int64, int64, access.StoreRole) error { return nil }

func (adminTable) UpdateStoreRole(context.Context, int64, int64, access.StoreRole) error { return nil }

func (adminTable) DeleteStoreRole(context.Context, int64, int64) error { return nil }

func (adminTable) UpdateCompanyRole(_ context.Context, userID int64, role access.CompanyRole) (access.User, error) {
	return access.User{ID: userID, CompanyRole: role}, nil
}

type routerFixture struct {
	handler  http.Handler
	sessions *shared.SessionStore
	metrics  *observability.Metrics
}

func newRouterFixture(t *testing.T, health func(*http.Request) error) routerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionStore(client, time.Hour)
	mw := access.Middleware{
		Sessions: sessions,
		Principals: principalTable{
			1: {UserID: 1, CompanyRole: access.CompanyRoleOwner},
			2: {UserID: 2, CompanyRole: access.CompanyRoleMember},
		},
	}
	metrics := observability.NewMetrics()
	handler := NewRouter(RouterParams{
		Config:        &Config{RateLimitPerMinute: 1000, AppRequestTimeout: time.Second},
		Access:        mw,
		AdminHandler:  access.NewAdminHandler(nil, access.NewAdminService(adminTable{}), mw),
		StoresHandler: stores.NewHandler(nil, stores.NewService(&storeTable{}), mw),
		JobHandler:    jobs.NewHandler(nil, nil),
		Metrics:       metrics,
		Health:        health,
	})
	return routerFixture{handler: handler, sessions: sessions, metrics: metrics}
}

func (f routerFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndMetrics(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = f.do(t, http.MethodGet, "/jobs/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `stockledger_http_requests_total{code="200",route="/healthz"}`)
}

func TestRouterHealthFailure(t *testing.T) {
	f := newRouterFixture(t, func(*http.Request) error { return errors.New("pg down") })
	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterRequiresAuthentication(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/stores", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/stores", "not-a-token", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAuthenticatedStores(t *testing.T) {
	f := newRouterFixture(t, nil)
	ctx := context.Background()

	owner, err := f.sessions.Issue(ctx, 1)
	require.NoError(t, err)
	member, err := f.sessions.Issue(ctx, 2)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/stores", owner.Token, `{"title":"Main street"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/stores", member.Token, `{"title":"Side street"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/stores/1", owner.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Main street")
}

func TestRouterAdminRoutes(t *testing.T) {
	f := newRouterFixture(t, nil)
	ctx := context.Background()

	rec := f.do(t, http.MethodGet, "/admin/stores/1/users", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	member, err := f.sessions.Issue(ctx, 2)
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/admin/stores/1/users", member.Token, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	owner, err := f.sessions.Issue(ctx, 1)
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/admin/stores/1/users", owner.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Main street")

	rec = f.do(t, http.MethodPost, "/admin/stores/1/users", owner.Token, `{"user_id":5,"role":"viewer"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRouterCORSPreflight(t *testing.T) {
	f := newRouterFixture(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/actions", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
