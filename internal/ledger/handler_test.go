package ledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
)

func newTestRouter(t *testing.T, actor access.Principal, repo *memoryRepo, opts ServiceOptions) http.Handler {
	t.Helper()
	opts.Units = repo
	handler := NewHandler(nil, NewService(repo, opts))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(access.ContextWithPrincipal(req.Context(), actor)))
		})
	})
	r.Route("/actions", handler.MountRoutes)
	return r
}

func TestHandlerSubmitAndRead(t *testing.T) {
	repo := newMemoryRepo(unit(1, "10", "40", "130"))
	router := newTestRouter(t, manager, repo, ServiceOptions{})

	body := `{"store_id":1,"action":"sales","transactions":[{"unit_id":1,"quantity_delta":4,"discount_price":"120"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail ActionDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, KindSales, detail.Kind)
	require.Len(t, detail.Transactions, 1)
	require.True(t, detail.Transactions[0].DiscountPrice.Decimal.Equal(dec("120")))
	require.True(t, detail.Transactions[0].CostPrice.Decimal.Equal(dec("40")))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions?store_id=1&search_term=sales", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page ActionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Pagination.Total)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions/1/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "action-1.xlsx")
	require.NotEmpty(t, rec.Body.Bytes())
}

func TestHandlerSubmitErrors(t *testing.T) {
	cases := []struct {
		name   string
		actor  access.Principal
		body   string
		status int
		detail string
	}{
		{
			name:   "insufficient stock",
			actor:  manager,
			body:   `{"store_id":1,"action":"writeOff","transactions":[{"unit_id":1,"quantity_delta":11}]}`,
			status: http.StatusConflict,
			detail: "[1]",
		},
		{
			name:   "duplicate units",
			actor:  manager,
			body:   `{"store_id":1,"action":"writeOff","transactions":[{"unit_id":1,"quantity_delta":1},{"unit_id":1,"quantity_delta":1}]}`,
			status: http.StatusBadRequest,
			detail: "duplicate unit ids",
		},
		{
			name:   "missing unit",
			actor:  manager,
			body:   `{"store_id":1,"action":"writeOff","transactions":[{"unit_id":9,"quantity_delta":1}]}`,
			status: http.StatusNotFound,
			detail: "[9]",
		},
		{
			name:   "forbidden kind",
			actor:  seller,
			body:   `{"store_id":1,"action":"writeOff","transactions":[{"unit_id":1,"quantity_delta":1}]}`,
			status: http.StatusForbidden,
		},
		{
			name:   "unknown kind",
			actor:  manager,
			body:   `{"store_id":1,"action":"transfer","transactions":[{"unit_id":1,"quantity_delta":1}]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "wrong shape",
			actor:  manager,
			body:   `{"store_id":1,"action":"sales","transactions":[{"unit_id":1,"quantity_delta":1}]}`,
			status: http.StatusBadRequest,
			detail: "discount_price",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryRepo(unit(1, "10", "40", "130"))
			router := newTestRouter(t, tc.actor, repo, ServiceOptions{})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions", strings.NewReader(tc.body)))
			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			var problem httpx.ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			if tc.detail != "" {
				require.Contains(t, problem.Detail+strings.Join(keys(problem.Fields), ","), tc.detail)
			}
			require.Empty(t, repo.actions)
		})
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestHandlerIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo(unit(1, "10", "40", "130"))
	router := newTestRouter(t, manager, repo, ServiceOptions{Idempotency: &fakeIdempotency{keys: make(map[string]bool)}})
	body := `{"store_id":1,"action":"writeOff","transactions":[{"unit_id":1,"quantity_delta":1}]}`

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/actions", strings.NewReader(body))
		req.Header.Set(IdempotencyHeader, key)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusBadRequest, send("retry-1"))
	require.Equal(t, http.StatusCreated, send("0b5c6c83-8f0e-4c8e-9d8b-6a1f3f6f2f10"))
	require.Equal(t, http.StatusConflict, send("0b5c6c83-8f0e-4c8e-9d8b-6a1f3f6f2f10"))
	require.Len(t, repo.actions, 1)
}

func TestHandlerListRequiresStoreForMembers(t *testing.T) {
	router := newTestRouter(t, viewer, newMemoryRepo(), ServiceOptions{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions?store_id=1&search_term=bogus", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actions/77", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
