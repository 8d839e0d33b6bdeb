package units

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/access"
)

func newTestRouter(actor access.Principal) http.Handler {
	handler := NewHandler(nil, NewService(newMemoryRepo()))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(access.ContextWithPrincipal(req.Context(), actor)))
		})
	})
	r.Route("/units", handler.MountRoutes)
	return r
}

func TestHandlerUnitLifecycle(t *testing.T) {
	router := newTestRouter(manager)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/units", strings.NewReader(`{"store_id":1,"title":"Socket","measurement":"pieces"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/units/1", strings.NewReader(`{"description":"white"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"description":"white"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/units?store_id=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/units/1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/units/1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	router := newTestRouter(manager)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/units", strings.NewReader(`{"store_id":1,"title":"Socket","measurement":"litres"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/units", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/units?store_id=2", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
