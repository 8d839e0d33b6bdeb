package units

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Handler exposes unit endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds the unit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers unit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

type unitListResponse struct {
	Items      []Unit            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.ParseInt(r.URL.Query().Get("store_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Store", "store_id query parameter is required")
		return
	}
	page, err := shared.ParsePageRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Pagination", err.Error())
		return
	}
	actor, _ := access.PrincipalFromContext(r.Context())
	items, meta, err := h.service.ListByStore(r.Context(), actor, storeID, r.URL.Query().Get("search"), page)
	if err != nil {
		h.fail(w, "list units", err)
		return
	}
	httpx.JSON(w, http.StatusOK, unitListResponse{Items: items, Pagination: meta})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateUnitInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if !h.validate(w, input) {
		return
	}
	actor, _ := access.PrincipalFromContext(r.Context())
	unit, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.fail(w, "create unit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, unit)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(w, r)
	if !ok {
		return
	}
	actor, _ := access.PrincipalFromContext(r.Context())
	unit, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "get unit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(w, r)
	if !ok {
		return
	}
	var input UpdateUnitInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if !h.validate(w, input) {
		return
	}
	actor, _ := access.PrincipalFromContext(r.Context())
	unit, err := h.service.UpdateDetails(r.Context(), actor, id, input)
	if err != nil {
		h.fail(w, "update unit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(w, r)
	if !ok {
		return
	}
	actor, _ := access.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete unit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validate(w http.ResponseWriter, input any) bool {
	if err := h.validator.Struct(input); err != nil {
		if fields, ok := httpx.FieldErrors(err); ok {
			httpx.ValidationProblem(w, fields)
			return false
		}
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if h.logger != nil && !isDomainError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func unitID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "unit id must be numeric")
		return 0, false
	}
	return id, true
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrUnitNotFound) ||
		errors.Is(err, ErrUnitHasTransactions) ||
		errors.Is(err, ErrStoreNotFound) ||
		errors.Is(err, access.ErrForbidden)
}

func init() {
	httpx.RegisterClassifier(func(err error) error {
		switch {
		case errors.Is(err, ErrUnitNotFound), errors.Is(err, ErrStoreNotFound):
			return httpx.ErrNotFound
		case errors.Is(err, ErrUnitHasTransactions):
			return httpx.ErrConflict
		}
		return nil
	})
}
