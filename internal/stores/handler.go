package stores

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

// Handler exposes store endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	access    access.Middleware
}

// NewHandler builds the store handler.
func NewHandler(logger *slog.Logger, service *Service, access access.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), access: access}
}

// MountRoutes registers store routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.access.RequireAdmin)
		r.Post("/", h.create)
	})
}

type storeListResponse struct {
	Items      []Store           `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := access.PrincipalFromContext(r.Context())
	page, err := shared.ParsePageRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Pagination", err.Error())
		return
	}
	items, meta, err := h.service.List(r.Context(), actor, page)
	if err != nil {
		h.fail(w, "list stores", err)
		return
	}
	httpx.JSON(w, http.StatusOK, storeListResponse{Items: items, Pagination: meta})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "store id must be numeric")
		return
	}
	actor, _ := access.PrincipalFromContext(r.Context())
	store, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "get store", err)
		return
	}
	httpx.JSON(w, http.StatusOK, store)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateStoreInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(input); err != nil {
		if fields, ok := httpx.FieldErrors(err); ok {
			httpx.ValidationProblem(w, fields)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	actor, _ := access.PrincipalFromContext(r.Context())
	store, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.fail(w, "create store", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, store)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if h.logger != nil && !isDomainError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrStoreNotFound) || errors.Is(err, ErrDuplicateTitle) || errors.Is(err, access.ErrForbidden)
}

func init() {
	httpx.RegisterClassifier(func(err error) error {
		switch {
		case errors.Is(err, ErrStoreNotFound):
			return httpx.ErrNotFound
		case errors.Is(err, ErrDuplicateTitle):
			return httpx.ErrDuplicate
		}
		return nil
	})
}
