package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/stockledger/internal/access"
	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// IdempotencyHeader carries the optional client submission key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.submit)
	r.Get("/", h.list)
	r.Get("/{id}", h.detail)
	r.Get("/{id}/export.xlsx", h.export)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		if fields, ok := httpx.FieldErrors(err); ok {
			httpx.ValidationProblem(w, fields)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	key := r.Header.Get(IdempotencyHeader)
	if key != "" {
		if _, err := uuid.Parse(key); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Idempotency Key", "idempotency key must be a UUID")
			return
		}
	}

	actor, _ := access.PrincipalFromContext(r.Context())
	id, err := h.service.SubmitBatch(r.Context(), actor, req.toInput(key))
	if err != nil {
		h.fail(w, "submit batch", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, submitResponse{ID: id})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := shared.ParsePageRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Pagination", err.Error())
		return
	}
	q := r.URL.Query()

	var storeID *int64
	if raw := q.Get("store_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Store", "store_id must be a positive integer")
			return
		}
		storeID = &id
	}
	var kind *ActionKind
	if raw := q.Get("search_term"); raw != "" {
		k, err := ParseActionKind(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", fmt.Sprintf("unknown action kind %q", raw))
			return
		}
		kind = &k
	}

	actor, _ := access.PrincipalFromContext(r.Context())
	result, err := h.service.ListActions(r.Context(), actor, storeID, kind, page)
	if err != nil {
		h.fail(w, "list actions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	detail, ok := h.loadDetail(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	detail, ok := h.loadDetail(w, r)
	if !ok {
		return
	}
	data, err := ExportActionXLSX(detail)
	if err != nil {
		h.fail(w, "export action", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=action-%d.xlsx", detail.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) loadDetail(w http.ResponseWriter, r *http.Request) (ActionDetail, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "action id must be numeric")
		return ActionDetail{}, false
	}
	actor, _ := access.PrincipalFromContext(r.Context())
	detail, err := h.service.GetActionDetail(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "get action", err)
		return ActionDetail{}, false
	}
	return detail, true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if h.logger != nil && !IsDomainError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func init() {
	httpx.RegisterClassifier(func(err error) error {
		switch {
		case errors.Is(err, ErrActionNotFound), errors.Is(err, ErrUnitNotFound):
			return httpx.ErrNotFound
		case errors.Is(err, ErrEmptyBatch),
			errors.Is(err, ErrInvalidLineItem),
			errors.Is(err, ErrDuplicateUnitID),
			errors.Is(err, ErrUnknownActionKind),
			errors.Is(err, ErrUnitBelongsToAnotherStore):
			return httpx.ErrValidation
		case errors.Is(err, ErrInsufficientStock):
			return httpx.ErrConflict
		case errors.Is(err, ErrDuplicateSubmission):
			return httpx.ErrDuplicate
		case errors.Is(err, ErrActionAccessForbidden),
			errors.Is(err, ErrStoreAccessForbidden),
			errors.Is(err, ErrAllStoresForbidden):
			return httpx.ErrForbidden
		}
		return nil
	})
}
