package access

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
)

// AdminHandler exposes store membership and company role administration.
type AdminHandler struct {
	logger    *slog.Logger
	service   *AdminService
	validator *validator.Validate
	access    Middleware
}

// NewAdminHandler builds AdminHandler.
func NewAdminHandler(logger *slog.Logger, service *AdminService, access Middleware) *AdminHandler {
	return &AdminHandler{logger: logger, service: service, validator: validator.New(), access: access}
}

// MountRoutes registers admin routes. Every route requires a company admin.
func (h *AdminHandler) MountRoutes(r chi.Router) {
	r.Use(h.access.RequireAdmin)
	r.Put("/users/{userID}/company_role", h.updateCompanyRole)
	r.Route("/stores/{storeID}/users", func(r chi.Router) {
		r.Get("/", h.storeWithUsers)
		r.Post("/", h.assign)
		r.Put("/{userID}", h.updateStoreRole)
		r.Delete("/{userID}", h.unassign)
	})
}

func (h *AdminHandler) storeWithUsers(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}
	store, err := h.service.StoreWithUsers(r.Context(), storeID)
	if err != nil {
		h.fail(w, "store with users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, store)
}

func (h *AdminHandler) assign(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}
	var input AssignStoreRoleInput
	if !h.decode(w, r, &input) {
		return
	}
	store, err := h.service.AssignStoreRole(r.Context(), storeID, input)
	if err != nil {
		h.fail(w, "assign store role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, store)
}

func (h *AdminHandler) updateStoreRole(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var input UpdateStoreRoleInput
	if !h.decode(w, r, &input) {
		return
	}
	store, err := h.service.UpdateStoreRole(r.Context(), storeID, userID, input)
	if err != nil {
		h.fail(w, "update store role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, store)
}

func (h *AdminHandler) unassign(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.service.UnassignStoreRole(r.Context(), storeID, userID); err != nil {
		h.fail(w, "unassign store role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) updateCompanyRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var input UpdateCompanyRoleInput
	if !h.decode(w, r, &input) {
		return
	}
	actor, _ := PrincipalFromContext(r.Context())
	user, err := h.service.UpdateCompanyRole(r.Context(), actor, userID, input)
	if err != nil {
		h.fail(w, "update company role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		if fields, ok := httpx.FieldErrors(err); ok {
			httpx.ValidationProblem(w, fields)
			return false
		}
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *AdminHandler) fail(w http.ResponseWriter, msg string, err error) {
	if h.logger != nil && !isAdminError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func isAdminError(err error) bool {
	for _, target := range []error{
		ErrForbidden, ErrUserNotFound, ErrStoreNotFound, ErrStoreRoleExists,
		ErrStoreRoleNotFound, ErrAdminStoreRole, ErrSelfCompanyRole,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
