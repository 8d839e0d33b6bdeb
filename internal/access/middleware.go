package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// SessionLookup resolves bearer tokens.
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (shared.Session, error)
}

// PrincipalLoader loads the roles of a user.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID int64) (Principal, error)
}

// Middleware wires authentication and role gates for HTTP handlers.
type Middleware struct {
	Sessions   SessionLookup
	Principals PrincipalLoader
	Logger     *slog.Logger
}

// Authenticate resolves the bearer token into a principal stored in context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, ErrUnauthenticated)
			return
		}
		sess, err := m.Sessions.Lookup(r.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrSessionNotFound) || errors.Is(err, shared.ErrMalformedToken) {
				httpx.RespondError(w, ErrUnauthenticated)
				return
			}
			m.logError("session lookup", err)
			httpx.RespondError(w, err)
			return
		}
		principal, err := m.Principals.LoadPrincipal(r.Context(), sess.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				httpx.RespondError(w, ErrUnauthenticated)
				return
			}
			m.logError("load principal", err)
			httpx.RespondError(w, err)
			return
		}
		ctx := shared.ContextWithSession(r.Context(), sess)
		ctx = ContextWithPrincipal(ctx, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only company owners and admins.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, ErrUnauthenticated)
			return
		}
		if !principal.IsAdmin() {
			httpx.RespondError(w, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(raw, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func init() {
	httpx.RegisterClassifier(func(err error) error {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			return httpx.ErrUnauthorized
		case errors.Is(err, ErrForbidden), errors.Is(err, ErrAdminStoreRole), errors.Is(err, ErrSelfCompanyRole):
			return httpx.ErrForbidden
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrStoreNotFound), errors.Is(err, ErrStoreRoleNotFound):
			return httpx.ErrNotFound
		case errors.Is(err, ErrStoreRoleExists):
			return httpx.ErrDuplicate
		}
		return nil
	})
}
