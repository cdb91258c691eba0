package authz

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KyleQD/Flow-sub006/internal/platform/httpx"
)

type contextKey string

const userIDKey contextKey = "authz.user_id"

// ContextWithUserID stamps the authenticated user onto the context. The
// authentication layer in front of the engine is expected to call this.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// Extractor pulls the acting user and target resource out of a request.
type Extractor func(r *http.Request) (userID, resourceID string, err error)

// Middleware wires authorization enforcement for HTTP handlers. The check
// runs before the wrapped handler so the enforcement point stays visible at
// the mount site.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireResourceAccess guards a route with CanAccessResource. The outcome
// is audited by the underlying check; denials render a 403 problem carrying
// the resource type and id.
func (m Middleware) RequireResourceAccess(resourceType, permission string, extract Extractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, resourceID, err := extract(r)
			if err != nil || userID == "" {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing caller identity")
				return
			}
			if !m.Service.CanAccessResource(r.Context(), userID, resourceType, resourceID, permission) {
				denied := &AccessDeniedError{ResourceType: resourceType, ResourceID: resourceID}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", denied.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the caller holds at least one of the permissions in the
// global scope.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing caller identity")
				return
			}
			checker := m.Service.NewChecker(userID, nil)
			if checker.HasAnyPermission(r.Context(), perms) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
		})
	}
}

// RequireAll ensures the caller holds every permission in the global scope.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing caller identity")
				return
			}
			checker := m.Service.NewChecker(userID, nil)
			if checker.HasAllPermissions(r.Context(), perms) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
		})
	}
}

// Require is the non-HTTP guard form: it runs fn only when the scoped check
// passes, otherwise returns an AccessDeniedError carrying the resource.
func Require(ctx context.Context, svc *Service, userID, resourceType, resourceID, permission string, fn func(context.Context) error) error {
	if !svc.CanAccessResource(ctx, userID, resourceType, resourceID, permission) {
		return &AccessDeniedError{ResourceType: resourceType, ResourceID: resourceID}
	}
	return fn(ctx)
}

// HeaderExtractor reads the user from the request context and the resource
// id from a chi URL parameter via the provided lookup.
func HeaderExtractor(param func(r *http.Request) string) Extractor {
	return func(r *http.Request) (string, string, error) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			return "", "", fmt.Errorf("authz: no user in request context")
		}
		return userID, param(r), nil
	}
}
