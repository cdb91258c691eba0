package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KyleQD/Flow-sub006/internal/authz"
	"github.com/KyleQD/Flow-sub006/internal/platform/httpx"
	"github.com/KyleQD/Flow-sub006/internal/roles"
	"github.com/KyleQD/Flow-sub006/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthzHandler    *authz.Handler
	RolesHandler    *roles.Handler
	AuthzMiddleware authz.Middleware
}

// NewRouter constructs the chi.Router with Flow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/me", func(r chi.Router) {
			params.AuthzHandler.MountMeRoutes(r)
		})
		r.Route("/roles", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.RequireAll(shared.PermRolesManage))
			params.RolesHandler.MountRoutes(r)
		})
		r.Route("/assignments", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.RequireAll(shared.PermUsersManage))
			params.AuthzHandler.MountAssignmentRoutes(r)
		})
	})

	return r
}
