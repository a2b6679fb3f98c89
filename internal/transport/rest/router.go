package rest

import (
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/auth"
	"github.com/paras-verma7454/DriveDeck/internal/observability"
	"github.com/paras-verma7454/DriveDeck/internal/rbac"
	"github.com/paras-verma7454/DriveDeck/internal/transport/middleware"
	"github.com/paras-verma7454/DriveDeck/internal/transport/swagger"
	"github.com/paras-verma7454/DriveDeck/internal/user"
)

// Handlers is everything the router mounts. Metrics may be nil.
type Handlers struct {
	Config  *internal.Config
	Health  *HealthHandler
	Auth    *auth.Handler
	Gate    *auth.RBACAuthorization
	Users   *user.Handler
	RBAC    *rbac.Handler
	Metrics *observability.Metrics
}

func NewRouter(h Handlers) *chi.Mux {
	router := chi.NewRouter()
	RegisterAllRoutes(router, h)
	return router
}

func RegisterAllRoutes(router *chi.Mux, h Handlers) {
	cfg := h.Config
	if cfg == nil {
		cfg = &internal.Config{}
	}
	metricsOn := h.Metrics != nil && cfg.Observability.Metrics.Enabled

	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.TraceID)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.SecureHeaders(cfg))
	if metricsOn {
		router.Use(h.Metrics.Middleware)
	}
	router.Use(middleware.Logging)

	router.Get(swagger.SpecPath, swagger.SpecHandler)
	router.Handle("/swagger/*", swagger.Handler())
	if metricsOn {
		path := cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, h.Metrics.Handler())
	}

	gate := h.Gate

	router.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.Health.Health)
		r.Get("/ping", h.Health.Ping)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/signup", h.Auth.Signup)
			ar.Post("/login", h.Auth.Login)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/user", h.Auth.Me)

			pr.Route("/users", func(ur chi.Router) {
				ur.With(gate.HasPermission(rbac.PermUsersView)).Get("/", h.Users.ListUsers)
				ur.With(gate.HasPermission(rbac.PermUsersDelete)).Post("/{id}/deactivate", h.Users.Deactivate)
				ur.With(gate.HasPermission(rbac.PermRolesManage)).Put("/{id}/role", h.Users.AssignRole)
			})

			pr.Route("/permissions", func(psr chi.Router) {
				psr.With(gate.HasPermission(rbac.PermPermissionsView, rbac.PermRolesManage)).Get("/", h.RBAC.ListPermissions)

				psr.Group(func(mr chi.Router) {
					mr.Use(gate.HasPermission(rbac.PermRolesManage))
					mr.Post("/", h.RBAC.CreatePermission)
					mr.Put("/{id}", h.RBAC.UpdatePermission)
					mr.Delete("/{id}", h.RBAC.DeletePermission)
				})
			})

			pr.Route("/roles", func(rr chi.Router) {
				viewers := gate.HasPermission(rbac.PermRolesView, rbac.PermRolesManage)
				rr.With(viewers).Get("/", h.RBAC.ListRoles)
				rr.With(viewers).Get("/{id}/permissions", h.RBAC.GetRolePermissions)

				rr.Group(func(mr chi.Router) {
					mr.Use(gate.HasPermission(rbac.PermRolesManage))
					mr.Post("/", h.RBAC.CreateRole)
					mr.Delete("/{id}", h.RBAC.DeleteRole)
					mr.Put("/{id}/permissions", h.RBAC.ReplaceRolePermissions)
				})
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.Health.WriteError(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.Health.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}
