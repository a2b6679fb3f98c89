package auth

import (
	"log/slog"
	"net/http"

	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/observability"
	"github.com/paras-verma7454/DriveDeck/internal/transport"
	"github.com/paras-verma7454/DriveDeck/pkg/logger"
)

type Decision string

const (
	Allow       Decision = observability.DecisionAllowed
	AdminBypass Decision = observability.DecisionAdminBypass
	Deny        Decision = observability.DecisionDenied
)

func (d Decision) Allowed() bool {
	return d == Allow || d == AdminBypass
}

// Decide is the gate predicate: admin always passes, anyone else needs at
// least one of required. An empty required list therefore admits only admin.
func Decide(p *Principal, required []string) Decision {
	if p.IsAdmin() {
		return AdminBypass
	}
	if p != nil && p.Permissions.HasAny(required...) {
		return Allow
	}
	return Deny
}

type RBACAuthorization struct {
	*transport.BaseHandler
	metrics *observability.Metrics
}

func NewRBACAuthorization(metrics *observability.Metrics, lg *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(lg),
		metrics:     metrics,
	}
}

// HasPermission returns a middleware admitting callers that hold any of
// keys. It must run behind AuthMiddleware.
func (ra *RBACAuthorization) HasPermission(keys ...string) func(http.Handler) http.Handler {
	required := append([]string(nil), keys...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				logger.From(r.Context()).Warn("permission gate reached without a principal", "path", r.URL.Path)
				ra.metrics.ObserveDecision(observability.DecisionDenied)
				ra.WriteAppError(w, r, internal.ErrMissingAuthHeader)
				return
			}

			decision := Decide(principal, required)
			ra.metrics.ObserveDecision(string(decision))
			if !decision.Allowed() {
				logger.From(r.Context()).Warn("access denied",
					"required_permissions", required,
					"user_permissions", principal.Permissions.Keys())
				ra.WriteAppError(w, r, internal.ErrInsufficientPermissions)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
