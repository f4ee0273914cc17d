// Package httptransport assembles the HTTP surface of the service. Handlers
// live with their domains; this package only composes them with the shared
// middleware stack.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	holderhandler "credon/internal/holder/handler"
	lifecyclehandler "credon/internal/lifecycle/handler"
	"credon/internal/platform/health"
	"credon/internal/platform/middleware"
	proofconfighandler "credon/internal/proofconfig/handler"
	"credon/internal/wallet"
)

// Handlers holds the domain handlers mounted on the router. Optional entries
// may be nil and are skipped.
type Handlers struct {
	Lifecycle   *lifecyclehandler.Handler
	Admin       *lifecyclehandler.AdminHandler
	Holders     *holderhandler.Handler
	ProofConfig *proofconfighandler.Handler
	Wallet      *wallet.Handler
	Health      *health.Handler
}

// NewRouter wires all endpoints with the shared middleware chain. Admin
// routes sit behind the bearer token middleware; /metrics and the health
// probes skip the JSON content type requirement.
func NewRouter(h Handlers, adminValidator middleware.AdminValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.ClientMetadata)

	if h.Health != nil {
		h.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(2 * time.Minute))
		api.Use(middleware.ContentTypeJSON)

		if h.Lifecycle != nil {
			h.Lifecycle.Register(api)
		}
		if h.Holders != nil {
			h.Holders.Register(api)
		}
		if h.ProofConfig != nil {
			h.ProofConfig.Register(api)
		}
		if h.Wallet != nil {
			h.Wallet.Register(api)
		}

		if h.Admin != nil {
			api.Route("/admin", func(admin chi.Router) {
				admin.Use(middleware.RequireAdmin(adminValidator, logger))
				h.Admin.Register(admin)
			})
		}
	})

	return r
}
