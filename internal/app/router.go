package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealerdesk/dealerdesk/internal/audit"
	"github.com/dealerdesk/dealerdesk/internal/auth"
	"github.com/dealerdesk/dealerdesk/internal/customers"
	"github.com/dealerdesk/dealerdesk/internal/invoicing"
	"github.com/dealerdesk/dealerdesk/internal/leads"
	"github.com/dealerdesk/dealerdesk/internal/marketplace"
	"github.com/dealerdesk/dealerdesk/internal/observability"
	"github.com/dealerdesk/dealerdesk/internal/rbac"
	"github.com/dealerdesk/dealerdesk/internal/roles"
	"github.com/dealerdesk/dealerdesk/internal/shared"
	"github.com/dealerdesk/dealerdesk/internal/users"
	"github.com/dealerdesk/dealerdesk/internal/vehicles"
	"github.com/dealerdesk/dealerdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler        *auth.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *rbac.PermissionsHandler
	AuditHandler       *audit.Handler
	VehiclesHandler    *vehicles.Handler
	CustomersHandler   *customers.Handler
	LeadsHandler       *leads.Handler
	InvoicesHandler    *invoicing.Handler
	MarketplaceHandler *marketplace.Handler
	JobsHandler        *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with DealerDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/roles", params.RolesHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	r.Route("/audit", params.AuditHandler.MountRoutes)

	r.Route("/vehicles", params.VehiclesHandler.MountRoutes)
	r.Route("/customers", params.CustomersHandler.MountRoutes)
	r.Route("/leads", params.LeadsHandler.MountRoutes)
	r.Route("/invoices", params.InvoicesHandler.MountRoutes)
	r.Route("/marketplace", params.MarketplaceHandler.MountRoutes)

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
