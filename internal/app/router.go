package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/khata-app/khata/internal/audit"
	"github.com/khata-app/khata/internal/auth"
	"github.com/khata-app/khata/internal/billing"
	"github.com/khata-app/khata/internal/ledger"
	"github.com/khata-app/khata/internal/masterdata/products"
	"github.com/khata-app/khata/internal/masterdata/suppliers"
	"github.com/khata-app/khata/internal/observability"
	"github.com/khata-app/khata/internal/platform/httpx"
	"github.com/khata-app/khata/internal/reports"
	"github.com/khata-app/khata/internal/sales/customers"
	"github.com/khata-app/khata/internal/sales/orders"
	"github.com/khata-app/khata/internal/sales/quotations"
	"github.com/khata-app/khata/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Metrics  *observability.Metrics
	Sessions auth.Sessions

	AuthHandler       *auth.Handler
	ProductsHandler   *products.Handler
	SuppliersHandler  *suppliers.Handler
	CustomersHandler  *customers.Handler
	OrdersHandler     *orders.Handler
	QuotationsHandler *quotations.Handler
	LedgerHandler     *ledger.Handler
	BillingHandler    *billing.Handler
	ReportsHandler    *reports.Handler
	AuditHandler      *audit.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Khata defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.Sessions, params.Logger))

		if params.ProductsHandler != nil {
			r.Route("/products", params.ProductsHandler.MountRoutes)
		}
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			params.CustomersHandler.MountRoutes(r)
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountRoutes(r)
		}
		if params.QuotationsHandler != nil {
			params.QuotationsHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(r)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})

	return r
}
