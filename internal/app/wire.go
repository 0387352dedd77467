package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/khata-app/khata/internal/audit"
	"github.com/khata-app/khata/internal/auth"
	"github.com/khata-app/khata/internal/billing"
	"github.com/khata-app/khata/internal/ledger"
	"github.com/khata-app/khata/internal/masterdata/products"
	"github.com/khata-app/khata/internal/masterdata/suppliers"
	"github.com/khata-app/khata/internal/reports"
	"github.com/khata-app/khata/internal/sales/customers"
	"github.com/khata-app/khata/internal/sales/orders"
	"github.com/khata-app/khata/internal/sales/quotations"
	"github.com/khata-app/khata/internal/shared"
)

// Services holds every domain service wired against Postgres and Redis.
type Services struct {
	Sessions    *shared.SessionStore
	Idempotency *shared.IdempotencyStore
	Auth        *auth.Service
	Products    *products.Service
	Suppliers   *suppliers.Service
	Customers   *customers.Service
	Orders      *orders.Service
	Quotations  *quotations.Service
	Ledger      *ledger.Service
	Billing     *billing.Service
	Reports     *reports.Service
	Activity    *audit.Service
}

// NewServices wires the domain services. The report cache doubles as the
// invalidator every write path bumps.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client) *Services {
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)
	sessions := shared.NewSessionStore(redisClient, cfg.SessionSecret, cfg.SessionTTL)

	productService := products.NewService(products.NewRepository(pool), reportCache)
	supplierService := suppliers.NewService(suppliers.NewRepository(pool))
	customerService := customers.NewService(customers.NewRepository(pool), reportCache)
	orderService := orders.NewService(orders.NewRepository(pool), customerService, productService, auditLogger, reportCache)
	quotationService := quotations.NewService(quotations.NewRepository(pool), customerService, productService, auditLogger, reportCache)
	ledgerService := ledger.NewService(ledger.NewRepository(pool), customerService, orderService, idempotency, auditLogger, reportCache)
	orderService.SetPaymentSource(ledgerService)

	return &Services{
		Sessions:    sessions,
		Idempotency: idempotency,
		Auth:        auth.NewService(auth.NewRepository(pool), sessions),
		Products:    productService,
		Suppliers:   supplierService,
		Customers:   customerService,
		Orders:      orderService,
		Quotations:  quotationService,
		Ledger:      ledgerService,
		Billing:     billing.NewService(billing.NewRepository(pool), cfg.CurrencySymbol),
		Reports:     reports.NewService(orderService, productService, ledgerService, customerService, reportCache),
		Activity:    audit.NewService(audit.NewRepository(pool)),
	}
}

// Handlers builds the HTTP handlers for s.
func (s *Services) Handlers(logger *slog.Logger) RouterParams {
	return RouterParams{
		Logger:            logger,
		Sessions:          s.Sessions,
		AuthHandler:       auth.NewHandler(logger, s.Auth),
		ProductsHandler:   products.NewHandler(logger, s.Products),
		SuppliersHandler:  suppliers.NewHandler(logger, s.Suppliers),
		CustomersHandler:  customers.NewHandler(logger, s.Customers),
		OrdersHandler:     orders.NewHandler(logger, s.Orders),
		QuotationsHandler: quotations.NewHandler(logger, s.Quotations),
		LedgerHandler:     ledger.NewHandler(logger, s.Ledger),
		BillingHandler:    billing.NewHandler(logger, s.Billing),
		ReportsHandler:    reports.NewHandler(logger, s.Reports),
		AuditHandler:      audit.NewHandler(logger, s.Activity),
	}
}
