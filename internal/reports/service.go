package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/khata-app/khata/internal/balance"
	"github.com/khata-app/khata/internal/masterdata/products"
	"github.com/khata-app/khata/internal/sales/customers"
	"github.com/khata-app/khata/internal/sales/orders"
	"github.com/khata-app/khata/internal/shared"
)

type OrderSource interface {
	All(ctx context.Context, userID int64) ([]orders.Order, error)
}

type ProductSource interface {
	Catalog(ctx context.Context, userID int64) (map[int64]products.Product, error)
}

type PaymentSource interface {
	Payments(ctx context.Context, userID int64) ([]balance.Payment, error)
}

type CustomerSource interface {
	Names(ctx context.Context, userID int64) (map[int64]string, error)
}

// Service builds the balance views shown on the dashboard.
type Service struct {
	orders    OrderSource
	products  ProductSource
	payments  PaymentSource
	customers CustomerSource
	cache     *Cache
	group     singleflight.Group
	now       func() time.Time
}

func NewService(orders OrderSource, products ProductSource, payments PaymentSource, customers CustomerSource, cache *Cache) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		payments:  payments,
		customers: customers,
		cache:     cache,
		now:       time.Now,
	}
}

// Bump invalidates the cached views of the user.
func (s *Service) Bump(ctx context.Context, userID int64) error {
	return s.cache.Bump(ctx, userID)
}

// Build returns the dashboard of the user, served from cache when fresh.
// Concurrent builds for the same cache key share one computation.
func (s *Service) Build(ctx context.Context, userID int64) (*Dashboard, error) {
	key, err := s.cache.BuildKey(ctx, userID, "dashboard")
	if err != nil {
		return nil, fmt.Errorf("reports: cache key: %w", err)
	}
	resultChan := s.group.DoChan(key, func() (any, error) {
		var dash Dashboard
		err := s.cache.FetchJSON(ctx, key, &dash, func(ctx context.Context) (any, error) {
			return s.compute(ctx, userID)
		})
		return &dash, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dashboard), nil
	}
}

type snapshot struct {
	orders   []orders.Order
	catalog  map[int64]products.Product
	payments []balance.Payment
	names    map[int64]string
}

func (s *Service) load(ctx context.Context, userID int64) (snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := s.orders.All(ctx, userID)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
		snap.orders = list
		return nil
	})
	g.Go(func() error {
		catalog, err := s.products.Catalog(ctx, userID)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		snap.catalog = catalog
		return nil
	})
	g.Go(func() error {
		payments, err := s.payments.Payments(ctx, userID)
		if err != nil {
			return fmt.Errorf("load collections: %w", err)
		}
		snap.payments = payments
		return nil
	})
	g.Go(func() error {
		names, err := s.customers.Names(ctx, userID)
		if err != nil {
			return fmt.Errorf("load customers: %w", err)
		}
		snap.names = names
		return nil
	})

	return snap, g.Wait()
}

func (s *Service) compute(ctx context.Context, userID int64) (*Dashboard, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Compose(snap.orders, snap.catalog, snap.payments, snap.names, s.now()), nil
}

// Compose resolves every order against current prices and collections and
// sorts the results into dashboard tabs.
func Compose(list []orders.Order, catalog map[int64]products.Product, payments []balance.Payment, names map[int64]string, now time.Time) *Dashboard {
	prices := products.BuildPriceBook(catalogSlice(catalog))
	ledger := balance.Aggregate(payments)

	dash := &Dashboard{
		GeneratedAt: now.UTC(),
		Pending:     []OrderRow{},
		Udhaar:      []OrderRow{},
		History:     []OrderRow{},
		Customers:   []CustomerRow{},
		Totals: Totals{
			Pending:   decimal.Zero,
			Udhaar:    decimal.Zero,
			Collected: decimal.Zero,
		},
	}

	balances := make([]balance.OrderBalance, 0, len(list))
	for _, o := range list {
		in := o.Input()
		b := balance.ResolveOrder(in, prices, ledger)
		balances = append(balances, b)

		row := OrderRow{
			OrderID:      o.ID,
			CustomerID:   o.CustomerID,
			CustomerName: customers.DisplayName(names, o.CustomerID),
			Status:       string(o.Status),
			JobDate:      o.JobDate,
			Assignee:     o.Assignee,
			SiteAddress:  o.SiteAddress,
			Total:        b.Total,
			Advance:      b.Advance,
			Collected:    b.Collected,
			Pending:      b.Pending,
			Udhaar:       b.Udhaar,
		}
		for _, line := range balance.ValueOrder(in.Items, prices).Lines {
			name := balance.UnknownProductLabel
			if p, ok := catalog[line.ProductID]; ok {
				name = p.Name
			} else {
				row.UnknownProducts = true
			}
			row.Items = append(row.Items, ItemRow{
				ProductID:   line.ProductID,
				ProductName: name,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				Amount:      line.Amount,
			})
		}

		dash.Totals.Orders++
		dash.Totals.Collected = dash.Totals.Collected.Add(b.Collected)
		switch b.Bucket() {
		case balance.BucketPending:
			dash.Pending = append(dash.Pending, row)
			dash.Totals.Pending = dash.Totals.Pending.Add(b.Pending)
		case balance.BucketUdhaar:
			dash.Udhaar = append(dash.Udhaar, row)
			dash.Totals.Udhaar = dash.Totals.Udhaar.Add(b.Udhaar)
		default:
			dash.History = append(dash.History, row)
		}
	}

	for _, cb := range balance.SummarizeCustomers(balances, payments) {
		row := CustomerRow{
			CustomerID:   cb.CustomerID,
			CustomerName: customers.DisplayName(names, cb.CustomerID),
			Udhaar:       cb.Udhaar,
			Pending:      cb.Pending,
			Total:        cb.Total(),
			Orders:       cb.Orders,
		}
		if cb.EarliestDue != nil {
			due := shared.NewDate(*cb.EarliestDue)
			row.EarliestDue = &due
		}
		dash.Customers = append(dash.Customers, row)
	}
	return dash
}

func catalogSlice(catalog map[int64]products.Product) []products.Product {
	out := make([]products.Product, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	return out
}

// DueCollections lists customer aggregates whose earliest collection date is
// on or before asOf.
func (s *Service) DueCollections(ctx context.Context, userID int64, asOf time.Time) ([]CustomerRow, error) {
	dash, err := s.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dueRows(dash.Customers, asOf), nil
}

func dueRows(rows []CustomerRow, asOf time.Time) []CustomerRow {
	cutoff := shared.NewDate(asOf)
	due := []CustomerRow{}
	for _, row := range rows {
		if row.EarliestDue == nil {
			continue
		}
		if !row.EarliestDue.After(cutoff.Time) {
			due = append(due, row)
		}
	}
	return due
}
