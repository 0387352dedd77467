package products

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khata-app/khata/internal/masterdata/shared"
	"github.com/khata-app/khata/internal/platform/httpx"
	internalShared "github.com/khata-app/khata/internal/shared"
)

type mockRepository struct {
	products map[int64]Product
	nextID   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{products: make(map[int64]Product), nextID: 1}
}

func (m *mockRepository) owned(userID int64) []Product {
	var out []Product
	for _, p := range m.products {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockRepository) List(_ context.Context, userID int64, filters shared.ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range m.owned(userID) {
		if filters.Search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(filters.Search)) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockRepository) All(_ context.Context, userID int64) ([]Product, error) {
	return m.owned(userID), nil
}

func (m *mockRepository) Get(_ context.Context, userID, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok || p.UserID != userID {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) Create(_ context.Context, product Product) (Product, error) {
	product.ID = m.nextID
	m.nextID++
	product.CreatedAt = time.Now()
	m.products[product.ID] = product
	return product, nil
}

func (m *mockRepository) Update(_ context.Context, userID, id int64, product Product) error {
	existing, ok := m.products[id]
	if !ok || existing.UserID != userID {
		return shared.ErrNotFound
	}
	product.ID = id
	product.UserID = userID
	m.products[id] = product
	return nil
}

func (m *mockRepository) Delete(_ context.Context, userID, id int64) error {
	existing, ok := m.products[id]
	if !ok || existing.UserID != userID {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

type countingInvalidator struct{ bumps map[int64]int }

func (c *countingInvalidator) Bump(_ context.Context, userID int64) error {
	if c.bumps == nil {
		c.bumps = map[int64]int{}
	}
	c.bumps[userID]++
	return nil
}

func TestServiceCreateValidates(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, Product{Name: "  ", Price: decimal.NewFromInt(-1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	var fields httpx.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "price")

	created, err := svc.Create(ctx, 1, Product{Name: "Cement", Price: decimal.RequireFromString("350.499")})
	require.NoError(t, err)
	assert.Equal(t, "pcs", created.Unit)
	assert.True(t, decimal.RequireFromString("350.50").Equal(created.Price))
}

func TestServiceScopesByOwnerAndBumpsCache(t *testing.T) {
	repo := newMockRepository()
	inv := &countingInvalidator{}
	svc := NewService(repo, inv)
	ctx := context.Background()

	mine, err := svc.Create(ctx, 1, Product{Name: "Sand", Unit: "kg", Price: decimal.NewFromInt(40)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, Product{Name: "Brick", Price: decimal.NewFromInt(8)})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, mine.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)

	updated, err := svc.Update(ctx, 1, mine.ID, Product{Name: "Sand", Unit: "kg", Price: decimal.NewFromInt(45)})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(45).Equal(updated.Price))

	book, err := svc.PriceBook(ctx, 1)
	require.NoError(t, err)
	require.Len(t, book, 1)
	price, ok := book.Price(mine.ID)
	assert.True(t, ok)
	assert.True(t, decimal.NewFromInt(45).Equal(price))

	require.NoError(t, svc.Delete(ctx, 1, mine.ID))
	assert.Equal(t, 3, inv.bumps[1])
	assert.Equal(t, 1, inv.bumps[2])

	assert.ErrorIs(t, svc.Delete(ctx, 1, 0), httpx.ErrValidation)
}

func newTestRouter(svc *Service, userID int64) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(internalShared.ContextWithUserID(req.Context(), userID)))
		})
	})
	r.Route("/products", h.MountRoutes)
	return r
}

func TestHandlerCreateAndList(t *testing.T) {
	router := newTestRouter(NewService(newMockRepository(), nil), 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Tile","unit":"box","price":"120.50"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"unit":"box"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "is required", problem.Errors["name"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?search=til", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page internalShared.Page[Product]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Tile", page.Items[0].Name)
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestHandlerShowMissing(t *testing.T) {
	router := newTestRouter(NewService(newMockRepository(), nil), 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
