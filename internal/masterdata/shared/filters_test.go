package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiltersFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/products?page=3&limit=1000&search=tile&sort=price&dir=desc", nil)
	f := FiltersFromRequest(r)

	assert.Equal(t, 3, f.Page)
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, "tile", f.Search)
	assert.Equal(t, 2*MaxLimit, f.Offset())
}

func TestOrderByRejectsUnknownColumns(t *testing.T) {
	allowed := []string{"name", "price"}
	assert.Equal(t, "price DESC, id ASC", OrderBy("price", "desc", allowed, "name"))
	assert.Equal(t, "name ASC, id ASC", OrderBy("price; DROP TABLE products", "asc", allowed, "name"))
}
