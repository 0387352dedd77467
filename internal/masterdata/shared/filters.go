package shared

import (
	"net/http"
	"strconv"
)

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 200

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
}

// FiltersFromRequest reads page, limit, search, sort and dir query params.
func FiltersFromRequest(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = DefaultPage
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
}

// Offset of the first row on the current page.
func (f ListFilters) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// OrderBy returns a safe ORDER BY clause. Only columns listed in allowed are
// accepted; anything else falls back to fallback.
func OrderBy(sortBy, sortDir string, allowed []string, fallback string) string {
	dir := "ASC"
	if sortDir == SortDesc {
		dir = "DESC"
	}
	col := fallback
	for _, c := range allowed {
		if c == sortBy {
			col = c
			break
		}
	}
	return col + " " + dir + ", id ASC"
}
