package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khata-app/khata/internal/shared"
)

type stubRepo struct {
	rows       []TimelineRow
	lastParams WindowParams
	lastUser   int64
	err        error
}

func (s *stubRepo) TimelineWindow(_ context.Context, userID int64, params WindowParams) ([]TimelineRow, error) {
	s.lastUser = userID
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	rows := s.rows
	if params.Offset > len(rows) {
		return nil, nil
	}
	rows = rows[params.Offset:]
	if params.Limit > 0 && len(rows) > params.Limit {
		rows = rows[:params.Limit]
	}
	return rows, nil
}

func sampleRows(n int) []TimelineRow {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{At: base.Add(-time.Duration(i) * time.Hour), Action: "order.created", Entity: "order", EntityID: "1"}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: sampleRows(25)}
	svc := NewService(repo)

	first, err := svc.Timeline(context.Background(), 7, TimelineFilters{})
	require.NoError(t, err)
	assert.Len(t, first.Rows, defaultPageSize)
	assert.True(t, first.Paging.HasNext)
	assert.Equal(t, 2, first.Paging.NextPage)
	assert.Equal(t, defaultPageSize+1, repo.lastParams.Limit)
	assert.Equal(t, int64(7), repo.lastUser)

	second, err := svc.Timeline(context.Background(), 7, TimelineFilters{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Rows, 5)
	assert.False(t, second.Paging.HasNext)
	assert.Equal(t, 1, second.Paging.PrevPage)

	_, err = svc.Timeline(context.Background(), 7, TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize+1, repo.lastParams.Limit)
}

func TestTimelineRepositoryError(t *testing.T) {
	svc := NewService(&stubRepo{err: errors.New("boom")})
	_, err := svc.Timeline(context.Background(), 1, TimelineFilters{})
	assert.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	rows := sampleRows(2)
	rows[0].Meta = map[string]any{"total": "150.00", "customer_id": 3}
	repo := &stubRepo{rows: rows}

	var buf bytes.Buffer
	require.NoError(t, NewService(repo).ExportCSV(context.Background(), 1, TimelineFilters{Entity: "order"}, &buf))
	assert.Zero(t, repo.lastParams.Limit)
	assert.Equal(t, "order", repo.lastParams.Entity)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "at,action,entity,entity_id,meta", lines[0])
	assert.Equal(t, "2024-05-01T10:00:00Z,order.created,order,1,customer_id=3 total=150.00", lines[1])
}

func newTestRouter(repo Repository) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithUserID(req.Context(), 1)))
		})
	})
	h.MountRoutes(r)
	return r
}

func TestHandlerTimelineFilters(t *testing.T) {
	repo := &stubRepo{rows: sampleRows(3)}
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit?from=2024-05-01&to=2024-05-01&action=order.created", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Rows, 3)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), repo.lastParams.From)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), repo.lastParams.To)
	assert.Equal(t, "order.created", repo.lastParams.Action)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
}
