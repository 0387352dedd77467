package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khata-app/khata/internal/observability"
	"github.com/khata-app/khata/internal/sales/orders"
	"github.com/khata-app/khata/internal/shared"
	"github.com/khata-app/khata/jobs"
	_ "github.com/khata-app/khata/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("REPORT_CACHE_TTL", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "₹", cfg.CurrencySymbol)
	assert.Equal(t, 90*time.Second, cfg.ReportCacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.MigrateOnStart)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", AppEnv: "production"}, &buf)
	logger.Debug("hidden")
	logger.Info("visible", slog.Int64("user_id", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, float64(3), entry["user_id"])
}

func newTestRouter(t *testing.T) (http.Handler, *shared.SessionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionStore(client, "secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(RouterParams{
		Logger:        logger,
		Config:        &Config{AppEnv: "test", RateLimitPerMinute: 1000},
		Metrics:       observability.NewMetrics(),
		Sessions:      sessions,
		OrdersHandler: orders.NewHandler(logger, nil),
		JobHandler:    jobs.NewHandler(nil, logger),
	})
	return router, sessions
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	router, sessions := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	token, err := sessions.Issue(context.Background(), 1)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `khata_http_requests_total{code="401",route="/orders"}`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTestModeFlag(t *testing.T) {
	assert.True(t, InTestMode())

	t.Setenv("KHATA_TEST_MODE", "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv("KHATA_TEST_MODE", "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
}
