package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/observability"
	"github.com/odyssey-erp/backoffice/internal/shared"
	"github.com/odyssey-erp/backoffice/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(10), cfg.PGMaxConns)
	assert.Equal(t, 10*time.Minute, cfg.AnalyticsCacheTTL)
	assert.Equal(t, 5, cfg.WorkerConcurrency)
	assert.Equal(t, "10 0 * * *", cfg.SnapshotCron)
	assert.False(t, cfg.IsProduction())

	th := cfg.Thresholds()
	assert.Equal(t, int64(10), th.LowStock)
	assert.True(t, th.ProfitMarginFloor.Equal(decimal.NewFromInt(10)))
}

func TestLoadConfigRequiresSecretAndNumericFloor(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("PROFIT_MARGIN_FLOOR", "ten")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("PROFIT_MARGIN_FLOOR", "12.5")
	t.Setenv("LOW_STOCK_THRESHOLD", "3")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	th := cfg.Thresholds()
	assert.Equal(t, int64(3), th.LowStock)
	assert.Equal(t, "12.5", th.ProfitMarginFloor.String())
}

func TestRouterServesHealthMetricsAndJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{AppEnv: "test"},
		SessionManager: shared.NewSessionManager(client, "backoffice_session", "secret", time.Hour, false),
		JobHandler:     jobs.NewHandler(nil, logger),
		Metrics:        observability.NewMetrics(),
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue":"default"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `backoffice_http_requests_total{code="200",route="/healthz"} 1`))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv("BACKOFFICE_TEST_MODE", "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv("BACKOFFICE_TEST_MODE", "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
