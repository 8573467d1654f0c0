package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/analytics"
	jobmetrics "github.com/odyssey-erp/backoffice/internal/jobs"
)

type stubGenerator struct {
	dates []time.Time
	out   analytics.GeneratedReport
	err   error
}

func (s *stubGenerator) GenerateForDate(ctx context.Context, date time.Time) (analytics.GeneratedReport, error) {
	s.dates = append(s.dates, date)
	return s.out, s.err
}

type stubCounter struct{ sources []string }

func (s *stubCounter) ReportGenerated(source string) { s.sources = append(s.sources, source) }

type stubWarmer struct {
	calls int
	err   error
}

func (s *stubWarmer) Warm(ctx context.Context) error {
	s.calls++
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSnapshotJob(gen SnapshotGenerator, now time.Time) *SnapshotJob {
	job := NewSnapshotJob(gen, discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return now }
	return job
}

func TestSnapshotTaskValidatesDate(t *testing.T) {
	task, err := NewSnapshotTask("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, TaskReportSnapshot, task.Type())
	var payload SnapshotPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "2024-03-05", payload.Date)

	_, err = NewSnapshotTask("05/03/2024")
	assert.Error(t, err)
}

func TestSnapshotJobDefaultsToYesterday(t *testing.T) {
	gen := &stubGenerator{out: analytics.GeneratedReport{
		Report:        analytics.Report{TotalRevenue: decimal.NewFromInt(10)},
		Notifications: []analytics.Notification{{Kind: analytics.KindInventory, Level: analytics.LevelCritical, Message: "Gula is out of stock"}},
	}}
	counter := &stubCounter{}
	job := newSnapshotJob(gen, time.Date(2024, 3, 1, 0, 10, 0, 0, time.UTC))
	job.Counter = counter

	task, err := NewSnapshotTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, gen.dates, 1)
	assert.Equal(t, "2024-02-29", gen.dates[0].Format(dateLayout))
	assert.Equal(t, []string{"job"}, counter.sources)
}

func TestSnapshotJobExplicitDateAndErrors(t *testing.T) {
	gen := &stubGenerator{}
	job := newSnapshotJob(gen, time.Now())

	task, err := NewSnapshotTask("2023-12-31")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, "2023-12-31", gen.dates[0].Format(dateLayout))

	bad := asynq.NewTask(TaskReportSnapshot, []byte(`{"date":"yesterday"}`))
	err = job.Handle(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	gen.err = errors.New("connection refused")
	assert.ErrorIs(t, job.Handle(context.Background(), task), gen.err)

	var nilJob *SnapshotJob
	assert.Error(t, nilJob.Handle(context.Background(), task))
}

func TestWarmupJob(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewWarmupJob(warmer, discardLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewWarmupTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, warmer.calls)

	warmer.err = errors.New("redis down")
	assert.Error(t, job.Handle(context.Background(), task))
	assert.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskCacheWarmup, []byte("{"))), asynq.SkipRetry)
}

func TestClientEnqueuesOnDefaultQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	info, err := client.EnqueueSnapshot(context.Background(), "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, QueueDefault, info.Queue)
	assert.Equal(t, TaskReportSnapshot, info.Type)

	_, err = client.EnqueueSnapshot(context.Background(), "not-a-date")
	assert.Error(t, err)

	info, err = client.EnqueueWarmup(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, TaskCacheWarmup, info.Type)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", inspector: nil, status: http.StatusOK},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4}}, status: http.StatusOK, pending: 4},
		{name: "inspector failure", inspector: stubInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, discardLogger()).MountRoutes(r)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.pending, body.Pending)
			assert.Equal(t, QueueDefault, body.Queue)
		})
	}
}
