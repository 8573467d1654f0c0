package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/backoffice/internal/analytics"
	jobmetrics "github.com/odyssey-erp/backoffice/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SnapshotGenerator produces the snapshots of one calendar day.
type SnapshotGenerator interface {
	GenerateForDate(ctx context.Context, date time.Time) (analytics.GeneratedReport, error)
}

// ReportCounter counts generated snapshots per trigger source.
type ReportCounter interface {
	ReportGenerated(source string)
}

// SnapshotJob generates the daily report snapshot on a schedule.
type SnapshotJob struct {
	Analytics SnapshotGenerator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Counter   ReportCounter
	clock     func() time.Time
}

// NewSnapshotJob wires dependencies for the snapshot handler.
func NewSnapshotJob(generator SnapshotGenerator, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotJob {
	return &SnapshotJob{
		Analytics: generator,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report snapshot tasks.
func (j *SnapshotJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Analytics == nil {
		return errors.New("report snapshot: handler not configured")
	}
	var payload SnapshotPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("report snapshot payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	date, err := j.resolveDate(payload.Date)
	if err != nil {
		return fmt.Errorf("report snapshot: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskReportSnapshot)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("report_date", date.Format(dateLayout)))
	logger.Info("starting report snapshot")
	start := time.Now()

	generated, err := j.Analytics.GenerateForDate(ctx, date)
	if err != nil {
		logger.Error("generate snapshot", slog.Any("error", err))
		return err
	}
	if j.Counter != nil {
		j.Counter.ReportGenerated("job")
	}
	for _, n := range generated.Notifications {
		j.metrics().AddNotification(n.Kind, n.Level)
		logger.Warn("snapshot notification", slog.String("kind", n.Kind), slog.String("level", n.Level), slog.String("message", n.Message))
	}
	logger.Info("completed report snapshot",
		slog.String("revenue", generated.Report.TotalRevenue.StringFixed(2)),
		slog.Int("notifications", len(generated.Notifications)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *SnapshotJob) resolveDate(raw string) (time.Time, error) {
	if raw == "" {
		now := j.now()
		return time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(dateLayout, raw)
}

func (j *SnapshotJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportSnapshot))
	}
	return slog.Default().With(slog.String("job", TaskReportSnapshot))
}

func (j *SnapshotJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SnapshotJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
