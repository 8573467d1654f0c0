package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportSnapshot generates the daily report and sales analytics snapshots.
	TaskReportSnapshot = "analytics:report_snapshot"
	// TaskCacheWarmup precomputes chart data for every range.
	TaskCacheWarmup = "analytics:cache_warmup"
)

const dateLayout = "2006-01-02"

// SnapshotPayload selects the day to snapshot. An empty date means yesterday
// relative to the worker clock.
type SnapshotPayload struct {
	Date string `json:"date,omitempty"`
}

// WarmupPayload records why a warmup was requested.
type WarmupPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewSnapshotTask constructs a snapshot task. date may be empty.
func NewSnapshotTask(date string) (*asynq.Task, error) {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("jobs: invalid snapshot date %q", date)
		}
	}
	data, err := json.Marshal(SnapshotPayload{Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportSnapshot, data), nil
}

// NewWarmupTask constructs a cache warmup task.
func NewWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(WarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, data), nil
}
