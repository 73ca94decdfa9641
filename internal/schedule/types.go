package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"qapipe/internal/pipeline"
)

// Operation names a bindable orchestrator call.
type Operation string

const (
	OpTraining     Operation = "run_training"
	OpFullPipeline Operation = "run_full_pipeline"
	OpMonitoring   Operation = "run_monitoring"
)

// Runner is the orchestrator surface schedule entries bind to.
type Runner interface {
	RunTraining(ctx context.Context) bool
	RunFullPipeline(ctx context.Context) pipeline.Report
	RunMonitoring(ctx context.Context) bool
}

// Result is the outcome of one fired or manually triggered operation.
// Report is set only for OpFullPipeline.
type Result struct {
	Operation Operation        `json:"operation"`
	Success   bool             `json:"success"`
	Report    *pipeline.Report `json:"report,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// JobInfo is a read-only view of one schedule entry.
type JobInfo struct {
	Operation Operation `json:"operation"`
	NextRun   time.Time `json:"next_run"`
	Interval  string    `json:"interval"`
}

// entry binds one trigger to one operation. Entries are created during setup
// and read-only thereafter except for next, which only the poll loop advances.
type entry struct {
	op    Operation
	sched cron.Schedule
	desc  string
	next  time.Time
}

// Config controls the scheduler.
type Config struct {
	// PollInterval between due-entry checks; 0 defaults to 60s.
	PollInterval time.Duration
	// Timezone is an IANA TZ name; "" means local time.
	Timezone string
}
