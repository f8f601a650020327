package domain

import "time"

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Run is one execution of the pipeline for an as-of date. Run ids are
// allocated monotonically so re-executions for the same as-of date never
// mix partial results.
type Run struct {
	RunID       int64
	AsOfDate    time.Time
	Status      RunStatus
	Note        string // failure reason or summary
	StartedAt   time.Time
	CompletedAt *time.Time
}
