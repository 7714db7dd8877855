// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Account metrics
	IncUserRegistered()
	IncLogin(status string) // status: "success" or "failure"

	// Image metrics
	IncImageUploaded()
	IncImageDeleted()
	IncUploadRejected(reason string) // reason: "type", "size", "rate_limit"
	ObserveUploadDuration(duration time.Duration)
	ObserveUploadBytes(size int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
