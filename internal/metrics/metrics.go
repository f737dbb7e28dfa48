// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels for counters.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Credential lifecycle
	IncCredentialIssued(tokenType string)
	IncEmailSent(status string) // StatusSuccess or StatusFailed

	// Bearer auth
	IncAuthCacheHit()
	IncAuthCacheMiss()

	// Uploads
	ObserveUploadDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
