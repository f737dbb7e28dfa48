package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncCredentialIssued is a no-op.
func (n *NoopRecorder) IncCredentialIssued(tokenType string) {}

// IncEmailSent is a no-op.
func (n *NoopRecorder) IncEmailSent(status string) {}

// IncAuthCacheHit is a no-op.
func (n *NoopRecorder) IncAuthCacheHit() {}

// IncAuthCacheMiss is a no-op.
func (n *NoopRecorder) IncAuthCacheMiss() {}

// ObserveUploadDuration is a no-op.
func (n *NoopRecorder) ObserveUploadDuration(duration time.Duration) {}
