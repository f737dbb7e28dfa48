package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	CredentialsIssued   map[string]uint64
	EmailsSent          map[string]uint64
	AuthCacheHits       uint64
	AuthCacheMisses     uint64
	UploadCount         uint64
	UploadTotalDuration time.Duration
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu sync.Mutex

	credentialsIssued   map[string]uint64
	emailsSent          map[string]uint64
	authCacheHits       uint64
	authCacheMisses     uint64
	uploadCount         uint64
	uploadTotalDuration time.Duration
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		credentialsIssued: make(map[string]uint64),
		emailsSent:        make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	issued := make(map[string]uint64, len(m.credentialsIssued))
	for k, v := range m.credentialsIssued {
		issued[k] = v
	}
	sent := make(map[string]uint64, len(m.emailsSent))
	for k, v := range m.emailsSent {
		sent[k] = v
	}

	return Snapshot{
		CredentialsIssued:   issued,
		EmailsSent:          sent,
		AuthCacheHits:       m.authCacheHits,
		AuthCacheMisses:     m.authCacheMisses,
		UploadCount:         m.uploadCount,
		UploadTotalDuration: m.uploadTotalDuration,
	}
}

// IncCredentialIssued increments the per-type issuance counter.
func (m *InMemoryRecorder) IncCredentialIssued(tokenType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentialsIssued[tokenType]++
}

// IncEmailSent increments the per-status email counter.
func (m *InMemoryRecorder) IncEmailSent(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailsSent[status]++
}

// IncAuthCacheHit increments the auth cache hit counter.
func (m *InMemoryRecorder) IncAuthCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authCacheHits++
}

// IncAuthCacheMiss increments the auth cache miss counter.
func (m *InMemoryRecorder) IncAuthCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authCacheMisses++
}

// ObserveUploadDuration records a completed upload.
func (m *InMemoryRecorder) ObserveUploadDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadCount++
	m.uploadTotalDuration += duration
}
