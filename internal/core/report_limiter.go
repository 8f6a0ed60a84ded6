package core

// report_limiter.go implements concurrency control for report generation.
//
// The limiter uses a semaphore pattern to restrict parallel reports to a
// configurable maximum. Reports load whole tables and may decode payload
// files, so an unbounded number of them can exhaust memory. When all slots
// are occupied, new requests wait up to maxWait before failing with
// ErrTooManyReports.
//
// The limiter also supports graceful shutdown via WaitForDrain, which blocks
// until all active reports complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyReports is returned when all report slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyReports = errors.New("too many concurrent reports, please try again later")

// DefaultMaxConcurrentReports is the default limit for parallel reports.
const DefaultMaxConcurrentReports = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// ReportLimiter controls concurrent report generation using a semaphore.
type ReportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewReportLimiter creates a limiter that allows at most maxConcurrent
// simultaneous reports. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyReports.
func NewReportLimiter(maxConcurrent int, maxWait time.Duration) *ReportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentReports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ReportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a report slot.
// Returns nil on success, ErrTooManyReports if the wait times out.
// The caller MUST call Release() when the report completes (use defer).
func (l *ReportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from our own timeout
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyReports
	}
}

// TryAcquire attempts to acquire a slot without blocking.
func (l *ReportLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *ReportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of reports in progress.
func (l *ReportLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent reports.
func (l *ReportLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *ReportLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active reports complete or ctx is done.
func (l *ReportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ReportLimiterStatus is a snapshot of the limiter's state.
type ReportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *ReportLimiter) Status() ReportLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return ReportLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
