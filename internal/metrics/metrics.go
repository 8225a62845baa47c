// Package metrics provides lightweight, lock-free counters for tracking
// runtime statistics of a running farmanet server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a server instance.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	sessionsActive     atomic.Int64
	sessionsTotal      atomic.Int64
	requestsTotal      atomic.Int64
	notificationsSent  atomic.Int64
	notificationsDrops atomic.Int64
	errorsTotal        atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the current number of connected sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── Traffic metrics ──────────────────────────────────────────────────

// RequestProcessed records one request handed to the processor.
func (c *Collector) RequestProcessed() {
	if c == nil {
		return
	}
	c.requestsTotal.Add(1)
}

// NotificationSent records one successful notification delivery.
func (c *Collector) NotificationSent() {
	if c == nil {
		return
	}
	c.notificationsSent.Add(1)
}

// NotificationDropped records one failed notification write.
func (c *Collector) NotificationDropped() {
	if c == nil {
		return
	}
	c.notificationsDrops.Add(1)
}

// TotalRequests returns the lifetime request count.
func (c *Collector) TotalRequests() int64 {
	if c == nil {
		return 0
	}
	return c.requestsTotal.Load()
}

// NotificationsSent returns the lifetime delivered notification count.
func (c *Collector) NotificationsSent() int64 {
	if c == nil {
		return 0
	}
	return c.notificationsSent.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime               string `json:"uptime"`
	SessionsActive       int64  `json:"sessions_active"`
	SessionsTotal        int64  `json:"sessions_total"`
	RequestsTotal        int64  `json:"requests_total"`
	NotificationsSent    int64  `json:"notifications_sent"`
	NotificationsDropped int64  `json:"notifications_dropped"`
	ErrorsTotal          int64  `json:"errors_total"`
	LastError            string `json:"last_error,omitempty"`
	LastErrorMessage     string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:               time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:       c.sessionsActive.Load(),
		SessionsTotal:        c.sessionsTotal.Load(),
		RequestsTotal:        c.requestsTotal.Load(),
		NotificationsSent:    c.notificationsSent.Load(),
		NotificationsDropped: c.notificationsDrops.Load(),
		ErrorsTotal:          c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
