// Package telemetry defines the typed events the daemon publishes over its
// WebSocket feed. Everything a client can observe about scheduling and
// capture flows through these types.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat     EventType = "heartbeat"
	EventLog           EventType = "log"
	EventPassScheduled EventType = "pass_scheduled"
	EventJobState      EventType = "job_state"
	EventProgress      EventType = "capture_progress"
)

// Event is the envelope shared by every event type.
type Event struct {
	Type EventType `json:"type"`
	TS   string    `json:"ts"`
}

// Envelope stamps an event header with the current time.
func Envelope(t EventType) Event {
	return Event{Type: t, TS: time.Now().UTC().Format(time.RFC3339Nano)}
}

// Heartbeat is sent periodically so clients can detect connectivity.
type Heartbeat struct {
	Event
	UptimeSeconds int64 `json:"uptime_seconds"`
	ActiveJobs    int   `json:"active_jobs"`
}

// LogLine carries a human-readable message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}

// PassScheduled announces that a capture job has been created for an
// upcoming or in-progress pass.
type PassScheduled struct {
	Event
	JobID     string    `json:"job_id"`
	Satellite string    `json:"satellite"`
	FreqMHz   float64   `json:"freq_mhz"`
	StartAt   time.Time `json:"start_at"`
	Duration  float64   `json:"duration_seconds"`
	Immediate bool      `json:"immediate"`
}

// JobState is emitted on every job state transition
// (scheduled, waiting, capturing, completed, failed).
type JobState struct {
	Event
	JobID     string `json:"job_id"`
	Satellite string `json:"satellite"`
	State     string `json:"state"`
	Detail    string `json:"detail,omitempty"`
}

// Progress reports incremental completion of an active capture.
type Progress struct {
	Event
	JobID       string `json:"job_id"`
	Satellite   string `json:"satellite"`
	Chunk       int    `json:"chunk"`
	TotalChunks int    `json:"total_chunks"`
	Frames      int64  `json:"frames"`
}
