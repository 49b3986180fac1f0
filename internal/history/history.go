// Package history exports threshold breaches and restart outcomes to
// external analytics systems.
package history

import (
	"context"
	"time"
)

// EventType defines the kind of restart lifecycle event.
type EventType string

const (
	EventBreach         EventType = "breach"
	EventRestartSuccess EventType = "restart_success"
	EventRestartFailure EventType = "restart_failure"
)

// Record carries the details of one breach or restart.
type Record struct {
	Name       string  `json:"name"`
	OldPID     int32   `json:"old_pid"`
	NewPID     int32   `json:"new_pid,omitempty"`
	Cause      string  `json:"cause"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`
	MemoryMB   float64 `json:"memory_mb,omitempty"`
	QueueDepth int64   `json:"queue_depth,omitempty"`
	Err        string  `json:"error,omitempty"`
}

// Event represents one exported occurrence.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Record     Record    `json:"record"`
}

// Sink is a destination for history events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
