package policy

import "fmt"

// Threshold validation bounds and defaults. The defaults match what the
// dashboard offers when a service has no stored policy yet.
const (
	CPUThresholdMin = 1
	CPUThresholdMax = 100

	MemoryThresholdMinMB = 1
	MemoryThresholdMaxMB = 10240

	QueueThresholdMin = 1
	QueueThresholdMax = 1_000_000

	DefaultCPUThreshold      = 80.0
	DefaultMemoryThresholdMB = 1000.0
	DefaultQueueThreshold    = 1000
)

// Policy is the auto-restart policy for one tracked service.
// Enabled arms the CPU/memory triggers only; QueueThreshold is evaluated
// independently whenever the service is matched to a queue.
// Restarting is transient in-flight state and is never persisted.
type Policy struct {
	Enabled           bool    `json:"enabled"`
	CPUThreshold      float64 `json:"cpu_threshold"`
	MemoryThresholdMB float64 `json:"memory_threshold_mb"`
	QueueThreshold    int64   `json:"queue_threshold,omitempty"`
	// ServiceName is the stable identity (executable filename) used to
	// re-resolve the launch path after the PID changes.
	ServiceName string `json:"service_name,omitempty"`
	Restarting  bool   `json:"-"`
}

// Default returns the policy applied to services with no stored entry.
func Default() Policy {
	return Policy{
		Enabled:           false,
		CPUThreshold:      DefaultCPUThreshold,
		MemoryThresholdMB: DefaultMemoryThresholdMB,
	}
}

// ValidationError reports a threshold outside its allowed range.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Validate checks all configured thresholds against their ranges.
// A zero QueueThreshold means "no queue trigger" and is allowed.
func (p Policy) Validate() error {
	if p.CPUThreshold < CPUThresholdMin || p.CPUThreshold > CPUThresholdMax {
		return &ValidationError{
			Field: "cpu_threshold",
			Msg:   fmt.Sprintf("must be between %d and %d", CPUThresholdMin, CPUThresholdMax),
		}
	}
	if p.MemoryThresholdMB < MemoryThresholdMinMB || p.MemoryThresholdMB > MemoryThresholdMaxMB {
		return &ValidationError{
			Field: "memory_threshold_mb",
			Msg:   fmt.Sprintf("must be between %d and %d MB", MemoryThresholdMinMB, MemoryThresholdMaxMB),
		}
	}
	if p.QueueThreshold != 0 && (p.QueueThreshold < QueueThresholdMin || p.QueueThreshold > QueueThresholdMax) {
		return &ValidationError{
			Field: "queue_threshold",
			Msg:   fmt.Sprintf("must be between %d and %d messages", QueueThresholdMin, QueueThresholdMax),
		}
	}
	return nil
}
