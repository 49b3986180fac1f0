package queue

import "context"

// Queue is one named backlog reported by the telemetry source.
type Queue struct {
	Name         string `json:"name"`
	MessageCount int64  `json:"message_count"`
	Path         string `json:"path,omitempty"`
}

// Source reports named queues and their backlog depth.
// Implementations must be safe for concurrent use. An unavailable source
// makes all queue-based evaluation a no-op, never an error.
type Source interface {
	Available() bool
	List(ctx context.Context) ([]Queue, error)
}

// unavailableSource is used on platforms without a queue manager.
type unavailableSource struct{}

func (unavailableSource) Available() bool                        { return false }
func (unavailableSource) List(context.Context) ([]Queue, error) { return nil, nil }

// NewUnavailable returns a source that reports no telemetry.
func NewUnavailable() Source { return unavailableSource{} }

// StaticSource serves a fixed queue list. Useful for tests and for
// embedding with an externally supplied feed.
type StaticSource struct {
	Items []Queue
}

func (s *StaticSource) Available() bool { return true }

func (s *StaticSource) List(context.Context) ([]Queue, error) {
	out := make([]Queue, len(s.Items))
	copy(out, s.Items)
	return out, nil
}
