package policy

import (
	"log/slog"
	"sync"
)

// Durable mirrors non-transient policy mutations keyed by stable service
// name. Implemented by the configstore backends.
type Durable interface {
	SavePolicy(name string, p Policy) error
	DeletePolicy(name string) error
	PolicyByName(name string) (Policy, bool)
}

// Store holds the authoritative in-memory policies keyed by current PID.
// A PID is only meaningful while the process is alive; the logical policy
// survives PID churn via Migrate and the name-keyed durable mirror.
// All operations take the mutex for the duration of a single map
// lookup/update only, so the evaluation loop, restart tasks, and HTTP
// configuration requests can interleave freely.
type Store struct {
	mu      sync.Mutex
	byPID   map[int32]Policy
	durable Durable
}

func NewStore(durable Durable) *Store {
	return &Store{byPID: make(map[int32]Policy), durable: durable}
}

// Get returns the policy for pid, if any.
func (s *Store) Get(pid int32) (Policy, bool) {
	s.mu.Lock()
	p, ok := s.byPID[pid]
	s.mu.Unlock()
	return p, ok
}

// GetOrDefault returns the stored policy or the built-in default.
func (s *Store) GetOrDefault(pid int32) Policy {
	if p, ok := s.Get(pid); ok {
		return p
	}
	return Default()
}

// Set validates and stores a policy for pid, then mirrors it to durable
// storage under the policy's service name. The durable write happens
// outside the map lock.
func (s *Store) Set(pid int32, p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	// Preserve an in-flight restart marker across threshold updates.
	if old, ok := s.byPID[pid]; ok {
		p.Restarting = old.Restarting
	}
	s.byPID[pid] = p
	s.mu.Unlock()
	s.mirror(p)
	return nil
}

// SetQueueThreshold arms or updates the queue trigger for pid without
// touching the CPU/memory fields. If no entry exists yet, a minimal
// disabled policy is created so accounting matches the named-policy path.
func (s *Store) SetQueueThreshold(pid int32, name string, threshold int64) error {
	probe := Policy{CPUThreshold: DefaultCPUThreshold, MemoryThresholdMB: DefaultMemoryThresholdMB, QueueThreshold: threshold}
	if err := probe.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	p, ok := s.byPID[pid]
	if !ok {
		p = Default()
		p.ServiceName = name
	}
	p.QueueThreshold = threshold
	if p.ServiceName == "" {
		p.ServiceName = name
	}
	s.byPID[pid] = p
	s.mu.Unlock()
	s.mirror(p)
	return nil
}

// Remove drops the entry for pid and deletes the durable mirror.
// Returns the removed policy when one existed.
func (s *Store) Remove(pid int32) (Policy, bool) {
	s.mu.Lock()
	p, ok := s.byPID[pid]
	if ok {
		delete(s.byPID, pid)
	}
	s.mu.Unlock()
	if ok && s.durable != nil && p.ServiceName != "" {
		if err := s.durable.DeletePolicy(p.ServiceName); err != nil {
			slog.Warn("failed to delete persisted policy", "service", p.ServiceName, "error", err)
		}
	}
	return p, ok
}

// Forget drops the in-memory entry only, leaving the durable mirror in
// place. Used when a PID vanishes: the named policy must survive so it can
// be adopted by the replacement process.
func (s *Store) Forget(pid int32) {
	s.mu.Lock()
	delete(s.byPID, pid)
	s.mu.Unlock()
}

// Migrate moves the entry from oldPID to newPID with the restart flag
// cleared. It is the explicit bridge between the transient PID handle and
// the stable service identity after a successful restart.
func (s *Store) Migrate(oldPID, newPID int32) bool {
	s.mu.Lock()
	p, ok := s.byPID[oldPID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.byPID, oldPID)
	p.Restarting = false
	s.byPID[newPID] = p
	s.mu.Unlock()
	return true
}

// TryBeginRestart atomically marks pid as restarting. It returns false when
// no entry exists or a restart is already in flight, which is the
// single-flight guarantee: the flag is set inside the same critical section
// that decides to restart, before any asynchronous work begins.
func (s *Store) TryBeginRestart(pid int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byPID[pid]
	if !ok || p.Restarting {
		return false
	}
	p.Restarting = true
	s.byPID[pid] = p
	return true
}

// ClearRestarting resets the in-flight marker after a failed restart so the
// identity is re-evaluated next cycle.
func (s *Store) ClearRestarting(pid int32) {
	s.mu.Lock()
	if p, ok := s.byPID[pid]; ok {
		p.Restarting = false
		s.byPID[pid] = p
	}
	s.mu.Unlock()
}

// Adopt promotes a durable policy for the given service name into the
// in-memory store the first time a live snapshot with that name is seen.
// The restart flag always starts false. Returns the effective policy and
// whether one is now tracked for pid.
func (s *Store) Adopt(pid int32, name string) (Policy, bool) {
	s.mu.Lock()
	if p, ok := s.byPID[pid]; ok {
		s.mu.Unlock()
		return p, true
	}
	s.mu.Unlock()
	if s.durable == nil {
		return Policy{}, false
	}
	p, ok := s.durable.PolicyByName(name)
	if !ok {
		return Policy{}, false
	}
	p.Restarting = false
	if p.ServiceName == "" {
		p.ServiceName = name
	}
	s.mu.Lock()
	// Another goroutine may have raced the promotion; keep the winner.
	if cur, ok := s.byPID[pid]; ok {
		s.mu.Unlock()
		return cur, true
	}
	s.byPID[pid] = p
	s.mu.Unlock()
	return p, true
}

// Snapshot returns a copy of all tracked entries for one evaluation pass.
func (s *Store) Snapshot() map[int32]Policy {
	s.mu.Lock()
	out := make(map[int32]Policy, len(s.byPID))
	for pid, p := range s.byPID {
		out[pid] = p
	}
	s.mu.Unlock()
	return out
}

// Len reports the number of tracked entries.
func (s *Store) Len() int {
	s.mu.Lock()
	n := len(s.byPID)
	s.mu.Unlock()
	return n
}

func (s *Store) mirror(p Policy) {
	if s.durable == nil || p.ServiceName == "" {
		return
	}
	if err := s.durable.SavePolicy(p.ServiceName, p); err != nil {
		slog.Warn("failed to persist policy", "service", p.ServiceName, "error", err)
	}
}
