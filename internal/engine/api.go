package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/loykin/svcwatch/internal/inspector"
	"github.com/loykin/svcwatch/internal/policy"
	"github.com/loykin/svcwatch/internal/queue"
	"github.com/loykin/svcwatch/internal/scanner"
)

// ServiceView merges a process snapshot with its restart policy. Alive is
// false for entries whose policy exists but whose process does not.
type ServiceView struct {
	inspector.Snapshot
	Policy     *policy.Policy `json:"auto_restart,omitempty"`
	Restarting bool           `json:"restarting"`
	Alive      bool           `json:"alive"`
}

// QueueView annotates a raw queue with its simple name and the running
// service it maps to, if any.
type QueueView struct {
	queue.Queue
	SimpleName     string `json:"simple_name"`
	MatchedService string `json:"matched_service,omitempty"`
}

// Services lists all recognized service processes with their policies,
// followed by policies whose process is not running. Keeping the dead
// entries visible is what makes a failed restart noticeable from the
// listing rather than only from the history sinks.
func (e *Engine) Services(ctx context.Context) ([]ServiceView, error) {
	snaps, err := e.insp.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ServiceView, 0, len(snaps))
	livePIDs := make(map[int32]bool, len(snaps))
	seenNames := make(map[string]bool, len(snaps))
	for _, snap := range snaps {
		out = append(out, e.view(snap))
		livePIDs[snap.PID] = true
		seenNames[strings.ToLower(snap.Name)] = true
	}

	for pid, p := range e.policies.Snapshot() {
		if livePIDs[pid] {
			continue
		}
		v := ServiceView{Restarting: p.Restarting}
		v.PID = pid
		v.Name = p.ServiceName
		if p.ServiceName != "" {
			seenNames[strings.ToLower(p.ServiceName)] = true
		}
		p.Restarting = false
		pol := p
		v.Policy = &pol
		out = append(out, v)
	}

	// Durable policies outlive the in-memory entry once its PID is garbage
	// collected; they stay listed until the service comes back.
	if e.durable != nil {
		if pc, err := e.durable.Load(); err == nil {
			for name, p := range pc.Policies {
				if seenNames[strings.ToLower(name)] {
					continue
				}
				pol := p
				pol.ServiceName = name
				v := ServiceView{Policy: &pol}
				v.Name = name
				out = append(out, v)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PID < out[j].PID
	})
	return out, nil
}

// Service returns the merged view for one PID.
func (e *Engine) Service(ctx context.Context, pid int32) (ServiceView, error) {
	snap, err := e.insp.Details(ctx, pid)
	if err != nil {
		return ServiceView{}, err
	}
	return e.view(snap), nil
}

func (e *Engine) view(snap inspector.Snapshot) ServiceView {
	v := ServiceView{Snapshot: snap, Alive: true}
	if pol, ok := e.policies.Adopt(snap.PID, snap.Name); ok {
		v.Restarting = pol.Restarting
		pol.Restarting = false
		v.Policy = &pol
	}
	return v
}

// PolicyFor returns the stored policy for pid.
func (e *Engine) PolicyFor(pid int32) (policy.Policy, bool) {
	return e.policies.Get(pid)
}

// SetPolicy installs or updates the restart policy for pid. Disabling a
// policy that carries a queue threshold keeps a queue-only entry; disabling
// one without drops the entry entirely.
func (e *Engine) SetPolicy(ctx context.Context, pid int32, p policy.Policy) error {
	snap, err := e.insp.Details(ctx, pid)
	if err != nil {
		return err
	}
	if p.ServiceName == "" {
		p.ServiceName = snap.Name
	}

	if p.Enabled {
		return e.policies.Set(pid, p)
	}

	keepQueue := p.QueueThreshold
	if existing, ok := e.policies.Get(pid); ok && keepQueue == 0 {
		keepQueue = existing.QueueThreshold
	}
	if keepQueue == 0 {
		e.policies.Remove(pid)
		return nil
	}
	reduced := policy.Default()
	reduced.Enabled = false
	reduced.QueueThreshold = keepQueue
	reduced.ServiceName = p.ServiceName
	return e.policies.Set(pid, reduced)
}

// RemovePolicy drops the policy for pid, including its durable mirror.
func (e *Engine) RemovePolicy(pid int32) bool {
	_, ok := e.policies.Remove(pid)
	return ok
}

// SetQueueThreshold arms or updates the queue trigger for pid.
func (e *Engine) SetQueueThreshold(ctx context.Context, pid int32, threshold int64) error {
	snap, err := e.insp.Details(ctx, pid)
	if err != nil {
		return err
	}
	return e.policies.SetQueueThreshold(pid, snap.Name, threshold)
}

// Restart begins an operator-requested restart of pid through the same
// single-flight guard as the loop, with the resource-class cooldown. The
// stop/cooldown/start sequence runs asynchronously; the outcome is
// observable through the service listing and history sinks.
func (e *Engine) Restart(ctx context.Context, pid int32) error {
	snap, err := e.insp.Details(ctx, pid)
	if err != nil {
		return err
	}
	if _, ok := e.policies.Get(pid); !ok {
		// Transient guard entry; no service name, so nothing is persisted.
		transient := policy.Default()
		transient.Enabled = false
		if err := e.policies.Set(pid, transient); err != nil {
			return err
		}
	}
	if !e.policies.TryBeginRestart(pid) {
		return ErrRestartInFlight
	}
	job := restartJob{
		PID:      pid,
		Name:     snap.Name,
		Path:     snap.Path,
		WorkDir:  snap.WorkDir,
		Cause:    CauseManual,
		Cooldown: e.cfg.ResourceCooldown,
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		_, _ = e.runRestart(ctx, job)
	}()
	return nil
}

// StopService stops pid without a replacement. The policy entry is dropped
// from memory; the durable mirror survives for when the service returns.
func (e *Engine) StopService(ctx context.Context, pid int32) error {
	if _, err := e.insp.Details(ctx, pid); err != nil {
		return err
	}
	if err := e.ctrl.Stop(ctx, pid); err != nil {
		return err
	}
	e.policies.Forget(pid)
	return nil
}

// StartService launches the named executable from the managed folder.
func (e *Engine) StartService(ctx context.Context, name string) (int32, error) {
	folder := e.Folder()
	if folder == "" {
		return 0, ErrNoFolder
	}
	path, workDir, err := scanner.Resolve(folder, name)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e.ctrl.Start(ctx, path, workDir)
}

// Executables lists launchable files in the managed folder.
func (e *Engine) Executables() ([]scanner.Executable, error) {
	folder := e.Folder()
	if folder == "" {
		return nil, ErrNoFolder
	}
	return scanner.Scan(folder)
}

// Queues lists visible queues annotated with the running service each one
// maps to.
func (e *Engine) Queues(ctx context.Context) ([]QueueView, error) {
	if !e.queues.Available() {
		return []QueueView{}, nil
	}
	queues, err := e.queues.List(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	if snaps, err := e.insp.List(ctx); err == nil {
		names = make([]string, 0, len(snaps))
		for _, s := range snaps {
			names = append(names, s.Name)
		}
	}
	out := make([]QueueView, 0, len(queues))
	for _, q := range queues {
		v := QueueView{Queue: q, SimpleName: strings.ToLower(queue.SimpleName(q.Name))}
		if svc, ok := queue.MatchExecutable(q.Name, names); ok {
			v.MatchedService = svc
		}
		out = append(out, v)
	}
	return out, nil
}
