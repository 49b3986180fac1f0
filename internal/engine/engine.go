// Package engine runs the monitoring loop: it samples service processes,
// compares them against their restart policies and queue depths, and drives
// single-flight restarts with the policy following the service across its
// PID change.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loykin/svcwatch/internal/configstore"
	"github.com/loykin/svcwatch/internal/history"
	"github.com/loykin/svcwatch/internal/inspector"
	"github.com/loykin/svcwatch/internal/metrics"
	"github.com/loykin/svcwatch/internal/policy"
	"github.com/loykin/svcwatch/internal/queue"
	"github.com/loykin/svcwatch/internal/scanner"
)

// Cause identifies what pushed a service over its restart threshold.
type Cause string

const (
	CauseCPU    Cause = "cpu"
	CauseMemory Cause = "memory"
	CauseQueue  Cause = "queue"
	CauseManual Cause = "manual"
)

var (
	ErrNotFound        = inspector.ErrNotFound
	ErrRestartInFlight = errors.New("restart already in progress")
	ErrNoFolder        = errors.New("no managed folder configured")
)

// Config carries the loop timings. Zero fields take the defaults below.
type Config struct {
	CheckInterval         time.Duration
	ErrorBackoff          time.Duration
	ResourceCooldown      time.Duration
	QueueCooldown         time.Duration
	DefaultQueueThreshold int64
}

const (
	DefaultCheckInterval    = 30 * time.Second
	DefaultErrorBackoff     = 60 * time.Second
	DefaultResourceCooldown = 120 * time.Second
	DefaultQueueCooldown    = 60 * time.Second
)

func (c *Config) normalize() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = DefaultErrorBackoff
	}
	if c.ResourceCooldown <= 0 {
		c.ResourceCooldown = DefaultResourceCooldown
	}
	if c.QueueCooldown <= 0 {
		c.QueueCooldown = DefaultQueueCooldown
	}
	if c.DefaultQueueThreshold <= 0 {
		c.DefaultQueueThreshold = policy.DefaultQueueThreshold
	}
}

// Inspector is the process survey dependency.
type Inspector interface {
	List(ctx context.Context) ([]inspector.Snapshot, error)
	Details(ctx context.Context, pid int32) (inspector.Snapshot, error)
}

// Controller is the stop/start dependency.
type Controller interface {
	Stop(ctx context.Context, pid int32) error
	Start(ctx context.Context, path, workDir string) (int32, error)
}

// Engine owns the policy store and the evaluation loop.
type Engine struct {
	cfg      Config
	insp     Inspector
	queues   queue.Source
	ctrl     Controller
	policies *policy.Store
	durable  configstore.Store
	sinks    []history.Sink

	folderMu sync.RWMutex
	folder   string

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// New assembles an engine. durable may be nil (policies live in memory
// only); sinks may be empty.
func New(cfg Config, insp Inspector, queues queue.Source, ctrl Controller, durable configstore.Store, sinks ...history.Sink) (*Engine, error) {
	if insp == nil || ctrl == nil {
		return nil, errors.New("engine: inspector and controller are required")
	}
	if queues == nil {
		queues = queue.NewUnavailable()
	}
	cfg.normalize()
	e := &Engine{
		cfg:      cfg,
		insp:     insp,
		queues:   queues,
		ctrl:     ctrl,
		policies: policy.NewStore(durable),
		durable:  durable,
		sinks:    sinks,
		stopCh:   make(chan struct{}),
	}
	if durable != nil {
		pc, err := durable.Load()
		if err != nil {
			return nil, fmt.Errorf("engine: load persisted config: %w", err)
		}
		e.folder = pc.FolderPath
	}
	return e, nil
}

// Start launches the evaluation loop. It returns immediately; the loop runs
// until Stop or ctx cancellation.
func (e *Engine) Start(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.wg.Add(1)
	go e.loop(ctx)
}

// Stop halts the loop and waits for it and any in-flight restarts to finish.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	close(e.stopCh)
	e.wg.Wait()
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()
	slog.Info("monitoring loop started", "interval", e.cfg.CheckInterval)
	for {
		wait := e.cfg.CheckInterval
		if err := e.EvaluateOnce(ctx); err != nil {
			// The loop must outlive transient failures; log and back off.
			slog.Error("evaluation cycle failed", "error", err)
			metrics.IncCycleError()
			wait = e.cfg.ErrorBackoff
		} else {
			metrics.IncCycle()
		}

		select {
		case <-ctx.Done():
			slog.Info("monitoring loop stopped", "reason", "context")
			return
		case <-e.stopCh:
			slog.Info("monitoring loop stopped")
			return
		case <-time.After(wait):
		}
	}
}

// EvaluateOnce runs a single evaluation cycle: sample processes and queues,
// fire restarts for breached policies, drop entries for vanished PIDs.
func (e *Engine) EvaluateOnce(ctx context.Context) error {
	snaps, err := e.insp.List(ctx)
	if err != nil {
		return fmt.Errorf("survey processes: %w", err)
	}
	depths := e.queueDepths(ctx)

	alive := make(map[int32]bool, len(snaps))
	for _, snap := range snaps {
		alive[snap.PID] = true
		e.evaluateService(ctx, snap, depths)
	}

	// Entries whose PID vanished outside a restart are stale; drop them
	// from memory only so the named policy can be adopted by a successor.
	for pid, p := range e.policies.Snapshot() {
		if alive[pid] || p.Restarting {
			continue
		}
		slog.Info("dropping policy for vanished process", "pid", pid, "service", p.ServiceName)
		e.policies.Forget(pid)
	}

	metrics.SetTrackedServices(e.policies.Len())
	return nil
}

// queueDepths maps extension-stripped lowercase simple queue names to their
// message counts, the same key serviceStem produces for process names.
// First match wins on duplicate simple names.
func (e *Engine) queueDepths(ctx context.Context) map[string]int64 {
	if !e.queues.Available() {
		return nil
	}
	queues, err := e.queues.List(ctx)
	if err != nil {
		slog.Warn("queue survey failed", "error", err)
		return nil
	}
	depths := make(map[string]int64, len(queues))
	for _, q := range queues {
		name := serviceStem(queue.SimpleName(q.Name))
		if name == "" {
			continue
		}
		metrics.SetQueueDepth(name, q.MessageCount)
		if _, ok := depths[name]; !ok {
			depths[name] = q.MessageCount
		}
	}
	return depths
}

func (e *Engine) evaluateService(ctx context.Context, snap inspector.Snapshot, depths map[string]int64) {
	pol, tracked := e.policies.Adopt(snap.PID, snap.Name)
	if tracked && pol.Restarting {
		return
	}

	depth, hasQueue := depths[serviceStem(snap.Name)]

	var cause Cause
	switch {
	case tracked && pol.Enabled && snap.CPUPercent >= pol.CPUThreshold:
		cause = CauseCPU
	case tracked && pol.Enabled && snap.MemoryMB >= pol.MemoryThresholdMB:
		cause = CauseMemory
	case hasQueue && e.queueBreached(snap, pol, tracked, depth):
		cause = CauseQueue
		if !tracked {
			// A queue breach on an unmanaged process arms an ad hoc
			// queue-only policy so the restart is accounted like any other.
			if err := e.policies.SetQueueThreshold(snap.PID, snap.Name, e.cfg.DefaultQueueThreshold); err != nil {
				slog.Warn("failed to arm ad hoc queue policy", "pid", snap.PID, "error", err)
				return
			}
		}
	default:
		return
	}

	slog.Warn("threshold breached",
		"service", snap.Name, "pid", snap.PID, "cause", cause,
		"cpu_percent", snap.CPUPercent, "memory_mb", snap.MemoryMB, "queue_depth", depth)
	metrics.IncBreach(snap.Name, string(cause))
	e.emit(ctx, history.Event{
		Type:       history.EventBreach,
		OccurredAt: time.Now(),
		Record: history.Record{
			Name:       snap.Name,
			OldPID:     snap.PID,
			Cause:      string(cause),
			CPUPercent: snap.CPUPercent,
			MemoryMB:   snap.MemoryMB,
			QueueDepth: depth,
		},
	})

	if !e.policies.TryBeginRestart(snap.PID) {
		return
	}
	job := restartJob{
		PID:      snap.PID,
		Name:     snap.Name,
		Path:     snap.Path,
		WorkDir:  snap.WorkDir,
		Cause:    cause,
		Cooldown: e.cooldownFor(cause),
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		_, _ = e.runRestart(ctx, job)
	}()
}

func (e *Engine) queueBreached(snap inspector.Snapshot, pol policy.Policy, tracked bool, depth int64) bool {
	// Queue triggers are independent of the enabled flag: a disabled policy
	// with an armed threshold still restarts on backlog.
	threshold := e.cfg.DefaultQueueThreshold
	if tracked {
		if pol.QueueThreshold <= 0 {
			return false
		}
		threshold = pol.QueueThreshold
	}
	return depth >= threshold
}

func (e *Engine) cooldownFor(c Cause) time.Duration {
	if c == CauseQueue {
		return e.cfg.QueueCooldown
	}
	return e.cfg.ResourceCooldown
}

// restartJob is an immutable description of one restart attempt. Each task
// goroutine gets its own copy; nothing here is shared with the store.
type restartJob struct {
	PID      int32
	Name     string
	Path     string
	WorkDir  string
	Cause    Cause
	Cooldown time.Duration
}

// runRestart performs stop, cooldown, start. On success the policy entry
// migrates to the new PID; on failure the in-flight flag clears so the next
// cycle can try again.
func (e *Engine) runRestart(ctx context.Context, job restartJob) (int32, error) {
	began := time.Now()
	path, workDir := e.resolveLaunch(job)

	fail := func(stage string, err error) (int32, error) {
		wrapped := fmt.Errorf("%s %s (pid %d): %w", stage, job.Name, job.PID, err)
		slog.Error("restart failed", "service", job.Name, "pid", job.PID, "cause", job.Cause, "error", wrapped)
		e.policies.ClearRestarting(job.PID)
		metrics.IncRestart(job.Name, "failure")
		e.emit(ctx, history.Event{
			Type:       history.EventRestartFailure,
			OccurredAt: time.Now(),
			Record: history.Record{
				Name:   job.Name,
				OldPID: job.PID,
				Cause:  string(job.Cause),
				Err:    wrapped.Error(),
			},
		})
		return 0, wrapped
	}

	slog.Info("restarting service", "service", job.Name, "pid", job.PID,
		"cause", job.Cause, "cooldown", job.Cooldown)

	if err := e.ctrl.Stop(ctx, job.PID); err != nil {
		return fail("stop", err)
	}

	if job.Cooldown > 0 {
		select {
		case <-ctx.Done():
			return fail("cooldown", ctx.Err())
		case <-e.stopCh:
			return fail("cooldown", errors.New("engine stopping"))
		case <-time.After(job.Cooldown):
		}
	}

	newPID, err := e.ctrl.Start(ctx, path, workDir)
	if err != nil {
		return fail("start", err)
	}

	if !e.policies.Migrate(job.PID, newPID) {
		// The entry disappeared mid-restart; nothing carries over.
		e.policies.ClearRestarting(job.PID)
	}
	metrics.IncRestart(job.Name, "success")
	metrics.ObserveRestartDuration(job.Name, time.Since(began).Seconds())
	e.emit(ctx, history.Event{
		Type:       history.EventRestartSuccess,
		OccurredAt: time.Now(),
		Record: history.Record{
			Name:   job.Name,
			OldPID: job.PID,
			NewPID: newPID,
			Cause:  string(job.Cause),
		},
	})
	slog.Info("service restarted", "service", job.Name, "old_pid", job.PID, "new_pid", newPID)
	return newPID, nil
}

// resolveLaunch prefers the managed folder layout over the path sampled from
// the dying process, so a redeployed executable is picked up on restart.
func (e *Engine) resolveLaunch(job restartJob) (string, string) {
	if folder := e.Folder(); folder != "" {
		if path, workDir, err := scanner.Resolve(folder, job.Name); err == nil {
			return path, workDir
		}
	}
	return job.Path, job.WorkDir
}

func (e *Engine) emit(ctx context.Context, ev history.Event) {
	for _, sink := range e.sinks {
		if err := sink.Send(ctx, ev); err != nil {
			slog.Warn("history sink rejected event", "type", ev.Type, "error", err)
		}
	}
}

// serviceStem lowercases a service name and strips its extension so it can
// meet queue simple names halfway.
func serviceStem(name string) string {
	name = strings.ToLower(name)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Folder returns the managed executables folder, empty when unset.
func (e *Engine) Folder() string {
	e.folderMu.RLock()
	defer e.folderMu.RUnlock()
	return e.folder
}

// SetFolder validates and persists the managed executables folder.
func (e *Engine) SetFolder(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("folder %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("folder %s: not a directory", path)
	}
	e.folderMu.Lock()
	e.folder = path
	e.folderMu.Unlock()
	if e.durable != nil {
		if err := e.durable.SaveFolderPath(path); err != nil {
			return fmt.Errorf("persist folder path: %w", err)
		}
	}
	return nil
}
