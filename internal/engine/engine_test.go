package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/svcwatch/internal/configstore"
	"github.com/loykin/svcwatch/internal/history"
	"github.com/loykin/svcwatch/internal/inspector"
	"github.com/loykin/svcwatch/internal/policy"
	"github.com/loykin/svcwatch/internal/queue"
)

type fakeInspector struct {
	mu    sync.Mutex
	snaps map[int32]inspector.Snapshot
	err   error
}

func newFakeInspector(snaps ...inspector.Snapshot) *fakeInspector {
	f := &fakeInspector{snaps: make(map[int32]inspector.Snapshot)}
	for _, s := range snaps {
		f.snaps[s.PID] = s
	}
	return f
}

func (f *fakeInspector) List(_ context.Context) ([]inspector.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]inspector.Snapshot, 0, len(f.snaps))
	for _, s := range f.snaps {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeInspector) Details(_ context.Context, pid int32) (inspector.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[pid]
	if !ok {
		return inspector.Snapshot{}, inspector.ErrNotFound
	}
	return s, nil
}

func (f *fakeInspector) remove(pid int32) {
	f.mu.Lock()
	delete(f.snaps, pid)
	f.mu.Unlock()
}

type fakeController struct {
	mu       sync.Mutex
	stopErr  error
	startErr error
	nextPID  int32
	stopped  []int32
	started  []string
	stopGate chan struct{}
}

func (f *fakeController) Stop(_ context.Context, pid int32) error {
	if f.stopGate != nil {
		<-f.stopGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = append(f.stopped, pid)
	return nil
}

func (f *fakeController) Start(_ context.Context, path, _ string) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.started = append(f.started, path)
	return f.nextPID, nil
}

func (f *fakeController) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stopped)
}

type memSink struct {
	mu     sync.Mutex
	events []history.Event
}

func (m *memSink) Send(_ context.Context, e history.Event) error {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	return nil
}

func (m *memSink) Close() error { return nil }

func (m *memSink) byType(t history.EventType) []history.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []history.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func fastConfig() Config {
	return Config{
		CheckInterval:         10 * time.Millisecond,
		ErrorBackoff:          10 * time.Millisecond,
		ResourceCooldown:      time.Millisecond,
		QueueCooldown:         time.Millisecond,
		DefaultQueueThreshold: 1000,
	}
}

func newTestEngine(t *testing.T, insp Inspector, src queue.Source, ctrl Controller, sinks ...history.Sink) *Engine {
	t.Helper()
	e, err := New(fastConfig(), insp, src, ctrl, nil, sinks...)
	require.NoError(t, err)
	return e
}

func enabledPolicy(name string, cpu, mem float64) policy.Policy {
	return policy.Policy{Enabled: true, CPUThreshold: cpu, MemoryThresholdMB: mem, ServiceName: name}
}

func TestCPUBreachRestartsAndMigratesPolicy(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", Path: "/opt/orders.jar", CPUPercent: 95, MemoryMB: 200})
	ctrl := &fakeController{nextPID: 200}
	sink := &memSink{}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl, sink)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	require.Eventually(t, func() bool {
		p, ok := e.policies.Get(200)
		return ok && !p.Restarting
	}, time.Second, 5*time.Millisecond, "policy should migrate to the new pid")

	_, oldExists := e.policies.Get(100)
	assert.False(t, oldExists)

	p, _ := e.policies.Get(200)
	assert.Equal(t, "orders.jar", p.ServiceName)
	assert.True(t, p.Enabled)
	assert.Equal(t, 80.0, p.CPUThreshold)

	require.Len(t, sink.byType(history.EventBreach), 1)
	breach := sink.byType(history.EventBreach)[0]
	assert.Equal(t, "cpu", breach.Record.Cause)
	assert.Equal(t, int32(100), breach.Record.OldPID)

	require.Len(t, sink.byType(history.EventRestartSuccess), 1)
	success := sink.byType(history.EventRestartSuccess)[0]
	assert.Equal(t, int32(200), success.Record.NewPID)
}

func TestMemoryBreachUsesResourceThreshold(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 5, MemoryMB: 1500})
	ctrl := &fakeController{nextPID: 200}
	sink := &memSink{}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl, sink)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	require.Eventually(t, func() bool { return ctrl.stopCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Len(t, sink.byType(history.EventBreach), 1)
	assert.Equal(t, "memory", sink.byType(history.EventBreach)[0].Record.Cause)
}

func TestNoRestartBelowThresholds(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 50, MemoryMB: 500})
	ctrl := &fakeController{nextPID: 200}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, ctrl.stopCount())
}

func TestDisabledPolicyIgnoresResourceBreach(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 99, MemoryMB: 9000})
	ctrl := &fakeController{nextPID: 200}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl)

	pol := enabledPolicy("orders.jar", 80, 1000)
	pol.Enabled = false
	require.NoError(t, e.policies.Set(100, pol))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, ctrl.stopCount())
}

func TestQueueBreachFiresEvenWhenPolicyDisabled(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 1, MemoryMB: 10})
	src := &queue.StaticSource{Items: []queue.Queue{{Name: `host\private$\orders`, MessageCount: 800}}}
	ctrl := &fakeController{nextPID: 200}
	sink := &memSink{}
	e := newTestEngine(t, insp, src, ctrl, sink)

	pol := enabledPolicy("orders.jar", 80, 1000)
	pol.Enabled = false
	pol.QueueThreshold = 500
	require.NoError(t, e.policies.Set(100, pol))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	require.Eventually(t, func() bool { return ctrl.stopCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Len(t, sink.byType(history.EventBreach), 1)
	breach := sink.byType(history.EventBreach)[0]
	assert.Equal(t, "queue", breach.Record.Cause)
	assert.Equal(t, int64(800), breach.Record.QueueDepth)
}

func TestQueueNameWithExtensionMatchesService(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	src := &queue.StaticSource{Items: []queue.Queue{{Name: `host\private$\orders.jar`, MessageCount: 2000}}}
	ctrl := &fakeController{nextPID: 200}
	sink := &memSink{}
	e := newTestEngine(t, insp, src, ctrl, sink)

	pol := enabledPolicy("orders.jar", 80, 1000)
	pol.QueueThreshold = 500
	require.NoError(t, e.policies.Set(100, pol))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	require.Eventually(t, func() bool { return ctrl.stopCount() == 1 }, time.Second, 5*time.Millisecond,
		"queue named after the executable must match it")
	require.Len(t, sink.byType(history.EventBreach), 1)
	assert.Equal(t, int64(2000), sink.byType(history.EventBreach)[0].Record.QueueDepth)
}

func TestQueueThresholdZeroIsUnarmed(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	src := &queue.StaticSource{Items: []queue.Queue{{Name: "orders", MessageCount: 999999}}}
	ctrl := &fakeController{nextPID: 200}
	e := newTestEngine(t, insp, src, ctrl)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, ctrl.stopCount())
}

func TestQueueBreachOnUnmanagedProcessArmsAdHocPolicy(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	src := &queue.StaticSource{Items: []queue.Queue{{Name: "orders", MessageCount: 1500}}}
	ctrl := &fakeController{nextPID: 200}
	e := newTestEngine(t, insp, src, ctrl)

	require.NoError(t, e.EvaluateOnce(context.Background()))

	require.Eventually(t, func() bool {
		p, ok := e.policies.Get(200)
		return ok && !p.Restarting
	}, time.Second, 5*time.Millisecond)

	p, _ := e.policies.Get(200)
	assert.False(t, p.Enabled)
	assert.Equal(t, int64(1000), p.QueueThreshold)
	assert.Equal(t, "orders.jar", p.ServiceName)
}

func TestQueueBelowDefaultThresholdLeavesUnmanagedProcessAlone(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	src := &queue.StaticSource{Items: []queue.Queue{{Name: "orders", MessageCount: 500}}}
	ctrl := &fakeController{nextPID: 200}
	e := newTestEngine(t, insp, src, ctrl)

	require.NoError(t, e.EvaluateOnce(context.Background()))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, ctrl.stopCount())
	_, tracked := e.policies.Get(100)
	assert.False(t, tracked)
}

func TestSingleFlightAcrossCycles(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 95})
	gate := make(chan struct{})
	ctrl := &fakeController{nextPID: 200, stopGate: gate}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))

	// First cycle begins a restart that blocks inside Stop.
	require.NoError(t, e.EvaluateOnce(context.Background()))
	// Further cycles must not start a second restart for the same pid.
	require.NoError(t, e.EvaluateOnce(context.Background()))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	close(gate)
	require.Eventually(t, func() bool {
		_, ok := e.policies.Get(200)
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, ctrl.stopCount())
}

func TestStopFailureClearsRestartFlag(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 95})
	ctrl := &fakeController{nextPID: 200, stopErr: errors.New("access denied")}
	sink := &memSink{}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl, sink)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	require.Eventually(t, func() bool {
		p, ok := e.policies.Get(100)
		return ok && !p.Restarting
	}, time.Second, 5*time.Millisecond, "flag must clear after a failed stop")

	failures := sink.byType(history.EventRestartFailure)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Record.Err, "access denied")
}

func TestStartFailureClearsRestartFlag(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 95})
	ctrl := &fakeController{startErr: errors.New("exited immediately")}
	sink := &memSink{}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl, sink)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.EvaluateOnce(context.Background()))

	require.Eventually(t, func() bool {
		p, ok := e.policies.Get(100)
		return ok && !p.Restarting
	}, time.Second, 5*time.Millisecond)
	require.Len(t, sink.byType(history.EventRestartFailure), 1)
	assert.Equal(t, 1, ctrl.stopCount())
}

func TestFailedRestartStaysVisibleInListing(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 95})
	ctrl := &fakeController{startErr: errors.New("exited immediately")}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.EvaluateOnce(context.Background()))
	require.Eventually(t, func() bool {
		p, ok := e.policies.Get(100)
		return ok && !p.Restarting
	}, time.Second, 5*time.Millisecond)

	// Stop succeeded, start failed: the process is gone but the policy
	// entry must still show up in the listing.
	insp.remove(100)
	views, err := e.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].Alive)
	assert.Equal(t, int32(100), views[0].PID)
	require.NotNil(t, views[0].Policy)
	assert.Equal(t, "orders.jar", views[0].Policy.ServiceName)
}

func TestFailedRestartVisibleAcrossGC(t *testing.T) {
	durable := &fakeDurable{}
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 95})
	ctrl := &fakeController{startErr: errors.New("exited immediately")}
	e, err := New(fastConfig(), insp, queue.NewUnavailable(), ctrl, durable)
	require.NoError(t, err)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.EvaluateOnce(context.Background()))
	require.Eventually(t, func() bool {
		p, ok := e.policies.Get(100)
		return ok && !p.Restarting
	}, time.Second, 5*time.Millisecond)

	// The next cycle garbage-collects the dead pid entry; the durable
	// policy keeps the degraded service in the listing.
	insp.remove(100)
	require.NoError(t, e.EvaluateOnce(context.Background()))
	_, ok := e.policies.Get(100)
	require.False(t, ok)

	views, err := e.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].Alive)
	assert.Zero(t, views[0].PID)
	assert.Equal(t, "orders.jar", views[0].Name)
	require.NotNil(t, views[0].Policy)
	assert.True(t, views[0].Policy.Enabled)
}

func TestDurablePolicyWithoutProcessListed(t *testing.T) {
	durable := &fakeDurable{policies: map[string]policy.Policy{
		"billing.jar": {Enabled: true, CPUThreshold: 80, MemoryThresholdMB: 1000, ServiceName: "billing.jar"},
	}}
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	e, err := New(fastConfig(), insp, queue.NewUnavailable(), &fakeController{}, durable)
	require.NoError(t, err)

	views, err := e.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "billing.jar", views[0].Name)
	assert.False(t, views[0].Alive)
	assert.Equal(t, "orders.jar", views[1].Name)
	assert.True(t, views[1].Alive)
}

func TestCooldownClassPerCause(t *testing.T) {
	cfg := Config{ResourceCooldown: 2 * time.Minute, QueueCooldown: time.Minute}
	e, err := New(cfg, newFakeInspector(), queue.NewUnavailable(), &fakeController{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, e.cooldownFor(CauseCPU))
	assert.Equal(t, 2*time.Minute, e.cooldownFor(CauseMemory))
	assert.Equal(t, 2*time.Minute, e.cooldownFor(CauseManual))
	assert.Equal(t, time.Minute, e.cooldownFor(CauseQueue))
}

func TestVanishedPIDGarbageCollected(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	ctrl := &fakeController{}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.policies.Set(999, enabledPolicy("ghost.jar", 80, 1000)))

	require.NoError(t, e.EvaluateOnce(context.Background()))

	_, ok := e.policies.Get(999)
	assert.False(t, ok, "vanished pid entry must be dropped")
	_, ok = e.policies.Get(100)
	assert.True(t, ok)
}

func TestVanishedPIDSkippedWhileRestarting(t *testing.T) {
	insp := newFakeInspector()
	ctrl := &fakeController{}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl)

	require.NoError(t, e.policies.Set(999, enabledPolicy("ghost.jar", 80, 1000)))
	require.True(t, e.policies.TryBeginRestart(999))

	require.NoError(t, e.EvaluateOnce(context.Background()))

	p, ok := e.policies.Get(999)
	require.True(t, ok, "in-flight entry must survive garbage collection")
	assert.True(t, p.Restarting)
}

func TestEvaluateOnceSurfacesInspectorError(t *testing.T) {
	insp := newFakeInspector()
	insp.err = errors.New("scan failed")
	e := newTestEngine(t, insp, queue.NewUnavailable(), &fakeController{})

	err := e.EvaluateOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan failed")
}

func TestManualRestartConflictsWithInFlight(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	ctrl := &fakeController{nextPID: 200}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl)

	require.NoError(t, e.policies.Set(100, enabledPolicy("orders.jar", 80, 1000)))
	require.True(t, e.policies.TryBeginRestart(100))

	err := e.Restart(context.Background(), 100)
	assert.ErrorIs(t, err, ErrRestartInFlight)
}

func TestManualRestartOfUntrackedProcess(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", Path: "/opt/orders.jar"})
	ctrl := &fakeController{nextPID: 200}
	e := newTestEngine(t, insp, queue.NewUnavailable(), ctrl)

	require.NoError(t, e.Restart(context.Background(), 100))

	require.Eventually(t, func() bool {
		p, ok := e.policies.Get(200)
		return ok && !p.Restarting
	}, time.Second, 5*time.Millisecond)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, []int32{100}, ctrl.stopped)
	assert.Equal(t, []string{"/opt/orders.jar"}, ctrl.started)
}

func TestManualRestartUnknownPID(t *testing.T) {
	e := newTestEngine(t, newFakeInspector(), queue.NewUnavailable(), &fakeController{})
	err := e.Restart(context.Background(), 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdoptionAfterRestartViaDurableName(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar", CPUPercent: 1})
	durable := &fakeDurable{policies: map[string]policy.Policy{
		"orders.jar": {Enabled: true, CPUThreshold: 80, MemoryThresholdMB: 1000, ServiceName: "orders.jar"},
	}}
	e, err := New(fastConfig(), insp, queue.NewUnavailable(), &fakeController{}, durable)
	require.NoError(t, err)

	require.NoError(t, e.EvaluateOnce(context.Background()))

	p, ok := e.policies.Get(100)
	require.True(t, ok, "durable policy must be adopted for the live pid")
	assert.Equal(t, 80.0, p.CPUThreshold)
	assert.False(t, p.Restarting)
}

func TestSetPolicyDisableKeepsQueueOnlyEntry(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	e := newTestEngine(t, insp, queue.NewUnavailable(), &fakeController{})

	pol := enabledPolicy("orders.jar", 80, 1000)
	pol.QueueThreshold = 700
	require.NoError(t, e.SetPolicy(context.Background(), 100, pol))

	disable := policy.Policy{Enabled: false, CPUThreshold: 80, MemoryThresholdMB: 1000}
	require.NoError(t, e.SetPolicy(context.Background(), 100, disable))

	p, ok := e.policies.Get(100)
	require.True(t, ok)
	assert.False(t, p.Enabled)
	assert.Equal(t, int64(700), p.QueueThreshold)
}

func TestSetPolicyDisableWithoutQueueDropsEntry(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	e := newTestEngine(t, insp, queue.NewUnavailable(), &fakeController{})

	require.NoError(t, e.SetPolicy(context.Background(), 100, enabledPolicy("orders.jar", 80, 1000)))
	require.NoError(t, e.SetPolicy(context.Background(), 100, policy.Policy{Enabled: false, CPUThreshold: 80, MemoryThresholdMB: 1000}))

	_, ok := e.policies.Get(100)
	assert.False(t, ok)
}

func TestStartAndStopLoop(t *testing.T) {
	insp := newFakeInspector(inspector.Snapshot{PID: 100, Name: "orders.jar"})
	e := newTestEngine(t, insp, queue.NewUnavailable(), &fakeController{})

	e.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	e.Stop()

	// Stop is idempotent.
	e.Stop()
}

// fakeDurable implements configstore.Store in memory.
type fakeDurable struct {
	mu       sync.Mutex
	policies map[string]policy.Policy
	folder   string
}

func (f *fakeDurable) Load() (configstore.PersistedConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]policy.Policy, len(f.policies))
	for k, v := range f.policies {
		out[k] = v
	}
	return configstore.PersistedConfig{Policies: out, FolderPath: f.folder}, nil
}

func (f *fakeDurable) SavePolicy(name string, p policy.Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.policies == nil {
		f.policies = make(map[string]policy.Policy)
	}
	f.policies[name] = p
	return nil
}

func (f *fakeDurable) DeletePolicy(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.policies, name)
	return nil
}

func (f *fakeDurable) PolicyByName(name string) (policy.Policy, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.policies[name]
	return p, ok
}

func (f *fakeDurable) SaveFolderPath(path string) error {
	f.mu.Lock()
	f.folder = path
	f.mu.Unlock()
	return nil
}

func (f *fakeDurable) Close() error { return nil }
