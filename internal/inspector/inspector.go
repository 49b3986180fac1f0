// Package inspector surveys running service processes. It discovers
// launchable workloads (jar/script/binary), samples their CPU over a short
// window and reports memory, thread and descriptor usage.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrNotFound reports that the requested pid does not exist or is not a
// recognized service process.
var ErrNotFound = errors.New("process not found")

// cpuSampleWindow is the interval between the two CPU time reads used to
// derive a percentage. Kept short so listing stays responsive.
const cpuSampleWindow = 100 * time.Millisecond

// Snapshot is a point-in-time view of one service process.
type Snapshot struct {
	PID        int32     `json:"pid"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	WorkDir    string    `json:"work_dir,omitempty"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryMB   float64   `json:"memory_mb"`
	NumThreads int32     `json:"num_threads"`
	NumFDs     int32     `json:"num_fds"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	Uptime     string    `json:"uptime"`
	Cmdline    []string  `json:"cmdline,omitempty"`
	Username   string    `json:"username,omitempty"`
}

// Inspector enumerates and describes service processes on the local host.
type Inspector struct {
	extensions []string
}

// New returns an Inspector that recognizes workloads by the given launchable
// file extensions (lowercase, with leading dot).
func New(extensions []string) *Inspector {
	return &Inspector{extensions: extensions}
}

// List returns a snapshot per recognized service process. CPU percentages
// come from a single shared sampling window across all candidates.
func (in *Inspector) List(ctx context.Context) ([]Snapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	type candidate struct {
		proc *process.Process
		name string
	}
	var cands []candidate
	for _, p := range procs {
		name, ok := in.classifyProcess(ctx, p)
		if !ok {
			continue
		}
		// Prime the CPU counter; the second read after the window yields
		// the interval percentage.
		_, _ = p.PercentWithContext(ctx, 0)
		cands = append(cands, candidate{proc: p, name: name})
	}
	if len(cands) == 0 {
		return nil, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(cpuSampleWindow):
	}

	out := make([]Snapshot, 0, len(cands))
	for _, c := range cands {
		snap, err := in.snapshot(ctx, c.proc, c.name)
		if err != nil {
			// Raced with process exit between scan and sample.
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

// Details returns the snapshot for a single pid, or ErrNotFound when the pid
// is gone or is not a recognized service process.
func (in *Inspector) Details(ctx context.Context, pid int32) (Snapshot, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Snapshot{}, ErrNotFound
	}
	name, ok := in.classifyProcess(ctx, p)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	_, _ = p.PercentWithContext(ctx, 0)
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-time.After(cpuSampleWindow):
	}
	snap, err := in.snapshot(ctx, p, name)
	if err != nil {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (in *Inspector) snapshot(ctx context.Context, p *process.Process, name string) (Snapshot, error) {
	cpu, err := p.PercentWithContext(ctx, 0)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{PID: p.Pid, Name: name, CPUPercent: cpu}

	if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		snap.MemoryMB = float64(mi.RSS) / 1024 / 1024
	}
	if exe, err := p.ExeWithContext(ctx); err == nil {
		snap.Path = exe
	}
	if args, err := p.CmdlineSliceWithContext(ctx); err == nil {
		snap.Cmdline = args
		if jar, ok := jarArgument(args); ok {
			snap.Path = jar
		}
	}
	if wd, err := p.CwdWithContext(ctx); err == nil {
		snap.WorkDir = wd
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		snap.NumThreads = n
	}
	if n, err := p.NumFDsWithContext(ctx); err == nil {
		snap.NumFDs = n
	}
	if st, err := p.StatusWithContext(ctx); err == nil && len(st) > 0 {
		snap.Status = st[0]
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		snap.StartedAt = time.UnixMilli(created)
		snap.Uptime = time.Since(snap.StartedAt).Truncate(time.Second).String()
	}
	if user, err := p.UsernameWithContext(ctx); err == nil {
		snap.Username = user
	}
	return snap, nil
}

func (in *Inspector) classifyProcess(ctx context.Context, p *process.Process) (string, bool) {
	exe, _ := p.NameWithContext(ctx)
	args, _ := p.CmdlineSliceWithContext(ctx)
	return Classify(exe, args, in.extensions)
}

// Classify decides whether a process is a service workload and returns its
// stable display name. A java process carrying a -jar argument is named after
// the jar file; otherwise the executable itself must carry one of the
// launchable extensions.
func Classify(exe string, args []string, extensions []string) (string, bool) {
	lexe := strings.ToLower(exe)
	if lexe == "java" || lexe == "java.exe" || lexe == "javaw" || lexe == "javaw.exe" {
		if jar, ok := jarArgument(args); ok {
			return baseName(jar), true
		}
		return "", false
	}
	if isInterpreter(lexe) {
		// Interpreters launching a script keep the script's name.
		for _, a := range args[min(1, len(args)):] {
			la := strings.ToLower(a)
			for _, ext := range extensions {
				if ext == ".jar" {
					continue
				}
				if strings.HasSuffix(la, ext) {
					return baseName(a), true
				}
			}
		}
		return "", false
	}
	for _, ext := range extensions {
		if strings.HasSuffix(lexe, ext) {
			return exe, true
		}
	}
	return "", false
}

func isInterpreter(lexe string) bool {
	switch lexe {
	case "cmd", "cmd.exe", "powershell.exe", "pwsh", "pwsh.exe", "sh", "bash", "dash", "zsh":
		return true
	}
	return false
}

func jarArgument(args []string) (string, bool) {
	for i, a := range args {
		if a == "-jar" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	for _, a := range args {
		if strings.HasSuffix(strings.ToLower(a), ".jar") {
			return a, true
		}
	}
	return "", false
}

func baseName(path string) string {
	path = strings.TrimRight(path, `\/`)
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}
