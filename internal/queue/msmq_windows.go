//go:build windows

package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const powershellTimeout = 10 * time.Second

// msmqSource reads queue depths from the local MSMQ service via PowerShell.
// Availability is probed once: when the Get-MsmqQueue cmdlet is missing the
// source reports unavailable and all queue triggers stay inert.
type msmqSource struct {
	probeOnce sync.Once
	available bool
}

// NewPlatformSource returns the MSMQ-backed source on Windows.
func NewPlatformSource() Source { return &msmqSource{} }

func (m *msmqSource) Available() bool {
	m.probeOnce.Do(func() {
		out, err := runPowershell(context.Background(),
			"Get-Command Get-MsmqQueue -ErrorAction SilentlyContinue | Select-Object -ExpandProperty Name")
		m.available = err == nil && strings.Contains(out, "Get-MsmqQueue")
		if !m.available {
			slog.Warn("MSMQ cmdlets not available, queue monitoring disabled")
		}
	})
	return m.available
}

func (m *msmqSource) List(ctx context.Context) ([]Queue, error) {
	if !m.Available() {
		return nil, nil
	}
	queues, err := m.listCmdlet(ctx)
	if err != nil {
		slog.Warn("Get-MsmqQueue failed, falling back to WMI", "error", err)
		return m.listWMI(ctx)
	}
	return queues, nil
}

func (m *msmqSource) listCmdlet(ctx context.Context) ([]Queue, error) {
	const script = `$queues = Get-MsmqQueue -QueueType Private, Public -ErrorAction SilentlyContinue
$result = @()
foreach ($queue in $queues) {
  $result += @{ Name = $queue.Name; MessageCount = $queue.MessageCount; Path = $queue.Path }
}
$result | ConvertTo-Json -Compress`
	out, err := runPowershell(ctx, script)
	if err != nil {
		return nil, err
	}
	return parseQueueJSON(out)
}

func (m *msmqSource) listWMI(ctx context.Context) ([]Queue, error) {
	const script = `$queues = Get-WmiObject -Class Win32_PerfRawData_MSMQ_MSMQQueue -ErrorAction SilentlyContinue
$result = @()
foreach ($queue in $queues) {
  if ($queue.Name -and $queue.MessagesInQueue -ge 0) {
    $result += @{ Name = $queue.Name; MessageCount = $queue.MessagesInQueue; Path = "" }
  }
}
$result | ConvertTo-Json -Compress`
	out, err := runPowershell(ctx, script)
	if err != nil {
		return nil, err
	}
	return parseQueueJSON(out)
}

func runPowershell(ctx context.Context, script string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, powershellTimeout)
	defer cancel()
	cmd := exec.CommandContext(cctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("powershell: %w", err)
	}
	return string(out), nil
}
