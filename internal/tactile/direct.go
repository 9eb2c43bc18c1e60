package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"spacer/internal/logging"
)

// waitDelay bounds how long Wait lingers on pipes held open by
// grandchildren after the direct child exits.
const waitDelay = 2 * time.Second

// Run executes cmd to completion and returns its result. It never returns
// an error: a missing binary, a timeout and a non-zero exit are all
// reported in the result.
func Run(ctx context.Context, cmd Command) ExecutionResult {
	timer := logging.StartTimer(logging.CategoryTactile, "Process "+cmd.Binary)
	defer timer.Stop()

	p, err := Start(ctx, cmd)
	if err != nil {
		return startFailure(cmd, err)
	}
	return p.Wait()
}

// Start launches cmd without waiting. The returned Process is the only
// handle to it; callers must eventually Wait or Kill.
func Start(ctx context.Context, cmd Command) (*Process, error) {
	logging.Tactile("Executing command: %s", cmd.CommandString())

	if _, err := exec.LookPath(cmd.Binary); err != nil {
		logging.TactileWarn("Binary not found: %s", cmd.Binary)
		return nil, fmt.Errorf("%s: %w", cmd.Binary, exec.ErrNotFound)
	}

	maxOutput := cmd.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}

	var (
		execCtx context.Context
		cancel  context.CancelFunc
	)
	if cmd.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
	} else {
		execCtx, cancel = context.WithCancel(ctx)
	}

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	if cmd.Stdin != "" {
		logging.TactileDebug("Providing stdin input (%d bytes)", len(cmd.Stdin))
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}
	setupProcessGroup(execCmd)
	execCmd.Cancel = func() error { return killProcessGroup(execCmd) }
	execCmd.WaitDelay = waitDelay

	p := &Process{
		cmd:     cmd,
		execCmd: execCmd,
		ctx:     execCtx,
		cancel:  cancel,
		stdout:  &limitedWriter{w: &bytes.Buffer{}, max: maxOutput},
		stderr:  &limitedWriter{w: &bytes.Buffer{}, max: maxOutput},
		done:    make(chan struct{}),
	}
	execCmd.Stdout = p.stdout
	execCmd.Stderr = p.stderr

	p.started = time.Now()
	if err := execCmd.Start(); err != nil {
		cancel()
		return nil, err
	}
	logging.TactileDebug("Started %s (pid %d)", cmd.Binary, execCmd.Process.Pid)

	go p.wait()
	return p, nil
}

func startFailure(cmd Command, err error) ExecutionResult {
	now := time.Now()
	res := ExecutionResult{ExitCode: -1, StartedAt: now, FinishedAt: now}
	if errors.Is(err, exec.ErrNotFound) {
		res.NotFound = true
		res.ExitCode = ExitNotFound
		res.Stderr = fmt.Sprintf("%s: command not found", cmd.Binary)
		return res
	}
	res.StartErr = err.Error()
	res.Stderr = err.Error()
	logging.TactileWarn("Command failed to start: %s - %v", cmd.Binary, err)
	return res
}

// limitedWriter caps how much output is retained. It is safe for
// concurrent Write and String so a running process can be inspected.
type limitedWriter struct {
	mu        sync.Mutex
	w         *bytes.Buffer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

var _ io.Writer = (*limitedWriter)(nil)

func (lw *limitedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}

func (lw *limitedWriter) String() string {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.String()
}

func (lw *limitedWriter) wasTruncated() bool {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.truncated
}
