package tactile

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"spacer/internal/logging"
)

// Process is a live handle to a started command.
type Process struct {
	cmd     Command
	execCmd *exec.Cmd
	ctx     context.Context
	cancel  context.CancelFunc
	stdout  *limitedWriter
	stderr  *limitedWriter
	started time.Time

	done     chan struct{}
	mu       sync.Mutex
	result   ExecutionResult
	killedBy string
}

func (p *Process) wait() {
	err := p.execCmd.Wait()
	finished := time.Now()

	res := ExecutionResult{
		Stdout:     p.stdout.String(),
		Stderr:     p.stderr.String(),
		ExitCode:   0,
		Truncated:  p.stdout.wasTruncated() || p.stderr.wasTruncated(),
		StartedAt:  p.started,
		FinishedAt: finished,
		Duration:   finished.Sub(p.started),
	}

	p.mu.Lock()
	killedBy := p.killedBy
	p.mu.Unlock()

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case killedBy != "":
			res.Killed = true
			res.KillReason = killedBy
			res.ExitCode = -1
		case errors.Is(p.ctx.Err(), context.DeadlineExceeded):
			res.Killed = true
			res.TimedOut = true
			res.KillReason = fmt.Sprintf("timeout after %s", p.cmd.Timeout)
			res.ExitCode = -1
			logging.TactileWarn("Command killed (timeout): %s after %s", p.cmd.Binary, p.cmd.Timeout)
		case errors.Is(p.ctx.Err(), context.Canceled):
			res.Killed = true
			res.KillReason = "context canceled"
			res.ExitCode = -1
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
			logging.TactileDebug("Command exited non-zero: %s -> %d", p.cmd.Binary, res.ExitCode)
		default:
			res.ExitCode = -1
			res.StartErr = err.Error()
		}
	}
	p.cancel()

	p.mu.Lock()
	p.result = res
	p.mu.Unlock()
	close(p.done)
	logging.Tactile("Finished %s: exit=%d killed=%v in %v", p.cmd.Binary, res.ExitCode, res.Killed, res.Duration)
}

// Done is closed once the process has exited and its result is final.
func (p *Process) Done() <-chan struct{} { return p.done }

// Poll returns the result and true once finished, without blocking.
func (p *Process) Poll() (ExecutionResult, bool) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, true
	default:
		return ExecutionResult{}, false
	}
}

// Wait blocks until the process exits.
func (p *Process) Wait() ExecutionResult {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Kill terminates the process and its children. Killing a finished process
// is a no-op.
func (p *Process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	p.mu.Lock()
	if p.killedBy == "" {
		p.killedBy = "killed"
	}
	p.mu.Unlock()
	logging.TactileDebug("Killing %s", p.cmd.Binary)
	p.cancel()
	return nil
}

// Stdout returns what the process has written to stdout so far.
func (p *Process) Stdout() string { return p.stdout.String() }

// Stderr returns what the process has written to stderr so far.
func (p *Process) Stderr() string { return p.stderr.String() }

// StartedAt returns the launch time.
func (p *Process) StartedAt() time.Time { return p.started }
