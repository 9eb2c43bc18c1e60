package perception

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spacer/internal/logging"
	"spacer/internal/tactile"

	"github.com/google/uuid"
)

// HandsTask is an autonomous job for the coding agent.
type HandsTask struct {
	Prompt  string
	WorkDir string
	Timeout time.Duration // zero uses the backend's hands timeout
}

// HandsResult is what the agent left behind. A non-zero ExitCode is data,
// not an error.
type HandsResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Killed   bool
	Duration time.Duration
}

// Hands runs tasks through a coding agent in its fully autonomous mode.
type Hands struct {
	name           string
	binary         string
	installHint    string
	defaultTimeout time.Duration
	command        func(HandsTask) tactile.Command
}

// String names the hands for logs.
func (h *Hands) String() string { return h.name }

func (h *Hands) build(task HandsTask) tactile.Command {
	cmd := h.command(task)
	cmd.WorkingDirectory = task.WorkDir
	cmd.Timeout = task.Timeout
	if cmd.Timeout <= 0 {
		cmd.Timeout = h.defaultTimeout
	}
	return cmd
}

// Run executes task and blocks until the agent exits.
func (h *Hands) Run(ctx context.Context, task HandsTask) HandsResult {
	logging.Tactile("[%s] hands run: %s", h.name, summarize(task.Prompt))
	res := tactile.Run(ctx, h.build(task))
	if res.NotFound {
		return h.missingResult()
	}
	return toHandsResult(res)
}

// Launch starts task in the background and returns its handle.
func (h *Hands) Launch(ctx context.Context, task HandsTask) (*Task, error) {
	if strings.TrimSpace(task.Prompt) == "" {
		return nil, fmt.Errorf("empty task prompt")
	}
	proc, err := tactile.Start(ctx, h.build(task))
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w (install: %s)", h.binary, err, h.installHint)
	}
	t := &Task{
		ID:      uuid.NewString()[:8],
		Prompt:  task.Prompt,
		Backend: h.name,
		proc:    proc,
	}
	logging.Tactile("[%s] launched task %s: %s", h.name, t.ID, summarize(task.Prompt))
	return t, nil
}

func (h *Hands) missingResult() HandsResult {
	return HandsResult{
		Stderr:   fmt.Sprintf("%s CLI not found. Install: %s", h.binary, h.installHint),
		ExitCode: tactile.ExitNotFound,
	}
}

func toHandsResult(res tactile.ExecutionResult) HandsResult {
	return HandsResult{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
		Killed:   res.Killed,
		Duration: res.Duration,
	}
}

func summarize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
