package perception

import (
	"context"
	"strings"
	"sync"
	"time"

	"spacer/internal/logging"
	"spacer/internal/tactile"

	"golang.org/x/sync/errgroup"
)

// Task is a background Hands run.
type Task struct {
	ID      string
	Prompt  string
	Backend string

	proc *tactile.Process
}

// StartedAt returns the launch time.
func (t *Task) StartedAt() time.Time { return t.proc.StartedAt() }

// Done is closed when the task exits.
func (t *Task) Done() <-chan struct{} { return t.proc.Done() }

// Poll returns the result and true once the task has finished.
func (t *Task) Poll() (HandsResult, bool) {
	res, done := t.proc.Poll()
	if !done {
		return HandsResult{}, false
	}
	return toHandsResult(res), true
}

// Wait blocks until the task exits.
func (t *Task) Wait() HandsResult {
	return toHandsResult(t.proc.Wait())
}

// Kill stops the task and everything it spawned.
func (t *Task) Kill() error {
	return t.proc.Kill()
}

// Output returns stdout captured so far.
func (t *Task) Output() string {
	return t.proc.Stdout()
}

// LastLine returns the last non-blank line of output so far.
func (t *Task) LastLine() string {
	lines := strings.Split(strings.TrimRight(t.Output(), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}

// TaskRegistry tracks background tasks for a session so none outlive it.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks []*Task
}

// NewTaskRegistry returns an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{}
}

// Add registers t.
func (r *TaskRegistry) Add(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
}

// List returns every task in launch order.
func (r *TaskRegistry) List() []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Find returns the task whose ID starts with prefix.
func (r *TaskRegistry) Find(prefix string) (*Task, bool) {
	if prefix == "" {
		return nil, false
	}
	for _, t := range r.List() {
		if strings.HasPrefix(t.ID, prefix) {
			return t, true
		}
	}
	return nil, false
}

// Outstanding returns tasks that are still running.
func (r *TaskRegistry) Outstanding() []*Task {
	var out []*Task
	for _, t := range r.List() {
		if _, done := t.Poll(); !done {
			out = append(out, t)
		}
	}
	return out
}

// Shutdown kills every outstanding task and waits for them to exit or for
// ctx to end.
func (r *TaskRegistry) Shutdown(ctx context.Context) error {
	outstanding := r.Outstanding()
	if len(outstanding) == 0 {
		return nil
	}
	logging.Tactile("shutting down %d background task(s)", len(outstanding))

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range outstanding {
		g.Go(func() error {
			if err := t.Kill(); err != nil {
				return err
			}
			select {
			case <-t.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}
