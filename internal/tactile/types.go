// Package tactile runs external processes for spacer: the coding agent
// CLIs used as a Brain and as Hands.
package tactile

import (
	"strings"
	"time"
)

// DefaultMaxOutputBytes caps captured stdout and stderr separately.
const DefaultMaxOutputBytes = 4 << 20

// ExitNotFound is reported when the binary is not on PATH.
const ExitNotFound = 127

// Command describes a single process invocation.
type Command struct {
	Binary           string
	Arguments        []string
	Stdin            string
	WorkingDirectory string
	Timeout          time.Duration // zero means no limit beyond ctx
	MaxOutputBytes   int64
}

// CommandString renders the command for logs. Arguments are elided past a
// short prefix since prompts can be long.
func (c Command) CommandString() string {
	parts := []string{c.Binary}
	for _, a := range c.Arguments {
		if len(a) > 40 {
			a = a[:37] + "..."
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// ExecutionResult is the outcome of a process run. A non-zero exit is a
// result, not an error.
type ExecutionResult struct {
	Stdout   string
	Stderr   string
	ExitCode int

	NotFound   bool   // binary missing from PATH
	TimedOut   bool   // killed by Command.Timeout
	Killed     bool   // killed by timeout, cancellation or Kill
	KillReason string // human-readable, when Killed
	StartErr   string // any other failure to start

	Truncated  bool
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// Clean reports a zero exit with no kill.
func (r ExecutionResult) Clean() bool {
	return r.ExitCode == 0 && !r.Killed && !r.NotFound && r.StartErr == ""
}
