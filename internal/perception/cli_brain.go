package perception

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spacer/internal/logging"
	"spacer/internal/tactile"
)

// DefaultCLITimeout bounds one chat turn through a coding agent.
const DefaultCLITimeout = 120 * time.Second

// OutcomeKind classifies how a CLI invocation chain ended.
type OutcomeKind int

const (
	OutcomeResponse    OutcomeKind = iota // stdout or stderr text
	OutcomeEmpty                          // both streams empty
	OutcomeTimedOut                       // an attempt hit the timeout
	OutcomeCancelled                      // the caller's context ended
	OutcomeToolMissing                    // binary not on PATH
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResponse:
		return "response"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeToolMissing:
		return "tool-missing"
	}
	return "unknown"
}

// Outcome is the explicit result of an invocation chain.
type Outcome struct {
	Kind     OutcomeKind
	Text     string // always non-empty; a sentinel for non-response kinds
	Attempt  int    // 1-based index of the attempt that produced Text
	ExitCode int
}

// Invocation builds the attempts for one turn: the primary shape first,
// then simpler fallbacks.
type Invocation func(systemPrompt, conversation string) []tactile.Command

// CLIBrain answers chat turns by running a local coding agent in one-shot
// print mode. It never returns an error: every failure is folded into a
// fixed response so the chat loop can show it inline.
type CLIBrain struct {
	name        string
	binary      string
	installHint string
	timeout     time.Duration
	invocation  Invocation
}

// Think implements Brain.
func (b *CLIBrain) Think(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	return b.Invoke(ctx, systemPrompt, history).Text, nil
}

// Invoke runs the attempt chain. A non-zero exit moves on to the next
// attempt; a timeout or missing binary ends the chain with its sentinel.
// The last attempt's stdout is the reply, falling back to stderr and then
// to ResponseNone.
func (b *CLIBrain) Invoke(ctx context.Context, systemPrompt string, history []Message) Outcome {
	timer := logging.StartTimer(logging.CategoryPerception, b.name+" think")
	defer timer.StopWithThreshold(b.timeout / 2)

	conversation := SerializeConversation(history)
	attempts := b.invocation(systemPrompt, conversation)
	logging.PerceptionDebug("[%s] Invoke: history=%d system_len=%d attempts=%d", b.name, len(history), len(systemPrompt), len(attempts))

	var (
		last  tactile.ExecutionResult
		index int
	)
	for i, cmd := range attempts {
		index = i + 1
		cmd.Timeout = b.timeout
		last = tactile.Run(ctx, cmd)

		switch {
		case last.NotFound:
			logging.PerceptionWarn("[%s] binary not found", b.name)
			return Outcome{Kind: OutcomeToolMissing, Text: b.missingText(), Attempt: index, ExitCode: last.ExitCode}
		case last.TimedOut:
			logging.PerceptionWarn("[%s] attempt %d timed out after %v", b.name, index, b.timeout)
			return Outcome{Kind: OutcomeTimedOut, Text: ResponseTimedOut, Attempt: index, ExitCode: last.ExitCode}
		case last.Killed:
			return Outcome{Kind: OutcomeCancelled, Text: ResponseCancelled, Attempt: index, ExitCode: last.ExitCode}
		}

		if last.ExitCode == 0 {
			break
		}
		if i < len(attempts)-1 {
			logging.PerceptionWarn("[%s] attempt %d exited %d, falling back", b.name, index, last.ExitCode)
		}
	}

	if text := strings.TrimSpace(last.Stdout); text != "" {
		return Outcome{Kind: OutcomeResponse, Text: text, Attempt: index, ExitCode: last.ExitCode}
	}
	if text := strings.TrimSpace(last.Stderr); text != "" {
		return Outcome{Kind: OutcomeResponse, Text: text, Attempt: index, ExitCode: last.ExitCode}
	}
	return Outcome{Kind: OutcomeEmpty, Text: ResponseNone, Attempt: index, ExitCode: last.ExitCode}
}

func (b *CLIBrain) missingText() string {
	return fmt.Sprintf("(%s CLI not found. Install: %s)", b.binary, b.installHint)
}

// String names the brain for banners and logs.
func (b *CLIBrain) String() string {
	return b.name
}

// Timeout returns the per-attempt timeout.
func (b *CLIBrain) Timeout() time.Duration { return b.timeout }
