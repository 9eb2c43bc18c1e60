package perception

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"spacer/internal/logging"
)

// TracingBrain wraps a Brain and records every turn in the perception log
// with the session it belongs to.
type TracingBrain struct {
	underlying Brain
	sessionID  string
	turns      atomic.Int64
}

// NewTracingBrain wraps underlying for sessionID.
func NewTracingBrain(underlying Brain, sessionID string) *TracingBrain {
	return &TracingBrain{underlying: underlying, sessionID: sessionID}
}

// Unwrap returns the wrapped brain.
func (t *TracingBrain) Unwrap() Brain { return t.underlying }

// String names the wrapped brain.
func (t *TracingBrain) String() string {
	if s, ok := t.underlying.(fmt.Stringer); ok {
		return s.String()
	}
	return "brain"
}

// Turns returns how many turns have gone through this brain.
func (t *TracingBrain) Turns() int64 { return t.turns.Load() }

// Think implements Brain.
func (t *TracingBrain) Think(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	turn := t.turns.Add(1)
	log := logging.Get(logging.CategoryPerception).With(
		"session", t.sessionID,
		"turn", turn,
		"brain", t.String(),
	)

	start := time.Now()
	reply, err := t.underlying.Think(ctx, systemPrompt, history)
	elapsed := time.Since(start)

	if err != nil {
		log.Error("turn failed after %v: %v", elapsed, err)
		return reply, err
	}
	log.Info("turn ok in %v: history=%d reply_len=%d", elapsed, len(history), len(reply))
	return reply, nil
}
