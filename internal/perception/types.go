// Package perception is spacer's model layer: the Brain that answers chat
// turns and the Hands that run autonomous tasks through a coding agent.
package perception

import (
	"context"
	"errors"
	"fmt"
)

// Fixed responses returned by CLI brains instead of errors.
const (
	ResponseNone      = "(No response)"
	ResponseTimedOut  = "(Response timed out)"
	ResponseCancelled = "(Response cancelled)"
)

// Role is a conversation role as seen by the model.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Brain produces the assistant's reply to a conversation.
type Brain interface {
	// Think sends the system prompt and the full rolling history and
	// returns the reply text.
	Think(ctx context.Context, systemPrompt string, history []Message) (string, error)
}

// ErrBrainUnavailable matches every *BrainUnavailableError.
var ErrBrainUnavailable = errors.New("brain unavailable")

// BrainUnavailableError wraps a transport or API failure from a direct-API
// brain. These calls are never retried.
type BrainUnavailableError struct {
	Provider   string
	StatusCode int // HTTP status, 0 for transport errors
	Err        error
}

// Error implements the error interface.
func (e *BrainUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s unavailable (HTTP %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BrainUnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrBrainUnavailable.
func (e *BrainUnavailableError) Is(target error) bool {
	return target == ErrBrainUnavailable
}
