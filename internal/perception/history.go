package perception

import "sync"

// DefaultHistoryLimit bounds the conversation sent to the model.
const DefaultHistoryLimit = 40

// History is the bounded rolling conversation. Once full, each append
// evicts the oldest message.
type History struct {
	mu    sync.Mutex
	limit int
	msgs  []Message
}

// MinHistoryLimit keeps a full user/assistant exchange in the window.
const MinHistoryLimit = 2

// NewHistory returns an empty history holding at most limit messages.
// Zero or less selects DefaultHistoryLimit; smaller positive limits are
// raised to MinHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit < MinHistoryLimit {
		limit = MinHistoryLimit
	}
	return &History{limit: limit}
}

// Append adds a message, evicting from the front past the limit.
func (h *History) Append(role Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, Message{Role: role, Content: content})
	if over := len(h.msgs) - h.limit; over > 0 {
		h.msgs = append(h.msgs[:0:0], h.msgs[over:]...)
	}
}

// Messages returns a copy of the current window, oldest first.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Len returns the number of retained messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

// Limit returns the capacity.
func (h *History) Limit() int { return h.limit }
