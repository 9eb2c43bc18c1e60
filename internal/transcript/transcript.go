// Package transcript records what was shown during a chat session and
// writes it out as a markdown note under notes/<phase>/.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"spacer/internal/logging"

	"github.com/google/uuid"
)

// Role labels an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Heading returns the markdown section title for r.
func (r Role) Heading() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "SPACER"
	default:
		return "System"
	}
}

// Entry is one displayed message.
type Entry struct {
	Role    Role
	Content string
	At      time.Time
}

// Transcript is the display log of one session. Unlike the model history
// it is unbounded and includes system lines (command output, errors).
type Transcript struct {
	SessionID string
	Started   time.Time

	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// New returns an empty transcript with a fresh session ID.
func New() *Transcript {
	return &Transcript{
		SessionID: uuid.NewString(),
		Started:   time.Now(),
		now:       time.Now,
	}
}

// Add appends an entry.
func (t *Transcript) Add(role Role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{Role: role, Content: content, At: t.now()})
}

// Entries returns a copy of the entries.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Render formats the transcript as markdown.
func Render(t *Transcript, phase, substep string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# SPACER Discussion (%s)\n\n", at.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "- Phase: %s\n", phase)
	if substep == "" {
		substep = "none"
	}
	fmt.Fprintf(&b, "- Sub-step: %s\n", strings.ReplaceAll(substep, "_", " "))
	fmt.Fprintf(&b, "- Session: %s\n", t.SessionID)

	for _, e := range t.Entries() {
		fmt.Fprintf(&b, "\n## %s\n%s\n", e.Role.Heading(), strings.TrimRight(e.Content, "\n"))
	}
	return b.String()
}

// Save writes t to notesDir/<phase>/discussion-YYYYMMDD-HHMMSS.md and
// returns the path. An existing file is never touched: on a name clash a
// numeric suffix is added.
func Save(t *Transcript, notesDir, phase, substep string) (string, error) {
	if phase == "" {
		phase = "ideation"
	}
	dir := filepath.Join(notesDir, phase)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create notes directory: %w", err)
	}

	at := t.now()
	content := []byte(Render(t, phase, substep, at))
	base := "discussion-" + at.Format("20060102-150405")

	for n := 1; n <= 1000; n++ {
		name := base + ".md"
		if n > 1 {
			name = fmt.Sprintf("%s-%d.md", base, n)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return "", fmt.Errorf("failed to create transcript: %w", err)
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write transcript: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to write transcript: %w", err)
		}
		logging.Transcript("saved %d entries to %s", t.Len(), path)
		return path, nil
	}
	return "", fmt.Errorf("failed to create transcript: too many files named %s*", base)
}
