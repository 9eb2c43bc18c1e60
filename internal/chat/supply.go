package chat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// TruncationMarker is appended to supplied content cut at the budget.
const TruncationMarker = "\n...(truncated)"

// ErrFileNotFound is returned by LoadSupply for a missing path.
var ErrFileNotFound = errors.New("file not found")

// Supplied is a file loaded into the conversation.
type Supplied struct {
	Name      string
	Content   string // possibly truncated, marker included
	Truncated bool
}

// Chars is the length of Content in characters.
func (s Supplied) Chars() int { return len([]rune(s.Content)) }

// Turn is the synthetic user message carrying the file to the model.
func (s Supplied) Turn() string {
	return fmt.Sprintf("Here is the content of %s for context:\n\n```\n%s\n```", s.Name, s.Content)
}

// LoadSupply reads path and cuts it to budget characters. Content within
// budget is returned unchanged.
func LoadSupply(path string, budget int) (Supplied, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Supplied{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return Supplied{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content, cut := truncate(string(data), budget)
	return Supplied{Name: filepath.Base(path), Content: content, Truncated: cut}, nil
}

func truncate(s string, budget int) (string, bool) {
	if budget <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= budget {
		return s, false
	}
	return string(runes[:budget]) + TruncationMarker, true
}

// Draft is one file under the drafts directory.
type Draft struct {
	Path    string
	Size    int64
	Preview string
}

// ListDrafts returns the .tex files in dir, sorted by name. A missing
// directory yields os.ErrNotExist.
func ListDrafts(dir string) ([]Draft, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.tex"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	drafts := make([]Draft, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		drafts = append(drafts, Draft{Path: m, Size: info.Size(), Preview: firstLine(string(data))})
	}
	return drafts, nil
}

// firstLine returns the first non-blank line, cut to 72 characters.
func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if r := []rune(l); len(r) > 72 {
			return string(r[:72]) + "..."
		}
		return l
	}
	return "(empty)"
}

// formatDrafts renders the /review response.
func formatDrafts(dir string, drafts []Draft) string {
	var b strings.Builder
	b.WriteString("Existing drafts:")
	for _, d := range drafts {
		fmt.Fprintf(&b, "\n  • %s (%s)\n    %s", filepath.ToSlash(d.Path), humanize.Bytes(uint64(d.Size)), d.Preview)
	}
	fmt.Fprintf(&b, "\n\nUse /supply %s/<file>.tex to load a draft for discussion.", filepath.ToSlash(dir))
	return b.String()
}
