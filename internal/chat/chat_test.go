package chat

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spacer/internal/phase"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "/status", want: []string{"/status"}},
		{line: `/bib search "reader instability"`, want: []string{"/bib", "search", "reader instability"}},
		{line: `/bib  search   'single quoted'  tail`, want: []string{"/bib", "search", "single quoted", "tail"}},
		{line: `/supply my\ file.tex`, want: []string{"/supply", "my file.tex"}},
		{line: `/supply ""`, want: []string{"/supply", ""}},
		{line: `/bib search "open`, wantErr: true},
		{line: `/supply trailing\`, wantErr: true},
		{line: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadSupplyBudget(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		return p
	}

	tests := []struct {
		name      string
		content   string
		budget    int
		want      string
		truncated bool
	}{
		{"within budget", "short", 10, "short", false},
		{"exactly budget", "0123456789", 10, "0123456789", false},
		{"over budget", "0123456789x", 10, "0123456789" + TruncationMarker, true},
		{"counts characters not bytes", "ééééé", 3, "ééé" + TruncationMarker, true},
		{"no budget", "anything", 0, "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadSupply(write(strings.ReplaceAll(tt.name, " ", "_")+".txt", tt.content), tt.budget)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Content)
			assert.Equal(t, tt.truncated, got.Truncated)
		})
	}
}

func TestLoadSupplyMissing(t *testing.T) {
	_, err := LoadSupply(filepath.Join(t.TempDir(), "nope.tex"), 100)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSystemPrompt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spacer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(projectYAML), 0644))
	p, err := phase.Load(path)
	require.NoError(t, err)

	got := SystemPrompt("[[PHASE]]|[[PHASE_STATUS]]|[[SUB_STEP]]|[[CONSTITUTION]]", p, "  ")
	assert.Equal(t, "ideation|started|literature_survey|(none yet)", got)

	_, err = p.AdvanceSubstep()
	require.NoError(t, err)
	_, err = p.AdvanceSubstep()
	require.NoError(t, err)
	got = SystemPrompt("[[SUB_STEP]]\n[[CHECKLIST]]", p, "")
	assert.Equal(t, "complete\n- [x] literature survey\n- [x] problem articulated", got)

	full := SystemPrompt("", p, "# Our constitution")
	assert.Contains(t, full, "# Our constitution")
	assert.NotContains(t, full, "[[")
}

func TestReadConstitution(t *testing.T) {
	text, err := readConstitution(filepath.Join(t.TempDir(), "missing.md"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "/status", suggest("/stat"))
	assert.Equal(t, "/constitute", suggest("/constit"))
	assert.Empty(t, suggest("/zzz"))
	assert.Empty(t, suggest("/"))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "(empty)", firstLine("\n  \n"))
	assert.Equal(t, "hello", firstLine("\n  hello  \nworld"))
	long := strings.Repeat("a", 80)
	assert.Equal(t, strings.Repeat("a", 72)+"...", firstLine(long))
}

func TestStateWatcherReportsExternalEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spacer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phase: ideation\n"), 0644))

	w, err := NewStateWatcher(path)
	require.NoError(t, err)
	w.Start(context.Background())
	defer w.Close()

	assert.Empty(t, w.Drain())

	require.NoError(t, os.WriteFile(path, []byte("phase: outlining\n"), 0644))
	var changed []string
	require.Eventually(t, func() bool {
		changed = append(changed, w.Drain()...)
		return len(changed) > 0
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{path}, changed)

	// Reported once.
	assert.Empty(t, w.Drain())
}

func TestStateWatcherIgnoresAcknowledgedWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spacer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0644))

	w, err := NewStateWatcher(path, filepath.Join(dir, "constitution", "ideation.md"))
	require.NoError(t, err)
	w.Start(context.Background())
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0644))
	w.Acknowledge(path)

	// Give the event time to arrive; it must not be reported.
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, w.Drain())

	// Rewriting identical content is not a change either.
	require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, w.Drain())
}

func TestStateWatcherCloseWithoutStart(t *testing.T) {
	w, err := NewStateWatcher(filepath.Join(t.TempDir(), "spacer.yaml"))
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

func TestRendererPlainWhenNotTerminal(t *testing.T) {
	var b strings.Builder
	r := NewRenderer(&b, true)
	assert.False(t, r.Styled())

	r.Banner("ideation", "", "Claude Code (claude)")
	r.Assistant("**hello**")
	out := b.String()
	assert.Contains(t, out, "Phase: ideation | Sub-step: none")
	assert.Contains(t, out, "Backend: Claude Code (claude)")
	assert.Contains(t, out, "\nSPACER: **hello**\n")
	assert.Equal(t, "You: ", r.Prompt())
}
