package init

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spacer/internal/phase"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scaffoldPaths() []string {
	var paths []string
	for _, f := range Scaffold {
		paths = append(paths, f.Path)
	}
	return paths
}

func TestInitializeCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	result, err := NewInitializer(InitConfig{Workspace: dir, Out: &out}).Initialize(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(scaffoldPaths(), result.Created); diff != "" {
		t.Errorf("created mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, result.Skipped)

	for _, p := range scaffoldPaths() {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(p)))
		assert.NoError(t, err, p)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "  create spacer.yaml", lines[0])
	assert.Equal(t, "✓ SPACER project initialized.", lines[len(lines)-1])

	ref, err := os.ReadFile(filepath.Join(dir, "paper", "ref.bib"))
	require.NoError(t, err)
	assert.Empty(t, ref)
}

func TestInitializeSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("phase: drafting\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spacer.yaml"), custom, 0644))

	var out bytes.Buffer
	result, err := NewInitializer(InitConfig{Workspace: dir, Out: &out}).Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"spacer.yaml"}, result.Skipped)
	assert.Len(t, result.Created, len(Scaffold)-1)
	assert.Contains(t, out.String(), "  skip spacer.yaml (exists)\n")

	got, err := os.ReadFile(filepath.Join(dir, "spacer.yaml"))
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	again, err := NewInitializer(InitConfig{Workspace: dir}).Initialize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Len(t, again.Skipped, len(Scaffold))
}

func TestScaffoldedStateIsLoadable(t *testing.T) {
	dir := t.TempDir()
	_, err := NewInitializer(InitConfig{Workspace: dir}).Initialize(context.Background())
	require.NoError(t, err)

	p, err := phase.Load(filepath.Join(dir, "spacer.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ideation", p.Phase())
	assert.Equal(t, "started", p.PhaseStatus())
	assert.Equal(t, "literature_survey", p.CurrentSubstep())

	var names []string
	for _, item := range p.CurrentChecklist() {
		names = append(names, item.Name)
		assert.False(t, item.Done)
	}
	want := []string{"literature_survey", "problem_articulated", "related_work_drafted", "intro_drafted", "abstract_half_drafted"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("checklist mismatch (-want +got):\n%s", diff)
	}
}

func TestInitializeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewInitializer(InitConfig{Workspace: t.TempDir()}).Initialize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Created)
}

func TestTemplate(t *testing.T) {
	assert.Contains(t, string(Template("AGENTS.md")), "spacer bib verify")
	assert.Nil(t, Template("paper/ref.bib"))
	assert.Nil(t, Template("nope"))
}
