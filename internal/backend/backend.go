// Package backend detects, selects and verifies the local coding agent CLI
// that spacer shells out to.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"spacer/internal/logging"
)

// VerifyTimeout bounds the `--version` self-check.
const VerifyTimeout = 10 * time.Second

// ErrNoBackendAvailable matches every *NoBackendError.
var ErrNoBackendAvailable = errors.New("no backend available")

// Choice is one of the closed set of coding agents.
type Choice string

const (
	Claude Choice = "claude"
	Codex  Choice = "codex"
)

// Spec describes how to find and install a coding agent.
type Spec struct {
	Choice      Choice
	Binary      string
	Description string
	InstallHint string
}

// Known lists the supported agents in detection priority order.
var Known = []Spec{
	{
		Choice:      Claude,
		Binary:      "claude",
		Description: "Claude Code CLI (Anthropic subscription)",
		InstallHint: "npm install -g @anthropic-ai/claude-code",
	},
	{
		Choice:      Codex,
		Binary:      "codex",
		Description: "Codex CLI (ChatGPT subscription)",
		InstallHint: "npm install -g @openai/codex",
	},
}

// Lookup returns the Spec for name.
func Lookup(name string) (Spec, bool) {
	for _, s := range Known {
		if string(s.Choice) == strings.ToLower(strings.TrimSpace(name)) {
			return s, true
		}
	}
	return Spec{}, false
}

// NoBackendError carries the remediation text shown to the user.
type NoBackendError struct {
	// Wanted is the persisted choice that was missing, if any.
	Wanted Choice
}

// Error implements the error interface.
func (e *NoBackendError) Error() string {
	var b strings.Builder
	if s, ok := Lookup(string(e.Wanted)); ok {
		fmt.Fprintf(&b, "%s CLI not found on PATH. Install: %s", s.Binary, s.InstallHint)
		return b.String()
	}
	b.WriteString("no coding agent CLI found. Install one:")
	for _, s := range Known {
		fmt.Fprintf(&b, "\n  %s: %s", s.Description, s.InstallHint)
	}
	return b.String()
}

// Is lets errors.Is match ErrNoBackendAvailable.
func (e *NoBackendError) Is(target error) bool {
	return target == ErrNoBackendAvailable
}

// Selector probes PATH for agents. The zero value uses exec.LookPath.
type Selector struct {
	LookPath func(file string) (string, error)
}

func (s *Selector) lookPath(file string) (string, error) {
	if s != nil && s.LookPath != nil {
		return s.LookPath(file)
	}
	return exec.LookPath(file)
}

// DetectAvailable returns the installed agents in priority order.
func (s *Selector) DetectAvailable() []Spec {
	var found []Spec
	for _, spec := range Known {
		path, err := s.lookPath(spec.Binary)
		if err != nil {
			continue
		}
		logging.BackendDebug("found %s at %s", spec.Binary, path)
		found = append(found, spec)
	}
	logging.Backend("detected %d coding agent(s)", len(found))
	return found
}

// DetectAvailable probes PATH with exec.LookPath.
func DetectAvailable() []Spec {
	return (&Selector{}).DetectAvailable()
}

// Choose picks the backend to use. The persisted choice wins when it is
// installed; otherwise, with fallback enabled, the first available agent is
// used. Failing both it returns a *NoBackendError.
func Choose(persisted string, available []Spec, fallback bool) (Spec, error) {
	wanted := Choice(strings.ToLower(strings.TrimSpace(persisted)))

	for _, s := range available {
		if s.Choice == wanted {
			return s, nil
		}
	}

	if wanted != "" {
		if _, known := Lookup(string(wanted)); !known {
			logging.Backend("ignoring unknown persisted backend %q", persisted)
			wanted = ""
		}
	}

	if (fallback || wanted == "") && len(available) > 0 {
		if wanted != "" {
			logging.Backend("persisted backend %s not installed, falling back to %s", wanted, available[0].Choice)
		}
		return available[0], nil
	}

	return Spec{}, &NoBackendError{Wanted: wanted}
}

// VerifyVersion runs `<binary> --version` bounded by VerifyTimeout and
// returns the first line of its output.
func VerifyVersion(ctx context.Context, spec Spec) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, VerifyTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, spec.Binary, "--version").CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s --version timed out after %v", spec.Binary, VerifyTimeout)
		}
		return "", fmt.Errorf("%s --version failed: %w (output: %s)", spec.Binary, err, strings.TrimSpace(string(out)))
	}
	version := strings.TrimSpace(string(out))
	if i := strings.IndexByte(version, '\n'); i >= 0 {
		version = version[:i]
	}
	return version, nil
}

// Verify reports whether the agent answers `--version` with a clean exit.
func Verify(ctx context.Context, spec Spec) bool {
	version, err := VerifyVersion(ctx, spec)
	if err != nil {
		logging.Backend("verify %s: %v", spec.Binary, err)
		return false
	}
	logging.Backend("verify %s: %s", spec.Binary, version)
	return true
}
