package perception

import (
	"time"

	"spacer/internal/backend"
	"spacer/internal/config"
	"spacer/internal/tactile"
)

// NewCodexCLIBrain creates a Brain backed by `codex exec`.
//
// `codex exec` has no system prompt flag, so the system prompt is always
// wrapped in <system_instructions> tags ahead of the conversation, which is
// read from stdin via the "-" argument. Chat turns run read-only.
func NewCodexCLIBrain(cfg *config.CodexCLIConfig) *CLIBrain {
	spec, _ := backend.Lookup(string(backend.Codex))
	if cfg == nil {
		cfg = (&config.UserConfig{}).GetCodexCLIConfig()
	}

	return &CLIBrain{
		name:        "codex-cli",
		binary:      spec.Binary,
		installHint: spec.InstallHint,
		timeout:     time.Duration(cfg.Timeout) * time.Second,
		invocation: func(systemPrompt, conversation string) []tactile.Command {
			input := CombinePrompt(systemPrompt, conversation)
			primary := []string{"exec", "--skip-git-repo-check", "--color", "never", "--sandbox", "read-only"}
			if cfg.Model != "" {
				primary = append(primary, "--model", cfg.Model)
			}
			// "-" reads the prompt from stdin; argv would cap its length.
			primary = append(primary, "-")
			return []tactile.Command{
				{Binary: spec.Binary, Arguments: primary, Stdin: input},
				{Binary: spec.Binary, Arguments: []string{"exec", "-"}, Stdin: input},
			}
		},
	}
}

// NewCodexHands creates Hands that run `codex exec` with the configured
// sandbox (workspace-write by default).
func NewCodexHands(cfg *config.CodexCLIConfig) *Hands {
	spec, _ := backend.Lookup(string(backend.Codex))
	if cfg == nil {
		cfg = (&config.UserConfig{}).GetCodexCLIConfig()
	}
	return &Hands{
		name:           "codex-cli",
		binary:         spec.Binary,
		installHint:    spec.InstallHint,
		defaultTimeout: time.Duration(cfg.HandsTimeout) * time.Second,
		command: func(task HandsTask) tactile.Command {
			args := []string{"exec", "--skip-git-repo-check", "--color", "never", "--sandbox", cfg.Sandbox}
			if cfg.Model != "" {
				args = append(args, "--model", cfg.Model)
			}
			args = append(args, "-")
			return tactile.Command{Binary: spec.Binary, Arguments: args, Stdin: task.Prompt}
		},
	}
}
