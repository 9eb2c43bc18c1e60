package perception

import (
	"time"

	"spacer/internal/backend"
	"spacer/internal/config"
	"spacer/internal/tactile"
)

// NewClaudeCLIBrain creates a Brain backed by `claude --print`.
//
// The primary attempt passes the system prompt with --system-prompt and the
// serialized conversation on stdin. The fallback drops every optional flag
// and embeds the system prompt in the input instead, which works on older
// CLI releases that reject unknown flags.
func NewClaudeCLIBrain(cfg *config.ClaudeCLIConfig) *CLIBrain {
	spec, _ := backend.Lookup(string(backend.Claude))
	if cfg == nil {
		cfg = (&config.UserConfig{}).GetClaudeCLIConfig()
	}

	return &CLIBrain{
		name:        "claude-cli",
		binary:      spec.Binary,
		installHint: spec.InstallHint,
		timeout:     time.Duration(cfg.Timeout) * time.Second,
		invocation: func(systemPrompt, conversation string) []tactile.Command {
			primary := []string{"--print"}
			if systemPrompt != "" {
				primary = append(primary, "--system-prompt", systemPrompt)
			}
			if cfg.Model != "" {
				primary = append(primary, "--model", cfg.Model)
			}
			// The conversation goes on stdin, not argv, so long histories
			// never hit the OS argument length limit.
			return []tactile.Command{
				{Binary: spec.Binary, Arguments: primary, Stdin: conversation},
				{Binary: spec.Binary, Arguments: []string{"--print"}, Stdin: CombinePrompt(systemPrompt, conversation)},
			}
		},
	}
}

// NewClaudeHands creates Hands that run `claude --print` with permission
// prompts disabled so the agent can edit files unattended.
func NewClaudeHands(cfg *config.ClaudeCLIConfig) *Hands {
	spec, _ := backend.Lookup(string(backend.Claude))
	if cfg == nil {
		cfg = (&config.UserConfig{}).GetClaudeCLIConfig()
	}
	return &Hands{
		name:           "claude-cli",
		binary:         spec.Binary,
		installHint:    spec.InstallHint,
		defaultTimeout: time.Duration(cfg.HandsTimeout) * time.Second,
		command: func(task HandsTask) tactile.Command {
			args := []string{"--print", "--dangerously-skip-permissions"}
			if cfg.Model != "" {
				args = append(args, "--model", cfg.Model)
			}
			return tactile.Command{Binary: spec.Binary, Arguments: args, Stdin: task.Prompt}
		},
	}
}
