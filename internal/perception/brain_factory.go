package perception

import (
	"context"
	"fmt"
	"time"

	"spacer/internal/auth"
	"spacer/internal/backend"
	"spacer/internal/config"
	"spacer/internal/logging"
)

// Selection is the resolved model wiring for a session.
type Selection struct {
	Brain   Brain
	Hands   *Hands       // nil when no coding agent is installed
	Backend backend.Spec // zero when Hands is nil
	Engine  string
	Label   string // shown in the chat banner
}

// NewSelection resolves the Brain and Hands for cfg. available is the
// result of backend detection and is passed in so callers control probing.
//
// The cli engine requires an installed agent. The api engine requires a
// credential and uses an agent for Hands only when one is installed.
func NewSelection(ctx context.Context, cfg *config.UserConfig, available []backend.Spec) (*Selection, error) {
	if cfg == nil {
		cfg = &config.UserConfig{}
	}
	engine := cfg.GetEngine()
	sel := &Selection{Engine: engine}

	spec, specErr := backend.Choose(cfg.Backend, available, cfg.ShouldFallback())
	if specErr == nil {
		sel.Backend = spec
		sel.Hands = NewHands(cfg, spec)
	}

	switch engine {
	case config.EngineAPI:
		brain, label, err := newAPIBrain(ctx, cfg)
		if err != nil {
			return nil, err
		}
		sel.Brain, sel.Label = brain, label

	default:
		if specErr != nil {
			return nil, specErr
		}
		cli := NewCLIBrain(cfg, spec)
		sel.Brain, sel.Label = cli, fmt.Sprintf("%s (%s)", spec.Description, cli.String())
	}

	logging.Boot("selected engine=%s brain=%s hands=%v", engine, sel.Label, sel.Hands != nil)
	return sel, nil
}

// NewCLIBrain returns the CLI brain for spec.
func NewCLIBrain(cfg *config.UserConfig, spec backend.Spec) *CLIBrain {
	if spec.Choice == backend.Codex {
		return NewCodexCLIBrain(cfg.GetCodexCLIConfig())
	}
	return NewClaudeCLIBrain(cfg.GetClaudeCLIConfig())
}

// NewHands returns the Hands for spec.
func NewHands(cfg *config.UserConfig, spec backend.Spec) *Hands {
	if spec.Choice == backend.Codex {
		return NewCodexHands(cfg.GetCodexCLIConfig())
	}
	return NewClaudeHands(cfg.GetClaudeCLIConfig())
}

func newAPIBrain(ctx context.Context, cfg *config.UserConfig) (Brain, string, error) {
	provider := cfg.GetProvider()
	cred, err := auth.NewResolver(provider).Require()
	if err != nil {
		return nil, "", err
	}

	switch provider {
	case config.ProviderGemini:
		brain, err := NewGeminiBrain(ctx, cred.Reveal(), cfg.Model)
		if err != nil {
			return nil, "", err
		}
		return brain, "Gemini API (" + brain.model + ")", nil
	default:
		ac := DefaultAnthropicConfig(cred.Reveal())
		if cfg.Model != "" {
			ac.Model = cfg.Model
		}
		ac.Timeout = time.Duration(cfg.GetClaudeCLIConfig().Timeout) * time.Second
		brain := NewAnthropicBrain(ac)
		return brain, "Anthropic API (" + brain.model + ")", nil
	}
}
