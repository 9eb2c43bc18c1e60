package config

// Brain calls through a coding agent never get less than this, in seconds.
const minCLITimeout = 60

// ClaudeCLIConfig configures the Claude Code CLI backend.
type ClaudeCLIConfig struct {
	// Model alias passed with --model; empty lets the CLI pick.
	Model string `json:"model,omitempty"`

	// Timeout for a single chat turn, in seconds (default 120, minimum 60).
	Timeout int `json:"timeout,omitempty"`

	// HandsTimeout bounds autonomous task runs, in seconds (default 1800).
	HandsTimeout int `json:"hands_timeout,omitempty"`
}

// CodexCLIConfig configures the Codex CLI backend.
type CodexCLIConfig struct {
	Model string `json:"model,omitempty"`

	// Sandbox used for autonomous task runs (default "workspace-write").
	Sandbox string `json:"sandbox,omitempty"`

	Timeout      int `json:"timeout,omitempty"`
	HandsTimeout int `json:"hands_timeout,omitempty"`
}

// GetClaudeCLIConfig returns Claude CLI config with defaults applied.
func (c *UserConfig) GetClaudeCLIConfig() *ClaudeCLIConfig {
	cfg := ClaudeCLIConfig{}
	if c.ClaudeCLI != nil {
		cfg = *c.ClaudeCLI
	}
	if cfg.Model == "" && c.GetEngine() == EngineCLI {
		cfg.Model = c.Model
	}
	cfg.Timeout = clampTimeout(cfg.Timeout)
	if cfg.HandsTimeout <= 0 {
		cfg.HandsTimeout = 1800
	}
	return &cfg
}

// GetCodexCLIConfig returns Codex CLI config with defaults applied.
func (c *UserConfig) GetCodexCLIConfig() *CodexCLIConfig {
	cfg := CodexCLIConfig{}
	if c.CodexCLI != nil {
		cfg = *c.CodexCLI
	}
	if cfg.Model == "" && c.GetEngine() == EngineCLI {
		cfg.Model = c.Model
	}
	if cfg.Sandbox == "" {
		cfg.Sandbox = "workspace-write"
	}
	cfg.Timeout = clampTimeout(cfg.Timeout)
	if cfg.HandsTimeout <= 0 {
		cfg.HandsTimeout = 1800
	}
	return &cfg
}

func clampTimeout(seconds int) int {
	if seconds == 0 {
		return 120
	}
	if seconds < minCLITimeout {
		return minCLITimeout
	}
	return seconds
}
