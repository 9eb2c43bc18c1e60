package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by spacer.
const (
	EnvConfigDir = "SPACER_CONFIG_DIR" // overrides ~/.config/spacer
	EnvBackend   = "SPACER_BACKEND"    // claude | codex
	EnvEngine    = "SPACER_ENGINE"     // cli | api
	EnvModel     = "SPACER_MODEL"
	EnvDebug     = "SPACER_DEBUG"
)

// Engine values.
const (
	EngineCLI = "cli"
	EngineAPI = "api"
)

// Provider values for the api engine.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// UserConfig holds the per-user spacer configuration from
// ~/.config/spacer/auth.json. The file holds secrets, so it is always
// written owner-only (see Save).
type UserConfig struct {
	// =========================================================================
	// CREDENTIALS (api engine only)
	// =========================================================================

	APIKey       string `json:"api_key,omitempty"`        // Anthropic
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Google Gemini

	// Provider selection for the api engine: "anthropic" (default) or "gemini"
	Provider string `json:"provider,omitempty"`

	// Optional model override, interpreted by the active engine
	Model string `json:"model,omitempty"`

	// =========================================================================
	// ENGINE / BACKEND SELECTION
	// =========================================================================

	// Engine selection: "cli" (default) shells out to a coding agent,
	// "api" talks to the provider directly.
	Engine string `json:"engine,omitempty"`

	// Backend is the persisted coding agent choice: "claude" or "codex".
	Backend string `json:"backend,omitempty"`

	// FallbackToAvailable lets the selector pick the first detected agent
	// when the persisted one is not installed. Defaults to true.
	FallbackToAvailable *bool `json:"fallback_to_available,omitempty"`

	ClaudeCLI *ClaudeCLIConfig `json:"claude_cli,omitempty"`
	CodexCLI  *CodexCLIConfig  `json:"codex_cli,omitempty"`

	// Chat session tuning
	Chat *ChatConfig `json:"chat,omitempty"`
}

// DefaultConfigDir returns ~/.config/spacer, or $SPACER_CONFIG_DIR when set.
func DefaultConfigDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "spacer")
	}
	return filepath.Join(home, ".config", "spacer")
}

// DefaultUserConfigPath returns the path of the secret auth file.
func DefaultUserConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "auth.json")
}

// LoadUserConfig loads configuration from path exactly as stored.
// A missing file yields an empty config.
func LoadUserConfig(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return cfg, nil
}

// GlobalConfig loads the default config file and applies environment
// overrides. The result is for reading only: saving it would persist the
// overrides.
func GlobalConfig() (*UserConfig, error) {
	cfg, err := LoadUserConfig(DefaultUserConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to path. The directory is forced to 0700
// and the file to 0600 regardless of umask; the write is a temp file plus
// rename so readers never see a partial file.
func (c *UserConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}
	data = append(data, '\n')

	if err := WriteSecretFile(path, data); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}
	return nil
}

// applyEnvOverrides layers SPACER_* environment variables over file values.
func (c *UserConfig) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(EnvBackend)); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvEngine)); v != "" {
		c.Engine = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		c.Model = v
	}
}

// GetEngine returns the engine with the "cli" default applied.
func (c *UserConfig) GetEngine() string {
	switch strings.ToLower(c.Engine) {
	case EngineAPI:
		return EngineAPI
	default:
		return EngineCLI
	}
}

// SetEngine validates and sets the engine.
func (c *UserConfig) SetEngine(engine string) error {
	switch engine {
	case EngineCLI, EngineAPI:
		c.Engine = engine
		return nil
	default:
		return fmt.Errorf("invalid engine %q: must be %q or %q", engine, EngineCLI, EngineAPI)
	}
}

// GetProvider returns the api provider with the anthropic default applied.
func (c *UserConfig) GetProvider() string {
	if strings.ToLower(c.Provider) == ProviderGemini {
		return ProviderGemini
	}
	return ProviderAnthropic
}

// ShouldFallback reports whether the selector may substitute another
// installed agent for a missing persisted one.
func (c *UserConfig) ShouldFallback() bool {
	if c.FallbackToAvailable == nil {
		return true
	}
	return *c.FallbackToAvailable
}
