package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("SPACER_BACKEND overrides stored backend", func(t *testing.T) {
		t.Setenv(EnvBackend, "Codex")

		cfg := &UserConfig{Backend: "claude"}
		cfg.applyEnvOverrides()

		assert.Equal(t, "codex", cfg.Backend)
	})

	t.Run("empty env leaves file values", func(t *testing.T) {
		t.Setenv(EnvBackend, "")
		t.Setenv(EnvEngine, "  ")
		t.Setenv(EnvModel, "")

		cfg := &UserConfig{Backend: "claude", Engine: EngineAPI, Model: "opus"}
		cfg.applyEnvOverrides()

		assert.Equal(t, "claude", cfg.Backend)
		assert.Equal(t, EngineAPI, cfg.Engine)
		assert.Equal(t, "opus", cfg.Model)
	})

	t.Run("SPACER_ENGINE and SPACER_MODEL", func(t *testing.T) {
		t.Setenv(EnvEngine, "API")
		t.Setenv(EnvModel, "claude-sonnet-4-5")

		cfg := &UserConfig{}
		cfg.applyEnvOverrides()

		assert.Equal(t, EngineAPI, cfg.GetEngine())
		assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
	})
}

func TestGlobalConfigAppliesOverridesWithoutPersisting(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvBackend, "codex")

	stored := &UserConfig{Backend: "claude"}
	require.NoError(t, stored.Save(filepath.Join(dir, "auth.json")))

	cfg, err := GlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "codex", cfg.Backend)

	raw, err := LoadUserConfig(DefaultUserConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "claude", raw.Backend)
}
