package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUserConfig_Missing(t *testing.T) {
	cfg, err := LoadUserConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, &UserConfig{}, cfg)
}

func TestLoadUserConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadUserConfig(path)
	assert.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.json")
	cfg := &UserConfig{
		APIKey:    "sk-test",
		Backend:   "claude",
		ClaudeCLI: &ClaudeCLIConfig{Model: "opus", Timeout: 90},
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadUserConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDefaults(t *testing.T) {
	cfg := &UserConfig{}

	assert.Equal(t, EngineCLI, cfg.GetEngine())
	assert.Equal(t, ProviderAnthropic, cfg.GetProvider())
	assert.True(t, cfg.ShouldFallback())

	claude := cfg.GetClaudeCLIConfig()
	assert.Equal(t, 120, claude.Timeout)
	assert.Equal(t, 1800, claude.HandsTimeout)

	codex := cfg.GetCodexCLIConfig()
	assert.Equal(t, "workspace-write", codex.Sandbox)
	assert.Equal(t, 120, codex.Timeout)

	chat := cfg.GetChatConfig()
	assert.Equal(t, 40, chat.HistoryLimit)
	assert.Equal(t, 12000, chat.SupplyBudget)
	assert.Equal(t, "constitution/ideation.md", chat.ConstitutionPath)
	assert.Equal(t, "paper/sections", chat.DraftsDir)
	assert.True(t, *chat.Greeting)
}

func TestCLITimeoutFloor(t *testing.T) {
	cfg := &UserConfig{
		ClaudeCLI: &ClaudeCLIConfig{Timeout: 5},
		CodexCLI:  &CodexCLIConfig{Timeout: 300},
	}
	assert.Equal(t, 60, cfg.GetClaudeCLIConfig().Timeout)
	assert.Equal(t, 300, cfg.GetCodexCLIConfig().Timeout)
}

func TestTopLevelModelFeedsCLIBackends(t *testing.T) {
	cfg := &UserConfig{Model: "sonnet"}
	assert.Equal(t, "sonnet", cfg.GetClaudeCLIConfig().Model)

	cfg.ClaudeCLI = &ClaudeCLIConfig{Model: "opus"}
	assert.Equal(t, "opus", cfg.GetClaudeCLIConfig().Model)

	cfg.Engine = EngineAPI
	assert.Equal(t, "", cfg.GetCodexCLIConfig().Model)
}

func TestSetEngine(t *testing.T) {
	cfg := &UserConfig{}
	require.NoError(t, cfg.SetEngine(EngineAPI))
	assert.Equal(t, EngineAPI, cfg.Engine)
	assert.Error(t, cfg.SetEngine("claude-cli"))
}
