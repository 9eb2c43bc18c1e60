package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"spacer/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, provider string) *Resolver {
	t.Helper()
	r := &Resolver{
		Provider: provider,
		EnvVar:   EnvVarFor(provider),
		Path:     filepath.Join(t.TempDir(), "spacer", "auth.json"),
	}
	t.Setenv(r.EnvVar, "")
	return r
}

func TestResolve_NothingConfigured(t *testing.T) {
	r := newTestResolver(t, config.ProviderAnthropic)

	cred, ok := r.Resolve()
	assert.False(t, ok)
	assert.Empty(t, cred)

	_, err := r.Require()
	assert.True(t, errors.Is(err, ErrCredentialMissing))
}

func TestResolve_EnvWinsOverFile(t *testing.T) {
	r := newTestResolver(t, config.ProviderAnthropic)
	require.NoError(t, r.Save("from-file"))

	t.Setenv(r.EnvVar, "  from-env  ")
	cred, src := r.ResolveWithSource()
	assert.Equal(t, SourceEnv, src)
	assert.Equal(t, "from-env", cred.Reveal())
}

func TestResolve_WhitespaceEnvIgnored(t *testing.T) {
	r := newTestResolver(t, config.ProviderAnthropic)
	require.NoError(t, r.Save("from-file"))
	t.Setenv(r.EnvVar, "   ")

	cred, src := r.ResolveWithSource()
	assert.Equal(t, SourceFile, src)
	assert.Equal(t, "from-file", cred.Reveal())
}

func TestSaveThenResolveRoundTrip(t *testing.T) {
	for _, provider := range []string{config.ProviderAnthropic, config.ProviderGemini} {
		t.Run(provider, func(t *testing.T) {
			r := newTestResolver(t, provider)
			require.NoError(t, r.Save("secret-123"))

			cred, ok := r.Resolve()
			require.True(t, ok)
			assert.Equal(t, "secret-123", cred.Reveal())

			// Idempotent.
			require.NoError(t, r.Save("secret-123"))
			cred, _ = r.Resolve()
			assert.Equal(t, "secret-123", cred.Reveal())
		})
	}
}

func TestSavePreservesOtherFields(t *testing.T) {
	r := newTestResolver(t, config.ProviderAnthropic)
	require.NoError(t, (&config.UserConfig{Backend: "codex"}).Save(r.Path))

	require.NoError(t, r.Save("k"))

	cfg, err := config.LoadUserConfig(r.Path)
	require.NoError(t, err)
	assert.Equal(t, "codex", cfg.Backend)
	assert.Equal(t, "k", cfg.APIKey)
}

func TestSecretFileIsOwnerOnly(t *testing.T) {
	r := newTestResolver(t, config.ProviderAnthropic)
	require.NoError(t, r.Save("k"))

	info, err := os.Stat(r.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dinfo, err := os.Stat(filepath.Dir(r.Path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dinfo.Mode().Perm())
}

func TestCredentialNeverFormats(t *testing.T) {
	c := Credential("sk-live-abc")
	assert.NotContains(t, fmt.Sprintf("%v %s %#v", c, c, c), "sk-live-abc")
	assert.Equal(t, "sk-live-abc", c.Reveal())
}
