// Package auth resolves the credential used by the direct-API engine.
//
// Resolution order is fixed: the provider's environment variable wins,
// then the secret file. Nothing here ever prompts.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"spacer/internal/config"
	"spacer/internal/logging"
)

// ErrCredentialMissing is returned when neither the environment nor the
// secret file holds a credential.
var ErrCredentialMissing = errors.New("no API credential configured")

// Credential is an opaque secret. It formats as a redaction marker so it
// cannot leak through %v or a logger by accident.
type Credential string

// String implements fmt.Stringer.
func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return "[redacted]"
}

// GoString implements fmt.GoStringer.
func (c Credential) GoString() string { return c.String() }

// Reveal returns the raw secret for the one place that needs it: the
// outgoing request.
func (c Credential) Reveal() string { return string(c) }

// Source names where a credential came from.
type Source string

const (
	SourceNone Source = ""
	SourceEnv  Source = "env"
	SourceFile Source = "file"
)

// Resolver finds and stores the credential for one provider.
type Resolver struct {
	Provider string
	EnvVar   string
	Path     string
}

// EnvVarFor returns the environment variable consulted for provider.
func EnvVarFor(provider string) string {
	if provider == config.ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// NewResolver returns a resolver for provider backed by the default
// secret file.
func NewResolver(provider string) *Resolver {
	return &Resolver{
		Provider: provider,
		EnvVar:   EnvVarFor(provider),
		Path:     config.DefaultUserConfigPath(),
	}
}

// Resolve returns the credential and true, or "" and false when none is
// configured. An unreadable secret file counts as absent.
func (r *Resolver) Resolve() (Credential, bool) {
	cred, src := r.ResolveWithSource()
	return cred, src != SourceNone
}

// ResolveWithSource is Resolve that also reports where the value came from.
func (r *Resolver) ResolveWithSource() (Credential, Source) {
	if v := strings.TrimSpace(os.Getenv(r.EnvVar)); v != "" {
		logging.BootDebug("credential for %s resolved from %s", r.Provider, r.EnvVar)
		return Credential(v), SourceEnv
	}

	cfg, err := config.LoadUserConfig(r.Path)
	if err != nil {
		logging.BootDebug("credential file unreadable: %v", err)
		return "", SourceNone
	}
	if v := strings.TrimSpace(r.field(cfg)); v != "" {
		logging.BootDebug("credential for %s resolved from secret file", r.Provider)
		return Credential(v), SourceFile
	}
	return "", SourceNone
}

// Require is Resolve for callers that cannot proceed without a credential.
func (r *Resolver) Require() (Credential, error) {
	cred, ok := r.Resolve()
	if !ok {
		return "", fmt.Errorf("%w: set %s or run `spacer auth --engine api`", ErrCredentialMissing, r.EnvVar)
	}
	return cred, nil
}

// Save persists cred into the secret file, keeping every other stored
// field. The environment is not consulted, so an env value still wins on
// the next Resolve.
func (r *Resolver) Save(cred Credential) error {
	cfg, err := config.LoadUserConfig(r.Path)
	if err != nil {
		return err
	}
	r.setField(cfg, cred.Reveal())
	if err := cfg.Save(r.Path); err != nil {
		return err
	}
	logging.Boot("credential for %s saved to %s", r.Provider, r.Path)
	return nil
}

func (r *Resolver) field(cfg *config.UserConfig) string {
	if r.Provider == config.ProviderGemini {
		return cfg.GeminiAPIKey
	}
	return cfg.APIKey
}

func (r *Resolver) setField(cfg *config.UserConfig, v string) {
	if r.Provider == config.ProviderGemini {
		cfg.GeminiAPIKey = v
		return
	}
	cfg.APIKey = v
}
