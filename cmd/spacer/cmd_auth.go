package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"spacer/internal/auth"
	"spacer/internal/backend"
	"spacer/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	authEngine   string
	authProvider string
	authAPIKey   string
	authBackend  string
	authVerify   bool
)

// authCmd configures the model backend
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Configure SPACER's model backend",
	Long: `Configure how SPACER reaches a model.

The default cli engine uses an installed coding agent (claude or codex)
with your existing subscription; no API key is needed. The api engine
talks to Anthropic or Gemini directly and stores the key in
~/.config/spacer/auth.json with owner-only permissions.

Examples:
  spacer auth
  spacer auth --backend codex
  spacer auth --engine api --provider gemini --api-key $KEY`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().StringVar(&authEngine, "engine", config.EngineCLI, "Engine: cli or api")
	authCmd.Flags().StringVar(&authProvider, "provider", config.ProviderAnthropic, "API provider for --engine api: anthropic or gemini")
	authCmd.Flags().StringVar(&authAPIKey, "api-key", "", "API key for --engine api (prompted when omitted)")
	authCmd.Flags().StringVar(&authBackend, "backend", "", "Coding agent to use without prompting: claude or codex")
	authCmd.Flags().BoolVar(&authVerify, "verify", true, "Check the agent answers --version before saving")
}

func runAuth(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := config.DefaultUserConfigPath()

	// The stored file, without environment overrides, so they are never persisted.
	cfg, err := config.LoadUserConfig(path)
	if err != nil {
		return err
	}
	if err := cfg.SetEngine(strings.ToLower(authEngine)); err != nil {
		return err
	}

	fmt.Fprintln(out, "═══ SPACER Auth Setup ═══")
	fmt.Fprintln(out)

	var configured, key string
	if cfg.Engine == config.EngineAPI {
		configured, key, err = configureAPI(cmd, cfg)
	} else {
		configured, err = configureCLI(cmd, cfg)
	}
	if err != nil {
		return err
	}

	if err := cfg.Save(path); err != nil {
		return err
	}
	if key != "" {
		if err := auth.NewResolver(cfg.GetProvider()).Save(auth.Credential(key)); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\n✓ SPACER configured with %s\n", configured)
	fmt.Fprintf(out, "  Config: %s\n", path)
	fmt.Fprintln(out, "\n  Run `spacer chat` to start!")
	return nil
}

func configureCLI(cmd *cobra.Command, cfg *config.UserConfig) (string, error) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "SPACER uses your existing coding agent CLI (claude or codex)")
	fmt.Fprintln(out, "with your subscription. No API key needed.")
	fmt.Fprintln(out)

	agents := backend.DetectAvailable()
	if len(agents) == 0 {
		return "", &backend.NoBackendError{}
	}

	var spec backend.Spec
	if authBackend != "" {
		wanted, ok := backend.Lookup(authBackend)
		if !ok {
			return "", fmt.Errorf("unknown backend %q: must be claude or codex", authBackend)
		}
		found := false
		for _, a := range agents {
			if a.Choice == wanted.Choice {
				found = true
			}
		}
		if !found {
			return "", &backend.NoBackendError{Wanted: wanted.Choice}
		}
		spec = wanted
	} else {
		for i, a := range agents {
			fmt.Fprintf(out, "  %d. %s\n", i+1, a.Description)
		}
		fmt.Fprintln(out)

		choice := 1
		if len(agents) == 1 {
			fmt.Fprintf(out, "Using: %s\n", agents[0].Description)
		} else {
			n, err := promptChoice(cmd.InOrStdin(), out, len(agents))
			if err != nil {
				return "", err
			}
			choice = n
		}
		spec = agents[choice-1]
	}

	if authVerify {
		v, err := backend.VerifyVersion(cmd.Context(), spec)
		if err != nil {
			logger.Warn("agent verification failed", zap.String("binary", spec.Binary), zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		} else {
			fmt.Fprintf(out, "Found %s\n", v)
		}
	}

	cfg.Backend = string(spec.Choice)
	return string(spec.Choice), nil
}

// errInvalidChoice is returned for an out-of-range or non-numeric choice.
var errInvalidChoice = errors.New("Invalid choice.")

// promptChoice reads a 1-based choice, defaulting to 1 on an empty line.
func promptChoice(in io.Reader, out io.Writer, n int) (int, error) {
	fmt.Fprintf(out, "Choose backend [1]: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 1, nil
	}
	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > n {
		return 0, errInvalidChoice
	}
	return choice, nil
}

// configureAPI selects the provider and returns the key to store, or ""
// when an existing credential is reused.
func configureAPI(cmd *cobra.Command, cfg *config.UserConfig) (string, string, error) {
	provider := strings.ToLower(authProvider)
	if provider != config.ProviderAnthropic && provider != config.ProviderGemini {
		return "", "", fmt.Errorf("unknown provider %q: must be %s or %s", authProvider, config.ProviderAnthropic, config.ProviderGemini)
	}
	cfg.Provider = provider
	label := provider + " API"

	key := strings.TrimSpace(authAPIKey)
	if key == "" {
		if _, src := auth.NewResolver(provider).ResolveWithSource(); src != auth.SourceNone {
			fmt.Fprintf(cmd.OutOrStdout(), "Using existing %s key from %s.\n", provider, src)
			return label, "", nil
		}
		k, err := readSecret(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("%s API key: ", provider))
		if err != nil {
			return "", "", err
		}
		key = k
	}
	if key == "" {
		return "", "", fmt.Errorf("%w: no key entered", auth.ErrCredentialMissing)
	}
	return label, key, nil
}

// readSecret reads a line without echo when in is a terminal.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
