package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spacer/internal/config"
	"spacer/internal/logging"
	"spacer/internal/phase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set by the build (-ldflags "-X main.version=...").
var version = "dev"

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger for CLI-level diagnostics on stderr
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "spacer",
	Short: "SPACER - research paper writing mentor",
	Long: `SPACER guides one paper from ideation to submission.

Project state lives in spacer.yaml; the chat session discusses the paper
with a model through your coding agent CLI (claude or codex) or a direct
API key.

Start with:
  spacer init
  spacer auth
  spacer chat`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		zcfg.EncoderConfig.TimeKey = ""
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws, err := workspaceDir()
		if err != nil {
			return err
		}
		debug := verbose || os.Getenv(config.EnvDebug) != ""
		if err := logging.Initialize(ws, debug); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (also writes .spacer/logs)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Project directory (default: current)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(bibCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(delegateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// workspaceDir returns the absolute project directory.
func workspaceDir() (string, error) {
	if workspace != "" {
		return filepath.Abs(workspace)
	}
	return os.Getwd()
}

// statePath resolves the spacer.yaml path: explicit paths are used as
// given, otherwise the file in the workspace.
func statePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	ws, err := workspaceDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(ws, phase.DefaultStatePath), nil
}

// errNoProject is the configuration error for commands that need a project.
var errNoProject = errors.New("No spacer.yaml found. Run `spacer init` first.")

// loadProject loads the project state, mapping a missing file to
// errNoProject.
func loadProject(explicit string) (*phase.Project, error) {
	path, err := statePath(explicit)
	if err != nil {
		return nil, err
	}
	p, err := phase.Load(path)
	if errors.Is(err, phase.ErrStateNotFound) {
		return nil, errNoProject
	}
	return p, err
}
