package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"spacer/internal/backend"
	"spacer/internal/chat"
	"spacer/internal/config"
	"spacer/internal/perception"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	chatConfigPath string
	chatPlain      bool
	chatNoGreeting bool
)

// chatCmd starts the interactive session
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive SPACER session",
	Long: `Opens a discussion about the paper. Free text goes to the model with the
current phase, sub-step and constitution in its system prompt; slash
commands (/status, /next, /bib, /supply, /constitute, /review, /delegate,
/tasks, /save, /quit) act on the project directly. /help lists them.

Ctrl-D or Ctrl-C at the prompt saves the transcript and exits.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatConfigPath, "config", "c", "", "Path to spacer.yaml (default: <workspace>/spacer.yaml)")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "Disable markdown rendering")
	chatCmd.Flags().BoolVar(&chatNoGreeting, "no-greeting", false, "Skip the opening model turn")
}

func runChat(cmd *cobra.Command, args []string) error {
	path, err := statePath(chatConfigPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return errNoProject
	}

	userCfg, err := config.GlobalConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sel, err := perception.NewSelection(ctx, userCfg, backend.DetectAvailable())
	if err != nil {
		return chatSetupError(err)
	}
	logger.Debug("chat backend selected", zap.String("engine", sel.Engine), zap.String("label", sel.Label))

	chatCfg := userCfg.GetChatConfig()
	if chatPlain {
		off := false
		chatCfg.Render = &off
	}
	if chatNoGreeting {
		off := false
		chatCfg.Greeting = &off
	}

	session, err := chat.New(chat.Options{
		ConfigPath:   path,
		Chat:         chatCfg,
		BackendLabel: sel.Label,
	}, chat.Deps{
		Brain: sel.Brain,
		Hands: sel.Hands,
		Bib:   newBibClient(cmd.ErrOrStderr()),
		In:    cmd.InOrStdin(),
		Out:   cmd.OutOrStdout(),
	})
	if err != nil {
		return chatSetupError(err)
	}
	return session.Run(ctx)
}

// chatSetupError adds the remediation for startup failures.
func chatSetupError(err error) error {
	switch {
	case errors.Is(err, backend.ErrNoBackendAvailable):
		return fmt.Errorf("%w\nRun `spacer auth` after installing one.", err)
	case errors.Is(err, context.Canceled):
		return errors.New("interrupted")
	default:
		return err
	}
}
