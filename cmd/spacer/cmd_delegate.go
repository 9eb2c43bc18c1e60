package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"spacer/internal/backend"
	"spacer/internal/config"
	"spacer/internal/perception"

	"github.com/spf13/cobra"
)

var (
	delegateDir     string
	delegateTimeout time.Duration
)

// delegateCmd runs one autonomous task through the coding agent
var delegateCmd = &cobra.Command{
	Use:   "delegate <task>",
	Short: "Run a task with the coding agent in autonomous mode",
	Long: `Hands a task (for example "compile the paper and fix LaTeX errors") to
the configured coding agent, running with full permissions in the project
directory. The agent's output is printed when it finishes; a non-zero exit
is reported as an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelegate,
}

func init() {
	delegateCmd.Flags().StringVar(&delegateDir, "dir", "", "Working directory (default: workspace)")
	delegateCmd.Flags().DurationVar(&delegateTimeout, "timeout", 0, "Task timeout (default: the agent's configured hands timeout)")
}

func runDelegate(cmd *cobra.Command, args []string) error {
	cfg, err := config.GlobalConfig()
	if err != nil {
		return err
	}
	spec, err := backend.Choose(cfg.Backend, backend.DetectAvailable(), cfg.ShouldFallback())
	if err != nil {
		return err
	}

	dir := delegateDir
	if dir == "" {
		if dir, err = workspaceDir(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hands := perception.NewHands(cfg, spec)
	fmt.Fprintf(cmd.ErrOrStderr(), "⚙ Running with %s in %s...\n", hands, dir)
	res := hands.Run(ctx, perception.HandsTask{
		Prompt:  joinArgs(args),
		WorkDir: dir,
		Timeout: delegateTimeout,
	})

	if res.Stdout != "" {
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), strings.TrimRight(res.Stderr, "\n"))
	}

	switch {
	case res.TimedOut:
		return fmt.Errorf("task timed out after %s", res.Duration.Round(time.Second))
	case res.Killed:
		return errors.New("task interrupted")
	case res.ExitCode != 0:
		return fmt.Errorf("agent exited with code %d", res.ExitCode)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Done in %s\n", res.Duration.Round(time.Second))
	return nil
}

// joinArgs joins command arguments into a single string
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
