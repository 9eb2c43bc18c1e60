package main

import (
	"fmt"

	spacerinit "spacer/internal/init"
	"spacer/internal/phase"

	"github.com/spf13/cobra"
)

var stateFile string

// initCmd scaffolds a new project
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a SPACER project in the workspace",
	Long: `Creates spacer.yaml, AGENTS.md, the constitution/, paper/ and notes/
directories. Existing files are left untouched, so init is safe to re-run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := workspaceDir()
		if err != nil {
			return err
		}
		cfg := spacerinit.DefaultInitConfig(ws)
		cfg.Out = cmd.OutOrStdout()
		_, err = spacerinit.NewInitializer(cfg).Initialize(cmd.Context())
		return err
	},
}

// statusCmd prints the project status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show phase, checklist, framing and the next step",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(stateFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), phase.FormatStatus(p))
		return nil
	},
}

// nextCmd marks the current sub-step done
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Mark the current sub-step complete",
	Long: `Marks the first incomplete checklist item of the current phase done.
When it was the last one, phase_status becomes "review". The phase itself
never changes automatically: edit spacer.yaml to move on.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(stateFile)
		if err != nil {
			return err
		}
		res, err := p.AdvanceSubstep()
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", p.Path(), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "spacer %s\n", version)
	},
}

func init() {
	statusCmd.Flags().StringVarP(&stateFile, "config", "c", "", "Path to spacer.yaml (default: <workspace>/spacer.yaml)")
	nextCmd.Flags().StringVarP(&stateFile, "config", "c", "", "Path to spacer.yaml (default: <workspace>/spacer.yaml)")
}
