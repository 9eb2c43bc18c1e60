// Package init implements "spacer init": the scaffolding of a new paper
// project in the working directory.
//
// Every file is created only when absent, so running init again on an
// existing project is safe and only fills in what is missing.
package init

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"spacer/internal/logging"
)

//go:embed templates/*
var templates embed.FS

// ScaffoldFile maps a project path to its embedded template. An empty
// Template creates an empty file.
type ScaffoldFile struct {
	Path     string
	Template string
}

// Scaffold lists the project layout in creation order.
var Scaffold = []ScaffoldFile{
	{Path: "spacer.yaml", Template: "templates/spacer.yaml"},
	{Path: "AGENTS.md", Template: "templates/AGENTS.md"},
	{Path: "constitution/README.md", Template: "templates/constitution_README.md"},
	{Path: "paper/plan/_overview.md", Template: "templates/overview.md"},
	{Path: "paper/ref.bib"},
	{Path: "paper/sections/.gitkeep"},
	{Path: "notes/ideation/.gitkeep"},
}

// InitConfig holds configuration for initialization.
type InitConfig struct {
	Workspace string
	Out       io.Writer // per-file progress lines; nil discards them
}

// DefaultInitConfig returns a config for workspace, or the working
// directory when workspace is empty.
func DefaultInitConfig(workspace string) InitConfig {
	if workspace == "" {
		workspace, _ = os.Getwd()
	}
	return InitConfig{Workspace: workspace, Out: os.Stdout}
}

// InitResult reports what Initialize did, in scaffold order.
type InitResult struct {
	Created  []string
	Skipped  []string
	Duration time.Duration
}

// Initializer scaffolds a project.
type Initializer struct {
	config InitConfig
}

// NewInitializer creates an initializer for config.
func NewInitializer(config InitConfig) *Initializer {
	if config.Out == nil {
		config.Out = io.Discard
	}
	return &Initializer{config: config}
}

// Initialize creates every missing scaffold file and prints a line per
// file. It stops at the first write failure; files created before it stay.
func (i *Initializer) Initialize(ctx context.Context) (*InitResult, error) {
	start := time.Now()
	result := &InitResult{}
	logging.Boot("initializing project in %s", i.config.Workspace)

	for _, f := range Scaffold {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		created, err := i.materialize(f)
		if err != nil {
			return result, err
		}
		if created {
			result.Created = append(result.Created, f.Path)
			fmt.Fprintf(i.config.Out, "  create %s\n", f.Path)
		} else {
			result.Skipped = append(result.Skipped, f.Path)
			fmt.Fprintf(i.config.Out, "  skip %s (exists)\n", f.Path)
		}
	}

	result.Duration = time.Since(start)
	fmt.Fprintln(i.config.Out, "\n✓ SPACER project initialized.")
	logging.Boot("init complete: created=%d skipped=%d in %v", len(result.Created), len(result.Skipped), result.Duration)
	return result, nil
}

// materialize writes f unless it exists. O_EXCL keeps a concurrent writer's
// file intact.
func (i *Initializer) materialize(f ScaffoldFile) (bool, error) {
	full := filepath.Join(i.config.Workspace, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
	}

	var content []byte
	if f.Template != "" {
		data, err := templates.ReadFile(f.Template)
		if err != nil {
			return false, fmt.Errorf("missing template %s: %w", f.Template, err)
		}
		content = data
	}

	file, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", f.Path, err)
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return false, fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	if err := file.Close(); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return true, nil
}

// Template returns the embedded content for a scaffold path, or nil.
func Template(path string) []byte {
	for _, f := range Scaffold {
		if f.Path == path && f.Template != "" {
			data, _ := templates.ReadFile(f.Template)
			return data
		}
	}
	return nil
}
