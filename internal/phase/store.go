package phase

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"spacer/internal/config"
	"spacer/internal/logging"

	"gopkg.in/yaml.v3"
)

// Load reads the project state at path.
func Load(path string) (*Project, error) {
	p := &Project{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the state file, discarding the in-memory tree. Callers
// invoke it at the start of every command so edits made outside spacer are
// picked up.
func (p *Project) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w at %s: run `spacer init` first", ErrStateNotFound, p.path)
		}
		return fmt.Errorf("failed to read %s: %w", p.path, err)
	}
	doc, err := parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", p.path, err)
	}
	p.doc = doc
	logging.PhaseDebug("loaded %s: phase=%s status=%s", p.path, p.Phase(), p.PhaseStatus())
	return nil
}

// Save writes the tree back to disk through an atomic replace.
func (p *Project) Save() error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	if err := config.WriteFileAtomic(p.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save project state: %w", err)
	}
	logging.PhaseDebug("saved %s", p.path)
	return nil
}

// Marshal renders the tree as YAML with two-space indentation.
func (p *Project) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p.doc); err != nil {
		return nil, fmt.Errorf("failed to encode project state: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode project state: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse builds a Project from raw YAML without touching disk. The result
// saves to path.
func Parse(path string, data []byte) (*Project, error) {
	doc, err := parse(data)
	if err != nil {
		return nil, err
	}
	return &Project{path: path, doc: doc}, nil
}

func parse(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		// Empty file: start from an empty mapping.
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("spacer.yaml must contain a YAML mapping")
	}
	return &doc, nil
}
