// Package phase owns spacer.yaml: the project's current phase, its status
// and the ordered per-phase checklists of sub-steps.
//
// The file is kept as a yaml.Node tree so that key order, comments and
// sections this package does not know about survive every save.
package phase

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

// Order is the fixed sequence of phases.
var Order = []string{"ideation", "outlining", "drafting", "revision", "submission"}

// SubstepComplete is reported once every checklist entry is done.
const SubstepComplete = "complete"

// StatusReview is written to phase_status when the last sub-step completes.
const StatusReview = "review"

// DefaultStatePath is the project state file relative to the project root.
const DefaultStatePath = "spacer.yaml"

// ErrStateNotFound is returned when spacer.yaml does not exist.
var ErrStateNotFound = errors.New("no spacer.yaml found")

// Item is one checklist entry.
type Item struct {
	Name string
	Done bool
}

// Checklist is a phase's sub-steps in declaration order.
type Checklist []Item

// Field is one framing entry.
type Field struct {
	Key   string
	Value string
}

// Project is the loaded project state. All reads go through the node tree,
// so a Project always reflects exactly what the next Save would write.
type Project struct {
	path string
	doc  *yaml.Node
}

// Path returns the file the project was loaded from.
func (p *Project) Path() string { return p.path }

func (p *Project) root() *yaml.Node {
	return p.doc.Content[0]
}

// Phase returns the current phase name, or "" when unset.
func (p *Project) Phase() string {
	return scalar(mappingValue(p.root(), "phase"))
}

// PhaseStatus returns phase_status, or "" when unset.
func (p *Project) PhaseStatus() string {
	return scalar(mappingValue(p.root(), "phase_status"))
}

// Title returns project.title, or "" when unset.
func (p *Project) Title() string {
	return scalar(mappingValue(mappingValue(p.root(), "project"), "title"))
}

// Checklist returns the checklist for phase. A missing or non-mapping entry
// yields an empty checklist.
func (p *Project) Checklist(phase string) Checklist {
	m := mappingValue(p.root(), phase)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	var out Checklist
	for i := 0; i+1 < len(m.Content); i += 2 {
		out = append(out, Item{Name: m.Content[i].Value, Done: truthy(m.Content[i+1])})
	}
	return out
}

// CurrentChecklist is Checklist(p.Phase()).
func (p *Project) CurrentChecklist() Checklist {
	return p.Checklist(p.Phase())
}

// Framing returns the framing entries in file order.
func (p *Project) Framing() []Field {
	m := mappingValue(p.root(), "framing")
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	var out []Field
	for i := 0; i+1 < len(m.Content); i += 2 {
		out = append(out, Field{Key: m.Content[i].Value, Value: scalar(m.Content[i+1])})
	}
	return out
}

// Humanize turns a sub-step key into display text.
func Humanize(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// IsKnownPhase reports whether name is one of Order.
func IsKnownPhase(name string) bool {
	for _, p := range Order {
		if p == name {
			return true
		}
	}
	return false
}
