package chat

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"spacer/internal/phase"
)

//go:embed prompts/system.md
var systemTemplate string

// GreetingPrompt is the opening turn sent when a session starts.
const GreetingPrompt = "I just opened the chat. Briefly greet me and acknowledge the current phase. What should we work on?"

// ConstitutePrompt asks the model for a constitution document built from
// the discussion so far.
const ConstitutePrompt = "Based on our discussion so far, generate a constitution document for this research project. " +
	"Include: McEnerney framing (readers, instability, cost, solution), terminology definitions, " +
	"scope boundaries, positioning decisions, and key papers with their roles. " +
	"Format as markdown suitable for constitution/ideation.md"

// SystemPrompt fills template from the project state and the constitution
// text. An empty template uses the embedded one.
func SystemPrompt(template string, p *phase.Project, constitution string) string {
	if template == "" {
		template = systemTemplate
	}

	sub := p.CurrentSubstep()
	if sub == "" {
		sub = "none"
	}
	if strings.TrimSpace(constitution) == "" {
		constitution = "(none yet)"
	}

	r := strings.NewReplacer(
		"[[PHASE]]", orDefault(p.Phase(), "unknown"),
		"[[PHASE_STATUS]]", orDefault(p.PhaseStatus(), "unknown"),
		"[[SUB_STEP]]", sub,
		"[[CHECKLIST]]", checklistText(p.CurrentChecklist()),
		"[[CONSTITUTION]]", constitution,
	)
	return r.Replace(template)
}

func checklistText(list phase.Checklist) string {
	if len(list) == 0 {
		return "(no checklist for this phase)"
	}
	var b strings.Builder
	for i, item := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := " "
		if item.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s", mark, phase.Humanize(item.Name))
	}
	return b.String()
}

// readConstitution returns the constitution file, or "" when it does not
// exist yet.
func readConstitution(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read constitution: %w", err)
	}
	return string(data), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
