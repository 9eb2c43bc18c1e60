package phase

import (
	"fmt"
	"strings"
)

// nextActions is the suggested next step per phase.
var nextActions = map[string]string{
	"ideation":   "Run a literature survey: `spacer bib search \"your topic\"`",
	"outlining":  "Create section outlines in paper/plan/",
	"drafting":   "Write sections in paper/sections/",
	"revision":   "Review and polish your draft",
	"submission": "Final formatting and compliance check",
}

// NextAction returns the suggested next step for phase.
func NextAction(phase string) string {
	if a, ok := nextActions[phase]; ok {
		return a
	}
	return "Keep going!"
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FormatPhaseInfo renders phase, status, sub-step and checklist.
func FormatPhaseInfo(p *Project) string {
	phase := p.Phase()
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s (%s)", orUnknown(phase), orUnknown(p.PhaseStatus()))

	switch sub := p.CurrentSubstep(); sub {
	case "":
	case SubstepComplete:
		b.WriteString("\nSub-step: complete")
	default:
		fmt.Fprintf(&b, "\nSub-step: %s", Humanize(sub))
	}

	if list := p.CurrentChecklist(); len(list) > 0 {
		fmt.Fprintf(&b, "\n\n%s Checklist:", titleCase(orUnknown(phase)))
		for _, item := range list {
			mark := "○"
			if item.Done {
				mark = "✓"
			}
			fmt.Fprintf(&b, "\n  %s %s", mark, Humanize(item.Name))
		}
	}
	return b.String()
}

// FormatStatus renders FormatPhaseInfo plus the filled framing fields and
// the suggested next action.
func FormatStatus(p *Project) string {
	var b strings.Builder
	b.WriteString(FormatPhaseInfo(p))

	var filled []Field
	for _, f := range p.Framing() {
		if strings.TrimSpace(f.Value) != "" {
			filled = append(filled, f)
		}
	}
	if len(filled) > 0 {
		b.WriteString("\n\nMcEnerney Framing:")
		for _, f := range filled {
			fmt.Fprintf(&b, "\n  %s: %s", f.Key, f.Value)
		}
	}

	fmt.Fprintf(&b, "\n\nNext: %s", NextAction(p.Phase()))
	return b.String()
}
