package phase

import (
	"fmt"

	"spacer/internal/logging"
)

// CurrentSubstep returns the first incomplete sub-step of the current
// phase, SubstepComplete when all are done, or "" when the phase has no
// checklist.
func (p *Project) CurrentSubstep() string {
	list := p.CurrentChecklist()
	if len(list) == 0 {
		return ""
	}
	for _, item := range list {
		if !item.Done {
			return item.Name
		}
	}
	return SubstepComplete
}

// AdvanceResult describes what AdvanceSubstep did.
type AdvanceResult struct {
	Advanced      bool
	Substep       string // the entry marked done, when Advanced
	PhaseComplete bool   // every entry is now done
	Message       string
}

// AdvanceSubstep marks the earliest incomplete sub-step of the current
// phase done and persists the file. When that was the last one,
// phase_status becomes "review"; the phase itself never changes. Calling it
// on a finished checklist is a no-op. If the save fails the in-memory tree
// is rolled back and the error returned.
func (p *Project) AdvanceSubstep() (AdvanceResult, error) {
	phase := p.Phase()
	m := mappingValue(p.root(), phase)
	list := p.Checklist(phase)
	if len(list) == 0 {
		return AdvanceResult{Message: fmt.Sprintf("No checklist found for phase '%s'.", phase)}, nil
	}

	idx := -1
	for i, item := range list {
		if !item.Done {
			idx = i
			break
		}
	}
	if idx < 0 {
		return AdvanceResult{PhaseComplete: true, Message: "All sub-steps are already complete."}, nil
	}

	root := p.root()
	rootLen := len(root.Content)
	valueNode := m.Content[2*idx+1]
	undo := []snapshot{takeSnapshot(valueNode)}
	if s := mappingValue(root, "phase_status"); s != nil {
		undo = append(undo, takeSnapshot(s))
	}

	name := list[idx].Name
	*valueNode = *boolNode(true, valueNode)
	res := AdvanceResult{
		Advanced: true,
		Substep:  name,
		Message:  fmt.Sprintf("Marked sub-step complete: %s.", Humanize(name)),
	}
	if allDoneAfter(list, idx) {
		setScalar(root, "phase_status", StatusReview, "!!str")
		res.PhaseComplete = true
		res.Message += " All checklist items are complete; phase_status set to review."
	}

	if err := p.Save(); err != nil {
		for _, s := range undo {
			s.restore()
		}
		root.Content = root.Content[:rootLen]
		return AdvanceResult{}, err
	}

	logging.Phase("advanced %s/%s (phase complete: %v)", phase, name, res.PhaseComplete)
	return res, nil
}

func allDoneAfter(list Checklist, idx int) bool {
	for _, item := range list[idx+1:] {
		if !item.Done {
			return false
		}
	}
	return true
}
