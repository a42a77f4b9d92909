package domain

import "errors"

var (
	// ErrStepIndex is returned when a reorder index falls outside the sequence.
	ErrStepIndex = errors.New("step index out of range")
	// ErrStepPermutation is returned when an arrangement is not a permutation
	// of the current step ids.
	ErrStepPermutation = errors.New("step ids do not match current steps")
)

// RenumberSteps assigns Order 1..N following slice position. It mutates and
// returns steps.
func RenumberSteps(steps []SolutionStep) []SolutionStep {
	for i := range steps {
		steps[i].Order = i + 1
	}
	return steps
}

// ReorderSteps moves the step at index from to index to, shifting the steps in
// between, and renumbers the result. Indexes are 0-based. The input slice is
// left untouched.
func ReorderSteps(steps []SolutionStep, from, to int) ([]SolutionStep, error) {
	n := len(steps)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, ErrStepIndex
	}
	out := make([]SolutionStep, 0, n)
	moved := steps[from]
	for i, s := range steps {
		if i != from {
			out = append(out, s)
		}
	}
	out = append(out[:to], append([]SolutionStep{moved}, out[to:]...)...)
	return RenumberSteps(out), nil
}

// ArrangeSteps returns steps in the order given by ids, renumbered. ids must
// name every current step exactly once.
func ArrangeSteps(steps []SolutionStep, ids []string) ([]SolutionStep, error) {
	if len(ids) != len(steps) {
		return nil, ErrStepPermutation
	}
	byID := make(map[string]SolutionStep, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}
	out := make([]SolutionStep, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, ErrStepPermutation
		}
		delete(byID, id)
		out = append(out, s)
	}
	return RenumberSteps(out), nil
}

// RemoveStep drops the step with the given id and renumbers the remainder.
// The boolean is false when no step has that id.
func RemoveStep(steps []SolutionStep, id string) ([]SolutionStep, bool) {
	out := make([]SolutionStep, 0, len(steps))
	found := false
	for _, s := range steps {
		if s.ID == id {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		return steps, false
	}
	return RenumberSteps(out), true
}
