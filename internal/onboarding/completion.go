package onboarding

import "math"

// Completion is the server-authoritative progress snapshot: which steps were
// persisted at least once, and an overall percentage.
type Completion struct {
	Steps      map[Step]bool `json:"steps"`
	Percentage float64       `json:"percentage"`
}

func NewCompletion() Completion {
	return Completion{Steps: map[Step]bool{}}
}

func (c Completion) Clone() Completion {
	out := Completion{Steps: make(map[Step]bool, len(c.Steps)), Percentage: c.Percentage}
	for k, v := range c.Steps {
		out.Steps[k] = v
	}
	return out
}

// Done reports whether step has been persisted.
func (c Completion) Done(step Step) bool {
	return c.Steps[step]
}

// ApplyCompletion replaces current with the server's snapshot when one is
// present; otherwise current is kept as-is.
func ApplyCompletion(current Completion, server *Completion) Completion {
	if server == nil {
		return current.Clone()
	}
	return server.Clone()
}

// MarkStepComplete derives progress locally for a successful submission that
// came back without a completion object. The percentage never decreases.
func MarkStepComplete(current Completion, step Step) Completion {
	out := current.Clone()
	out.Steps[step] = true

	flagged := 0
	for _, s := range Steps {
		if out.Steps[s] {
			flagged++
		}
	}
	derived := math.Round(float64(flagged)*1000/float64(len(Steps))) / 10
	out.Percentage = math.Max(out.Percentage, derived)
	return out
}

// FurthestUnlockedStep is the first step not yet persisted, or the terminal
// step when all are.
func FurthestUnlockedStep(c Completion) Step {
	for _, s := range Steps {
		if !c.Steps[s] {
			return s
		}
	}
	return TerminalStep
}
