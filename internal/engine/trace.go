package engine

import "github.com/akshitanchan/trading-network-sim/internal/domain"

// Trace is the append-only trajectory of a run.
type Trace struct {
	Steps []domain.StepRecord `json:"steps"`
}

func (t *Trace) append(rec domain.StepRecord) {
	t.Steps = append(t.Steps, rec)
}

func (t *Trace) Len() int { return len(t.Steps) }

// Last returns the final step, or nil for an empty trace.
func (t *Trace) Last() *domain.StepRecord {
	if len(t.Steps) == 0 {
		return nil
	}
	return &t.Steps[len(t.Steps)-1]
}

// Agents returns the selected agent of every step in order.
func (t *Trace) Agents() []int {
	out := make([]int, len(t.Steps))
	for i, s := range t.Steps {
		out[i] = s.Agent
	}
	return out
}
