package engine

import "math/rand"

// Scheduler picks the next agent to best-respond. unsatisfied is never
// empty and is sorted ascending.
type Scheduler interface {
	Next(unsatisfied []int) int
}

// RandomScheduler picks uniformly among unsatisfied agents with a seeded
// source, so a seed reproduces a run exactly.
type RandomScheduler struct {
	rng *rand.Rand
}

// NewRandomScheduler creates a seeded random scheduler.
func NewRandomScheduler(seed int64) *RandomScheduler {
	return &RandomScheduler{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomScheduler) Next(unsatisfied []int) int {
	return unsatisfied[r.rng.Intn(len(unsatisfied))]
}

// LowestFirst always picks the lowest unsatisfied agent id.
type LowestFirst struct{}

func (LowestFirst) Next(unsatisfied []int) int {
	return unsatisfied[0]
}

// Scripted plays back a fixed agent order. Scripted agents that are not
// unsatisfied when reached are skipped; once the script is exhausted the
// lowest unsatisfied agent is picked.
type Scripted struct {
	order []int
	pos   int
}

// NewScripted creates a scheduler replaying order.
func NewScripted(order ...int) *Scripted {
	return &Scripted{order: order}
}

func (s *Scripted) Next(unsatisfied []int) int {
	for s.pos < len(s.order) {
		a := s.order[s.pos]
		s.pos++
		for _, u := range unsatisfied {
			if u == a {
				return a
			}
		}
	}
	return unsatisfied[0]
}
