package engine

import (
	"fmt"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/market"
)

// Status is the engine's state machine: Running until no agent is
// unsatisfied, then Converged.
type Status int8

const (
	Running Status = iota
	Converged
)

func (s Status) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Converged:
		return "CONVERGED"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes Status as a human-readable string
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// State is the mutable part of a run: every agent's committed offers and
// the set of agents whose best response may be stale. It is owned by a
// single Engine and mutated one step at a time.
type State struct {
	offers      domain.Offers
	unsatisfied *treeset.Set // agent ids, ascending
}

// NewState seeds a state with initial offers and every agent unsatisfied.
func NewState(m *market.Market, initial domain.Offers) (*State, error) {
	all := make([]int, m.Agents())
	for i := range all {
		all[i] = i
	}
	return NewStateWithUnsatisfied(m, initial, all)
}

// NewStateWithUnsatisfied seeds a state with an explicit unsatisfied set.
func NewStateWithUnsatisfied(m *market.Market, initial domain.Offers, unsatisfied []int) (*State, error) {
	if len(initial) != m.Agents() {
		return nil, fmt.Errorf("%d offer maps for %d agents: %w", len(initial), m.Agents(), domain.ErrMissingOffer)
	}
	for i, offers := range initial {
		inc := m.Incidence(i)
		for _, t := range inc.Trades.Trades() {
			if _, ok := offers[t]; !ok {
				return nil, fmt.Errorf("agent %d trade %d: %w", i, t, domain.ErrMissingOffer)
			}
		}
		for t := range offers {
			if !inc.Trades.Has(t) {
				return nil, fmt.Errorf("agent %d offer for trade %d: %w", i, t, domain.ErrForeignTrade)
			}
		}
	}

	s := &State{
		offers:      initial.Clone(),
		unsatisfied: treeset.NewWith(utils.IntComparator),
	}
	for _, a := range unsatisfied {
		if a < 0 || a >= m.Agents() {
			return nil, fmt.Errorf("unsatisfied agent %d: %w", a, domain.ErrInvalidAgent)
		}
		s.unsatisfied.Add(a)
	}
	return s, nil
}

// Offers returns a snapshot of all committed offers.
func (s *State) Offers() domain.Offers {
	return s.offers.Clone()
}

// Offer returns a snapshot of one agent's offers.
func (s *State) Offer(agent int) domain.Prices {
	return s.offers[agent].Clone()
}

// Unsatisfied returns the unsatisfied agents in ascending order.
func (s *State) Unsatisfied() []int {
	values := s.unsatisfied.Values()
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = v.(int)
	}
	return out
}

func (s *State) IsUnsatisfied(agent int) bool {
	return s.unsatisfied.Contains(agent)
}

func (s *State) Status() Status {
	if s.unsatisfied.Empty() {
		return Converged
	}
	return Running
}

// commit installs agent's new offers, marks counterparts of changed trades
// unsatisfied and clears the agent. It returns the changed trades.
func (s *State) commit(m *market.Market, agent int, offers domain.Prices) domain.Bundle {
	var changed domain.Bundle
	old := s.offers[agent]
	for t, p := range offers {
		if prev, ok := old[t]; !ok || prev != p {
			changed = changed.With(t)
		}
	}
	s.offers[agent] = offers
	for _, t := range changed.Trades() {
		s.unsatisfied.Add(m.Counterpart(agent, t))
	}
	s.unsatisfied.Remove(agent)
	return changed
}
