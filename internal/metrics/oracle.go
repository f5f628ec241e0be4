package metrics

import (
	"fmt"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/market"
)

// MaxOracleSize bounds both the trade count and the agent count of a
// market handed to NewWelfareOracle.
const MaxOracleSize = 20

// WelfareOracle answers the best aggregate valuation a coalition of agents
// can reach by trading only among themselves. It is computed once at
// construction.
type WelfareOracle struct {
	agents int
	best   []int64 // indexed by coalition bitmask
}

// NewWelfareOracle enumerates every trade bundle, credits its aggregate
// valuation to the set of agents it touches and percolates maxima up the
// coalition lattice. Cost is O(2^m·n + 2^n·n).
func NewWelfareOracle(m *market.Market) (*WelfareOracle, error) {
	n, trades := m.Agents(), m.NumTrades()
	if trades > MaxOracleSize || n > MaxOracleSize {
		return nil, fmt.Errorf("welfare oracle over %d agents and %d trades (max %d): %w", n, trades, MaxOracleSize, domain.ErrCapacity)
	}

	incidence := make([]domain.Incidence, n)
	for i := range incidence {
		incidence[i] = m.Incidence(i)
	}

	// The empty bundle gives every coalition a floor of 0.
	best := make([]int64, 1<<uint(n))

	for t := domain.Bundle(1); t < domain.Bundle(1)<<uint(trades); t++ {
		var coalition uint32
		total := domain.Finite(0)
		for i, inc := range incidence {
			own := t & inc.Trades
			if own.IsEmpty() {
				continue
			}
			coalition |= 1 << uint(i)
			v, err := m.Valuation(i).Value(own)
			if err != nil {
				return nil, fmt.Errorf("welfare oracle agent %d: %w", i, err)
			}
			total = total.Plus(v)
			if total.IsInfeasible() {
				break
			}
		}
		if !total.IsInfeasible() && total.Amount() > best[coalition] {
			best[coalition] = total.Amount()
		}
	}

	for c := 1; c < len(best); c++ {
		for rest := c; rest != 0; rest &= rest - 1 {
			sub := c &^ (rest & -rest)
			if best[sub] > best[c] {
				best[c] = best[sub]
			}
		}
	}
	return &WelfareOracle{agents: n, best: best}, nil
}

// Welfare returns the value of the coalition formed by agents. Duplicates
// are ignored; no agents means the empty coalition, worth 0.
func (o *WelfareOracle) Welfare(agents ...int) (int64, error) {
	var c int
	for _, a := range agents {
		if a < 0 || a >= o.agents {
			return 0, fmt.Errorf("coalition agent %d: %w", a, domain.ErrInvalidAgent)
		}
		c |= 1 << uint(a)
	}
	return o.best[c], nil
}

// Grand returns the welfare of the coalition of all agents.
func (o *WelfareOracle) Grand() int64 {
	return o.best[len(o.best)-1]
}
