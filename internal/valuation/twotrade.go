package valuation

import (
	"fmt"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

// twoTrade is a piecewise-linear valuation over exactly two trades a < b,
// given by the two corners of its indifference staircase:
//
//	upper = (v{a}, v{b})
//	lower = (v{ab} - v{b}, v{ab} - v{a})
//
// Both corners lie on the same 45° diagonal, so upper.X-upper.Y must equal
// lower.X-lower.Y.
type twoTrade struct {
	inc         domain.Incidence
	a, b        int
	va, vb, vab int64
}

func newTwoTrade(inc domain.Incidence, upper, lower Corner) (*twoTrade, error) {
	if inc.Degree() != 2 {
		return nil, fmt.Errorf("agent %d has %d trades, two-trade valuation needs 2: %w",
			inc.Agent, inc.Degree(), domain.ErrDomainMismatch)
	}
	if upper.X-upper.Y != lower.X-lower.Y {
		return nil, fmt.Errorf("%w: agent %d corners %v and %v are not on one diagonal",
			domain.ErrInvalidParams, inc.Agent, upper, lower)
	}
	ids := inc.Trades.Trades()
	return &twoTrade{
		inc: inc,
		a:   ids[0],
		b:   ids[1],
		va:  upper.X,
		vb:  upper.Y,
		vab: lower.X + upper.Y,
	}, nil
}

func (v *twoTrade) Kind() Kind { return KindTwoTrade }

func (v *twoTrade) Incidence() domain.Incidence { return v.inc }

func (v *twoTrade) Value(b domain.Bundle) (domain.Value, error) {
	if err := v.inc.Check(b); err != nil {
		return domain.Infeasible, err
	}
	switch b {
	case 0:
		return domain.Finite(0), nil
	case domain.BundleOf(v.a):
		return domain.Finite(v.va), nil
	case domain.BundleOf(v.b):
		return domain.Finite(v.vb), nil
	default:
		return domain.Finite(v.vab), nil
	}
}

// Demand compares the signed prices against the corners in closed form.
// Candidates are visited in tie-break order ∅, {a}, {b}, {a,b}.
func (v *twoTrade) Demand(prices domain.Prices) (domain.Bundle, error) {
	if err := checkPrices(v.inc, prices); err != nil {
		return 0, err
	}
	qa := v.inc.Role(v.a).Chi() * prices[v.a]
	qb := v.inc.Role(v.b).Chi() * prices[v.b]

	best, bestU := domain.Bundle(0), int64(0)
	if u := v.va - qa; u > bestU {
		best, bestU = domain.BundleOf(v.a), u
	}
	if u := v.vb - qb; u > bestU {
		best, bestU = domain.BundleOf(v.b), u
	}
	if u := v.vab - qa - qb; u > bestU {
		best = domain.BundleOf(v.a, v.b)
	}
	return best, nil
}
