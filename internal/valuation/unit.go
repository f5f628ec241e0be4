package valuation

import (
	"fmt"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

// unit is a unit-demand valuation: the agent holds at most one trade.
type unit struct {
	inc    domain.Incidence
	values map[int]int64
}

func newUnit(inc domain.Incidence, values map[int]int64) (*unit, error) {
	for t := range values {
		if !inc.Trades.Has(t) {
			return nil, fmt.Errorf("%w: unit value for trade %d not incident to agent %d",
				domain.ErrInvalidParams, t, inc.Agent)
		}
	}
	for _, t := range inc.Trades.Trades() {
		if _, ok := values[t]; !ok {
			return nil, fmt.Errorf("%w: agent %d has no unit value for trade %d",
				domain.ErrInvalidParams, inc.Agent, t)
		}
	}
	own := make(map[int]int64, len(values))
	for t, v := range values {
		own[t] = v
	}
	return &unit{inc: inc, values: own}, nil
}

func (u *unit) Kind() Kind { return KindUnit }

func (u *unit) Incidence() domain.Incidence { return u.inc }

func (u *unit) Value(b domain.Bundle) (domain.Value, error) {
	if err := u.inc.Check(b); err != nil {
		return domain.Infeasible, err
	}
	switch b.Len() {
	case 0:
		return domain.Finite(0), nil
	case 1:
		return domain.Finite(u.values[b.Trades()[0]]), nil
	default:
		return domain.Infeasible, nil
	}
}

// Demand scans the trades once and keeps the single trade with the highest
// strictly positive utility; lower trade ids win ties.
func (u *unit) Demand(prices domain.Prices) (domain.Bundle, error) {
	if err := checkPrices(u.inc, prices); err != nil {
		return 0, err
	}
	var (
		best  domain.Bundle
		bestU int64
	)
	for _, t := range u.inc.Trades.Trades() {
		utility := u.values[t] - u.inc.Role(t).Chi()*prices[t]
		if utility > bestU {
			best, bestU = domain.BundleOf(t), utility
		}
	}
	return best, nil
}
