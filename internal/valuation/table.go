package valuation

import (
	"fmt"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

// table is an explicit valuation. Bundles it does not list are infeasible;
// the empty bundle is always worth zero.
type table struct {
	inc    domain.Incidence
	values map[domain.Bundle]int64
}

func newTable(inc domain.Incidence, entries []TableEntry) (*table, error) {
	values := make(map[domain.Bundle]int64, len(entries)+1)
	values[0] = 0
	seen := make(map[domain.Bundle]bool, len(entries))
	for _, e := range entries {
		for _, t := range e.Trades {
			if t < 0 || t >= domain.MaxTrades || !inc.Trades.Has(t) {
				return nil, fmt.Errorf("%w: table entry trade %d not incident to agent %d",
					domain.ErrInvalidParams, t, inc.Agent)
			}
		}
		b := domain.BundleOf(e.Trades...)
		if seen[b] {
			return nil, fmt.Errorf("%w: agent %d lists bundle %s twice",
				domain.ErrInvalidParams, inc.Agent, b)
		}
		if b == 0 && e.Value != 0 {
			return nil, fmt.Errorf("%w: agent %d values the empty bundle at %d",
				domain.ErrInvalidParams, inc.Agent, e.Value)
		}
		seen[b] = true
		values[b] = e.Value
	}
	return &table{inc: inc, values: values}, nil
}

func (v *table) Kind() Kind { return KindTable }

func (v *table) Incidence() domain.Incidence { return v.inc }

func (v *table) Value(b domain.Bundle) (domain.Value, error) {
	if err := v.inc.Check(b); err != nil {
		return domain.Infeasible, err
	}
	if amount, ok := v.values[b]; ok {
		return domain.Finite(amount), nil
	}
	return domain.Infeasible, nil
}

func (v *table) Demand(prices domain.Prices) (domain.Bundle, error) {
	return BestBundle(v.inc, v.Value, prices)
}
