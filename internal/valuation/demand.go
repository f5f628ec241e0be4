package valuation

import (
	"fmt"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

// Utility returns v's quasilinear utility of bundle b at prices:
// valuation(b) − Σ_{ω∈b} χ(agent,ω)·prices[ω].
func Utility(v Valuation, prices domain.Prices, b domain.Bundle) (domain.Value, error) {
	val, err := v.Value(b)
	if err != nil {
		return domain.Infeasible, err
	}
	return v.Incidence().Utility(val, prices, b), nil
}

// BestBundle maximises utility over every subset of the agent's incident
// trades. Ties go to the bundle with the fewest trades, then to the lower
// bitmask, so the result is an inclusion-wise minimal maximiser. Agents
// with more than domain.MaxEnumerationDegree trades get domain.ErrCapacity.
func BestBundle(inc domain.Incidence, value func(domain.Bundle) (domain.Value, error), prices domain.Prices) (domain.Bundle, error) {
	if inc.Degree() > domain.MaxEnumerationDegree {
		return 0, fmt.Errorf("agent %d degree %d: %w", inc.Agent, inc.Degree(), domain.ErrCapacity)
	}
	if err := checkPrices(inc, prices); err != nil {
		return 0, err
	}

	var (
		best   domain.Bundle
		bestU  = domain.Infeasible
		found  bool
		errOut error
	)
	inc.Trades.ForEachSubset(func(b domain.Bundle) {
		if errOut != nil {
			return
		}
		v, err := value(b)
		if err != nil {
			errOut = err
			return
		}
		u := inc.Utility(v, prices, b)
		if !found || bestU.Less(u) || (!u.Less(bestU) && preferred(b, best)) {
			best, bestU, found = b, u, true
		}
	})
	if errOut != nil {
		return 0, errOut
	}
	return best, nil
}

// preferred orders equally good bundles: fewer trades, then lower bitmask.
func preferred(a, b domain.Bundle) bool {
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	return a < b
}

// checkPrices requires a price for every incident trade.
func checkPrices(inc domain.Incidence, prices domain.Prices) error {
	for _, t := range inc.Trades.Trades() {
		if _, ok := prices[t]; !ok {
			return fmt.Errorf("agent %d trade %d: %w", inc.Agent, t, domain.ErrMissingOffer)
		}
	}
	return nil
}
