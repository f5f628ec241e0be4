package scenario

import (
	"fmt"
	"math/rand"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/market"
)

// BuildMarket constructs the scenario's market.
func (c *Config) BuildMarket() (*market.Market, error) {
	m, err := market.New(c.Trades, c.Valuations)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", c.Name, err)
	}
	return m, nil
}

// InitialOffers returns the initial offers and unsatisfied agents. Explicit
// offers are used as given; otherwise every agent gets a seeded uniform
// offer in [Low, High] for each of its trades, drawn in agent then trade
// order so a seed reproduces them exactly.
func (c *Config) InitialOffers(m *market.Market) (domain.Offers, []int) {
	unsatisfied := c.Offers.Unsatisfied
	if unsatisfied == nil {
		unsatisfied = make([]int, m.Agents())
		for i := range unsatisfied {
			unsatisfied[i] = i
		}
	} else {
		unsatisfied = domain.SortedAgents(unsatisfied)
	}

	if len(c.Offers.Initial) > 0 {
		return c.Offers.Initial.Clone(), unsatisfied
	}

	rng := rand.New(rand.NewSource(c.Seed))
	span := c.Offers.High - c.Offers.Low + 1
	offers := make(domain.Offers, m.Agents())
	for i := range offers {
		inc := m.Incidence(i)
		offers[i] = make(domain.Prices, inc.Degree())
		for _, t := range inc.Trades.Trades() {
			offers[i][t] = c.Offers.Low + rng.Int63n(span)
		}
	}
	return offers, unsatisfied
}
