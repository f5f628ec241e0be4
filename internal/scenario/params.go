// Package scenario defines trading network scenarios: the trade graph,
// each agent's valuation and how initial offers are seeded.
package scenario

import (
	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/valuation"
)

// Config holds all parameters for a simulation run
type Config struct {
	Name string `json:"name" yaml:"name"`
	Seed int64  `json:"seed" yaml:"seed"`

	// Network: one valuation per agent, agent ids are slice indices.
	Trades     []domain.Trade   `json:"trades" yaml:"trades"`
	Valuations []valuation.Spec `json:"valuations" yaml:"valuations"`

	Offers OfferParams `json:"offers" yaml:"offers"`

	// Run control
	MaxSteps  uint64 `json:"max_steps" yaml:"max_steps"`
	Scheduler string `json:"scheduler" yaml:"scheduler"` // "random" or "lowest"
}

// OfferParams controls the initial state.
type OfferParams struct {
	// Seeded uniform integer offers in [Low, High], used when Initial is empty.
	Low  int64 `json:"low" yaml:"low"`
	High int64 `json:"high" yaml:"high"`

	// Explicit initial offers, one map per agent.
	Initial domain.Offers `json:"initial,omitempty" yaml:"initial,omitempty"`

	// Initially unsatisfied agents. Nil means every agent; an empty list
	// means none.
	Unsatisfied []int `json:"unsatisfied" yaml:"unsatisfied,omitempty"`
}

// Scheduler names.
const (
	SchedulerRandom = "random"
	SchedulerLowest = "lowest"
)

// Agents returns the number of agents in the scenario.
func (c *Config) Agents() int { return len(c.Valuations) }

// DefaultSingle is one seller (cost 5) and one buyer (value 10) whose
// offers already agree at 6.
func DefaultSingle(seed int64) *Config {
	return &Config{
		Name:   "single",
		Seed:   seed,
		Trades: []domain.Trade{{Seller: 0, Buyer: 1}},
		Valuations: []valuation.Spec{
			valuation.Unit(map[int]int64{0: -5}),
			valuation.Unit(map[int]int64{0: 10}),
		},
		Offers: OfferParams{
			Low:     DefaultOfferLow,
			High:    DefaultOfferHigh,
			Initial: domain.Offers{{0: 6}, {0: 6}},
		},
		MaxSteps:  DefaultMaxSteps,
		Scheduler: SchedulerRandom,
	}
}

// DefaultPath is a seller, an intermediary and a buyer in a line.
func DefaultPath(seed int64) *Config {
	return &Config{
		Name:   "path",
		Seed:   seed,
		Trades: []domain.Trade{{Seller: 0, Buyer: 1}, {Seller: 1, Buyer: 2}},
		Valuations: []valuation.Spec{
			valuation.Unit(map[int]int64{0: -10}),
			valuation.Intermediary(),
			valuation.Unit(map[int]int64{1: 20}),
		},
		Offers:    OfferParams{Low: DefaultOfferLow, High: DefaultOfferHigh},
		MaxSteps:  DefaultMaxSteps,
		Scheduler: SchedulerRandom,
	}
}

// DefaultStar routes two sellers and two buyers through one intermediary
// hub (agent 2).
func DefaultStar(seed int64) *Config {
	return &Config{
		Name: "star",
		Seed: seed,
		Trades: []domain.Trade{
			{Seller: 0, Buyer: 2},
			{Seller: 1, Buyer: 2},
			{Seller: 2, Buyer: 3},
			{Seller: 2, Buyer: 4},
		},
		Valuations: []valuation.Spec{
			valuation.Unit(map[int]int64{0: -8}),
			valuation.Unit(map[int]int64{1: -12}),
			valuation.Intermediary(),
			valuation.Unit(map[int]int64{2: 25}),
			valuation.Unit(map[int]int64{3: 18}),
		},
		Offers:    OfferParams{Low: DefaultOfferLow, High: DefaultOfferHigh},
		MaxSteps:  DefaultMaxSteps,
		Scheduler: SchedulerRandom,
	}
}

// DefaultChain passes goods through two intermediaries.
func DefaultChain(seed int64) *Config {
	return &Config{
		Name: "chain",
		Seed: seed,
		Trades: []domain.Trade{
			{Seller: 0, Buyer: 1},
			{Seller: 1, Buyer: 2},
			{Seller: 2, Buyer: 3},
		},
		Valuations: []valuation.Spec{
			valuation.Unit(map[int]int64{0: -6}),
			valuation.Intermediary(),
			valuation.Intermediary(),
			valuation.Unit(map[int]int64{2: 24}),
		},
		Offers:    OfferParams{Low: DefaultOfferLow, High: DefaultOfferHigh},
		MaxSteps:  DefaultMaxSteps,
		Scheduler: SchedulerRandom,
	}
}

// DefaultBundle mixes bundle valuations: agent 2 buys from two sellers with
// substitutable two-trade values, and agent 1 sells two trades at a
// convex cost given by an explicit table.
func DefaultBundle(seed int64) *Config {
	return &Config{
		Name: "bundle",
		Seed: seed,
		Trades: []domain.Trade{
			{Seller: 0, Buyer: 2},
			{Seller: 1, Buyer: 2},
			{Seller: 1, Buyer: 3},
		},
		Valuations: []valuation.Spec{
			valuation.Unit(map[int]int64{0: -4}),
			valuation.Table(
				valuation.TableEntry{Trades: []int{}, Value: 0},
				valuation.TableEntry{Trades: []int{1}, Value: -6},
				valuation.TableEntry{Trades: []int{2}, Value: -6},
				valuation.TableEntry{Trades: []int{1, 2}, Value: -15},
			),
			valuation.TwoTrade(valuation.Corner{X: 15, Y: 12}, valuation.Corner{X: 8, Y: 5}),
			valuation.Unit(map[int]int64{2: 11}),
		},
		Offers:    OfferParams{Low: DefaultOfferLow, High: DefaultOfferHigh},
		MaxSteps:  DefaultMaxSteps,
		Scheduler: SchedulerRandom,
	}
}

// Names lists the built-in scenarios.
func Names() []string {
	return []string{"single", "path", "star", "chain", "bundle"}
}

// GetConfig returns the default config for a named scenario
func GetConfig(name string, seed int64) *Config {
	switch name {
	case "single":
		return DefaultSingle(seed)
	case "path":
		return DefaultPath(seed)
	case "star":
		return DefaultStar(seed)
	case "chain":
		return DefaultChain(seed)
	case "bundle":
		return DefaultBundle(seed)
	default:
		return nil
	}
}
