// Package market holds the immutable trading network: the trade graph,
// each agent's valuation and its demand oracle.
package market

import (
	"fmt"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/valuation"
)

// DemandFunc is an explicit demand oracle overriding a valuation's own.
type DemandFunc func(prices domain.Prices) (domain.Bundle, error)

// Option configures market construction.
type Option func(*options)

type options struct {
	demands []DemandFunc
}

// WithDemands supplies one demand oracle per agent. Their count must match
// the number of valuations.
func WithDemands(demands ...DemandFunc) Option {
	return func(o *options) {
		o.demands = demands
	}
}

// Market is immutable after New returns.
type Market struct {
	graph      *domain.Graph
	valuations []valuation.Valuation
	demands    []DemandFunc
}

// New builds a market of len(specs) agents over the given trades.
func New(trades []domain.Trade, specs []valuation.Spec, opts ...Option) (*Market, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.demands != nil && len(o.demands) != len(specs) {
		return nil, fmt.Errorf("%d demands for %d agents: %w", len(o.demands), len(specs), domain.ErrDemandCount)
	}

	g, err := domain.NewGraph(len(specs), trades)
	if err != nil {
		return nil, fmt.Errorf("build trade graph: %w", err)
	}

	m := &Market{
		graph:      g,
		valuations: make([]valuation.Valuation, len(specs)),
		demands:    make([]DemandFunc, len(specs)),
	}
	for i, spec := range specs {
		v, err := spec.Build(g.Incidence(i))
		if err != nil {
			return nil, fmt.Errorf("agent %d valuation: %w", i, err)
		}
		m.valuations[i] = v
		m.demands[i] = v.Demand
		if o.demands != nil {
			if o.demands[i] == nil {
				return nil, fmt.Errorf("agent %d demand is nil: %w", i, domain.ErrDemandCount)
			}
			m.demands[i] = o.demands[i]
		}
	}
	return m, nil
}

// FromValuations builds a market from already bound valuations. Each
// valuation's domain must equal the agent's incident trades.
func FromValuations(trades []domain.Trade, vals []valuation.Valuation, opts ...Option) (*Market, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.demands != nil && len(o.demands) != len(vals) {
		return nil, fmt.Errorf("%d demands for %d agents: %w", len(o.demands), len(vals), domain.ErrDemandCount)
	}
	g, err := domain.NewGraph(len(vals), trades)
	if err != nil {
		return nil, fmt.Errorf("build trade graph: %w", err)
	}

	m := &Market{
		graph:      g,
		valuations: append([]valuation.Valuation(nil), vals...),
		demands:    make([]DemandFunc, len(vals)),
	}
	for i, v := range vals {
		if v.Incidence() != g.Incidence(i) {
			return nil, fmt.Errorf("agent %d: %w", i, domain.ErrDomainMismatch)
		}
		m.demands[i] = v.Demand
		if o.demands != nil {
			if o.demands[i] == nil {
				return nil, fmt.Errorf("agent %d demand is nil: %w", i, domain.ErrDemandCount)
			}
			m.demands[i] = o.demands[i]
		}
	}
	return m, nil
}

func (m *Market) Agents() int { return m.graph.Agents() }

func (m *Market) NumTrades() int { return m.graph.NumTrades() }

func (m *Market) Graph() *domain.Graph { return m.graph }

func (m *Market) Trade(id int) domain.Trade { return m.graph.Trade(id) }

func (m *Market) Incidence(agent int) domain.Incidence { return m.graph.Incidence(agent) }

// Valuation returns the raw valuation of an agent.
func (m *Market) Valuation(agent int) valuation.Valuation { return m.valuations[agent] }

// Chi returns χ(agent, trade).
func (m *Market) Chi(agent, trade int) int64 {
	return m.graph.Role(agent, trade).Chi()
}

// RoleVector returns χ(agent, ω) for every trade ω.
func (m *Market) RoleVector(agent int) []int64 {
	out := make([]int64, m.graph.NumTrades())
	for t := range out {
		out[t] = m.Chi(agent, t)
	}
	return out
}

// Counterpart returns the other party of a trade the agent is part of.
func (m *Market) Counterpart(agent, trade int) int {
	cp, _ := m.graph.Counterpart(agent, trade)
	return cp
}

// Utility returns valuation(b) − Σ_{ω∈b} χ(agent,ω)·prices[ω].
func (m *Market) Utility(agent int, prices domain.Prices, b domain.Bundle) (domain.Value, error) {
	return valuation.Utility(m.valuations[agent], prices, b)
}

// Demand queries the agent's demand oracle.
func (m *Market) Demand(agent int, prices domain.Prices) (domain.Bundle, error) {
	b, err := m.demands[agent](prices)
	if err != nil {
		return 0, fmt.Errorf("agent %d demand: %w", agent, err)
	}
	return b, nil
}

// NeighbourPrices returns, for each trade incident to agent, the
// counterpart's committed offer for it.
func (m *Market) NeighbourPrices(agent int, offers domain.Offers) (domain.Prices, error) {
	inc := m.graph.Incidence(agent)
	out := make(domain.Prices, inc.Degree())
	for _, t := range inc.Trades.Trades() {
		cp := m.Counterpart(agent, t)
		if cp >= len(offers) {
			return nil, fmt.Errorf("agent %d trade %d: %w", cp, t, domain.ErrMissingOffer)
		}
		p, ok := offers[cp][t]
		if !ok {
			return nil, fmt.Errorf("agent %d trade %d: %w", cp, t, domain.ErrMissingOffer)
		}
		out[t] = p
	}
	return out, nil
}

// BestResponse returns the offers agent would commit given the others'
// current offers, and the bundle it demands. Demanded trades match the
// counterpart's price; the rest move one unit away from it.
func (m *Market) BestResponse(agent int, offers domain.Offers) (domain.Prices, domain.Bundle, error) {
	neighbour, err := m.NeighbourPrices(agent, offers)
	if err != nil {
		return nil, 0, err
	}
	demanded, err := m.Demand(agent, neighbour)
	if err != nil {
		return nil, 0, err
	}
	inc := m.graph.Incidence(agent)
	if err := inc.Check(demanded); err != nil {
		return nil, 0, fmt.Errorf("agent %d demand: %w", agent, err)
	}

	out := make(domain.Prices, len(neighbour))
	for t, p := range neighbour {
		if demanded.Has(t) {
			out[t] = p
		} else {
			out[t] = p - inc.Role(t).Chi()
		}
	}
	return out, demanded, nil
}

// IndirectUtility returns the agent's utility of its demanded bundle at the
// given prices.
func (m *Market) IndirectUtility(agent int, prices domain.Prices) (domain.Value, error) {
	b, err := m.Demand(agent, prices)
	if err != nil {
		return domain.Infeasible, err
	}
	return m.Utility(agent, prices, b)
}
