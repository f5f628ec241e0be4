// Package metrics computes diagnostics over a market and a set of offers:
// active trades, welfare, the Lyapunov potential and the coalition welfare
// oracle, plus per-step series over a recorded trajectory.
package metrics

import (
	"fmt"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/market"
)

// ActiveTrades returns the trades whose seller-side and buyer-side offers
// are equal, together with that common price. Trades with a missing offer
// on either side are inactive.
func ActiveTrades(m *market.Market, offers domain.Offers) (domain.Prices, domain.Bundle) {
	prices := make(domain.Prices)
	var active domain.Bundle
	for id, tr := range m.Graph().Trades() {
		ask, ok := offerOf(offers, tr.Seller, id)
		if !ok {
			continue
		}
		bid, ok := offerOf(offers, tr.Buyer, id)
		if !ok || ask != bid {
			continue
		}
		prices[id] = ask
		active = active.With(id)
	}
	return prices, active
}

// TradePrices projects offers onto one price per trade, taken from the side
// holding role on it. Trades without an offer on that side are omitted.
func TradePrices(m *market.Market, offers domain.Offers, role domain.Role) domain.Prices {
	out := make(domain.Prices, m.NumTrades())
	for id, tr := range m.Graph().Trades() {
		agent := tr.Buyer
		if role == domain.Seller {
			agent = tr.Seller
		}
		if p, ok := offerOf(offers, agent, id); ok {
			out[id] = p
		}
	}
	return out
}

// Welfare sums every agent's indirect utility: its utility for the bundle
// it demands against its neighbours' offers.
func Welfare(m *market.Market, offers domain.Offers) (int64, error) {
	var total int64
	for i := 0; i < m.Agents(); i++ {
		u, err := AgentWelfare(m, i, offers)
		if err != nil {
			return 0, err
		}
		total += u
	}
	return total, nil
}

// AgentWelfare is one agent's term of Welfare.
func AgentWelfare(m *market.Market, agent int, offers domain.Offers) (int64, error) {
	np, err := m.NeighbourPrices(agent, offers)
	if err != nil {
		return 0, err
	}
	u, err := m.IndirectUtility(agent, np)
	if err != nil {
		return 0, err
	}
	// A demanded bundle is never worse than the empty one.
	if u.IsInfeasible() {
		return 0, fmt.Errorf("agent %d demanded an infeasible bundle: %w", agent, domain.ErrInvalidParams)
	}
	return u.Amount(), nil
}

// Lyapunov returns the potential
//
//	L(p) = Σ_i max_Φ [v_i(τ_i(Φ)) − Σ_{ω∈Φ} p_ω] + Σ_ω p_ω
//
// where Φ ranges over each agent's incident trades and τ_i(Φ) = Φ xor S_i,
// S_i being the trades agent i sells. Φ is the set of objects the agent
// holds: sold trades it keeps and bought trades it acquires.
//
// The returned function fails with ErrCapacity for agents whose degree
// exceeds domain.MaxEnumerationDegree and with ErrMissingOffer when p
// lacks a trade.
func Lyapunov(m *market.Market) func(domain.Prices) (int64, error) {
	return func(p domain.Prices) (int64, error) {
		for id := 0; id < m.NumTrades(); id++ {
			if _, ok := p[id]; !ok {
				return 0, fmt.Errorf("lyapunov trade %d: %w", id, domain.ErrMissingOffer)
			}
		}

		var total int64
		for i := 0; i < m.Agents(); i++ {
			best, err := heldObjectsMax(m, i, p)
			if err != nil {
				return 0, err
			}
			total += best
		}
		for id := 0; id < m.NumTrades(); id++ {
			total += p[id]
		}
		return total, nil
	}
}

func heldObjectsMax(m *market.Market, agent int, p domain.Prices) (int64, error) {
	inc := m.Incidence(agent)
	if inc.Degree() > domain.MaxEnumerationDegree {
		return 0, fmt.Errorf("lyapunov agent %d degree %d: %w", agent, inc.Degree(), domain.ErrCapacity)
	}
	v := m.Valuation(agent)
	sold := inc.Selling()

	// Holding exactly the sold trades maps to the empty bundle, worth 0.
	best := domain.Finite(0).Add(-p.Sum(sold))
	var failed error
	inc.Trades.ForEachSubset(func(held domain.Bundle) {
		if failed != nil {
			return
		}
		val, err := v.Value(held ^ sold)
		if err != nil {
			failed = err
			return
		}
		if u := val.Add(-p.Sum(held)); best.Less(u) {
			best = u
		}
	})
	if failed != nil {
		return 0, fmt.Errorf("lyapunov agent %d: %w", agent, failed)
	}
	return best.Amount(), nil
}

func offerOf(offers domain.Offers, agent, trade int) (int64, bool) {
	if agent >= len(offers) || offers[agent] == nil {
		return 0, false
	}
	p, ok := offers[agent][trade]
	return p, ok
}
