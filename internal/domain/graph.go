package domain

import "fmt"

// Graph is the static trade graph: who sells and who buys each trade.
type Graph struct {
	agents   int
	trades   []Trade
	incident []Bundle // agent -> all incident trades
	buying   []Bundle // agent -> trades the agent buys
}

// NewGraph validates the trade sequence against n agents.
func NewGraph(n int, trades []Trade) (*Graph, error) {
	if n < 0 {
		return nil, fmt.Errorf("agent count %d: %w", n, ErrInvalidAgent)
	}
	if len(trades) > MaxTrades {
		return nil, fmt.Errorf("%d trades (max %d): %w", len(trades), MaxTrades, ErrTooManyTrades)
	}

	g := &Graph{
		agents:   n,
		trades:   append([]Trade(nil), trades...),
		incident: make([]Bundle, n),
		buying:   make([]Bundle, n),
	}
	for id, t := range trades {
		if t.Seller < 0 || t.Seller >= n {
			return nil, fmt.Errorf("trade %d seller %d: %w", id, t.Seller, ErrInvalidAgent)
		}
		if t.Buyer < 0 || t.Buyer >= n {
			return nil, fmt.Errorf("trade %d buyer %d: %w", id, t.Buyer, ErrInvalidAgent)
		}
		if t.Seller == t.Buyer {
			return nil, fmt.Errorf("trade %d agent %d: %w", id, t.Seller, ErrSelfLoop)
		}
		g.incident[t.Seller] = g.incident[t.Seller].With(id)
		g.incident[t.Buyer] = g.incident[t.Buyer].With(id)
		g.buying[t.Buyer] = g.buying[t.Buyer].With(id)
	}
	return g, nil
}

func (g *Graph) Agents() int { return g.agents }

func (g *Graph) NumTrades() int { return len(g.trades) }

// Trades returns a copy of the trade sequence.
func (g *Graph) Trades() []Trade {
	return append([]Trade(nil), g.trades...)
}

func (g *Graph) Trade(id int) Trade { return g.trades[id] }

// All returns the bundle of every trade in the network.
func (g *Graph) All() Bundle {
	if len(g.trades) == MaxTrades {
		return ^Bundle(0)
	}
	return Bundle(1)<<uint(len(g.trades)) - 1
}

// Incidence returns agent i's view of the graph.
func (g *Graph) Incidence(agent int) Incidence {
	return Incidence{
		Agent:  agent,
		Trades: g.incident[agent],
		Buying: g.buying[agent],
	}
}

// Role returns χ(agent, trade) as a Role.
func (g *Graph) Role(agent, trade int) Role {
	t := g.trades[trade]
	switch agent {
	case t.Buyer:
		return Buyer
	case t.Seller:
		return Seller
	default:
		return None
	}
}

// Counterpart returns the other party of trade for agent. ok is false when
// the agent is not party to the trade.
func (g *Graph) Counterpart(agent, trade int) (int, bool) {
	t := g.trades[trade]
	switch agent {
	case t.Buyer:
		return t.Seller, true
	case t.Seller:
		return t.Buyer, true
	default:
		return 0, false
	}
}

// Incidence is one agent's incident trades and the subset it buys.
type Incidence struct {
	Agent  int    `json:"agent"`
	Trades Bundle `json:"trades"`
	Buying Bundle `json:"buying"`
}

// Selling returns the incident trades the agent sells.
func (inc Incidence) Selling() Bundle {
	return inc.Trades &^ inc.Buying
}

func (inc Incidence) Degree() int {
	return inc.Trades.Len()
}

// Role returns the agent's role on a trade.
func (inc Incidence) Role(trade int) Role {
	switch {
	case inc.Buying.Has(trade):
		return Buyer
	case inc.Trades.Has(trade):
		return Seller
	default:
		return None
	}
}

// Check returns ErrForeignTrade if b is not within the agent's domain.
func (inc Incidence) Check(b Bundle) error {
	if !b.SubsetOf(inc.Trades) {
		return fmt.Errorf("agent %d bundle %s: %w", inc.Agent, (b &^ inc.Trades).String(), ErrForeignTrade)
	}
	return nil
}

// Payment returns Σ_{ω∈b} χ(agent,ω)·prices[ω], the net amount the agent
// pays for bundle b. b must lie within the agent's domain.
func (inc Incidence) Payment(prices Prices, b Bundle) int64 {
	return prices.Sum(b&inc.Buying) - prices.Sum(b&^inc.Buying)
}

// Utility returns the quasilinear utility valuation − payment.
func (inc Incidence) Utility(value Value, prices Prices, b Bundle) Value {
	return value.Add(-inc.Payment(prices, b))
}
