package metrics

import (
	"errors"
	"fmt"
	"io"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/eventlog"
	"github.com/akshitanchan/trading-network-sim/internal/market"
)

// Sample is the diagnostic state after one step. Step 0 is the initial
// state.
type Sample struct {
	Step        uint64 `json:"step"`
	Agent       int    `json:"agent"` // -1 for the initial state
	Welfare     int64  `json:"welfare"`
	Lyapunov    int64  `json:"lyapunov"`
	HasLyapunov bool   `json:"has_lyapunov"`
	Active      int    `json:"active_trades"`
	Unsatisfied int    `json:"unsatisfied"`
	Changed     int    `json:"changed_trades"`
}

// AgentMetrics holds per-agent activity over a run.
type AgentMetrics struct {
	Agent        int   `json:"agent"`
	Steps        int   `json:"steps"`
	Revisions    int   `json:"revisions"` // steps that changed at least one offer
	OfferChanges int   `json:"offer_changes"`
	FinalWelfare int64 `json:"final_welfare"`
}

// RunMetrics summarises a trajectory.
type RunMetrics struct {
	Steps      uint64 `json:"steps"`
	Converged  bool   `json:"converged"`
	Confirming uint64 `json:"confirming_steps"` // steps that changed nothing

	InitialWelfare int64 `json:"initial_welfare"`
	FinalWelfare   int64 `json:"final_welfare"`
	// Efficient is the grand-coalition welfare when the oracle could be
	// built, else -1.
	Efficient int64 `json:"efficient_welfare"`

	FinalLyapunov int64 `json:"final_lyapunov"`
	HasLyapunov   bool  `json:"has_lyapunov"`

	ActiveTrades []int         `json:"active_trades"`
	Prices       domain.Prices `json:"prices"`

	MaxUnsatisfied int             `json:"max_unsatisfied"`
	Agents         []*AgentMetrics `json:"agents"`
	Samples        []Sample        `json:"samples"`
}

// Collector accumulates diagnostics from step records.
type Collector struct {
	market   *market.Market
	lyapunov func(domain.Prices) (int64, error)

	offers      domain.Offers
	unsatisfied int
	steps       uint64
	agents      []*AgentMetrics
	samples     []Sample
}

// NewCollector creates a collector that starts from the initial offers and
// unsatisfied set of a run.
func NewCollector(m *market.Market, initial domain.Offers, unsatisfied []int) (*Collector, error) {
	c := &Collector{
		market:      m,
		lyapunov:    Lyapunov(m),
		offers:      initial.Clone(),
		unsatisfied: len(unsatisfied),
		agents:      make([]*AgentMetrics, m.Agents()),
	}
	for i := range c.agents {
		c.agents[i] = &AgentMetrics{Agent: i}
	}
	s, err := c.sample(0, -1, 0)
	if err != nil {
		return nil, err
	}
	c.samples = append(c.samples, s)
	return c, nil
}

// ProcessStep ingests a single step record.
func (c *Collector) ProcessStep(rec *domain.StepRecord) error {
	if rec.Agent < 0 || rec.Agent >= len(c.agents) {
		return fmt.Errorf("step %d agent %d: %w", rec.Step, rec.Agent, domain.ErrInvalidAgent)
	}
	if len(rec.Offers) != len(c.agents) {
		return fmt.Errorf("step %d carries %d offer maps: %w", rec.Step, len(rec.Offers), domain.ErrMissingOffer)
	}
	a := c.agents[rec.Agent]
	a.Steps++
	if !rec.Changed.IsEmpty() {
		a.Revisions++
		a.OfferChanges += rec.Changed.Len()
	}

	c.offers = rec.Offers.Clone()
	c.unsatisfied = len(rec.Unsatisfied)
	c.steps = rec.Step
	s, err := c.sample(rec.Step, rec.Agent, rec.Changed.Len())
	if err != nil {
		return err
	}
	c.samples = append(c.samples, s)
	return nil
}

func (c *Collector) sample(step uint64, agent, changed int) (Sample, error) {
	w, err := Welfare(c.market, c.offers)
	if err != nil {
		return Sample{}, fmt.Errorf("welfare at step %d: %w", step, err)
	}
	_, active := ActiveTrades(c.market, c.offers)
	s := Sample{
		Step:        step,
		Agent:       agent,
		Welfare:     w,
		Active:      active.Len(),
		Unsatisfied: c.unsatisfied,
		Changed:     changed,
	}
	l, err := c.lyapunov(TradePrices(c.market, c.offers, domain.Buyer))
	switch {
	case err == nil:
		s.Lyapunov, s.HasLyapunov = l, true
	case errors.Is(err, domain.ErrCapacity):
	default:
		return Sample{}, fmt.Errorf("lyapunov at step %d: %w", step, err)
	}
	return s, nil
}

// Compute summarises everything ingested so far.
func (c *Collector) Compute() *RunMetrics {
	first, last := c.samples[0], c.samples[len(c.samples)-1]
	prices, active := ActiveTrades(c.market, c.offers)

	rm := &RunMetrics{
		Steps:          c.steps,
		Converged:      c.unsatisfied == 0,
		InitialWelfare: first.Welfare,
		FinalWelfare:   last.Welfare,
		Efficient:      -1,
		FinalLyapunov:  last.Lyapunov,
		HasLyapunov:    last.HasLyapunov,
		ActiveTrades:   active.Trades(),
		Prices:         prices,
		Agents:         c.agents,
		Samples:        c.samples,
	}
	for _, s := range c.samples {
		if s.Unsatisfied > rm.MaxUnsatisfied {
			rm.MaxUnsatisfied = s.Unsatisfied
		}
		if s.Step > 0 && s.Changed == 0 {
			rm.Confirming++
		}
	}
	for _, a := range c.agents {
		if u, err := AgentWelfare(c.market, a.Agent, c.offers); err == nil {
			a.FinalWelfare = u
		}
	}
	if o, err := NewWelfareOracle(c.market); err == nil {
		rm.Efficient = o.Grand()
	}
	return rm
}

// ComputeFromLog replays a step log against the market and its initial
// state.
func ComputeFromLog(m *market.Market, initial domain.Offers, unsatisfied []int, logPath string) (*RunMetrics, error) {
	reader, err := eventlog.NewReader(logPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	c, err := NewCollector(m, initial, unsatisfied)
	if err != nil {
		return nil, err
	}
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := c.ProcessStep(rec); err != nil {
			return nil, err
		}
	}
	return c.Compute(), nil
}

// ComputeFromSteps computes metrics directly from an in-memory trajectory.
func ComputeFromSteps(m *market.Market, initial domain.Offers, unsatisfied []int, steps []domain.StepRecord) (*RunMetrics, error) {
	c, err := NewCollector(m, initial, unsatisfied)
	if err != nil {
		return nil, err
	}
	for i := range steps {
		if err := c.ProcessStep(&steps[i]); err != nil {
			return nil, err
		}
	}
	return c.Compute(), nil
}
