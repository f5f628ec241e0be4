// Package engine runs asynchronous best-response dynamics: one
// unsatisfied agent at a time re-optimises against its neighbours' offers
// until no agent is unsatisfied.
package engine

import (
	"fmt"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/market"
)

// StepHandler observes each committed step.
type StepHandler func(rec *domain.StepRecord) error

// Option configures an Engine.
type Option func(*Engine)

// WithHandler registers a handler called after every step.
func WithHandler(h StepHandler) Option {
	return func(e *Engine) {
		e.handler = h
	}
}

// Engine is the best-response loop over one market and one state.
// It is not safe for concurrent use.
type Engine struct {
	market    *market.Market
	state     *State
	scheduler Scheduler
	handler   StepHandler
	trace     *Trace

	// Stats
	StepsProcessed uint64
}

// NewEngine creates an engine that owns state for the rest of the run.
func NewEngine(m *market.Market, s *State, sched Scheduler, opts ...Option) *Engine {
	e := &Engine{
		market:    m,
		state:     s,
		scheduler: sched,
		trace:     &Trace{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the engine's state.
func (e *Engine) State() *State { return e.state }

// Trace returns the trajectory recorded so far.
func (e *Engine) Trace() *Trace { return e.trace }

// Status reports Running or Converged.
func (e *Engine) Status() Status { return e.state.Status() }

// Pending returns the number of unsatisfied agents.
func (e *Engine) Pending() int { return e.state.unsatisfied.Size() }

// Step runs one best response for agent. Nothing is mutated if the best
// response cannot be computed.
func (e *Engine) Step(agent int) (*domain.StepRecord, error) {
	if agent < 0 || agent >= e.market.Agents() {
		return nil, fmt.Errorf("step agent %d: %w", agent, domain.ErrInvalidAgent)
	}
	offers, demanded, err := e.market.BestResponse(agent, e.state.offers)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", e.StepsProcessed+1, err)
	}
	changed := e.state.commit(e.market, agent, offers)
	e.StepsProcessed++

	rec := domain.StepRecord{
		Step:        e.StepsProcessed,
		Agent:       agent,
		Demanded:    demanded,
		Changed:     changed,
		Offers:      e.state.Offers(),
		Unsatisfied: e.state.Unsatisfied(),
	}
	e.trace.append(rec)
	if e.handler != nil {
		if err := e.handler(&rec); err != nil {
			return &rec, fmt.Errorf("step %d handler: %w", rec.Step, err)
		}
	}
	return &rec, nil
}

// StepNext lets the scheduler pick an unsatisfied agent and steps it.
// It returns nil when the state has converged.
func (e *Engine) StepNext() (*domain.StepRecord, error) {
	if e.state.unsatisfied.Empty() {
		return nil, nil
	}
	return e.Step(e.scheduler.Next(e.state.Unsatisfied()))
}

// Run steps until no agent is unsatisfied. It does not return if the
// dynamics cycle; use RunUntil to bound a run.
func (e *Engine) Run() error {
	for !e.state.unsatisfied.Empty() {
		if _, err := e.StepNext(); err != nil {
			return err
		}
	}
	return nil
}

// RunUntil steps until convergence or until maxSteps steps have been
// processed in total. Returns true if agents are still unsatisfied.
func (e *Engine) RunUntil(maxSteps uint64) (bool, error) {
	for !e.state.unsatisfied.Empty() {
		if e.StepsProcessed >= maxSteps {
			return true, nil
		}
		if _, err := e.StepNext(); err != nil {
			return true, err
		}
	}
	return false, nil
}

// Run drives a fresh engine to convergence and returns the step count and
// the trajectory.
func Run(m *market.Market, s *State, sched Scheduler) (uint64, *Trace, error) {
	e := NewEngine(m, s, sched)
	err := e.Run()
	return e.StepsProcessed, e.trace, err
}

// FixedPoint reports whether every agent's best response reproduces its
// committed offers.
func FixedPoint(m *market.Market, offers domain.Offers) (bool, error) {
	for i := 0; i < m.Agents(); i++ {
		br, _, err := m.BestResponse(i, offers)
		if err != nil {
			return false, err
		}
		if !br.Equal(offers[i]) {
			return false, nil
		}
	}
	return true, nil
}
