package scenario

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
// Market-level checks (endpoints, self loops, valuation parameters) are
// left to market construction.
func (c *Config) Validate() error {
	if len(c.Valuations) == 0 {
		return errors.New("valuations must list at least one agent")
	}
	if c.MaxSteps < 1 {
		return errors.New("max_steps must be >= 1")
	}
	switch c.Scheduler {
	case SchedulerRandom, SchedulerLowest:
	default:
		return fmt.Errorf("scheduler must be %q or %q, got %q", SchedulerRandom, SchedulerLowest, c.Scheduler)
	}
	if c.Offers.High < c.Offers.Low {
		return fmt.Errorf("offers.high (%d) must be >= offers.low (%d)", c.Offers.High, c.Offers.Low)
	}
	if n := len(c.Offers.Initial); n > 0 && n != c.Agents() {
		return fmt.Errorf("offers.initial has %d entries for %d agents", n, c.Agents())
	}
	for _, a := range c.Offers.Unsatisfied {
		if a < 0 || a >= c.Agents() {
			return fmt.Errorf("offers.unsatisfied lists agent %d, have %d agents", a, c.Agents())
		}
	}
	return nil
}
