package scenario

// Default values for optional configuration fields.
const (
	DefaultMaxSteps   = 10_000
	DefaultOfferLow   = 0
	DefaultOfferHigh  = 30
	DefaultScheduler  = SchedulerRandom
	DefaultScenarioID = "custom"
)

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultScenarioID
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Scheduler == "" {
		c.Scheduler = DefaultScheduler
	}
	// Both bounds zero means the range was left out.
	if c.Offers.Low == 0 && c.Offers.High == 0 {
		c.Offers.Low = DefaultOfferLow
		c.Offers.High = DefaultOfferHigh
	}
}
