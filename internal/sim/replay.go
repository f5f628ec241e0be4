package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akshitanchan/trading-network-sim/internal/metrics"
	"github.com/akshitanchan/trading-network-sim/internal/scenario"
)

// ReplayResult is the outcome of recomputing a finished run from its
// artefacts.
type ReplayResult struct {
	Config  *scenario.Config
	Metrics *metrics.RunMetrics
	LogHash string
	// Reproduced reports whether re-running the config yields a
	// byte-identical step log.
	Reproduced bool
}

// LoadConfig reads a run directory's config.json.
func LoadConfig(runDir string) (*scenario.Config, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &scenario.Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Replay recomputes metrics from a run directory's step log and re-runs
// its config in scratchDir to check the log hash is reproduced.
func Replay(runDir, scratchDir string) (*ReplayResult, error) {
	cfg, err := LoadConfig(runDir)
	if err != nil {
		return nil, err
	}
	m, err := cfg.BuildMarket()
	if err != nil {
		return nil, err
	}
	initial, unsatisfied := cfg.InitialOffers(m)

	logPath := filepath.Join(runDir, "steps.jsonl")
	rm, err := metrics.ComputeFromLog(m, initial, unsatisfied, logPath)
	if err != nil {
		return nil, fmt.Errorf("recompute metrics: %w", err)
	}
	hash, err := hashFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("hash log: %w", err)
	}

	runner, err := NewRunner(cfg, scratchDir)
	if err != nil {
		return nil, err
	}
	rerun, err := runner.Run()
	if err != nil {
		return nil, fmt.Errorf("re-run: %w", err)
	}

	return &ReplayResult{
		Config:     cfg,
		Metrics:    rm,
		LogHash:    hash,
		Reproduced: rerun.LogHash == hash,
	}, nil
}
