// Package sim wires together the scenario, market, best-response engine,
// step log, diagnostics and run store into a complete simulation run.
package sim

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
	"github.com/akshitanchan/trading-network-sim/internal/engine"
	"github.com/akshitanchan/trading-network-sim/internal/eventlog"
	"github.com/akshitanchan/trading-network-sim/internal/market"
	"github.com/akshitanchan/trading-network-sim/internal/metrics"
	"github.com/akshitanchan/trading-network-sim/internal/persistence"
	"github.com/akshitanchan/trading-network-sim/internal/scenario"
)

// RunResult holds the output of a simulation run.
type RunResult struct {
	RunID        string           `json:"run_id"`
	StoreID      string           `json:"store_id,omitempty"`
	Config       *scenario.Config `json:"config"`
	Steps        uint64           `json:"steps"`
	Converged    bool             `json:"converged"`
	ActiveTrades []int            `json:"active_trades"`
	FinalWelfare int64            `json:"final_welfare"`
	Duration     time.Duration    `json:"wall_duration"`
	LogPath      string           `json:"log_path"`
	LogHash      string           `json:"log_hash"`
	OutputDir    string           `json:"output_dir"`

	Metrics *metrics.RunMetrics `json:"-"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for run lifecycle messages.
func WithLogger(l *logrus.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithStore persists every run and its steps to db.
func WithStore(db *persistence.DB) Option {
	return func(r *Runner) {
		r.store = db
	}
}

// Runner executes a simulation.
type Runner struct {
	cfg       *scenario.Config
	market    *market.Market
	engine    *engine.Engine
	logWriter *eventlog.Writer
	collector *metrics.Collector

	initial     domain.Offers
	unsatisfied []int

	log   *logrus.Logger
	store *persistence.DB

	// Output directory.
	outputDir string
}

// NewRunner creates a simulation runner writing to
// <baseOutputDir>/<scenario>_seed<N>.
func NewRunner(cfg *scenario.Config, baseOutputDir string, opts ...Option) (*Runner, error) {
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logrus.New()
		r.log.SetOutput(io.Discard)
	}

	m, err := cfg.BuildMarket()
	if err != nil {
		return nil, err
	}
	r.market = m
	r.initial, r.unsatisfied = cfg.InitialOffers(m)

	state, err := engine.NewStateWithUnsatisfied(m, r.initial, r.unsatisfied)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	r.collector, err = metrics.NewCollector(m, r.initial, r.unsatisfied)
	if err != nil {
		return nil, fmt.Errorf("initial metrics: %w", err)
	}

	runID := fmt.Sprintf("%s_seed%d", cfg.Name, cfg.Seed)
	r.outputDir = filepath.Join(baseOutputDir, runID)
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	logWriter, err := eventlog.NewWriter(filepath.Join(r.outputDir, "steps.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("create step log: %w", err)
	}
	r.logWriter = logWriter

	r.engine = engine.NewEngine(m, state, newScheduler(cfg), engine.WithHandler(r.handleStep))
	return r, nil
}

func newScheduler(cfg *scenario.Config) engine.Scheduler {
	if cfg.Scheduler == scenario.SchedulerLowest {
		return engine.LowestFirst{}
	}
	return engine.NewRandomScheduler(cfg.Seed)
}

// Market returns the market the runner simulates.
func (r *Runner) Market() *market.Market { return r.market }

// Run executes the simulation and returns results. Hitting the step cap is
// reported as Converged=false, not as an error.
func (r *Runner) Run() (*RunResult, error) {
	startWall := time.Now()
	entry := r.log.WithFields(logrus.Fields{
		"scenario": r.cfg.Name,
		"seed":     r.cfg.Seed,
		"agents":   r.market.Agents(),
		"trades":   r.market.NumTrades(),
	})
	entry.Info("run started")

	running, runErr := r.engine.RunUntil(r.cfg.MaxSteps)

	if err := r.logWriter.Close(); err != nil {
		return nil, fmt.Errorf("close step log: %w", err)
	}
	if runErr != nil {
		entry.WithError(runErr).Error("run failed")
		return nil, runErr
	}

	logPath := filepath.Join(r.outputDir, "steps.jsonl")
	hash, err := hashFile(logPath)
	if err != nil {
		return nil, fmt.Errorf("hash log: %w", err)
	}

	rm := r.collector.Compute()

	cfgData, err := json.MarshalIndent(r.cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	os.WriteFile(filepath.Join(r.outputDir, "config.json"), cfgData, 0644)

	metricsData, _ := json.MarshalIndent(rm, "", "  ")
	os.WriteFile(filepath.Join(r.outputDir, "metrics.json"), metricsData, 0644)

	lastRunPath := filepath.Join(filepath.Dir(r.outputDir), "last-run")
	os.WriteFile(lastRunPath, []byte(r.outputDir), 0644)

	result := &RunResult{
		RunID:        filepath.Base(r.outputDir),
		Config:       r.cfg,
		Steps:        r.engine.StepsProcessed,
		Converged:    !running,
		ActiveTrades: rm.ActiveTrades,
		FinalWelfare: rm.FinalWelfare,
		Duration:     time.Since(startWall),
		LogPath:      logPath,
		LogHash:      hash,
		OutputDir:    r.outputDir,
		Metrics:      rm,
	}

	fields := logrus.Fields{
		"steps":         result.Steps,
		"active_trades": len(result.ActiveTrades),
		"welfare":       result.FinalWelfare,
	}
	if running {
		entry.WithFields(fields).WithField("max_steps", r.cfg.MaxSteps).Warn("step cap reached before convergence")
	} else {
		entry.WithFields(fields).Info("run converged")
	}

	if r.store != nil {
		if err := r.persist(result, cfgData); err != nil {
			return nil, err
		}
		entry.WithField("store_id", result.StoreID).Debug("run persisted")
	}

	return result, nil
}

func (r *Runner) persist(result *RunResult, cfgData []byte) error {
	run := persistence.NewRun(r.cfg.Name, r.cfg.Seed)
	run.Steps = int64(result.Steps)
	run.Converged = result.Converged
	run.FinalWelfare = result.FinalWelfare
	run.LogHash = result.LogHash
	run.ConfigJSON = string(cfgData)
	if err := r.store.SaveRun(run, r.engine.Trace().Steps); err != nil {
		return fmt.Errorf("persist run: %w", err)
	}
	result.StoreID = run.ID
	return nil
}

// handleStep logs each committed step and feeds the diagnostics collector.
func (r *Runner) handleStep(rec *domain.StepRecord) error {
	if err := r.logWriter.Write(rec); err != nil {
		return err
	}
	if err := r.collector.ProcessStep(rec); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"step":    rec.Step,
		"agent":   rec.Agent,
		"changed": rec.Changed.String(),
		"pending": len(rec.Unsatisfied),
	}).Trace("step")
	return nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h), nil
}
