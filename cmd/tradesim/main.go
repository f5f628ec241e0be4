package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/akshitanchan/trading-network-sim/internal/metrics"
	"github.com/akshitanchan/trading-network-sim/internal/persistence"
	"github.com/akshitanchan/trading-network-sim/internal/report"
	"github.com/akshitanchan/trading-network-sim/internal/scenario"
	"github.com/akshitanchan/trading-network-sim/internal/sim"
)

const defaultRunsDir = "runs"

// settings are process-level options read from the environment and a
// local .env file; flags override them.
type settings struct {
	RunsDir  string
	DBPath   string
	LogLevel string
}

func loadSettings() settings {
	_ = godotenv.Load() // .env is optional
	return settings{
		RunsDir:  getEnv("TRADESIM_RUNS_DIR", defaultRunsDir),
		DBPath:   getEnv("TRADESIM_DB", ""),
		LogLevel: getEnv("TRADESIM_LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := loadSettings()
	log := newLogger(cfg.LogLevel)

	switch os.Args[1] {
	case "run":
		cmdRun(cfg, log, os.Args[2:])
	case "report":
		cmdReport(cfg, os.Args[2:])
	case "demo":
		cmdDemo(cfg, log, os.Args[2:])
	case "replay":
		cmdReplay(cfg, os.Args[2:])
	case "runs":
		cmdRuns(cfg, os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: tradesim <command> [options]

Commands:
  run      Run a trading network scenario
  demo     Run all built-in scenarios and generate a consolidated report
  report   Print the report of a finished run
  replay   Recompute metrics from a run's step log and check it reproduces
  runs     List runs stored in the database

Run options:
  --scenario <name|path>  Built-in (single, path, star, chain, bundle) or YAML file (required)
  --seed <n>              Random seed (default: 42, 0 keeps a file's seed)
  --runs-dir <path>       Output directory (env TRADESIM_RUNS_DIR, default: runs)
  --db <path>             Also store the run in this SQLite database (env TRADESIM_DB)

Demo options:
  --seed <n>              Random seed (default: 42)
  --runs-dir <path>       Output directory
  --db <path>             SQLite database

Report / replay options:
  --last-run              Use the most recent run
  --run-id <id>           Run id (e.g. path_seed42)
  --run-dir <path>        Path to a specific run directory

Runs options:
  --db <path>             SQLite database
  --limit <n>             Number of runs to list (default: 10)`)
}

// runFlags are the options shared by the subcommands.
type runFlags struct {
	scenario string
	seed     int64
	runsDir  string
	dbPath   string
	runDir   string
	runID    string
	lastRun  bool
	limit    int
}

func parseFlags(cfg settings, args []string) (runFlags, error) {
	f := runFlags{seed: 42, runsDir: cfg.RunsDir, dbPath: cfg.DBPath, limit: 10}
	for i := 0; i < len(args); i++ {
		next := func() (string, error) {
			i++
			if i >= len(args) {
				return "", fmt.Errorf("%s requires a value", args[i-1])
			}
			return args[i], nil
		}
		var v string
		var err error
		switch args[i] {
		case "--last-run":
			f.lastRun = true
			continue
		case "--scenario", "--seed", "--runs-dir", "--db", "--run-dir", "--run-id", "--limit":
			if v, err = next(); err != nil {
				return f, err
			}
		default:
			return f, fmt.Errorf("unknown flag %q", args[i])
		}

		switch args[i-1] {
		case "--scenario":
			f.scenario = v
		case "--seed":
			if f.seed, err = strconv.ParseInt(v, 10, 64); err != nil {
				return f, fmt.Errorf("--seed: %w", err)
			}
		case "--runs-dir":
			f.runsDir = v
		case "--db":
			f.dbPath = v
		case "--run-dir":
			f.runDir = v
		case "--run-id":
			f.runID = v
		case "--limit":
			if f.limit, err = strconv.Atoi(v); err != nil {
				return f, fmt.Errorf("--limit: %w", err)
			}
		}
	}
	return f, nil
}

// resolveRunDir picks the run directory named by --run-dir, --run-id or
// --last-run, in that order.
func resolveRunDir(f runFlags) (string, error) {
	switch {
	case f.runDir != "":
		return f.runDir, nil
	case f.runID != "":
		return filepath.Join(f.runsDir, f.runID), nil
	case f.lastRun:
		data, err := os.ReadFile(filepath.Join(f.runsDir, "last-run"))
		if err != nil {
			return "", fmt.Errorf("no last run found, run a simulation first")
		}
		return string(data), nil
	}
	return "", fmt.Errorf("--last-run, --run-dir, or --run-id required")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func openStore(path string) *persistence.DB {
	if path == "" {
		return nil
	}
	db, err := persistence.Open(path)
	if err != nil {
		fail("open database: %v", err)
	}
	return db
}

func runScenario(cfg *scenario.Config, f runFlags, log *logrus.Logger, db *persistence.DB) (*sim.RunResult, error) {
	opts := []sim.Option{sim.WithLogger(log)}
	if db != nil {
		opts = append(opts, sim.WithStore(db))
	}
	runner, err := sim.NewRunner(cfg, f.runsDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return runner.Run()
}

func cmdRun(cfg settings, log *logrus.Logger, args []string) {
	f, err := parseFlags(cfg, args)
	if err != nil {
		fail("%v", err)
	}
	if f.scenario == "" {
		fail("--scenario is required (%v or a YAML file)", scenario.Names())
	}

	sc, err := scenario.Resolve(f.scenario, f.seed)
	if err != nil {
		fail("%v", err)
	}

	db := openStore(f.dbPath)
	if db != nil {
		defer db.Close()
	}

	fmt.Printf("Running scenario: %s (seed=%d)\n", sc.Name, sc.Seed)
	result, err := runScenario(sc, f, log, db)
	if err != nil {
		fail("running simulation: %v", err)
	}

	fmt.Printf("Simulation complete.\n")
	fmt.Printf("  Steps:      %d\n", result.Steps)
	fmt.Printf("  Converged:  %t\n", result.Converged)
	fmt.Printf("  Wall time:  %v\n", result.Duration)
	fmt.Printf("  Log hash:   %s\n", result.LogHash[:16]+"...")
	fmt.Printf("  Output:     %s\n", result.OutputDir)
	if result.StoreID != "" {
		fmt.Printf("  Stored as:  %s\n", result.StoreID)
	}

	fmt.Println("\nMetrics Summary:")
	report.PrintSummary(sc, result.Metrics)

	reportGen := report.NewReport(sc, result.Metrics, result.OutputDir)
	if err := reportGen.Generate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not generate report: %v\n", err)
	} else {
		fmt.Printf("\nReport written to: %s/report.md\n", result.OutputDir)
	}
}

func cmdReport(cfg settings, args []string) {
	f, err := parseFlags(cfg, args)
	if err != nil {
		fail("%v", err)
	}
	runDir, err := resolveRunDir(f)
	if err != nil {
		fail("%v", err)
	}

	data, err := os.ReadFile(filepath.Join(runDir, "report.md"))
	if err != nil {
		fail("reading report: %v", err)
	}
	fmt.Println(string(data))

	if plotData, err := os.ReadFile(filepath.Join(runDir, "plots.txt")); err == nil {
		fmt.Println(string(plotData))
	}
}

func cmdDemo(cfg settings, log *logrus.Logger, args []string) {
	f, err := parseFlags(cfg, args)
	if err != nil {
		fail("%v", err)
	}

	db := openStore(f.dbPath)
	if db != nil {
		defer db.Close()
	}

	var results []report.ScenarioResult
	for _, name := range scenario.Names() {
		sc := scenario.GetConfig(name, f.seed)
		fmt.Printf("Running scenario: %s (seed=%d)...\n", name, f.seed)

		result, err := runScenario(sc, f, log, db)
		if err != nil {
			fail("running %s: %v", name, err)
		}
		fmt.Printf("  %s: %d steps, converged=%t, %v\n",
			name, result.Steps, result.Converged, result.Duration)

		reportGen := report.NewReport(sc, result.Metrics, result.OutputDir)
		if err := reportGen.Generate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: report generation failed for %s: %v\n", name, err)
		}

		results = append(results, report.ScenarioResult{
			Config:  sc,
			Metrics: result.Metrics,
			RunDir:  result.OutputDir,
		})
	}

	report.PrintCrossSummary(results)

	crossReport := report.NewCrossReport(results, f.runsDir)
	if err := crossReport.Generate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cross-scenario report failed: %v\n", err)
	} else {
		fmt.Printf("\nCross-scenario report: %s/cross-scenario-report.md\n", f.runsDir)
	}
}

func cmdReplay(cfg settings, args []string) {
	f, err := parseFlags(cfg, args)
	if err != nil {
		fail("%v", err)
	}
	runDir, err := resolveRunDir(f)
	if err != nil {
		fail("%v", err)
	}

	scratch, err := os.MkdirTemp("", "tradesim-replay-")
	if err != nil {
		fail("create scratch dir: %v", err)
	}
	defer os.RemoveAll(scratch)

	fmt.Printf("Replaying step log: %s\n", filepath.Join(runDir, "steps.jsonl"))
	rep, err := sim.Replay(runDir, scratch)
	if err != nil {
		fail("replay: %v", err)
	}

	fmt.Println("\nMetrics Summary (Replay):")
	report.PrintSummary(rep.Config, rep.Metrics)
	printStoredComparison(runDir, rep.Metrics)

	if rep.Reproduced {
		fmt.Println("\nStep log hash matches original: ", rep.LogHash[:16], "...")
	} else {
		fmt.Println("\nStep log hash MISMATCH! Original:", rep.LogHash[:16], "...")
		os.Exit(1)
	}
}

// printStoredComparison flags a replay whose final welfare differs from the
// metrics.json written by the original run.
func printStoredComparison(runDir string, rm *metrics.RunMetrics) {
	stored, err := loadStoredMetrics(runDir)
	if err != nil {
		return
	}
	if stored.FinalWelfare != rm.FinalWelfare || stored.Steps != rm.Steps {
		fmt.Printf("\nWarning: stored metrics differ (steps %d, welfare %d)\n", stored.Steps, stored.FinalWelfare)
	}
}

func loadStoredMetrics(runDir string) (*metrics.RunMetrics, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "metrics.json"))
	if err != nil {
		return nil, err
	}
	rm := &metrics.RunMetrics{}
	if err := json.Unmarshal(data, rm); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return rm, nil
}

func cmdRuns(cfg settings, args []string) {
	f, err := parseFlags(cfg, args)
	if err != nil {
		fail("%v", err)
	}
	if f.dbPath == "" {
		fail("--db or TRADESIM_DB required")
	}
	db := openStore(f.dbPath)
	defer db.Close()

	runs, err := db.RecentRuns(f.limit)
	if err != nil {
		fail("list runs: %v", err)
	}
	fmt.Printf("  %-36s %-10s %8s %8s %10s %8s\n", "ID", "Scenario", "Seed", "Steps", "Converged", "Welfare")
	for _, r := range runs {
		fmt.Printf("  %-36s %-10s %8d %8d %10t %8d\n", r.ID, r.Scenario, r.Seed, r.Steps, r.Converged, r.FinalWelfare)
	}
}
