package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akshitanchan/trading-network-sim/internal/metrics"
	"github.com/akshitanchan/trading-network-sim/internal/scenario"
)

// ScenarioResult bundles a config with its computed metrics
type ScenarioResult struct {
	Config  *scenario.Config
	Metrics *metrics.RunMetrics
	RunDir  string
}

// CrossReport generates a consolidated report comparing runs across scenarios
type CrossReport struct {
	results []ScenarioResult
	outDir  string
}

// NewCrossReport creates a cross-scenario report
func NewCrossReport(results []ScenarioResult, outDir string) *CrossReport {
	return &CrossReport{results: results, outDir: outDir}
}

// Generate writes the consolidated report
func (cr *CrossReport) Generate() error {
	if err := os.MkdirAll(cr.outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	content := cr.renderMarkdown()
	reportPath := filepath.Join(cr.outDir, "cross-scenario-report.md")
	if err := os.WriteFile(reportPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("write cross report: %w", err)
	}

	// Also save structured data
	dataPath := filepath.Join(cr.outDir, "cross-scenario-metrics.json")
	data, _ := json.MarshalIndent(cr.buildSummary(), "", "  ")
	return os.WriteFile(dataPath, data, 0644)
}

type scenarioSummary struct {
	Scenario     string `json:"scenario"`
	Seed         int64  `json:"seed"`
	Agents       int    `json:"agents"`
	Trades       int    `json:"trades"`
	Steps        uint64 `json:"steps"`
	Converged    bool   `json:"converged"`
	ActiveTrades int    `json:"active_trades"`
	FinalWelfare int64  `json:"final_welfare"`
	Efficient    int64  `json:"efficient_welfare"`
}

func (cr *CrossReport) buildSummary() []scenarioSummary {
	var summaries []scenarioSummary
	for _, r := range cr.results {
		summaries = append(summaries, scenarioSummary{
			Scenario:     r.Config.Name,
			Seed:         r.Config.Seed,
			Agents:       r.Config.Agents(),
			Trades:       len(r.Config.Trades),
			Steps:        r.Metrics.Steps,
			Converged:    r.Metrics.Converged,
			ActiveTrades: len(r.Metrics.ActiveTrades),
			FinalWelfare: r.Metrics.FinalWelfare,
			Efficient:    r.Metrics.Efficient,
		})
	}
	return summaries
}

type rowDef struct {
	label string
	get   func(r ScenarioResult) string
}

var crossRows = []rowDef{
	{"Agents", func(r ScenarioResult) string { return fmt.Sprintf("%d", r.Config.Agents()) }},
	{"Trades", func(r ScenarioResult) string { return fmt.Sprintf("%d", len(r.Config.Trades)) }},
	{"Steps", func(r ScenarioResult) string { return fmt.Sprintf("%d", r.Metrics.Steps) }},
	{"Converged", func(r ScenarioResult) string { return fmt.Sprintf("%t", r.Metrics.Converged) }},
	{"Active Trades", func(r ScenarioResult) string { return fmt.Sprintf("%d", len(r.Metrics.ActiveTrades)) }},
	{"Initial Welfare", func(r ScenarioResult) string { return fmt.Sprintf("%d", r.Metrics.InitialWelfare) }},
	{"Final Welfare", func(r ScenarioResult) string { return fmt.Sprintf("%d", r.Metrics.FinalWelfare) }},
	{"Efficient Welfare", func(r ScenarioResult) string {
		if r.Metrics.Efficient < 0 {
			return "N/A"
		}
		return fmt.Sprintf("%d", r.Metrics.Efficient)
	}},
	{"Steps per Agent", func(r ScenarioResult) string {
		return fmt.Sprintf("%.1f", float64(r.Metrics.Steps)/float64(max(r.Config.Agents(), 1)))
	}},
}

func (cr *CrossReport) renderMarkdown() string {
	var sb strings.Builder

	sb.WriteString("# Cross-Scenario Comparison\n\n")
	sb.WriteString("This report consolidates best-response runs over several network shapes.\n\n")

	sb.WriteString("## Summary Table\n\n")
	sb.WriteString("| Metric |")
	for _, r := range cr.results {
		sb.WriteString(fmt.Sprintf(" %s |", r.Config.Name))
	}
	sb.WriteString("\n|--------|")
	for range cr.results {
		sb.WriteString("--------|")
	}
	sb.WriteString("\n")

	for _, row := range crossRows {
		sb.WriteString(fmt.Sprintf("| %s |", row.label))
		for _, r := range cr.results {
			sb.WriteString(" " + row.get(r) + " |")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Cross-Scenario Analysis\n\n")
	sb.WriteString(cr.generateCrossAnalysis())

	return sb.String()
}

func (cr *CrossReport) generateCrossAnalysis() string {
	var sb strings.Builder
	if len(cr.results) == 0 {
		sb.WriteString("No runs to compare.\n")
		return sb.String()
	}

	slowest := cr.results[0]
	var unconverged []string
	for _, r := range cr.results {
		if r.Metrics.Steps > slowest.Metrics.Steps {
			slowest = r
		}
		if !r.Metrics.Converged {
			unconverged = append(unconverged, r.Config.Name)
		}
	}

	sb.WriteString(fmt.Sprintf("The longest run was **%s** with %d steps.\n\n", slowest.Config.Name, slowest.Metrics.Steps))
	if len(unconverged) > 0 {
		sb.WriteString(fmt.Sprintf("Runs stopped at the step cap: %s.\n\n", strings.Join(unconverged, ", ")))
	} else {
		sb.WriteString("Every run reached a state with no unsatisfied agents.\n\n")
	}

	for _, r := range cr.results {
		if r.Metrics.Efficient > 0 && r.Metrics.FinalWelfare < r.Metrics.Efficient {
			sb.WriteString(fmt.Sprintf("- %s ends below efficient welfare (%d of %d).\n",
				r.Config.Name, r.Metrics.FinalWelfare, r.Metrics.Efficient))
		}
	}
	return sb.String()
}

// PrintCrossSummary prints a condensed cross-scenario summary to stdout
func PrintCrossSummary(results []ScenarioResult) {
	fmt.Println("\n=== Cross-Scenario Comparison ===")
	fmt.Println()
	fmt.Printf("  %-20s", "Metric")
	for _, r := range results {
		fmt.Printf(" %12s", r.Config.Name)
	}
	fmt.Println()
	fmt.Printf("  %-20s", strings.Repeat("-", 20))
	for range results {
		fmt.Printf(" %12s", strings.Repeat("-", 12))
	}
	fmt.Println()

	for _, row := range crossRows {
		fmt.Printf("  %-20s", row.label)
		for _, r := range results {
			fmt.Printf(" %12s", row.get(r))
		}
		fmt.Println()
	}
}
