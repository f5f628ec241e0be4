// Package report renders a run's diagnostics as a markdown report and
// ASCII trajectory plots.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akshitanchan/trading-network-sim/internal/metrics"
	"github.com/akshitanchan/trading-network-sim/internal/scenario"
)

// Report generates and writes the run report
type Report struct {
	config  *scenario.Config
	metrics *metrics.RunMetrics
	outDir  string
}

// NewReport creates a report generator
func NewReport(cfg *scenario.Config, rm *metrics.RunMetrics, outDir string) *Report {
	return &Report{
		config:  cfg,
		metrics: rm,
		outDir:  outDir,
	}
}

// Generate writes report.md and plots.txt
func (r *Report) Generate() error {
	reportPath := filepath.Join(r.outDir, "report.md")
	if err := os.WriteFile(reportPath, []byte(r.renderMarkdown()), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	plotPath := filepath.Join(r.outDir, "plots.txt")
	if err := os.WriteFile(plotPath, []byte(r.renderPlots()), 0644); err != nil {
		return fmt.Errorf("write plots: %w", err)
	}

	return nil
}

func (r *Report) renderMarkdown() string {
	var sb strings.Builder
	rm := r.metrics

	sb.WriteString("# Trading Network Report\n\n")
	sb.WriteString(fmt.Sprintf("**Scenario:** %s | **Seed:** %d | **Scheduler:** %s\n\n",
		r.config.Name, r.config.Seed, r.config.Scheduler))

	// Network
	sb.WriteString("## Trades\n\n")
	sb.WriteString("| Trade | Seller | Buyer | Price |\n")
	sb.WriteString("|-------|--------|-------|-------|\n")
	for id, tr := range r.config.Trades {
		price := "inactive"
		if p, ok := rm.Prices[id]; ok {
			price = fmt.Sprintf("%d", p)
		}
		sb.WriteString(fmt.Sprintf("| %d | %d | %d | %s |\n", id, tr.Seller, tr.Buyer, price))
	}
	sb.WriteString("\n")

	sb.WriteString("## Agents\n\n")
	sb.WriteString("| Agent | Valuation | Steps | Revisions | Offer Changes | Final Utility |\n")
	sb.WriteString("|-------|-----------|-------|-----------|---------------|---------------|\n")
	for _, a := range rm.Agents {
		kind := "?"
		if a.Agent < len(r.config.Valuations) {
			kind = r.config.Valuations[a.Agent].Kind.String()
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %d | %d |\n",
			a.Agent, kind, a.Steps, a.Revisions, a.OfferChanges, a.FinalWelfare))
	}
	sb.WriteString("\n")

	sb.WriteString("## Dynamics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Steps | %d |\n", rm.Steps))
	sb.WriteString(fmt.Sprintf("| Converged | %t |\n", rm.Converged))
	sb.WriteString(fmt.Sprintf("| Confirming steps | %d |\n", rm.Confirming))
	sb.WriteString(fmt.Sprintf("| Max unsatisfied | %d |\n", rm.MaxUnsatisfied))
	sb.WriteString(fmt.Sprintf("| Active trades | %d / %d |\n", len(rm.ActiveTrades), len(r.config.Trades)))
	sb.WriteString(fmt.Sprintf("| Initial welfare | %d |\n", rm.InitialWelfare))
	sb.WriteString(fmt.Sprintf("| Final welfare | %d |\n", rm.FinalWelfare))
	if rm.Efficient >= 0 {
		sb.WriteString(fmt.Sprintf("| Efficient welfare | %d |\n", rm.Efficient))
	}
	if rm.HasLyapunov {
		sb.WriteString(fmt.Sprintf("| Final Lyapunov | %d |\n", rm.FinalLyapunov))
	}
	sb.WriteString("\n")

	sb.WriteString("## Analysis\n\n")
	sb.WriteString(r.generateExplanation())

	return sb.String()
}

func (r *Report) generateExplanation() string {
	var sb strings.Builder
	rm := r.metrics

	if !rm.Converged {
		sb.WriteString(fmt.Sprintf("The run stopped at the step cap (%d) with agents still unsatisfied. ", r.config.MaxSteps))
		sb.WriteString("Offers were still moving, so the final prices are not an equilibrium.\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("Best-response dynamics converged after %d steps: ", rm.Steps))
		sb.WriteString("every agent's best response reproduces its committed offers.\n\n")
	}

	if rm.Steps > 0 {
		share := 100 * float64(rm.Confirming) / float64(rm.Steps)
		sb.WriteString(fmt.Sprintf("%.1f%% of steps only confirmed existing offers.\n\n", share))
	}

	if rm.Efficient > 0 {
		eff := 100 * float64(rm.FinalWelfare) / float64(rm.Efficient)
		sb.WriteString(fmt.Sprintf("Final welfare %d reaches %.1f%% of the efficient welfare %d.\n",
			rm.FinalWelfare, eff, rm.Efficient))
	} else if rm.Efficient == 0 {
		sb.WriteString("No set of trades creates value in this network.\n")
	}

	return sb.String()
}

func (r *Report) renderPlots() string {
	var sb strings.Builder
	samples := r.metrics.Samples

	sb.WriteString("=== Welfare by Step ===\n\n")
	sb.WriteString(asciiSeries(samples, func(s metrics.Sample) (float64, bool) {
		return float64(s.Welfare), true
	}, 20))
	sb.WriteString("\n")

	sb.WriteString("=== Lyapunov Potential by Step ===\n\n")
	sb.WriteString(asciiSeries(samples, func(s metrics.Sample) (float64, bool) {
		return float64(s.Lyapunov), s.HasLyapunov
	}, 20))
	sb.WriteString("\n")

	sb.WriteString("=== Unsatisfied Agents by Step ===\n\n")
	sb.WriteString(asciiSeries(samples, func(s metrics.Sample) (float64, bool) {
		return float64(s.Unsatisfied), true
	}, 20))
	sb.WriteString("\n")

	welfare := make([]float64, len(samples))
	for i, s := range samples {
		welfare[i] = float64(s.Welfare)
	}
	sb.WriteString("=== Welfare Distribution (ASCII Histogram) ===\n\n")
	sb.WriteString(asciiHistogram(welfare, 10))
	sb.WriteString("\n")

	sort.Float64s(welfare)
	sb.WriteString("=== Welfare CDF (ASCII) ===\n\n")
	sb.WriteString(asciiCDF(welfare))

	return sb.String()
}

// asciiSeries draws one bar per sampled step, thinning long runs down to
// at most rows bars.
func asciiSeries(samples []metrics.Sample, get func(metrics.Sample) (float64, bool), rows int) string {
	type point struct {
		step uint64
		v    float64
	}
	var pts []point
	for _, s := range samples {
		if v, ok := get(s); ok {
			pts = append(pts, point{s.Step, v})
		}
	}
	if len(pts) == 0 {
		return "  (no data)\n"
	}

	stride := 1
	if len(pts) > rows {
		stride = (len(pts) + rows - 1) / rows
	}
	var picked []point
	for i := 0; i < len(pts); i += stride {
		picked = append(picked, pts[i])
	}
	if last := pts[len(pts)-1]; picked[len(picked)-1].step != last.step {
		picked = append(picked, last)
	}

	minV, maxV := picked[0].v, picked[0].v
	for _, p := range picked {
		minV = math.Min(minV, p.v)
		maxV = math.Max(maxV, p.v)
	}

	var sb strings.Builder
	barMax := 40
	for _, p := range picked {
		barLen := barMax
		if maxV > minV {
			barLen = 1 + int((p.v-minV)/(maxV-minV)*float64(barMax-1))
		}
		bar := strings.Repeat("█", barLen)
		sb.WriteString(fmt.Sprintf("  step %6d | %10.0f | %s\n", p.step, p.v, bar))
	}
	return sb.String()
}

// asciiHistogram draws a simple text histogram
func asciiHistogram(values []float64, bins int) string {
	if len(values) == 0 {
		return "  (no data)\n"
	}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	if minV == maxV {
		return fmt.Sprintf("  all values = %.0f\n", minV)
	}

	binWidth := (maxV - minV) / float64(bins)
	counts := make([]int, bins)
	maxCount := 0

	for _, v := range values {
		idx := int((v - minV) / binWidth)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
		if counts[idx] > maxCount {
			maxCount = counts[idx]
		}
	}

	var sb strings.Builder
	barMax := 40
	for i, c := range counts {
		lo := minV + float64(i)*binWidth
		hi := lo + binWidth
		barLen := 0
		if maxCount > 0 {
			barLen = c * barMax / maxCount
		}
		bar := strings.Repeat("█", barLen)
		sb.WriteString(fmt.Sprintf("  %8.1f to %8.1f | %s (%d)\n", lo, hi, bar, c))
	}
	return sb.String()
}

// asciiCDF draws a simple text CDF
func asciiCDF(sorted []float64) string {
	if len(sorted) == 0 {
		return "  (no data)\n"
	}

	var sb strings.Builder
	steps := 10
	for i := 1; i <= steps; i++ {
		p := float64(i) / float64(steps)
		val := percentile(sorted, p)
		barLen := int(p * 40)
		bar := strings.Repeat("▓", barLen)
		sb.WriteString(fmt.Sprintf("  P%3.0f: %10.1f | %s\n", p*100, val, bar))
	}
	return sb.String()
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// PrintSummary writes a brief summary to stdout
func PrintSummary(cfg *scenario.Config, rm *metrics.RunMetrics) {
	if rm == nil {
		fmt.Println("  No run metrics available.")
		return
	}

	fmt.Printf("  %-25s %12s\n", "Metric", "Value")
	fmt.Printf("  %-25s %12s\n", strings.Repeat("-", 25), strings.Repeat("-", 12))

	printRow := func(label string, v any, format string) {
		fmt.Printf("  %-25s "+format+"\n", label, v)
	}

	printRow("Steps", rm.Steps, "%12d")
	printRow("Converged", rm.Converged, "%12t")
	printRow("Active Trades", fmt.Sprintf("%d/%d", len(rm.ActiveTrades), len(cfg.Trades)), "%12s")
	printRow("Initial Welfare", rm.InitialWelfare, "%12d")
	printRow("Final Welfare", rm.FinalWelfare, "%12d")
	if rm.Efficient >= 0 {
		printRow("Efficient Welfare", rm.Efficient, "%12d")
	}
	if rm.HasLyapunov {
		printRow("Final Lyapunov", rm.FinalLyapunov, "%12d")
	}
	printRow("Max Unsatisfied", rm.MaxUnsatisfied, "%12d")
}
