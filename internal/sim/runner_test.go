package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshitanchan/trading-network-sim/internal/engine"
	"github.com/akshitanchan/trading-network-sim/internal/eventlog"
	"github.com/akshitanchan/trading-network-sim/internal/persistence"
	"github.com/akshitanchan/trading-network-sim/internal/scenario"
)

// TestDeterminism verifies that the same seed and config produce
// identical step logs and metrics across two runs.
func TestDeterminism(t *testing.T) {
	for _, name := range scenario.Names() {
		t.Run(name, func(t *testing.T) {
			seed := int64(12345)

			r1, err := NewRunner(scenario.GetConfig(name, seed), t.TempDir())
			require.NoError(t, err)
			res1, err := r1.Run()
			require.NoError(t, err)

			r2, err := NewRunner(scenario.GetConfig(name, seed), t.TempDir())
			require.NoError(t, err)
			res2, err := r2.Run()
			require.NoError(t, err)

			assert.Equal(t, res1.Steps, res2.Steps)
			assert.Equal(t, res1.LogHash, res2.LogHash)
			assert.Equal(t, res1.Metrics, res2.Metrics)
		})
	}
}

func TestRunWritesArtefacts(t *testing.T) {
	base := t.TempDir()
	r, err := NewRunner(scenario.DefaultPath(7), base)
	require.NoError(t, err)
	res, err := r.Run()
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, "path_seed7", res.RunID)
	assert.Equal(t, []int{0, 1}, res.ActiveTrades)
	assert.Equal(t, int64(10), res.FinalWelfare)

	for _, f := range []string{"config.json", "steps.jsonl", "metrics.json"} {
		_, err := os.Stat(filepath.Join(res.OutputDir, f))
		assert.NoError(t, err, f)
	}
	last, err := os.ReadFile(filepath.Join(base, "last-run"))
	require.NoError(t, err)
	assert.Equal(t, res.OutputDir, string(last))

	steps, err := eventlog.ReadFile(res.LogPath)
	require.NoError(t, err)
	assert.Len(t, steps, int(res.Steps))

	ok, err := engine.FixedPoint(r.Market(), steps[len(steps)-1].Offers)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSingleScenarioConfirmsOffers(t *testing.T) {
	r, err := NewRunner(scenario.DefaultSingle(1), t.TempDir())
	require.NoError(t, err)
	res, err := r.Run()
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, uint64(2), res.Steps)
	assert.Equal(t, int64(5), res.FinalWelfare)
	assert.Equal(t, int64(6), res.Metrics.Prices[0])
}

func TestStepCapIsNotAnError(t *testing.T) {
	cfg := scenario.DefaultPath(3)
	cfg.Offers.Initial = nil
	cfg.MaxSteps = 1
	r, err := NewRunner(cfg, t.TempDir())
	require.NoError(t, err)
	res, err := r.Run()
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, uint64(1), res.Steps)
}

func TestRunPersistsToStore(t *testing.T) {
	db, err := persistence.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	r, err := NewRunner(scenario.DefaultStar(5), t.TempDir(), WithStore(db))
	require.NoError(t, err)
	res, err := r.Run()
	require.NoError(t, err)
	require.NotEmpty(t, res.StoreID)

	run, err := db.LoadRun(res.StoreID)
	require.NoError(t, err)
	assert.Equal(t, "star", run.Scenario)
	assert.Equal(t, res.LogHash, run.LogHash)
	assert.Equal(t, int64(res.Steps), run.Steps)

	stored, err := db.LoadSteps(res.StoreID)
	require.NoError(t, err)
	logged, err := eventlog.ReadFile(res.LogPath)
	require.NoError(t, err)
	assert.Equal(t, logged, stored)
}

func TestReplayReproducesRun(t *testing.T) {
	r, err := NewRunner(scenario.DefaultChain(9), t.TempDir())
	require.NoError(t, err)
	res, err := r.Run()
	require.NoError(t, err)

	rep, err := Replay(res.OutputDir, t.TempDir())
	require.NoError(t, err)
	assert.True(t, rep.Reproduced)
	assert.Equal(t, res.LogHash, rep.LogHash)
	assert.Equal(t, res.Metrics.Steps, rep.Metrics.Steps)
	assert.Equal(t, res.Metrics.FinalWelfare, rep.Metrics.FinalWelfare)
}
