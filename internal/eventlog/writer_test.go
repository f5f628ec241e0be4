package eventlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

func TestWriteThenReadTrajectory(t *testing.T) {
	recs := []domain.StepRecord{
		{
			Step:        1,
			Agent:       0,
			Demanded:    domain.Bundle(0),
			Changed:     domain.BundleOf(0),
			Offers:      domain.Offers{{0: 1}, {0: 0, 1: 30}, {1: 0}},
			Unsatisfied: []int{1, 2},
		},
		{
			Step:        2,
			Agent:       1,
			Demanded:    domain.BundleOf(0, 1),
			Changed:     domain.BundleOf(0, 1),
			Offers:      domain.Offers{{0: 1}, {0: 1, 1: 0}, {1: 0}},
			Unsatisfied: []int{0, 2},
		},
	}

	path := filepath.Join(t.TempDir(), "steps.jsonl")
	w, err := NewWriter(path)
	require.NoError(t, err)
	for i := range recs {
		require.NoError(t, w.Write(&recs[i]))
	}
	assert.Equal(t, uint64(2), w.Count())
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestReaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"step\":1}\nnot json\n"), 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Step)

	_, err = r.Next()
	assert.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Error(t, err)
}
