package optimizer

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/backtune/backtune/core"
)

func persistedResult(t *testing.T) (*core.Space, *core.OptimizationResult) {
	t.Helper()
	space, err := core.NewSpace(
		core.ParameterSpec{Name: "fast", Kind: core.Range, Min: 1, Max: 50, Step: 1, Integer: true},
		core.ParameterSpec{Name: "threshold", Kind: core.Range, Min: 0, Max: 1},
	)
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	history := []core.EvaluationRecord{
		{
			Assignment: core.Assignment{"fast": 9, "threshold": 0.5},
			Fitness:    1.25,
			Feasible:   true,
			At:         at,
		},
		{
			Assignment: core.Assignment{"fast": 40, "threshold": 0.1},
			Fitness:    math.Inf(-1),
			Diagnostic: "zero return variance",
			At:         at.Add(time.Second),
		},
		{
			Assignment: core.Assignment{"fast": 12, "threshold": 0.75},
			Fitness:    2.5,
			Feasible:   true,
			At:         at.Add(2 * time.Second),
		},
	}
	best := history[2]
	return space, &core.OptimizationResult{
		SchemaVersion: core.ResultSchemaVersion,
		Engine:        string(EngineRandom),
		Best:          &best,
		History:       history,
		Evaluations:   3,
		Elapsed:       1500 * time.Millisecond,
	}
}

func TestWriteResult_LoadResultRoundTrip(t *testing.T) {
	space, result := persistedResult(t)
	dir := t.TempDir()

	require.NoError(t, WriteResult(result, dir))
	for _, name := range []string{HistoryFileName, BestFileName} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
	}

	loaded, err := LoadResult(dir, space)
	require.NoError(t, err)

	require.Equal(t, result.SchemaVersion, loaded.SchemaVersion)
	require.Equal(t, result.Engine, loaded.Engine)
	require.Equal(t, result.Evaluations, loaded.Evaluations)
	require.Equal(t, result.Elapsed, loaded.Elapsed)

	require.NotNil(t, loaded.Best)
	require.Equal(t, result.Best.Fitness, loaded.Best.Fitness)
	// The space restores canonical value types lost by the text formats.
	require.Equal(t, 12, loaded.Best.Assignment["fast"])
	require.Equal(t, 0.75, loaded.Best.Assignment["threshold"])

	require.Len(t, loaded.History, len(result.History))
	for i, rec := range loaded.History {
		want := result.History[i]
		require.Equal(t, want.Assignment, rec.Assignment, "row %d", i)
		require.Equal(t, want.Feasible, rec.Feasible, "row %d", i)
		require.Equal(t, want.Diagnostic, rec.Diagnostic, "row %d", i)
		require.True(t, want.At.Equal(rec.At), "row %d", i)
		if math.IsInf(want.Fitness, -1) {
			require.True(t, math.IsInf(rec.Fitness, -1), "row %d", i)
		} else {
			require.Equal(t, want.Fitness, rec.Fitness, "row %d", i)
		}
	}
}

func TestLoadResult_WithoutSpaceKeepsRawStrings(t *testing.T) {
	_, result := persistedResult(t)
	dir := t.TempDir()
	require.NoError(t, WriteResult(result, dir))

	loaded, err := LoadResult(dir, nil)
	require.NoError(t, err)
	require.Len(t, loaded.History, 3)
	require.Equal(t, "9", loaded.History[0].Assignment["fast"])
}

func TestLoadResult_MissingArtifacts(t *testing.T) {
	_, err := LoadResult(t.TempDir(), nil)
	var pErr *core.PersistenceError
	require.ErrorAs(t, err, &pErr)
}

func TestWriteResult_EmptyHistoryStillWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	result := &core.OptimizationResult{
		SchemaVersion: core.ResultSchemaVersion,
		Engine:        string(EngineExhaustive),
	}
	require.NoError(t, WriteResult(result, dir))

	loaded, err := LoadResult(dir, nil)
	require.NoError(t, err)
	require.Nil(t, loaded.Best)
	require.Empty(t, loaded.History)
}
