package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/backtune/backtune/core"
)

func sampleRun() (string, []core.EvaluationRecord, *core.OptimizationResult) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := []core.EvaluationRecord{
		{
			Assignment: core.Assignment{"fast_period": 9, "slow_period": 21},
			Fitness:    1.8,
			Feasible:   true,
			At:         at,
		},
		{
			Assignment: core.Assignment{"fast_period": 30, "slow_period": 10},
			Fitness:    math.Inf(-1),
			Diagnostic: "inverted periods",
			At:         at.Add(time.Second),
		},
	}
	best := history[0]
	result := &core.OptimizationResult{
		SchemaVersion: core.ResultSchemaVersion,
		Engine:        "random",
		Best:          &best,
		Evaluations:   2,
		Elapsed:       3 * time.Second,
	}
	return "run-42", history, result
}

func TestBuntStorage_RoundTrip(t *testing.T) {
	store, err := NewBuntFromMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	runID, history, result := sampleRun()

	for seq, rec := range history {
		require.NoError(t, store.SaveRecord(ctx, runID, seq, rec))
	}
	require.NoError(t, store.SaveResult(ctx, runID, result))

	loaded, err := store.LoadResult(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, result.Engine, loaded.Engine)
	require.Equal(t, result.Evaluations, loaded.Evaluations)
	require.NotNil(t, loaded.Best)
	require.Equal(t, 1.8, loaded.Best.Fitness)

	require.Len(t, loaded.History, 2)
	require.True(t, loaded.History[0].Feasible)
	require.True(t, math.IsInf(loaded.History[1].Fitness, -1))
	require.Equal(t, "inverted periods", loaded.History[1].Diagnostic)
}

func TestBuntStorage_UnknownRun(t *testing.T) {
	store, err := NewBuntFromMemory()
	require.NoError(t, err)
	defer store.Close()

	_, err = store.LoadResult(context.Background(), "never-ran")
	require.ErrorContains(t, err, "not found")
}

func TestBuntStorage_RunsAreIsolated(t *testing.T) {
	store, err := NewBuntFromMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	runID, history, result := sampleRun()
	for seq, rec := range history {
		require.NoError(t, store.SaveRecord(ctx, runID, seq, rec))
	}
	require.NoError(t, store.SaveResult(ctx, runID, result))

	require.NoError(t, store.SaveRecord(ctx, "other", 0, history[0]))
	require.NoError(t, store.SaveResult(ctx, "other", result))

	loaded, err := store.LoadResult(ctx, "other")
	require.NoError(t, err)
	require.Len(t, loaded.History, 1)
}
