package core

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluationRecord_JSONKeepsNonFiniteFitness(t *testing.T) {
	rec := EvaluationRecord{
		Assignment: Assignment{"fast": 9},
		Fitness:    math.Inf(-1),
		Diagnostic: "zero return variance",
		At:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back EvaluationRecord
	require.NoError(t, json.Unmarshal(data, &back))
	require.True(t, math.IsInf(back.Fitness, -1))
	require.False(t, back.Feasible)
	require.Equal(t, rec.Diagnostic, back.Diagnostic)
	require.True(t, rec.At.Equal(back.At))
}

func TestOptimizationResult_BestParameters(t *testing.T) {
	empty := &OptimizationResult{}
	require.Nil(t, empty.BestParameters())

	result := &OptimizationResult{
		Best: &EvaluationRecord{Assignment: Assignment{"fast": 9}, Fitness: 1.5, Feasible: true},
	}
	require.Equal(t, Assignment{"fast": 9}, result.BestParameters())
}
