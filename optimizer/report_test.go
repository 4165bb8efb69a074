package optimizer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backtune/backtune/core"
)

func TestPrintResults_RanksByFitness(t *testing.T) {
	history := []core.EvaluationRecord{
		{Assignment: core.Assignment{"fast": 9}, Fitness: 1.0, Feasible: true},
		{Assignment: core.Assignment{"fast": 14}, Fitness: 2.0, Feasible: true},
		{Assignment: core.Assignment{"fast": 21}, Fitness: -1.0, Feasible: true},
	}

	var buf bytes.Buffer
	PrintResults(&buf, history, 2)
	out := buf.String()

	require.Contains(t, out, "2.0000")
	require.Contains(t, out, "1.0000")
	require.NotContains(t, out, "-1.0000")
}

func TestPrintResults_NothingFeasible(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, []core.EvaluationRecord{{Assignment: core.Assignment{"fast": 9}}}, 5)
	require.Contains(t, buf.String(), "no feasible candidate")
}
