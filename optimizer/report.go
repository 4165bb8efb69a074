package optimizer

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"

	"github.com/backtune/backtune/core"
)

// PrintResults renders the top N feasible candidates as a table. Ranking is
// stable: among equal fitness the earlier-completed candidate ranks first.
func PrintResults(w io.Writer, history []core.EvaluationRecord, topN int) {
	feasible := make([]core.EvaluationRecord, 0, len(history))
	for _, rec := range history {
		if rec.Feasible {
			feasible = append(feasible, rec)
		}
	}
	if len(feasible) == 0 {
		fmt.Fprintln(w, "no feasible candidate found")
		return
	}
	sort.SliceStable(feasible, func(i, j int) bool {
		return feasible[i].Fitness > feasible[j].Fitness
	})
	if topN > 0 && topN < len(feasible) {
		feasible = feasible[:topN]
	}

	params := parameterColumns(feasible)

	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	header := append([]string{"Rank"}, params...)
	header = append(header, "Fitness")
	table.SetHeader(header)

	for i, rec := range feasible {
		row := []string{strconv.Itoa(i + 1)}
		for _, name := range params {
			row = append(row, formatValue(rec.Assignment[name]))
		}
		row = append(row, fmt.Sprintf("%.4f", rec.Fitness))
		table.Append(row)
	}
	table.Render()
	fmt.Fprint(w, buffer.String())
}

// FitnessHistogram renders the distribution of feasible fitness values as a
// terminal histogram.
func FitnessHistogram(w io.Writer, history []core.EvaluationRecord) {
	values := make([]float64, 0, len(history))
	for _, rec := range history {
		if rec.Feasible && !math.IsInf(rec.Fitness, 0) && !math.IsNaN(rec.Fitness) {
			values = append(values, rec.Fitness)
		}
	}
	if len(values) == 0 {
		return
	}

	hist := histogram.Hist(9, values)
	_ = histogram.Fprint(w, hist, histogram.Linear(40))
}

// Summary prints the top candidates and the fitness distribution of the
// run so far to stdout.
func (o *Optimizer) Summary() {
	history := o.History()
	PrintResults(os.Stdout, history, 5)
	fmt.Println("------ FITNESS DISTRIBUTION ------")
	FitnessHistogram(os.Stdout, history)

	if best := o.Best(); best != nil {
		fmt.Printf("best: %s -> %.6f\n", best.Assignment.Key(), best.Fitness)
	} else {
		fmt.Println(core.ErrNoFeasibleCandidate)
	}
}
