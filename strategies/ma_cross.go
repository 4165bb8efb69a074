// Package strategies holds example evaluators. They are external
// collaborators of the optimizer core: pure scoring functions over a
// dataset and one parameter assignment.
package strategies

import (
	"context"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/backtune/backtune/core"
)

const minStatPoints = 20

// MACross scores a moving-average crossover strategy by the annualized
// Sharpe ratio of its daily returns. Long while the fast average is above
// the slow one, short while below.
//
// Assignments where the metric is undefined (fast >= slow, too little
// data, zero return variance, non-finite ratio) score -Inf and are
// recorded as infeasible by the core.
type MACross struct {
	// FastParam and SlowParam name the period parameters in the space.
	FastParam string
	SlowParam string
	// Annualization scales the per-period Sharpe ratio; defaults to
	// sqrt(252) for daily bars.
	Annualization float64
}

// NewMACross builds the evaluator with the conventional parameter names
// fast_period and slow_period.
func NewMACross() *MACross {
	return &MACross{
		FastParam:     "fast_period",
		SlowParam:     "slow_period",
		Annualization: math.Sqrt(252),
	}
}

// Evaluate implements core.Evaluator. It is stateless and safe for
// concurrent calls.
func (s *MACross) Evaluate(_ context.Context, df *core.Dataframe, a core.Assignment) (float64, error) {
	infeasible := math.Inf(-1)

	fast, err := a.Int(s.FastParam)
	if err != nil {
		return infeasible, nil
	}
	slow, err := a.Int(s.SlowParam)
	if err != nil {
		return infeasible, nil
	}

	// Need extra rows beyond the slow warmup to compute return statistics.
	if fast >= slow || fast < 1 || df.Len() < slow+minStatPoints {
		return infeasible, nil
	}

	closes := df.Close.Values()
	fastMA := talib.Sma(closes, fast)
	slowMA := talib.Sma(closes, slow)

	// The first slow-1 averages are warmup; returns start one bar later
	// since each position is taken on the previous bar's signal.
	start := slow
	returns := make([]float64, 0, len(closes)-start)
	for i := start; i < len(closes); i++ {
		var signal float64
		switch {
		case fastMA[i-1] > slowMA[i-1]:
			signal = 1
		case fastMA[i-1] < slowMA[i-1]:
			signal = -1
		}
		daily := closes[i]/closes[i-1] - 1
		returns = append(returns, signal*daily)
	}

	if len(returns) < minStatPoints {
		return infeasible, nil
	}

	mean := stat.Mean(returns, nil)
	std := stat.StdDev(returns, nil)
	if std == 0 {
		return infeasible, nil
	}

	sharpe := s.Annualization * mean / std
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		return infeasible, nil
	}
	return sharpe, nil
}
