// Package backtune is a parameter-search engine for trading strategies. It
// tunes the numeric parameters of a strategy against historical price data
// by repeatedly invoking a pluggable evaluator and tracking the best-scoring
// parameter set. See the optimizer package for the search engines and run
// coordinator, and the strategies package for example evaluators.
package backtune

import (
	"github.com/backtune/backtune/core"
)

// DefaultLog is the process-wide logger, configured from environment
// variables at startup (see init.go).
var DefaultLog core.Logger
