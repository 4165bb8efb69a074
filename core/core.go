package core

import (
	"context"
)

// Evaluator scores one concrete parameter assignment against a dataset.
// Implementations must be safe for concurrent calls: the run coordinator may
// dispatch several evaluations in parallel against the same shared dataset.
// An assignment that cannot be scored (insufficient data, degenerate metric,
// structurally invalid combination) should return math.Inf(-1) or an error;
// both are downgraded to an infeasible record, never a fatal failure.
type Evaluator interface {
	Evaluate(ctx context.Context, dataset *Dataframe, assignment Assignment) (float64, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, dataset *Dataframe, assignment Assignment) (float64, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, dataset *Dataframe, assignment Assignment) (float64, error) {
	return f(ctx, dataset, assignment)
}

// SearchEngine drives exploration of a parameter space. Engines own their
// working state for the duration of a single run and are not safe for
// concurrent use; the coordinator serializes ProposeBatch and Observe.
type SearchEngine interface {
	// Name identifies the engine in logs and persisted results.
	Name() string
	// ProposeBatch returns up to n candidate assignments. An empty batch
	// means the engine is exhausted or has converged and the run must stop.
	ProposeBatch(n int) []Assignment
	// Observe feeds a completed evaluation back to the engine.
	Observe(record EvaluationRecord)
}

// RunStorage persists evaluation records and final results of optimization
// runs, keyed by a caller-chosen run identifier.
type RunStorage interface {
	SaveRecord(ctx context.Context, runID string, seq int, record EvaluationRecord) error
	SaveResult(ctx context.Context, runID string, result *OptimizationResult) error
	LoadResult(ctx context.Context, runID string) (*OptimizationResult, error)
	Close() error
}
