// Package optimizer implements the parameter-search core: interchangeable
// search engines, the result tracker, the run coordinator and result
// persistence.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/backtune/backtune/core"
)

// Optimizer coordinates one optimization run: it drives the engine's
// propose/observe loop, dispatches candidates to the evaluator, and owns the
// result tracker. Construct a fresh Optimizer per run; engine state is never
// reused.
//
// Under parallel dispatch the history order is completion order and is not
// deterministic across runs; best-candidate selection is deterministic in
// the set of completed evaluations regardless. Run with Parallelism <= 1
// for a fully reproducible history.
type Optimizer struct {
	cfg       *Config
	engine    core.SearchEngine
	tracker   *Tracker
	dataset   *core.Dataframe
	evaluator core.Evaluator
}

// New validates the configuration, constructs the configured engine, and
// returns an Optimizer ready to run. All configuration failures surface
// here, before any evaluation.
func New(cfg *Config, dataset *core.Dataframe, evaluator core.Evaluator) (*Optimizer, error) {
	if cfg == nil {
		return nil, core.ConfigError("config", "cannot be nil")
	}
	if evaluator == nil {
		return nil, core.ConfigError("evaluator", "cannot be nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	return &Optimizer{
		cfg:       cfg,
		engine:    engine,
		tracker:   NewTracker(),
		dataset:   dataset,
		evaluator: evaluator,
	}, nil
}

func buildEngine(cfg *Config) (core.SearchEngine, error) {
	switch cfg.Engine {
	case EngineExhaustive:
		return NewExhaustive(cfg.Space)
	case EngineRandom:
		return NewRandomSearch(cfg.Space, cfg.Budget, cfg.Seed)
	case EngineEvolution:
		return NewEvolution(cfg.Space, cfg.Evolution, cfg.EarlyStopping, cfg.Seed)
	}
	return nil, core.ConfigError("engine", "unknown engine %q", cfg.Engine)
}

// Run executes the search until a stop condition fires: budget reached,
// wall-clock timeout, engine exhaustion, or early stopping. Cancellation is
// cooperative and checked between batches. The returned result is always
// complete and in memory; a persistence failure is reported alongside it,
// never instead of it.
func (o *Optimizer) Run(ctx context.Context) (*core.OptimizationResult, error) {
	start := time.Now()
	var deadline time.Time
	if o.cfg.Timeout > 0 {
		deadline = start.Add(o.cfg.Timeout)
	}

	var bar *progressbar.ProgressBar
	if o.cfg.Progress && o.cfg.Budget > 0 {
		bar = progressbar.Default(int64(o.cfg.Budget))
	}

	o.logf("starting %s search", o.engine.Name())

	evaluated := 0
	cancelled := false

	for {
		if ctx.Err() != nil {
			cancelled = true
			o.logf("run cancelled after %d evaluations", evaluated)
			break
		}
		if o.cfg.Budget > 0 && evaluated >= o.cfg.Budget {
			o.logf("evaluation budget of %d reached", o.cfg.Budget)
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			o.logf("wall-clock timeout of %s reached", o.cfg.Timeout)
			break
		}

		n := o.cfg.BatchSize
		if o.cfg.Budget > 0 && o.cfg.Budget-evaluated < n {
			n = o.cfg.Budget - evaluated
		}
		batch := o.engine.ProposeBatch(n)
		if len(batch) == 0 {
			o.logf("%s engine finished after %d evaluations", o.engine.Name(), evaluated)
			break
		}

		before := o.tracker.Len()
		o.dispatch(ctx, batch)
		completed := o.tracker.Since(before)
		for _, rec := range completed {
			o.engine.Observe(rec)
		}
		o.saveRecords(ctx, before, completed)

		evaluated += len(completed)
		if bar != nil {
			_ = bar.Add(len(completed))
		}
	}

	result := &core.OptimizationResult{
		SchemaVersion: core.ResultSchemaVersion,
		Engine:        o.engine.Name(),
		Best:          o.tracker.Best(),
		History:       o.tracker.History(),
		Evaluations:   evaluated,
		Elapsed:       time.Since(start),
	}

	if result.Best == nil {
		o.logf("run finished: %s", core.ErrNoFeasibleCandidate)
	} else {
		o.logf("run finished: best fitness %.6f from %s", result.Best.Fitness, result.Best.Assignment.Key())
	}

	if err := o.persist(ctx, result); err != nil {
		return result, err
	}
	if cancelled {
		return result, ctx.Err()
	}
	return result, nil
}

// dispatch scores one batch, sequentially or through a bounded worker pool.
func (o *Optimizer) dispatch(ctx context.Context, batch []core.Assignment) {
	if o.cfg.Parallelism <= 1 {
		for _, a := range batch {
			o.tracker.Record(o.evaluate(ctx, a))
		}
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, o.cfg.Parallelism)
	for _, a := range batch {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(assignment core.Assignment) {
			defer wg.Done()
			defer func() { <-semaphore }()
			o.tracker.Record(o.evaluate(ctx, assignment))
		}(a)
	}
	wg.Wait()
}

// evaluate scores one assignment behind a failure boundary: a panicking,
// erroring, or timed-out evaluator produces an infeasible record with the
// cause in the diagnostic field, never a fatal error.
func (o *Optimizer) evaluate(ctx context.Context, a core.Assignment) core.EvaluationRecord {
	ectx := ctx
	if o.cfg.EvalTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, o.cfg.EvalTimeout)
		defer cancel()
	}

	type outcome struct {
		fitness float64
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &core.EvaluationFault{Cause: fmt.Sprintf("evaluator panic: %v", r)}}
			}
		}()
		fitness, err := o.evaluator.Evaluate(ectx, o.dataset, a)
		done <- outcome{fitness: fitness, err: err}
	}()

	rec := core.EvaluationRecord{Assignment: a}
	select {
	case <-ectx.Done():
		rec.Fitness = math.Inf(-1)
		if errors.Is(ectx.Err(), context.DeadlineExceeded) {
			rec.Diagnostic = "timeout"
		} else {
			rec.Diagnostic = "cancelled"
		}
	case out := <-done:
		switch {
		case out.err != nil:
			rec.Fitness = math.Inf(-1)
			rec.Diagnostic = out.err.Error()
		case math.IsInf(out.fitness, 0) || math.IsNaN(out.fitness):
			rec.Fitness = out.fitness
			rec.Diagnostic = "non-finite fitness"
		default:
			rec.Fitness = out.fitness
			rec.Feasible = true
		}
	}
	rec.At = time.Now()
	return rec
}

func (o *Optimizer) saveRecords(ctx context.Context, offset int, records []core.EvaluationRecord) {
	if o.cfg.Storage == nil {
		return
	}
	for i, rec := range records {
		if err := o.cfg.Storage.SaveRecord(ctx, o.cfg.RunID, offset+i, rec); err != nil {
			o.logf("storage: save record %d failed: %v", offset+i, err)
		}
	}
}

func (o *Optimizer) persist(ctx context.Context, result *core.OptimizationResult) error {
	if o.cfg.Storage != nil {
		if err := o.cfg.Storage.SaveResult(ctx, o.cfg.RunID, result); err != nil {
			return err
		}
	}
	if o.cfg.OutputDir != "" {
		if err := WriteResult(result, o.cfg.OutputDir); err != nil {
			return err
		}
		o.logf("results written to %s", o.cfg.OutputDir)
	}
	return nil
}

// BestParameters returns the best assignment seen so far, usable mid-run
// for progress inspection. Nil means no feasible candidate yet.
func (o *Optimizer) BestParameters() core.Assignment {
	return o.tracker.BestParameters()
}

// Best returns a copy of the best feasible record so far.
func (o *Optimizer) Best() *core.EvaluationRecord {
	return o.tracker.Best()
}

// History returns the evaluation history so far in completion order.
func (o *Optimizer) History() []core.EvaluationRecord {
	return o.tracker.History()
}

func (o *Optimizer) logf(format string, args ...any) {
	if o.cfg.Logger != nil {
		o.cfg.Logger.Infof(format, args...)
	}
}
