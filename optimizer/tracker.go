package optimizer

import (
	"math"
	"sync"

	"github.com/backtune/backtune/core"
)

// Tracker maintains the best-seen candidate and the full evaluation history.
// All mutation goes through Record under a single lock, so history order is
// completion order even when evaluations finish out of dispatch order, and
// best selection is deterministic in that order: a new record wins only on
// strictly greater feasible fitness, so ties keep the earlier candidate.
type Tracker struct {
	mu      sync.Mutex
	best    *core.EvaluationRecord
	history []core.EvaluationRecord
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Record appends the record to the history unconditionally and updates the
// best candidate when the record is feasible and strictly better.
func (t *Tracker) Record(rec core.EvaluationRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = append(t.history, rec)
	if !rec.Feasible || math.IsInf(rec.Fitness, 0) || math.IsNaN(rec.Fitness) {
		return
	}
	if t.best == nil || rec.Fitness > t.best.Fitness {
		best := rec
		t.best = &best
	}
}

// Best returns a copy of the best feasible record, nil when every
// evaluation so far was infeasible.
func (t *Tracker) Best() *core.EvaluationRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.best == nil {
		return nil
	}
	best := *t.best
	return &best
}

// BestParameters returns the winning assignment, nil when there is none.
func (t *Tracker) BestParameters() core.Assignment {
	if best := t.Best(); best != nil {
		return best.Assignment
	}
	return nil
}

// History returns a copy of the evaluation history in completion order.
func (t *Tracker) History() []core.EvaluationRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := make([]core.EvaluationRecord, len(t.history))
	copy(history, t.history)
	return history
}

// Len returns the number of recorded evaluations.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}

// Since returns a copy of the history from the given offset, used by the
// coordinator to feed a completed round back to the engine.
func (t *Tracker) Since(offset int) []core.EvaluationRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	if offset >= len(t.history) {
		return nil
	}
	tail := make([]core.EvaluationRecord, len(t.history)-offset)
	copy(tail, t.history[offset:])
	return tail
}
