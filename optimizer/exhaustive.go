package optimizer

import (
	"github.com/StudioSol/set"

	"github.com/backtune/backtune/core"
)

// Exhaustive walks the full Cartesian product of a finite space exactly
// once. The run stops when the enumeration is exhausted.
type Exhaustive struct {
	enum    *core.Enumeration
	visited *set.LinkedHashSetString
}

// NewExhaustive builds the engine. Spaces holding a range parameter have no
// finite enumeration and fail with a ConfigurationError.
func NewExhaustive(space *core.Space) (*Exhaustive, error) {
	enum, err := space.Enumerate()
	if err != nil {
		return nil, err
	}
	return &Exhaustive{
		enum:    enum,
		visited: set.NewLinkedHashSetString(),
	}, nil
}

// Name implements core.SearchEngine.
func (e *Exhaustive) Name() string { return string(EngineExhaustive) }

// ProposeBatch returns the next n unvisited combinations. Duplicate
// combinations, possible when a discrete option set repeats a value, are
// skipped so no assignment is ever evaluated twice.
func (e *Exhaustive) ProposeBatch(n int) []core.Assignment {
	var batch []core.Assignment
	for len(batch) < n {
		a, ok := e.enum.Next()
		if !ok {
			break
		}
		key := a.Key()
		if e.visited.InArray(key) {
			continue
		}
		e.visited.Add(key)
		batch = append(batch, a)
	}
	return batch
}

// Observe implements core.SearchEngine. Exhaustive search takes no feedback.
func (e *Exhaustive) Observe(core.EvaluationRecord) {}
