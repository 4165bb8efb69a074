package optimizer

import (
	"math/rand"
	"time"

	"github.com/backtune/backtune/core"
)

// RandomSearch draws independent uniform samples from the space up to the
// configured evaluation budget.
type RandomSearch struct {
	space  *core.Space
	budget int
	drawn  int
	rng    *rand.Rand
}

// NewRandomSearch builds the engine. A zero seed seeds from the clock; any
// other value makes the draw sequence reproducible.
func NewRandomSearch(space *core.Space, budget int, seed int64) (*RandomSearch, error) {
	if budget <= 0 {
		return nil, core.ConfigError("budget", "random search requires a positive budget, got %d", budget)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSearch{
		space:  space,
		budget: budget,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// Name implements core.SearchEngine.
func (r *RandomSearch) Name() string { return string(EngineRandom) }

// ProposeBatch draws up to n samples, stopping at the budget.
func (r *RandomSearch) ProposeBatch(n int) []core.Assignment {
	if remaining := r.budget - r.drawn; remaining < n {
		n = remaining
	}
	if n <= 0 {
		return nil
	}

	batch := make([]core.Assignment, n)
	for i := range batch {
		batch[i] = r.space.Sample(r.rng)
	}
	r.drawn += n
	return batch
}

// Observe implements core.SearchEngine. Random search takes no feedback.
func (r *RandomSearch) Observe(core.EvaluationRecord) {}
