package optimizer

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/backtune/backtune/core"
)

// tournamentSize is the number of contenders per parent selection.
const tournamentSize = 3

// Evolution maintains a working population of assignments and perturbs top
// performers across rounds. It is the engine of choice for range parameters,
// where no finite enumeration exists. The run ends on budget exhaustion or
// when the best fitness stops improving (early stopping).
type Evolution struct {
	space *core.Space
	opts  EvolutionOptions
	stop  EarlyStopping
	rng   *rand.Rand

	slate     []core.Assignment
	cursor    int
	observed  []core.EvaluationRecord
	bestTrack []float64
	bestSoFar float64
	stale     int
	converged bool
}

// NewEvolution builds the engine. See EvolutionOptions and EarlyStopping
// for the tunables.
func NewEvolution(space *core.Space, opts EvolutionOptions, stop EarlyStopping, seed int64) (*Evolution, error) {
	if opts.Population <= 0 {
		return nil, core.ConfigError("evolution.population", "must be positive, got %d", opts.Population)
	}
	if opts.Elite < 0 || opts.Elite >= opts.Population {
		return nil, core.ConfigError("evolution.elite", "must be in [0, population), got %d", opts.Elite)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Evolution{
		space:     space,
		opts:      opts,
		stop:      stop,
		rng:       rand.New(rand.NewSource(seed)),
		bestSoFar: math.Inf(-1),
	}, nil
}

// Name implements core.SearchEngine.
func (e *Evolution) Name() string { return string(EngineEvolution) }

// ProposeBatch hands out the next slice of the current round's population.
// An empty batch means the engine has converged.
func (e *Evolution) ProposeBatch(n int) []core.Assignment {
	if e.converged {
		return nil
	}
	if e.slate == nil {
		e.slate = make([]core.Assignment, e.opts.Population)
		for i := range e.slate {
			e.slate[i] = e.space.Sample(e.rng)
		}
	}

	remaining := len(e.slate) - e.cursor
	if remaining == 0 {
		return nil
	}
	if n > remaining {
		n = remaining
	}
	batch := e.slate[e.cursor : e.cursor+n]
	e.cursor += n
	return batch
}

// Observe collects the round's results; once the whole slate is scored the
// next generation is bred.
func (e *Evolution) Observe(rec core.EvaluationRecord) {
	if e.converged {
		return
	}
	e.observed = append(e.observed, rec)
	if len(e.observed) >= len(e.slate) {
		e.endRound()
	}
}

func (e *Evolution) endRound() {
	for _, rec := range e.observed {
		if rec.Feasible && rec.Fitness > e.bestSoFar {
			e.bestSoFar = rec.Fitness
		}
	}
	e.bestTrack = append(e.bestTrack, e.bestSoFar)

	if e.checkEarlyStop() {
		e.converged = true
		return
	}

	e.slate = e.breed()
	e.cursor = 0
	e.observed = e.observed[:0]
}

// checkEarlyStop reports whether the mean per-round improvement across the
// sliding window has stayed at or below the tolerance for the configured
// number of consecutive rounds.
func (e *Evolution) checkEarlyStop() bool {
	w := e.stop.Window
	if w <= 0 || len(e.bestTrack) <= w {
		return false
	}
	window := e.bestTrack[len(e.bestTrack)-w-1:]
	deltas := make([]float64, w)
	for i := 0; i < w; i++ {
		deltas[i] = window[i+1] - window[i]
	}

	improvement := stat.Mean(deltas, nil)
	if math.IsNaN(improvement) || improvement <= e.stop.Tolerance {
		e.stale++
	} else {
		e.stale = 0
	}
	return e.stale >= e.stop.Rounds
}

// breed builds the next generation: elite survivors carried over unchanged,
// the rest bred by tournament selection and per-parameter mutation.
func (e *Evolution) breed() []core.Assignment {
	ranked := make([]core.EvaluationRecord, 0, len(e.observed))
	for _, rec := range e.observed {
		if rec.Feasible {
			ranked = append(ranked, rec)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})

	next := make([]core.Assignment, 0, e.opts.Population)
	for i := 0; i < e.opts.Elite && i < len(ranked); i++ {
		next = append(next, ranked[i].Assignment.Clone())
	}
	for len(next) < e.opts.Population {
		if len(ranked) == 0 {
			next = append(next, e.space.Sample(e.rng))
			continue
		}
		parent := e.tournament(ranked)
		next = append(next, e.mutate(parent))
	}
	return next
}

func (e *Evolution) tournament(ranked []core.EvaluationRecord) core.Assignment {
	best := -1
	for i := 0; i < tournamentSize; i++ {
		c := e.rng.Intn(len(ranked))
		if best == -1 || c < best {
			best = c
		}
	}
	return ranked[best].Assignment
}

// mutate perturbs each parameter with the configured probability, keeping
// every value inside its declared domain.
func (e *Evolution) mutate(parent core.Assignment) core.Assignment {
	child := parent.Clone()
	for _, spec := range e.space.Parameters() {
		if e.rng.Float64() >= e.opts.MutationRate {
			continue
		}
		child[spec.Name] = e.perturb(spec, child[spec.Name])
	}
	return child
}

func (e *Evolution) perturb(spec core.ParameterSpec, current any) any {
	switch spec.Kind {
	case core.Range:
		cur, err := core.Assignment{spec.Name: current}.Float(spec.Name)
		if err != nil {
			return current
		}
		sigma := (spec.Max - spec.Min) / 10
		v := cur + e.rng.NormFloat64()*sigma
		if spec.Step > 0 {
			v = spec.Min + math.Round((v-spec.Min)/spec.Step)*spec.Step
		}
		v = math.Max(spec.Min, math.Min(spec.Max, v))
		if spec.Integer {
			return int(math.Round(v))
		}
		return v
	case core.Discrete:
		return spec.Options[e.rng.Intn(len(spec.Options))]
	default:
		return current
	}
}
