package optimizer

import (
	"time"

	"github.com/spf13/viper"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/backtune/backtune/core"
)

// EngineName selects a search strategy.
type EngineName string

const (
	// EngineExhaustive walks the full Cartesian product once.
	EngineExhaustive EngineName = "exhaustive"
	// EngineRandom draws independent samples up to the budget.
	EngineRandom EngineName = "random"
	// EngineEvolution refines a population of assignments across rounds.
	EngineEvolution EngineName = "evolution"
)

// EarlyStopping stops an evolution run when the improvement of the best
// fitness over a sliding window stays at or below Tolerance for Rounds
// consecutive rounds. A zero Window disables it.
type EarlyStopping struct {
	Tolerance float64
	Window    int
	Rounds    int
}

// EvolutionOptions tunes the evolution engine.
type EvolutionOptions struct {
	Population   int
	Elite        int
	MutationRate float64
}

// Config holds everything needed to coordinate one optimization run.
type Config struct {
	// Space declares the tunable parameters.
	Space *core.Space
	// Engine selects the search strategy.
	Engine EngineName
	// Budget caps the number of evaluations. Zero means unlimited, which
	// is only valid for the exhaustive engine.
	Budget int
	// BatchSize is the number of candidates proposed per round.
	BatchSize int
	// Parallelism is the number of concurrent evaluations per batch.
	Parallelism int
	// Seed makes sampling reproducible. Zero seeds from the clock.
	Seed int64
	// Timeout bounds the wall-clock duration of the whole run.
	Timeout time.Duration
	// EvalTimeout bounds a single evaluator call; a timed-out call is
	// recorded as infeasible, never left pending.
	EvalTimeout time.Duration
	// EarlyStopping configures evolution convergence detection.
	EarlyStopping EarlyStopping
	// Evolution tunes the evolution engine.
	Evolution EvolutionOptions
	// OutputDir is where history and best-result artifacts are written.
	// Empty disables artifact writing.
	OutputDir string
	// RunID keys records in the optional RunStorage backend.
	RunID string
	// Storage receives records and the final result as the run progresses.
	Storage core.RunStorage
	// Logger receives run progress. Nil disables logging.
	Logger core.Logger
	// Progress renders a terminal progress bar over the budget.
	Progress bool
}

// NewConfig creates a configuration with usable defaults.
func NewConfig() *Config {
	return &Config{
		Engine:      EngineRandom,
		Budget:      100,
		BatchSize:   16,
		Parallelism: 1,
		Evolution: EvolutionOptions{
			Population:   20,
			Elite:        2,
			MutationRate: 0.2,
		},
		EarlyStopping: EarlyStopping{
			Tolerance: 1e-6,
			Window:    5,
			Rounds:    3,
		},
	}
}

// WithSpace sets the parameter space.
func (c *Config) WithSpace(space *core.Space) *Config {
	c.Space = space
	return c
}

// WithEngine selects the search strategy.
func (c *Config) WithEngine(engine EngineName) *Config {
	c.Engine = engine
	return c
}

// WithBudget caps the number of evaluations.
func (c *Config) WithBudget(budget int) *Config {
	c.Budget = budget
	return c
}

// WithBatchSize sets the number of candidates proposed per round.
func (c *Config) WithBatchSize(n int) *Config {
	c.BatchSize = n
	return c
}

// WithParallelism sets the number of concurrent evaluations.
func (c *Config) WithParallelism(n int) *Config {
	c.Parallelism = n
	return c
}

// WithSeed makes sampling reproducible.
func (c *Config) WithSeed(seed int64) *Config {
	c.Seed = seed
	return c
}

// WithTimeout bounds the wall-clock duration of the run.
func (c *Config) WithTimeout(d time.Duration) *Config {
	c.Timeout = d
	return c
}

// WithEvalTimeout bounds a single evaluator call.
func (c *Config) WithEvalTimeout(d time.Duration) *Config {
	c.EvalTimeout = d
	return c
}

// WithEarlyStopping configures evolution convergence detection.
func (c *Config) WithEarlyStopping(tolerance float64, window, rounds int) *Config {
	c.EarlyStopping = EarlyStopping{Tolerance: tolerance, Window: window, Rounds: rounds}
	return c
}

// WithEvolution tunes the evolution engine.
func (c *Config) WithEvolution(population, elite int, mutationRate float64) *Config {
	c.Evolution = EvolutionOptions{Population: population, Elite: elite, MutationRate: mutationRate}
	return c
}

// WithOutputDir sets the artifact output location.
func (c *Config) WithOutputDir(dir string) *Config {
	c.OutputDir = dir
	return c
}

// WithStorage attaches a run storage backend.
func (c *Config) WithStorage(runID string, storage core.RunStorage) *Config {
	c.RunID = runID
	c.Storage = storage
	return c
}

// WithLogger sets the run logger.
func (c *Config) WithLogger(log core.Logger) *Config {
	c.Logger = log
	return c
}

// WithProgress toggles the terminal progress bar.
func (c *Config) WithProgress(enabled bool) *Config {
	c.Progress = enabled
	return c
}

func (c *Config) validate() error {
	if c.Space == nil {
		return core.ConfigError("space", "a parameter space is required")
	}
	if c.Budget < 0 {
		return core.ConfigError("budget", "must not be negative, got %d", c.Budget)
	}
	if c.Budget == 0 && c.Engine != EngineExhaustive {
		return core.ConfigError("budget", "a positive budget is required for the %s engine", c.Engine)
	}
	if c.BatchSize <= 0 {
		return core.ConfigError("batch_size", "must be positive, got %d", c.BatchSize)
	}
	if c.Parallelism < 0 {
		return core.ConfigError("parallelism", "must not be negative, got %d", c.Parallelism)
	}
	switch c.Engine {
	case EngineExhaustive, EngineRandom:
	case EngineEvolution:
		e := c.Evolution
		if e.Population <= 0 {
			return core.ConfigError("evolution.population", "must be positive, got %d", e.Population)
		}
		if e.Elite < 0 || e.Elite >= e.Population {
			return core.ConfigError("evolution.elite", "must be in [0, population), got %d", e.Elite)
		}
		if e.MutationRate < 0 || e.MutationRate > 1 {
			return core.ConfigError("evolution.mutation_rate", "must be in [0, 1], got %v", e.MutationRate)
		}
	default:
		return core.ConfigError("engine", "unknown engine %q", c.Engine)
	}
	return nil
}

// configDocument is the on-disk configuration shape read by LoadConfig.
type configDocument struct {
	Engine            string               `mapstructure:"engine"`
	Budget            int                  `mapstructure:"budget"`
	BatchSize         int                  `mapstructure:"batch_size"`
	Parallelism       int                  `mapstructure:"parallelism"`
	Seed              int64                `mapstructure:"seed"`
	Timeout           string               `mapstructure:"timeout"`
	EvaluationTimeout string               `mapstructure:"evaluation_timeout"`
	OutputDir         string               `mapstructure:"output_dir"`
	Progress          bool                 `mapstructure:"progress"`
	EarlyStopping     earlyStoppingDoc     `mapstructure:"early_stopping"`
	Evolution         evolutionDoc         `mapstructure:"evolution"`
	Parameters        []core.ParameterSpec `mapstructure:"parameters"`
}

type earlyStoppingDoc struct {
	Tolerance float64 `mapstructure:"tolerance"`
	Window    int     `mapstructure:"window"`
	Rounds    int     `mapstructure:"rounds"`
}

type evolutionDoc struct {
	Population   int     `mapstructure:"population"`
	Elite        int     `mapstructure:"elite"`
	MutationRate float64 `mapstructure:"mutation_rate"`
}

// LoadConfig reads a structured configuration document (JSON or YAML) and
// builds a validated Config. Malformed documents fail here, before any
// evaluation starts.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &core.ConfigurationError{Field: "file", Reason: "cannot read " + path, Err: err}
	}

	var doc configDocument
	if err := v.Unmarshal(&doc); err != nil {
		return nil, &core.ConfigurationError{Field: "file", Reason: "cannot decode " + path, Err: err}
	}

	cfg := NewConfig()
	if doc.Engine != "" {
		cfg.Engine = EngineName(doc.Engine)
	}
	// An explicit "budget": 0 means unlimited (exhaustive engine), so absence
	// is what falls back to the default, not the zero value.
	if v.IsSet("budget") {
		cfg.Budget = doc.Budget
	}
	if doc.BatchSize != 0 {
		cfg.BatchSize = doc.BatchSize
	}
	if doc.Parallelism != 0 {
		cfg.Parallelism = doc.Parallelism
	}
	cfg.Seed = doc.Seed
	cfg.OutputDir = doc.OutputDir
	cfg.Progress = doc.Progress

	if doc.Timeout != "" {
		d, err := str2duration.ParseDuration(doc.Timeout)
		if err != nil {
			return nil, core.ConfigError("timeout", "invalid duration %q", doc.Timeout)
		}
		cfg.Timeout = d
	}
	if doc.EvaluationTimeout != "" {
		d, err := str2duration.ParseDuration(doc.EvaluationTimeout)
		if err != nil {
			return nil, core.ConfigError("evaluation_timeout", "invalid duration %q", doc.EvaluationTimeout)
		}
		cfg.EvalTimeout = d
	}
	if doc.EarlyStopping.Window != 0 {
		cfg.EarlyStopping = EarlyStopping(doc.EarlyStopping)
	}
	if doc.Evolution.Population != 0 {
		cfg.Evolution = EvolutionOptions(doc.Evolution)
	}

	if len(doc.Parameters) == 0 {
		return nil, core.ConfigError("parameters", "at least one parameter must be declared")
	}
	specs := make([]core.ParameterSpec, len(doc.Parameters))
	for i, p := range doc.Parameters {
		p.Value = core.NormalizeValue(p.Value)
		for j, opt := range p.Options {
			p.Options[j] = core.NormalizeValue(opt)
		}
		specs[i] = p
	}
	space, err := core.NewSpace(specs...)
	if err != nil {
		return nil, err
	}
	cfg.Space = space

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
