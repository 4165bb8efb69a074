package optimizer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/backtune/backtune/core"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_JSONDocument(t *testing.T) {
	path := writeConfigFile(t, "tune.json", `{
  "engine": "random",
  "budget": 50,
  "batch_size": 8,
  "parallelism": 2,
  "seed": 99,
  "timeout": "1m30s",
  "evaluation_timeout": "500ms",
  "output_dir": "results",
  "parameters": [
    {"name": "fast_period", "kind": "range", "min": 2, "max": 50, "step": 1, "integer": true},
    {"name": "mode", "kind": "discrete", "options": ["sma", "ema"]},
    {"name": "fee", "kind": "fixed", "value": {"value": 0.001}}
  ]
}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, EngineRandom, cfg.Engine)
	require.Equal(t, 50, cfg.Budget)
	require.Equal(t, 8, cfg.BatchSize)
	require.Equal(t, 2, cfg.Parallelism)
	require.Equal(t, int64(99), cfg.Seed)
	require.Equal(t, 90*time.Second, cfg.Timeout)
	require.Equal(t, 500*time.Millisecond, cfg.EvalTimeout)
	require.Equal(t, "results", cfg.OutputDir)

	require.NotNil(t, cfg.Space)
	require.Len(t, cfg.Space.Parameters(), 3)

	// Wrapped fixed values are unwrapped at the configuration boundary.
	fee, ok := cfg.Space.Spec("fee")
	require.True(t, ok)
	require.Equal(t, 0.001, fee.Value)
}

func TestLoadConfig_YAMLDocument(t *testing.T) {
	path := writeConfigFile(t, "tune.yaml", `
engine: evolution
budget: 200
evolution:
  population: 30
  elite: 3
  mutation_rate: 0.1
early_stopping:
  tolerance: 0.001
  window: 4
  rounds: 2
parameters:
  - name: threshold
    kind: range
    min: 0
    max: 1
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, EngineEvolution, cfg.Engine)
	require.Equal(t, EvolutionOptions{Population: 30, Elite: 3, MutationRate: 0.1}, cfg.Evolution)
	require.Equal(t, EarlyStopping{Tolerance: 0.001, Window: 4, Rounds: 2}, cfg.EarlyStopping)
}

func TestLoadConfig_ExplicitZeroBudgetMeansUnlimited(t *testing.T) {
	path := writeConfigFile(t, "tune.json", `{
  "engine": "exhaustive",
  "budget": 0,
  "parameters": [{"name": "mode", "kind": "discrete", "options": ["sma", "ema"]}]
}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Zero(t, cfg.Budget)

	// An absent budget still falls back to the default.
	path = writeConfigFile(t, "tune2.json", `{
  "engine": "random",
  "parameters": [{"name": "mode", "kind": "discrete", "options": ["sma", "ema"]}]
}`)
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, NewConfig().Budget, cfg.Budget)
}

func TestLoadConfig_Failures(t *testing.T) {
	var cfgErr *core.ConfigurationError

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorAs(t, err, &cfgErr)

	path := writeConfigFile(t, "tune.json", `{"engine": "random", "budget": 10}`)
	_, err = LoadConfig(path)
	require.ErrorAs(t, err, &cfgErr)

	path = writeConfigFile(t, "tune.json", `{
  "engine": "annealing",
  "budget": 10,
  "parameters": [{"name": "p", "kind": "fixed", "value": 1}]
}`)
	_, err = LoadConfig(path)
	require.ErrorAs(t, err, &cfgErr)

	path = writeConfigFile(t, "tune.json", `{
  "engine": "random",
  "budget": 10,
  "timeout": "soon",
  "parameters": [{"name": "p", "kind": "fixed", "value": 1}]
}`)
	_, err = LoadConfig(path)
	require.ErrorAs(t, err, &cfgErr)
}

func TestConfig_ValidateDefaults(t *testing.T) {
	space, err := core.NewSpace(core.ParameterSpec{Name: "p", Kind: core.Fixed, Value: 1})
	require.NoError(t, err)

	cfg := NewConfig().WithSpace(space)
	require.NoError(t, cfg.validate())

	require.Error(t, NewConfig().validate())
	require.Error(t, NewConfig().WithSpace(space).WithBudget(-1).validate())
	require.Error(t, NewConfig().WithSpace(space).WithBatchSize(0).validate())
	require.Error(t, NewConfig().
		WithSpace(space).
		WithEngine(EngineEvolution).
		WithEvolution(10, 10, 0.2).
		validate())
}
