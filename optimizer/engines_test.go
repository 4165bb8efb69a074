package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backtune/backtune/core"
)

func gridSpace(t *testing.T) *core.Space {
	t.Helper()
	space, err := core.NewSpace(
		core.ParameterSpec{Name: "fast", Kind: core.Discrete, Options: []any{1, 2, 3}},
		core.ParameterSpec{Name: "slow", Kind: core.Discrete, Options: []any{10, 11}},
	)
	require.NoError(t, err)
	return space
}

func periodSpace(t *testing.T) *core.Space {
	t.Helper()
	space, err := core.NewSpace(
		core.ParameterSpec{Name: "fast_period", Kind: core.Range, Min: 2, Max: 50, Step: 1, Integer: true},
		core.ParameterSpec{Name: "slow_period", Kind: core.Range, Min: 10, Max: 200, Step: 1, Integer: true},
	)
	require.NoError(t, err)
	return space
}

func TestExhaustive_VisitsEveryCombinationExactlyOnce(t *testing.T) {
	engine, err := NewExhaustive(gridSpace(t))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for {
		batch := engine.ProposeBatch(4)
		if len(batch) == 0 {
			break
		}
		for _, a := range batch {
			require.False(t, seen[a.Key()], "combination %s proposed twice", a.Key())
			seen[a.Key()] = true
		}
	}
	require.Len(t, seen, 6)
	require.Empty(t, engine.ProposeBatch(4))
}

func TestExhaustive_SkipsDuplicateDiscreteOptions(t *testing.T) {
	space, err := core.NewSpace(
		core.ParameterSpec{Name: "mode", Kind: core.Discrete, Options: []any{"a", "b", "a"}},
	)
	require.NoError(t, err)

	engine, err := NewExhaustive(space)
	require.NoError(t, err)

	batch := engine.ProposeBatch(10)
	require.Len(t, batch, 2)
}

func TestExhaustive_RejectsRangeParameters(t *testing.T) {
	_, err := NewExhaustive(periodSpace(t))
	require.ErrorIs(t, err, core.ErrNotEnumerable)
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRandomSearch_DrawsExactlyTheBudget(t *testing.T) {
	engine, err := NewRandomSearch(gridSpace(t), 10, 1)
	require.NoError(t, err)

	total := 0
	for {
		batch := engine.ProposeBatch(4)
		if len(batch) == 0 {
			break
		}
		total += len(batch)
	}
	require.Equal(t, 10, total)
}

func TestRandomSearch_SeedReproducesDraws(t *testing.T) {
	a, err := NewRandomSearch(gridSpace(t), 20, 7)
	require.NoError(t, err)
	b, err := NewRandomSearch(gridSpace(t), 20, 7)
	require.NoError(t, err)

	batchA := a.ProposeBatch(20)
	batchB := b.ProposeBatch(20)
	require.Len(t, batchA, 20)
	for i := range batchA {
		require.Equal(t, batchA[i].Key(), batchB[i].Key())
	}
}

func TestRandomSearch_HandlesRangeParameters(t *testing.T) {
	space := periodSpace(t)

	// Ranges have no enumeration, but sampling over them is fine.
	engine, err := NewRandomSearch(space, 100, 5)
	require.NoError(t, err)

	total := 0
	for {
		batch := engine.ProposeBatch(16)
		if len(batch) == 0 {
			break
		}
		for _, a := range batch {
			require.NoError(t, space.Validate(a))
		}
		total += len(batch)
	}
	require.Equal(t, 100, total)
}

func TestRandomSearch_RequiresPositiveBudget(t *testing.T) {
	_, err := NewRandomSearch(gridSpace(t), 0, 1)
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
