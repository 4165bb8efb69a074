package core

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSpace_RejectsMalformedSpecs(t *testing.T) {
	cases := []struct {
		name string
		spec ParameterSpec
	}{
		{"missing name", ParameterSpec{Kind: Fixed, Value: 1}},
		{"fixed without value", ParameterSpec{Name: "p", Kind: Fixed}},
		{"discrete without options", ParameterSpec{Name: "p", Kind: Discrete}},
		{"range min above max", ParameterSpec{Name: "p", Kind: Range, Min: 10, Max: 1}},
		{"negative step", ParameterSpec{Name: "p", Kind: Range, Min: 0, Max: 1, Step: -1}},
		{"integer without step", ParameterSpec{Name: "p", Kind: Range, Min: 0, Max: 1, Integer: true}},
		{"unknown kind", ParameterSpec{Name: "p", Kind: "weird"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSpace(tc.spec)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestNewSpace_RejectsDuplicateNames(t *testing.T) {
	_, err := NewSpace(
		ParameterSpec{Name: "p", Kind: Fixed, Value: 1},
		ParameterSpec{Name: "p", Kind: Fixed, Value: 2},
	)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestSpace_SampleStaysInDomain(t *testing.T) {
	space, err := NewSpace(
		ParameterSpec{Name: "period", Kind: Range, Min: 2, Max: 50, Step: 1, Integer: true},
		ParameterSpec{Name: "threshold", Kind: Range, Min: 0, Max: 1},
		ParameterSpec{Name: "mode", Kind: Discrete, Options: []any{"fast", "slow"}},
		ParameterSpec{Name: "fee", Kind: Fixed, Value: 0.001},
	)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		a := space.Sample(rng)
		require.NoError(t, space.Validate(a))
		_, isInt := a["period"].(int)
		require.True(t, isInt, "integer range must sample ints, got %T", a["period"])
	}
}

func TestSpace_Cardinality(t *testing.T) {
	space, err := NewSpace(
		ParameterSpec{Name: "fast", Kind: Discrete, Options: []any{1, 2, 3}},
		ParameterSpec{Name: "mode", Kind: Discrete, Options: []any{"a", "b"}},
		ParameterSpec{Name: "fee", Kind: Fixed, Value: 0.1},
	)
	require.NoError(t, err)

	n, ok := space.Cardinality()
	require.True(t, ok)
	require.Equal(t, 6, n)

	ranged, err := NewSpace(
		ParameterSpec{Name: "fast", Kind: Range, Min: 1, Max: 3, Step: 1, Integer: true},
	)
	require.NoError(t, err)
	_, ok = ranged.Cardinality()
	require.False(t, ok)
}

func TestSpace_EnumerateVisitsEveryCombinationOnce(t *testing.T) {
	space, err := NewSpace(
		ParameterSpec{Name: "fast", Kind: Discrete, Options: []any{1, 2, 3}},
		ParameterSpec{Name: "slow", Kind: Discrete, Options: []any{10, 11}},
	)
	require.NoError(t, err)

	enum, err := space.Enumerate()
	require.NoError(t, err)

	seen := make(map[string]bool)
	for {
		a, ok := enum.Next()
		if !ok {
			break
		}
		require.NoError(t, space.Validate(a))
		require.False(t, seen[a.Key()], "combination %s enumerated twice", a.Key())
		seen[a.Key()] = true
	}
	require.Len(t, seen, 6)

	enum.Reset()
	a, ok := enum.Next()
	require.True(t, ok)
	require.True(t, seen[a.Key()])
}

func TestSpace_EnumerateRejectsRangeParameters(t *testing.T) {
	// A range's step bounds sampling granularity, never enumeration: even a
	// stepped period pair has no finite walk.
	stepped, err := NewSpace(
		ParameterSpec{Name: "fast_period", Kind: Range, Min: 2, Max: 50, Step: 1, Integer: true},
		ParameterSpec{Name: "slow_period", Kind: Range, Min: 10, Max: 200, Step: 1, Integer: true},
	)
	require.NoError(t, err)

	_, err = stepped.Enumerate()
	require.True(t, errors.Is(err, ErrNotEnumerable))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.False(t, stepped.Enumerable())

	continuous, err := NewSpace(
		ParameterSpec{Name: "threshold", Kind: Range, Min: 0, Max: 1},
	)
	require.NoError(t, err)

	_, err = continuous.Enumerate()
	require.True(t, errors.Is(err, ErrNotEnumerable))
	require.False(t, continuous.Enumerable())
}

func TestSpace_NewAssignmentCoercesAndValidates(t *testing.T) {
	space, err := NewSpace(
		ParameterSpec{Name: "fast", Kind: Range, Min: 2, Max: 50, Step: 1, Integer: true},
		ParameterSpec{Name: "threshold", Kind: Range, Min: 0, Max: 1},
	)
	require.NoError(t, err)

	// JSON decoding and wrapped config documents hand back float64 and
	// {"value": x} shapes; both must normalize to canonical types.
	a, err := space.NewAssignment(map[string]any{
		"fast":      float64(12),
		"threshold": map[string]any{"value": 0.5},
	})
	require.NoError(t, err)
	require.Equal(t, 12, a["fast"])
	require.Equal(t, 0.5, a["threshold"])

	// Strings, as read back from CSV artifacts.
	a, err = space.NewAssignment(map[string]any{"fast": "7", "threshold": "0.25"})
	require.NoError(t, err)
	require.Equal(t, 7, a["fast"])
	require.Equal(t, 0.25, a["threshold"])

	_, err = space.NewAssignment(map[string]any{"fast": 12.5, "threshold": 0.5})
	require.Error(t, err)
	_, err = space.NewAssignment(map[string]any{"fast": 99, "threshold": 0.5})
	require.Error(t, err)
	_, err = space.NewAssignment(map[string]any{"fast": 12})
	require.Error(t, err)
	_, err = space.NewAssignment(map[string]any{"fast": 12, "threshold": 0.5, "bogus": 1})
	require.Error(t, err)
}

func TestAssignment_KeyIsOrderIndependent(t *testing.T) {
	a := Assignment{"slow": 21, "fast": 9}
	b := Assignment{"fast": 9, "slow": 21}
	require.Equal(t, "{fast: 9, slow: 21}", a.Key())
	require.Equal(t, a.Key(), b.Key())
}

func TestAssignment_Accessors(t *testing.T) {
	a := Assignment{"fast": 9, "threshold": 0.5}

	fast, err := a.Int("fast")
	require.NoError(t, err)
	require.Equal(t, 9, fast)

	th, err := a.Float("threshold")
	require.NoError(t, err)
	require.Equal(t, 0.5, th)

	_, err = a.Int("threshold")
	require.Error(t, err)
	_, err = a.Int("missing")
	require.Error(t, err)

	c := a.Clone()
	c["fast"] = 14
	require.Equal(t, 9, a["fast"])
}
