package core

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// ParameterKind defines how a parameter's domain is described.
type ParameterKind string

const (
	// Fixed is a parameter pinned to a single value.
	Fixed ParameterKind = "fixed"
	// Discrete is a parameter drawn from an explicit set of options.
	Discrete ParameterKind = "discrete"
	// Range is a bounded numeric interval, optionally stepped.
	Range ParameterKind = "range"
)

// ParameterSpec declares the domain of one tunable parameter.
type ParameterSpec struct {
	Name    string        `json:"name" mapstructure:"name"`
	Kind    ParameterKind `json:"kind" mapstructure:"kind"`
	Value   any           `json:"value,omitempty" mapstructure:"value"`     // Fixed
	Options []any         `json:"options,omitempty" mapstructure:"options"` // Discrete
	Min     float64       `json:"min,omitempty" mapstructure:"min"`         // Range
	Max     float64       `json:"max,omitempty" mapstructure:"max"`
	Step    float64       `json:"step,omitempty" mapstructure:"step"` // 0 means continuous
	Integer bool          `json:"integer,omitempty" mapstructure:"integer"`
}

func (p ParameterSpec) validate() error {
	if p.Name == "" {
		return ConfigError("parameter", "missing name")
	}
	switch p.Kind {
	case Fixed:
		if p.Value == nil {
			return ConfigError(p.Name, "fixed parameter requires a value")
		}
	case Discrete:
		if len(p.Options) == 0 {
			return ConfigError(p.Name, "discrete parameter requires a non-empty option set")
		}
	case Range:
		if p.Min > p.Max {
			return ConfigError(p.Name, "range min %v is greater than max %v", p.Min, p.Max)
		}
		if p.Step < 0 {
			return ConfigError(p.Name, "range step must be positive, got %v", p.Step)
		}
		if p.Integer && p.Step == 0 {
			return ConfigError(p.Name, "integer range requires a step")
		}
	default:
		return ConfigError(p.Name, "unknown parameter kind %q", p.Kind)
	}
	return nil
}

// enumerable reports whether the parameter has a finite value set. Ranges
// never are; their step governs sampling granularity, not enumeration.
func (p ParameterSpec) enumerable() bool {
	return p.Kind != Range
}

// domainValues materializes the finite value set, nil for ranges.
func (p ParameterSpec) domainValues() []any {
	switch p.Kind {
	case Fixed:
		return []any{p.Value}
	case Discrete:
		return p.Options
	}
	return nil
}

// sample draws one value uniformly from the parameter's domain.
func (p ParameterSpec) sample(rng *rand.Rand) any {
	switch p.Kind {
	case Fixed:
		return p.Value
	case Discrete:
		return p.Options[rng.Intn(len(p.Options))]
	case Range:
		if p.Step > 0 {
			steps := int(math.Floor((p.Max-p.Min)/p.Step+1e-9)) + 1
			v := p.Min + float64(rng.Intn(steps))*p.Step
			if p.Integer {
				return int(math.Round(v))
			}
			return v
		}
		return p.Min + rng.Float64()*(p.Max-p.Min)
	}
	return nil
}

// Contains reports whether a concrete value lies within the declared domain.
func (p ParameterSpec) Contains(value any) bool {
	switch p.Kind {
	case Fixed:
		return scalarEqual(value, p.Value)
	case Discrete:
		for _, opt := range p.Options {
			if scalarEqual(value, opt) {
				return true
			}
		}
		return false
	case Range:
		f, ok := toFloat(value)
		if !ok {
			return false
		}
		if p.Integer {
			if _, isInt := toInt(value); !isInt {
				return false
			}
		}
		return f >= p.Min-1e-9 && f <= p.Max+1e-9
	}
	return false
}

// Coerce normalizes an externally supplied value into the parameter's
// canonical representation. Raw scalars and wrapped {"value": ...} shapes
// (seen in configuration documents) are both accepted; strings are parsed
// when the domain is numeric so persisted artifacts can be reloaded.
func (p ParameterSpec) Coerce(raw any) (any, error) {
	raw = NormalizeValue(raw)

	switch p.Kind {
	case Range:
		if p.Integer {
			if i, ok := toInt(raw); ok {
				return i, nil
			}
			return nil, ConfigError(p.Name, "expected integer, got %v (%T)", raw, raw)
		}
		if f, ok := toFloat(raw); ok {
			return f, nil
		}
		return nil, ConfigError(p.Name, "expected number, got %v (%T)", raw, raw)
	case Fixed:
		if scalarEqual(raw, p.Value) {
			return p.Value, nil
		}
		return nil, ConfigError(p.Name, "value %v does not match fixed value %v", raw, p.Value)
	case Discrete:
		for _, opt := range p.Options {
			if scalarEqual(raw, opt) {
				return opt, nil
			}
		}
		return nil, ConfigError(p.Name, "value %v is not one of the declared options", raw)
	}
	return nil, ConfigError(p.Name, "unknown parameter kind %q", p.Kind)
}

// NormalizeValue collapses wrapped {"value": x} shapes, as produced by some
// configuration documents, into the bare scalar.
func NormalizeValue(raw any) any {
	if m, ok := raw.(map[string]any); ok {
		if v, ok := m["value"]; ok {
			return v
		}
	}
	return raw
}

// Space is the declarative domain of every tunable parameter in a run.
type Space struct {
	params []ParameterSpec
	index  map[string]int
}

// NewSpace validates the given specifications and builds a parameter space.
// Malformed specifications fail here, never lazily during a search.
func NewSpace(specs ...ParameterSpec) (*Space, error) {
	if len(specs) == 0 {
		return nil, ConfigError("space", "at least one parameter must be declared")
	}

	index := make(map[string]int, len(specs))
	for i, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, err
		}
		if _, dup := index[spec.Name]; dup {
			return nil, ConfigError(spec.Name, "duplicate parameter name")
		}
		index[spec.Name] = i
	}

	return &Space{params: specs, index: index}, nil
}

// Parameters returns the declared specifications in declaration order.
func (s *Space) Parameters() []ParameterSpec {
	return s.params
}

// Spec returns the specification of a named parameter.
func (s *Space) Spec(name string) (ParameterSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return ParameterSpec{}, false
	}
	return s.params[i], true
}

// Validate checks that the assignment covers every declared parameter
// exactly once and that each value lies within its domain.
func (s *Space) Validate(a Assignment) error {
	if len(a) != len(s.params) {
		return ConfigError("assignment", "expected %d parameters, got %d", len(s.params), len(a))
	}
	for _, p := range s.params {
		v, ok := a[p.Name]
		if !ok {
			return ConfigError(p.Name, "missing from assignment")
		}
		if !p.Contains(v) {
			return ConfigError(p.Name, "value %v is outside the declared domain", v)
		}
	}
	return nil
}

// Sample draws one assignment uniformly over the space.
func (s *Space) Sample(rng *rand.Rand) Assignment {
	a := make(Assignment, len(s.params))
	for _, p := range s.params {
		a[p.Name] = p.sample(rng)
	}
	return a
}

// Enumerable reports whether the full Cartesian product is finite.
func (s *Space) Enumerable() bool {
	for _, p := range s.params {
		if !p.enumerable() {
			return false
		}
	}
	return true
}

// Cardinality returns the number of distinct assignments, false when the
// space holds a range parameter.
func (s *Space) Cardinality() (int, bool) {
	if !s.Enumerable() {
		return 0, false
	}
	total := 1
	for _, p := range s.params {
		total *= len(p.domainValues())
	}
	return total, true
}

// Enumerate returns a lazy, restartable walk over the full Cartesian
// product. A space holding a range parameter has no finite enumeration.
func (s *Space) Enumerate() (*Enumeration, error) {
	if !s.Enumerable() {
		return nil, &ConfigurationError{
			Field:  "space",
			Reason: "range parameters cannot be enumerated, use a sampling engine",
			Err:    ErrNotEnumerable,
		}
	}

	values := make([][]any, len(s.params))
	for i, p := range s.params {
		values[i] = p.domainValues()
	}

	return &Enumeration{space: s, values: values, cursor: make([]int, len(values))}, nil
}

// NewAssignment normalizes a raw value map into an assignment covering the
// whole space. This is the single parsing/validation boundary: wrapped
// values are unwrapped, numerics coerced, and domain membership enforced.
func (s *Space) NewAssignment(raw map[string]any) (Assignment, error) {
	a := make(Assignment, len(s.params))
	for _, p := range s.params {
		rv, ok := raw[p.Name]
		if !ok {
			return nil, ConfigError(p.Name, "missing from assignment")
		}
		v, err := p.Coerce(rv)
		if err != nil {
			return nil, err
		}
		if !p.Contains(v) {
			return nil, ConfigError(p.Name, "value %v is outside the declared domain", v)
		}
		a[p.Name] = v
	}
	if len(raw) != len(s.params) {
		for name := range raw {
			if _, ok := s.index[name]; !ok {
				return nil, ConfigError(name, "not declared in the parameter space")
			}
		}
	}
	return a, nil
}

// Enumeration walks the Cartesian product of an enumerable space in
// odometer order, first parameter fastest.
type Enumeration struct {
	space  *Space
	values [][]any
	cursor []int
	done   bool
}

// Next returns the next assignment, false when the product is exhausted.
func (e *Enumeration) Next() (Assignment, bool) {
	if e.done {
		return nil, false
	}

	a := make(Assignment, len(e.values))
	for i, p := range e.space.params {
		a[p.Name] = e.values[i][e.cursor[i]]
	}

	for i := 0; i < len(e.cursor); i++ {
		e.cursor[i]++
		if e.cursor[i] < len(e.values[i]) {
			return a, true
		}
		e.cursor[i] = 0
	}
	e.done = true
	return a, true
}

// Reset restarts the enumeration from the first combination.
func (e *Enumeration) Reset() {
	for i := range e.cursor {
		e.cursor[i] = 0
	}
	e.done = false
}

// Assignment is one concrete choice of value per parameter. Treat it as
// immutable once built; Clone before mutating.
type Assignment map[string]any

// Clone returns a shallow copy of the assignment.
func (a Assignment) Clone() Assignment {
	c := make(Assignment, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// Int returns a named parameter as an integer.
func (a Assignment) Int(name string) (int, error) {
	v, ok := a[name]
	if !ok {
		return 0, ConfigError(name, "missing from assignment")
	}
	if i, ok := toInt(v); ok {
		return i, nil
	}
	return 0, ConfigError(name, "value %v (%T) is not an integer", v, v)
}

// Float returns a named parameter as a float.
func (a Assignment) Float(name string) (float64, error) {
	v, ok := a[name]
	if !ok {
		return 0, ConfigError(name, "missing from assignment")
	}
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	return 0, ConfigError(name, "value %v (%T) is not a number", v, v)
}

// Key renders a canonical, order-independent identity for the assignment,
// usable as a deduplication key.
func (a Assignment) Key() string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", name, a[name])
	}
	b.WriteByte('}')
	return b.String()
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func scalarEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
