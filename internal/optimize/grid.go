package optimize

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/quantkit/helix/internal/core"
)

// Param specifies the candidate values for one strategy parameter.
type Param struct {
	Name   string
	Values []float64
}

// ValueList builds a parameter from an explicit value list.
func ValueList(name string, values ...float64) Param {
	return Param{Name: name, Values: values}
}

// Range builds a parameter from an inclusive numeric range. The stop value
// joins the expansion whenever (stop-start) is a whole number of steps,
// tolerating float error in the division; a non-divisible step ends at the
// last value not beyond stop.
func Range(name string, start, stop, step float64) Param {
	if step <= 0 || stop < start {
		return Param{Name: name}
	}
	count := int(math.Floor((stop-start)/step+1e-9)) + 1
	values := make([]float64, count)
	for i := range values {
		values[i] = start + float64(i)*step
	}
	return Param{Name: name, Values: values}
}

// Grid is an ordered parameter grid specification.
type Grid []Param

// Size returns the number of combinations Expand produces.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	size := 1
	for _, p := range g {
		size *= len(p.Values)
	}
	return size
}

// Expand enumerates the full Cartesian product in grid order, the last
// parameter varying fastest. A malformed grid (no parameters, a parameter
// without values, duplicate names) is a hard error: nothing downstream can
// recover from a grid that never described a search space.
func (g Grid) Expand() ([]Combination, error) {
	if len(g) == 0 {
		return nil, core.WrapError(core.ErrGridInvalid, fmt.Errorf("no parameters"))
	}

	seen := make(map[string]bool, len(g))
	for _, p := range g {
		if p.Name == "" {
			return nil, core.WrapError(core.ErrGridInvalid, fmt.Errorf("parameter with empty name"))
		}
		if seen[p.Name] {
			return nil, core.WrapError(core.ErrGridInvalid, fmt.Errorf("duplicate parameter %q", p.Name))
		}
		seen[p.Name] = true
		if len(p.Values) == 0 {
			return nil, core.WrapError(core.ErrGridInvalid, fmt.Errorf("parameter %q has no values", p.Name))
		}
	}

	combos := make([]Combination, 0, g.Size())
	cur := make(Combination, len(g))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(g) {
			combos = append(combos, append(Combination(nil), cur...))
			return
		}
		for _, v := range g[depth].Values {
			cur[depth] = ParamValue{Name: g[depth].Name, Value: v}
			walk(depth + 1)
		}
	}
	walk(0)

	return combos, nil
}

// ParamValue is one named parameter value inside a combination.
type ParamValue struct {
	Name  string
	Value float64
}

// Combination is one point of the grid, parameter values in grid order.
type Combination []ParamValue

// Get returns the named parameter's value.
func (c Combination) Get(name string) (float64, bool) {
	for _, pv := range c {
		if pv.Name == name {
			return pv.Value, true
		}
	}
	return 0, false
}

// Int returns the named parameter rounded to the nearest integer, for
// window-style parameters carried as floats.
func (c Combination) Int(name string) (int, bool) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	return int(math.Round(v)), true
}

// String renders the combination for logs: "window=20 threshold=1.5".
func (c Combination) String() string {
	parts := make([]string, len(c))
	for i, pv := range c {
		parts[i] = fmt.Sprintf("%s=%g", pv.Name, pv.Value)
	}
	return strings.Join(parts, " ")
}

// MarshalJSON renders the combination as a flat name-to-value object.
func (c Combination) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(c))
	for _, pv := range c {
		m[pv.Name] = pv.Value
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses the flat object form, ordering parameters by name
// since JSON objects carry none.
func (c *Combination) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	*c = make(Combination, 0, len(names))
	for _, name := range names {
		*c = append(*c, ParamValue{Name: name, Value: m[name]})
	}
	return nil
}
