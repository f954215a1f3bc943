package strategy

import (
	"github.com/quantkit/helix/internal/core"
)

// Params holds named strategy parameters. Missing names fall back to the
// strategy defaults.
type Params map[string]float64

// Get returns the named parameter or the fallback when absent.
func (p Params) Get(name string, fallback float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return fallback
}

// Int returns the named parameter rounded to the nearest integer.
func (p Params) Int(name string, fallback int) int {
	if v, ok := p[name]; ok {
		return int(v + 0.5)
	}
	return fallback
}

// Merge overlays the given overrides onto p and returns the combined copy.
func (p Params) Merge(overrides Params) Params {
	out := make(Params, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// FromConfig converts raw configuration values to Params. Non-numeric
// values are dropped.
func FromConfig(raw map[string]any) Params {
	out := make(Params, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case float32:
			out[k] = float64(n)
		case int:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		}
	}
	return out
}

// Strategy turns a price series into a positioned series. Implementations
// leave the position flat wherever their indicators are not yet defined, so
// short inputs produce flat output rather than an error.
type Strategy interface {
	Name() string
	Description() string
	Defaults() Params
	Signals(series core.Series, params Params) (core.Series, error)
}
