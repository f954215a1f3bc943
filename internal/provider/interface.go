package provider

import (
	"context"
	"time"

	"github.com/quantkit/helix/internal/core"
)

// Config holds provider configuration
type Config struct {
	Enabled bool
	APIKey  string
	BaseURL string
}

// Provider defines the interface for price history sources
type Provider interface {
	// Metadata
	Name() string
	Intervals() []core.Interval

	// Data fetching
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval core.Interval) (core.Series, error)
}

// Supports reports whether the provider serves the given interval.
func Supports(p Provider, interval core.Interval) bool {
	for _, i := range p.Intervals() {
		if i == interval {
			return true
		}
	}
	return false
}
