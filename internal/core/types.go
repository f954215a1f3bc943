package core

import (
	"fmt"
	"math"
	"time"
)

// Interval represents the sampling resolution of a bar series
type Interval string

const (
	Interval10m Interval = "10m"
	Interval1h  Interval = "1h"
	Interval24h Interval = "24h"
	Interval1w  Interval = "1w"
)

// IsValid checks if the interval is one of the supported resolutions
func (i Interval) IsValid() bool {
	switch i {
	case Interval10m, Interval1h, Interval24h, Interval1w:
		return true
	}
	return false
}

// Hours returns the approximate length of one bar in hours.
func (i Interval) Hours() float64 {
	switch i {
	case Interval10m:
		return 1.0 / 6
	case Interval1h:
		return 1
	case Interval24h:
		return 24
	case Interval1w:
		return 24 * 7
	}
	return 0
}

// Bar represents one time-indexed observation of price and held position.
// Position is the exposure set at the close of the bar; it earns the
// following bar's return, never its own.
type Bar struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Position float64
}

// IsValid checks if the bar has the required fields
func (b Bar) IsValid() bool {
	return !b.Time.IsZero() && b.Close > 0 && !math.IsNaN(b.Close) && !math.IsInf(b.Close, 0)
}

// Series is an ordered bar series with strictly increasing timestamps.
type Series []Bar

// Validate checks timestamp ordering and close-price sanity.
func (s Series) Validate() error {
	for i := range s {
		if !s[i].IsValid() {
			return WrapError(ErrInvalidSeries, fmt.Errorf("bar %d: missing timestamp or bad close", i))
		}
		if i > 0 && !s[i].Time.After(s[i-1].Time) {
			return WrapError(ErrInvalidSeries, fmt.Errorf("bar %d: timestamps not strictly increasing", i))
		}
	}
	return nil
}

// Closes returns the close column as a new slice.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

// Positions returns the position column as a new slice.
func (s Series) Positions() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Position
	}
	return out
}

// Times returns the timestamp column as a new slice.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s))
	for i := range s {
		out[i] = s[i].Time
	}
	return out
}

// Clone returns an independent copy of the series.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// WithPositions returns a copy of the series carrying the given position
// column. The receiver is never modified.
func (s Series) WithPositions(positions []float64) (Series, error) {
	if len(positions) != len(s) {
		return nil, WrapError(ErrInvalidSeries, fmt.Errorf("position column length %d, series length %d", len(positions), len(s)))
	}
	out := s.Clone()
	for i := range out {
		out[i].Position = positions[i]
	}
	return out, nil
}
