package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/quantkit/helix/internal/core"
	"go.uber.org/zap"
)

// Engine manages registered strategies
type Engine struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the engine
func (e *Engine) Register(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
	e.logger.Debug("strategy registered", zap.String("strategy", s.Name()))
}

// Get retrieves a strategy by name
func (e *Engine) Get(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[name]
	return s, ok
}

// All returns the registered strategies sorted by name
func (e *Engine) All() []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Names returns the registered strategy names sorted alphabetically
func (e *Engine) Names() []string {
	all := e.All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name()
	}
	return names
}

// Signals runs the named strategy on the series. The overrides are applied
// on top of the strategy defaults.
func (e *Engine) Signals(name string, series core.Series, overrides Params) (core.Series, error) {
	s, ok := e.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound,
			fmt.Errorf("strategy %q not registered (have %v)", name, e.Names()))
	}

	params := s.Defaults().Merge(overrides)
	out, err := s.Signals(series, params)
	if err != nil {
		e.logger.Warn("signal generation failed",
			zap.String("strategy", name),
			zap.Error(err),
		)
		return nil, core.WrapError(core.ErrStrategyFailed, err)
	}
	return out, nil
}
