// internal/api/handler/api/strategies.go
package api

import (
	"net/http"

	"github.com/quantkit/helix/internal/api/response"
	"github.com/quantkit/helix/internal/strategy"
)

// StrategyInfo describes a registered strategy for API clients.
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Defaults    strategy.Params `json:"defaults"`
}

// StrategiesHandler lists the registered strategies.
type StrategiesHandler struct {
	strategies *strategy.Engine
}

// NewStrategiesHandler creates a new strategies handler.
func NewStrategiesHandler(strategies *strategy.Engine) *StrategiesHandler {
	return &StrategiesHandler{strategies: strategies}
}

// List returns all registered strategies with their default parameters.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.strategies.All()

	infos := make([]StrategyInfo, 0, len(all))
	for _, s := range all {
		infos = append(infos, StrategyInfo{
			Name:        s.Name(),
			Description: s.Description(),
			Defaults:    s.Defaults(),
		})
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"strategies": infos,
		"count":      len(infos),
	})
}
