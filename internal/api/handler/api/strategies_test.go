// internal/api/handler/api/strategies_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quantkit/helix/internal/api/response"
	"github.com/quantkit/helix/internal/strategy"
	"github.com/quantkit/helix/internal/strategy/zscore"
)

func TestStrategiesHandler_List(t *testing.T) {
	strategies := strategy.NewEngine()
	strategies.Register(zscore.New())
	strategies.Register(mockStrategy{})

	handler := NewStrategiesHandler(strategies)

	req := httptest.NewRequest("GET", "/api/strategies", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	data := resp.Data.(map[string]any)
	if data["count"] != float64(2) {
		t.Errorf("expected count 2, got %v", data["count"])
	}

	infos := data["strategies"].([]any)
	first := infos[0].(map[string]any)
	if first["name"] != "mock" {
		t.Errorf("expected mock first alphabetically, got %s", first["name"])
	}

	second := infos[1].(map[string]any)
	if second["name"] != "zscore" {
		t.Errorf("expected zscore, got %s", second["name"])
	}
	defaults, ok := second["defaults"].(map[string]any)
	if !ok {
		t.Fatalf("expected defaults object, got %T", second["defaults"])
	}
	if _, ok := defaults["window"]; !ok {
		t.Error("expected zscore defaults to include window")
	}
}

func TestStrategiesHandler_List_Empty(t *testing.T) {
	handler := NewStrategiesHandler(strategy.NewEngine())

	req := httptest.NewRequest("GET", "/api/strategies", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	data := resp.Data.(map[string]any)
	if data["count"] != float64(0) {
		t.Errorf("expected count 0, got %v", data["count"])
	}
}
