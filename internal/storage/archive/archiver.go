// internal/storage/archive/archiver.go
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quantkit/helix/internal/backtest"
	"github.com/quantkit/helix/internal/core"
	"github.com/quantkit/helix/internal/optimize"
	"go.uber.org/zap"
)

// Record is one archived run: a single backtest report, or a full
// optimization result, with the inputs that produced it.
type Record struct {
	Symbol    string             `json:"symbol"`
	Strategy  string             `json:"strategy"`
	Interval  core.Interval      `json:"interval,omitempty"`
	Params    map[string]float64 `json:"params,omitempty"`
	CreatedAt time.Time          `json:"created_at"`

	Report *backtest.Report `json:"report,omitempty"`
	Grid   *optimize.Result `json:"grid,omitempty"`
}

// Archiver persists run records as JSON through a Storage backend.
type Archiver struct {
	storage Storage
	log     *zap.Logger
}

// NewArchiver creates an Archiver. A nil logger disables logging.
func NewArchiver(storage Storage, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{storage: storage, log: log}
}

// recordPath builds results/<symbol>/<strategy>/<timestamp>.json.
func recordPath(rec Record) string {
	return fmt.Sprintf("results/%s/%s/%s.json",
		strings.ToLower(rec.Symbol), rec.Strategy,
		rec.CreatedAt.UTC().Format("20060102T150405Z"))
}

// Save writes the record and returns its storage path. A zero CreatedAt
// is stamped with the current time.
func (a *Archiver) Save(ctx context.Context, rec Record) (string, error) {
	if rec.Symbol == "" || rec.Strategy == "" {
		return "", fmt.Errorf("record needs symbol and strategy")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling record: %w", err)
	}

	path := recordPath(rec)
	if err := a.storage.Write(ctx, path, data); err != nil {
		return "", fmt.Errorf("writing record: %w", err)
	}

	a.log.Info("result archived",
		zap.String("path", path),
		zap.String("symbol", rec.Symbol),
		zap.String("strategy", rec.Strategy))
	return path, nil
}

// Load reads one record back from its storage path.
func (a *Archiver) Load(ctx context.Context, path string) (*Record, error) {
	data, err := a.storage.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling record: %w", err)
	}
	return &rec, nil
}

// List returns the stored record paths for a symbol and strategy. Empty
// arguments widen the listing: List(ctx, "", "") walks every record.
func (a *Archiver) List(ctx context.Context, symbol, strategy string) ([]string, error) {
	prefix := "results"
	if symbol != "" {
		prefix += "/" + strings.ToLower(symbol)
		if strategy != "" {
			prefix += "/" + strategy
		}
	}
	return a.storage.List(ctx, prefix)
}
