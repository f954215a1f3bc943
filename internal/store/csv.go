package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quantkit/helix/internal/core"
)

// Store reads and writes price series as CSV files under one directory.
// Files carry a timestamp and close column, plus open/high/low and
// position columns when the series has them.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of a stored file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Filename builds the conventional series file name,
// e.g. btc_24h_2024-01-01_2024-06-01.csv.
func Filename(symbol string, interval core.Interval, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s.csv",
		strings.ToLower(symbol), interval,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Save writes the series to name. Timestamps are RFC 3339 in UTC. The
// open/high/low and position columns are written only when some bar
// carries them, so close-only downloads stay two columns wide.
func (s *Store) Save(name string, series core.Series) error {
	if len(series) == 0 {
		return core.WrapError(core.ErrNoData, fmt.Errorf("refusing to save empty series"))
	}
	if err := series.Validate(); err != nil {
		return err
	}

	var hasOHLC, hasPositions bool
	for _, bar := range series {
		if bar.Open != 0 || bar.High != 0 || bar.Low != 0 {
			hasOHLC = true
		}
		if bar.Position != 0 {
			hasPositions = true
		}
	}

	f, err := os.Create(s.Path(name))
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"timestamp"}
	if hasOHLC {
		header = append(header, "open", "high", "low")
	}
	header = append(header, "close")
	if hasPositions {
		header = append(header, "position")
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, bar := range series {
		row := []string{bar.Time.UTC().Format(time.RFC3339)}
		if hasOHLC {
			row = append(row, formatFloat(bar.Open), formatFloat(bar.High), formatFloat(bar.Low))
		}
		row = append(row, formatFloat(bar.Close))
		if hasPositions {
			row = append(row, formatFloat(bar.Position))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return f.Close()
}

// Load reads a series from name. The header must carry timestamp and
// close columns; open/high/low and position are picked up when present.
func (s *Store) Load(name string) (core.Series, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data file %s", name))
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidSeries, fmt.Errorf("reading header: %w", err))
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	tsCol, ok := cols["timestamp"]
	if !ok {
		return nil, core.WrapError(core.ErrInvalidSeries, fmt.Errorf("missing timestamp column"))
	}
	closeCol, ok := cols["close"]
	if !ok {
		return nil, core.WrapError(core.ErrInvalidSeries, fmt.Errorf("missing close column"))
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidSeries, fmt.Errorf("reading rows: %w", err))
	}

	series := make(core.Series, 0, len(rows))
	for i, row := range rows {
		ts, err := time.Parse(time.RFC3339, row[tsCol])
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidSeries,
				fmt.Errorf("row %d: bad timestamp %q: %w", i+2, row[tsCol], err))
		}

		bar := core.Bar{Time: ts.UTC()}
		if bar.Close, err = parseFloat(row, closeCol); err != nil {
			return nil, core.WrapError(core.ErrInvalidSeries,
				fmt.Errorf("row %d: bad close: %w", i+2, err))
		}
		if c, ok := cols["open"]; ok {
			bar.Open, _ = parseFloat(row, c)
		}
		if c, ok := cols["high"]; ok {
			bar.High, _ = parseFloat(row, c)
		}
		if c, ok := cols["low"]; ok {
			bar.Low, _ = parseFloat(row, c)
		}
		if c, ok := cols["position"]; ok {
			bar.Position, _ = parseFloat(row, c)
		}
		series = append(series, bar)
	}

	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("file %s has no rows", name))
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

// List returns the store's CSV file names sorted alphabetically.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(row []string, col int) (float64, error) {
	if col >= len(row) {
		return 0, fmt.Errorf("column %d out of range", col)
	}
	return strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
}
