// Package data provides return-series storage and loading.
package data

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/meridian-desktop/volatility-backend/internal/timeseries"
	"github.com/meridian-desktop/volatility-backend/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store provides access to historical return series stored as CSV files
// under a data directory, one file per series name.
type Store struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	dataDir  string
	cache    map[string]*timeseries.Series
	metadata map[string]*SeriesMetadata
}

// SeriesMetadata describes an available return series
type SeriesMetadata struct {
	Name         string    `json:"name"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Observations int       `json:"observations"`
}

// NewStore creates a return-series store rooted at dataDir.
func NewStore(logger *zap.Logger, dataDir string) (*Store, error) {
	store := &Store{
		logger:   logger,
		dataDir:  dataDir,
		cache:    make(map[string]*timeseries.Series),
		metadata: make(map[string]*SeriesMetadata),
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := store.loadMetadata(); err != nil {
		logger.Warn("failed to load metadata", zap.Error(err))
	}

	return store, nil
}

// LoadSeries loads a named return series. Files hold one `timestamp,return`
// row per observation, RFC 3339 timestamps, optionally with a header row.
// Values are parsed as decimals before conversion so malformed numbers are
// rejected rather than truncated.
func (s *Store) LoadSeries(name string) (*timeseries.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}

	filename := filepath.Join(s.dataDir, name+".csv")
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open series %q: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse series %q: %w", name, err)
	}

	points := make([]types.ReturnPoint, 0, len(records))
	for i, rec := range records {
		if i == 0 && isHeader(rec) {
			continue
		}
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("series %q row %d: bad timestamp: %w", name, i+1, err)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("series %q row %d: bad return: %w", name, i+1, err)
		}
		r := value.InexactFloat64()
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("series %q row %d: non-finite return", name, i+1)
		}
		points = append(points, types.ReturnPoint{Timestamp: ts, Return: r})
	}

	series, err := timeseries.FromSorted(points)
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", name, err)
	}

	s.cache[name] = series
	s.logger.Info("loaded return series",
		zap.String("name", name),
		zap.Int("observations", series.Len()),
	)
	return series, nil
}

// SaveSeries writes a return series to disk and updates the metadata index.
func (s *Store) SaveSeries(name string, series *timeseries.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filename := filepath.Join(s.dataDir, name+".csv")
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create series file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"timestamp", "return"}); err != nil {
		return err
	}
	for _, p := range series.Points() {
		row := []string{
			p.Timestamp.Format(time.RFC3339),
			decimal.NewFromFloat(p.Return).String(),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write series file: %w", err)
	}

	s.cache[name] = series
	s.metadata[name] = &SeriesMetadata{
		Name:         name,
		StartDate:    series.Start(),
		EndDate:      series.End(),
		Observations: series.Len(),
	}
	if err := s.saveMetadata(); err != nil {
		s.logger.Warn("failed to save metadata", zap.Error(err))
	}
	return nil
}

// DeriveFromPrices converts a price CSV (`timestamp,price` rows) into a
// log-return series.
func DeriveFromPrices(prices []types.ReturnPoint) (*timeseries.Series, error) {
	if len(prices) < 2 {
		return nil, fmt.Errorf("need at least 2 prices to derive returns, got %d", len(prices))
	}
	points := make([]types.ReturnPoint, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1].Return, prices[i].Return
		if prev <= 0 || cur <= 0 {
			return nil, fmt.Errorf("non-positive price at %s", prices[i].Timestamp.Format(time.RFC3339))
		}
		points = append(points, types.ReturnPoint{
			Timestamp: prices[i].Timestamp,
			Return:    math.Log(cur / prev),
		})
	}
	return timeseries.New(points)
}

// AvailableSeries returns the names of all known series.
func (s *Store) AvailableSeries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.metadata))
	for name := range s.metadata {
		names = append(names, name)
	}
	return names
}

// SeriesRange returns the available date range for a series.
func (s *Store) SeriesRange(name string) (start, end time.Time, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if meta, ok := s.metadata[name]; ok {
		return meta.StartDate, meta.EndDate, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("no data available for series %q", name)
}

// ClearCache clears the in-memory cache.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*timeseries.Series)
}

func isHeader(rec []string) bool {
	_, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[0]))
	return err != nil
}

func (s *Store) loadMetadata() error {
	filename := filepath.Join(s.dataDir, "metadata.json")

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var metadata map[string]*SeriesMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return err
	}
	s.metadata = metadata
	return nil
}

func (s *Store) saveMetadata() error {
	filename := filepath.Join(s.dataDir, "metadata.json")

	data, err := json.MarshalIndent(s.metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
