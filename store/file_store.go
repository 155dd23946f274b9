package store

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chartflow/logger"
	"chartflow/models"
)

// ErrCorrupted marks a series file that exists but cannot be decompressed
// or parsed. Distinct from a missing file, which loads as an empty series.
var ErrCorrupted = errors.New("series file corrupted")

// FileStore is the durable tier: one gzip-compressed JSON tuple array per
// (symbol, interval) pair under <dataRoot>/chart/<symbol>/<interval>.json.gz.
type FileStore struct {
	dataRoot string
	log      *logger.Log
}

func NewFileStore(dataRoot string) *FileStore {
	return &FileStore{
		dataRoot: dataRoot,
		log:      logger.GetLogger(),
	}
}

func (s *FileStore) path(symbol, interval string) string {
	return filepath.Join(s.dataRoot, "chart", symbol, interval+".json.gz")
}

// Load reads the full series for the pair. A missing file is not an error
// and yields an empty series.
func (s *FileStore) Load(symbol, interval string) ([]models.Bar, error) {
	f, err := os.Open(s.path(symbol, interval))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorrupted, symbol, interval, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorrupted, symbol, interval, err)
	}

	var bars []models.Bar
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorrupted, symbol, interval, err)
	}

	logger.IncrementStoreRead()
	return bars, nil
}

// Save overwrites the series file with the full series, creating parent
// directories on demand.
func (s *FileStore) Save(symbol, interval string, bars []models.Bar) error {
	path := s.path(symbol, interval)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create series dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create series file: %w", err)
	}

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(bars); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("encode series: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("compress series: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close series file: %w", err)
	}

	logger.IncrementStoreWrite()
	s.log.WithComponent("file_store").WithFields(logger.Fields{
		"symbol":   symbol,
		"interval": interval,
		"bars":     len(bars),
	}).Debug("series persisted")
	return nil
}

// Health verifies the data root is usable.
func (s *FileStore) Health() error {
	if err := os.MkdirAll(filepath.Join(s.dataRoot, "chart"), 0o755); err != nil {
		return fmt.Errorf("data root unavailable: %w", err)
	}
	return nil
}
