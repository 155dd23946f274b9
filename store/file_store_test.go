package store

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chartflow/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewFileStore(t.TempDir())

	bars := []models.Bar{
		{Timestamp: 1000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Timestamp: 61000, Open: 1.5, High: 3, Low: 1, Close: 2, Volume: 20},
	}
	if err := s.Save("BTCUSDT", "1m", bars); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load("BTCUSDT", "1m")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != bars[0] || got[1] != bars[1] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(t.TempDir())
	got, err := s.Load("ETHUSDT", "1h")
	if err != nil {
		t.Fatalf("load of missing file should not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty series, got %d bars", len(got))
	}
}

func TestFileStoreOverwrites(t *testing.T) {
	s := NewFileStore(t.TempDir())
	if err := s.Save("BTCUSDT", "1h", []models.Bar{{Timestamp: 1}, {Timestamp: 2}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save("BTCUSDT", "1h", []models.Bar{{Timestamp: 3}}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := s.Load("BTCUSDT", "1h")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Timestamp != 3 {
		t.Fatalf("expected full overwrite, got %+v", got)
	}
}

func TestFileStoreCorruptGzip(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root)

	path := filepath.Join(root, "chart", "BTCUSDT", "1h.json.gz")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("not gzip at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := s.Load("BTCUSDT", "1h"); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}
}

func TestFileStoreCorruptJSON(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root)

	path := filepath.Join(root, "chart", "BTCUSDT", "1h.json.gz")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte("{broken")); err != nil {
		t.Fatalf("write: %v", err)
	}
	zw.Close()
	f.Close()

	if _, err := s.Load("BTCUSDT", "1h"); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}
}
