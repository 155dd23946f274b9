package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"chartflow/models"
)

type fakeKV struct {
	data    map[string]string
	getErr  error
	setErr  error
	getHits int
	setHits int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.getHits++
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string) error {
	f.setHits++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

type fakeStore struct {
	series  map[string][]models.Bar
	loadErr error
	saveErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{series: map[string][]models.Bar{}}
}

func (f *fakeStore) Load(symbol, interval string) ([]models.Bar, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.series[symbol+"/"+interval], nil
}

func (f *fakeStore) Save(symbol, interval string, bars []models.Bar) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.series[symbol+"/"+interval] = bars
	return nil
}

func seedKV(t *testing.T, kv *fakeKV, symbol, interval string, bars []models.Bar) {
	t.Helper()
	blob, err := json.Marshal(bars)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	kv.data[Key(symbol, interval)] = string(blob)
}

func TestGetFastTierHit(t *testing.T) {
	kv := newFakeKV()
	st := newFakeStore()
	seedKV(t, kv, "BTCUSDT", "1h", []models.Bar{{Timestamp: 1000}, {Timestamp: 2000}, {Timestamp: 3000}})

	c := NewBarCache(kv, st)
	got, err := c.Get(context.Background(), "BTCUSDT", "1h", 2000, 3000)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].Timestamp != 2000 {
		t.Fatalf("unexpected slice: %+v", got)
	}
}

func TestGetMissRepopulatesFromStore(t *testing.T) {
	kv := newFakeKV()
	st := newFakeStore()
	st.series["BTCUSDT/1h"] = []models.Bar{{Timestamp: 1000}, {Timestamp: 2000}}

	c := NewBarCache(kv, st)
	got, err := c.Get(context.Background(), "BTCUSDT", "1h", 0, 5000)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}

	blob, ok := kv.data[Key("BTCUSDT", "1h")]
	if !ok {
		t.Fatalf("fast tier not repopulated")
	}
	var cached []models.Bar
	if err := json.Unmarshal([]byte(blob), &cached); err != nil || len(cached) != 2 {
		t.Fatalf("repopulated blob damaged: %v %v", cached, err)
	}
}

func TestGetMissBothTiersEmpty(t *testing.T) {
	c := NewBarCache(newFakeKV(), newFakeStore())
	got, err := c.Get(context.Background(), "ETHUSDT", "5m", 0, 1000)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %+v", got)
	}
}

func TestGetFastTierDownFallsBack(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	st := newFakeStore()
	st.series["BTCUSDT/1h"] = []models.Bar{{Timestamp: 1000}}

	c := NewBarCache(kv, st)
	got, err := c.Get(context.Background(), "BTCUSDT", "1h", 0, 5000)
	if err != nil {
		t.Fatalf("fast tier outage should not fail the read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected durable fallback bar, got %+v", got)
	}
}

func TestSetMergesAndWritesThrough(t *testing.T) {
	kv := newFakeKV()
	st := newFakeStore()
	st.series["BTCUSDT/1h"] = []models.Bar{{Timestamp: 1000, Close: 1}, {Timestamp: 2000, Close: 2}}

	c := NewBarCache(kv, st)
	err := c.Set(context.Background(), "BTCUSDT", "1h", []models.Bar{
		{Timestamp: 2000, Close: 22},
		{Timestamp: 3000, Close: 3},
	})
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	merged := st.series["BTCUSDT/1h"]
	if len(merged) != 3 {
		t.Fatalf("expected merged series of 3, got %+v", merged)
	}
	if merged[1].Close != 22 {
		t.Fatalf("new bar should override cached bar, got %+v", merged[1])
	}

	// Fast tier holds the same full merged series.
	var cached []models.Bar
	if err := json.Unmarshal([]byte(kv.data[Key("BTCUSDT", "1h")]), &cached); err != nil {
		t.Fatalf("unmarshal fast tier: %v", err)
	}
	if len(cached) != 3 {
		t.Fatalf("fast tier should hold full series, got %d bars", len(cached))
	}
}

func TestSetFastTierFailureStillPersists(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("down")
	kv.setErr = errors.New("down")
	st := newFakeStore()

	c := NewBarCache(kv, st)
	if err := c.Set(context.Background(), "BTCUSDT", "1h", []models.Bar{{Timestamp: 1000}}); err != nil {
		t.Fatalf("set should survive fast-tier outage: %v", err)
	}
	if st.saves != 1 {
		t.Fatalf("durable write not attempted")
	}
}

func TestSetDurableFailurePropagates(t *testing.T) {
	st := newFakeStore()
	st.saveErr = errors.New("disk full")

	c := NewBarCache(newFakeKV(), st)
	if err := c.Set(context.Background(), "BTCUSDT", "1h", []models.Bar{{Timestamp: 1000}}); err == nil {
		t.Fatalf("expected durable write error")
	}
}
