package models

import (
	"encoding/json"
	"fmt"
)

// Bar is a single OHLCV observation for one interval of a symbol.
type Bar struct {
	Timestamp int64   `json:"timestamp"` // milliseconds since epoch
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Gap is a contiguous sub-range of a requested window that is not yet
// covered by cached bars. Start and End are millisecond timestamps,
// Start <= End.
type Gap struct {
	Start int64
	End   int64
}

// MarshalJSON encodes the bar as the positional tuple
// [timestamp, open, high, low, close, volume]. The tuple layout is shared
// by the fast-tier blobs, the durable files and the HTTP payload.
func (b Bar) MarshalJSON() ([]byte, error) {
	return json.Marshal([6]interface{}{b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume})
}

// UnmarshalJSON decodes the positional tuple form.
func (b *Bar) UnmarshalJSON(data []byte) error {
	var tuple []json.Number
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("bar is not a tuple: %w", err)
	}
	if len(tuple) != 6 {
		return fmt.Errorf("bar tuple has %d elements, want 6", len(tuple))
	}

	ts, err := tuple[0].Int64()
	if err != nil {
		return fmt.Errorf("bar timestamp: %w", err)
	}

	vals := make([]float64, 5)
	for i, n := range tuple[1:] {
		v, err := n.Float64()
		if err != nil {
			return fmt.Errorf("bar field %d: %w", i+1, err)
		}
		vals[i] = v
	}

	b.Timestamp = ts
	b.Open, b.High, b.Low, b.Close, b.Volume = vals[0], vals[1], vals[2], vals[3], vals[4]
	return nil
}
