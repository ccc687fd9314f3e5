// Package model defines the core data types shared across the onset
// detection pipeline: the input Tick, the derived FeatureRecord, and the
// three event variants the pipeline can emit.
package model

import "fmt"

// Tick is a single immutable market event for one symbol.
//
// Ts is epoch milliseconds in the market's local timezone and must be
// non-decreasing within a symbol. Price must be positive; Volume is the
// per-tick traded quantity, never a cumulative total.
type Tick struct {
	Ts       int64   `json:"ts"`
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Volume   float64 `json:"volume"`
	Bid1     float64 `json:"bid1"`
	Ask1     float64 `json:"ask1"`
	BidQty1  float64 `json:"bid_qty1"`
	AskQty1  float64 `json:"ask_qty1"`
}

// String renders a compact one-line representation for diagnostics.
func (t Tick) String() string {
	return fmt.Sprintf("Tick{%s @%d px=%.4f vol=%.4f bid=%.4f ask=%.4f}",
		t.Symbol, t.Ts, t.Price, t.Volume, t.Bid1, t.Ask1)
}

// FeatureRecord is a Tick augmented with streaming features computed
// without look-ahead. Undefined fields take the value 0; downstream axis
// checks treat a 0 friction/participation feature as merely "not yet
// available" rather than a measured zero — see the availability flags
// below.
type FeatureRecord struct {
	Ts     int64   `json:"ts"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`

	Ret1s           float64 `json:"ret_1s"`
	Accel1s         float64 `json:"accel_1s"`
	TicksPerSec     int     `json:"ticks_per_sec"`
	Vol1s           float64 `json:"vol_1s"`
	ZVol1s          float64 `json:"z_vol_1s"`
	Spread          float64 `json:"spread"`
	Microprice      float64 `json:"microprice"`
	MicropriceSlope float64 `json:"microprice_slope"`

	// Availability flags: a feature computed from insufficient history or
	// an undefined denominator reports 0 but must not be mistaken for a
	// real zero reading by downstream axis checks.
	SpreadAvailable bool `json:"-"`
	ZVolAvailable   bool `json:"-"`
}
