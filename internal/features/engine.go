// Package features implements the Feature Engine: a per-symbol
// streaming transform from raw ticks to feature records, using only
// information available at or before the current tick's timestamp.
// Follows internal/engine.Engine's shape — a single owned struct
// mutated on every trade with O(1) incremental state — generalized from
// Binance aggTrade CVD/candle bookkeeping to a fixed minimal feature set
// (ret_1s, accel_1s, ticks_per_sec, vol_1s, z_vol_1s, spread,
// microprice, microprice_slope).
package features

import (
	"math"

	"onsetdetect/internal/config"
	"onsetdetect/internal/model"
)

type priceSample struct {
	ts    int64
	price float64
}

// Engine owns one symbol's rolling state. It is not safe for concurrent
// use — each symbol is processed by exactly one goroutine.
type Engine struct {
	cfg    config.FeaturesConfig
	symbol string

	// Trailing price history used to compute ret_1s. priceHist[0] is
	// always the newest sample with ts <= ts-1000ms still worth keeping
	// as a reference point (see push for the pruning invariant); entries
	// newer than that are also retained so later ticks can find their own
	// 1s-ago reference without rescanning from scratch.
	priceHist []priceSample

	hasRetPrev bool
	retPrev    float64

	// Per-second bucket currently being filled.
	bucketOpen bool
	bucketSec  int64
	bucketN    int
	bucketVol  float64

	volHist *volRing

	hasLastTs bool
	lastTs    int64

	hasMicroPrev bool
	microPrev    float64
}

// NewEngine constructs a Feature Engine for one symbol.
func NewEngine(symbol string, cfg config.FeaturesConfig) *Engine {
	volWindow := cfg.VolWindowS
	if volWindow <= 0 {
		volWindow = 300
	}
	return &Engine{
		cfg:     cfg,
		symbol:  symbol,
		volHist: newVolRing(volWindow),
	}
}

// Push consumes one tick and returns the feature record derived from it.
// It never blocks and never reads future ticks. On a bad tick it returns
// a zero FeatureRecord and a wrapped ErrBadInputTick, leaving all state
// untouched.
func (e *Engine) Push(t model.Tick) (model.FeatureRecord, error) {
	if err := e.validate(t); err != nil {
		return model.FeatureRecord{}, err
	}

	ret1s := e.computeRet1s(t.Ts, t.Price)
	ret1s = clampAbs(ret1s, e.cfg.RetClamp)

	accel := 0.0
	if e.hasRetPrev {
		accel = ret1s - e.retPrev
	}
	e.retPrev = ret1s
	e.hasRetPrev = true

	ticksPerSec, vol1s := e.updateSecondBucket(t.Ts, t.Volume)
	zVol, zVolAvailable := e.zVolScore(vol1s)

	spread, spreadAvailable := computeSpread(t.Bid1, t.Ask1)
	microprice, microAvailable := computeMicroprice(t.Bid1, t.Ask1, t.BidQty1, t.AskQty1)

	microSlope := 0.0
	if microAvailable {
		if e.hasMicroPrev {
			microSlope = microprice - e.microPrev
		}
		e.microPrev = microprice
		e.hasMicroPrev = true
	}

	e.lastTs = t.Ts
	e.hasLastTs = true

	return model.FeatureRecord{
		Ts:              t.Ts,
		Symbol:          t.Symbol,
		Price:           t.Price,
		Ret1s:           ret1s,
		Accel1s:         accel,
		TicksPerSec:     ticksPerSec,
		Vol1s:           vol1s,
		ZVol1s:          zVol,
		Spread:          spread,
		Microprice:      microprice,
		MicropriceSlope: microSlope,
		SpreadAvailable: spreadAvailable,
		ZVolAvailable:   zVolAvailable,
	}, nil
}

func (e *Engine) validate(t model.Tick) error {
	if !isFinite(t.Price) || t.Price <= 0 {
		return badTick("non-positive or non-finite price")
	}
	if !isFinite(t.Volume) || t.Volume < 0 {
		return badTick("negative or non-finite volume")
	}
	for _, v := range []float64{t.Bid1, t.Ask1, t.BidQty1, t.AskQty1} {
		if !isFinite(v) {
			return badTick("non-finite top-of-book field")
		}
	}
	if e.hasLastTs && t.Ts < e.lastTs {
		return badTick("timestamp regression within symbol")
	}
	return nil
}

// computeRet1s returns ln(price / refPrice) where refPrice is the most
// recent sample at or before ts-1000ms, falling back to the earliest
// available sample when no such prior exists. The current tick is
// appended to priceHist only after the reference is resolved, so a tick
// never uses itself as its own 1s-ago reference.
func (e *Engine) computeRet1s(ts int64, price float64) float64 {
	cutoff := ts - 1000

	// Drop samples that can never again be the best reference: an older
	// sample is obsolete once a newer sample is also <= cutoff.
	for len(e.priceHist) >= 2 && e.priceHist[1].ts <= cutoff {
		e.priceHist = e.priceHist[1:]
	}

	var ret float64
	if len(e.priceHist) == 0 {
		ret = 0
	} else {
		ref := e.priceHist[0]
		if ref.price > 0 {
			ret = math.Log(price / ref.price)
		}
	}

	e.priceHist = append(e.priceHist, priceSample{ts: ts, price: price})
	return ret
}

// updateSecondBucket advances the per-second tick/volume bucket, closing
// the previous bucket into the volume-history ring whenever a new second
// boundary is crossed, and returns the current (possibly just-opened)
// bucket's running count and volume.
func (e *Engine) updateSecondBucket(ts int64, volume float64) (ticksPerSec int, vol1s float64) {
	sec := ts / 1000

	if !e.bucketOpen || sec != e.bucketSec {
		if e.bucketOpen {
			e.volHist.push(e.bucketVol)
		}
		e.bucketOpen = true
		e.bucketSec = sec
		e.bucketN = 0
		e.bucketVol = 0
	}

	e.bucketN++
	e.bucketVol += volume

	return e.bucketN, e.bucketVol
}

// zVolScore returns the z-score of vol1s against the closed-second
// history, or 0 (unavailable) until vol_window samples have accumulated
// or the standard deviation is 0.
func (e *Engine) zVolScore(vol1s float64) (z float64, available bool) {
	if !e.volHist.full() {
		return 0, false
	}
	mean, std := e.volHist.meanStd()
	if std == 0 {
		return 0, false
	}
	return (vol1s - mean) / std, true
}

func computeSpread(bid1, ask1 float64) (spread float64, available bool) {
	if bid1 <= 0 || ask1 <= 0 {
		return 0, false
	}
	mid := (ask1 + bid1) / 2
	if mid <= 0 {
		return 0, false
	}
	return (ask1 - bid1) / mid, true
}

func computeMicroprice(bid1, ask1, bidQty1, askQty1 float64) (microprice float64, available bool) {
	denom := bidQty1 + askQty1
	if denom <= 0 {
		return 0, false
	}
	return (bid1*askQty1 + ask1*bidQty1) / denom, true
}

func clampAbs(v, bound float64) float64 {
	if bound <= 0 {
		return v
	}
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
