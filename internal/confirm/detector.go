// Package confirm implements the Confirm Detector: the component that
// decides whether a candidate represents a real onset by comparing a
// pre-window baseline against a post-candidate window, demanding
// delta-improvement that persists for a configured number of
// consecutive records. The trailing-window ring-buffer shape follows
// internal/state.Buffer, generalized from OHLCV candle history to
// feature-record history and from a simple lookback read to a
// streaming persistence search.
package confirm

import (
	"math"

	"onsetdetect/internal/config"
	"onsetdetect/internal/mathutil"
	"onsetdetect/internal/model"
)

// openCandidate tracks one candidate's pre-window baselines and its
// in-progress consecutive-hit run within the post-window.
type openCandidate struct {
	ts int64

	preRet        float64
	preZVol       float64
	preSpread     float64
	preMicroSlope float64

	// Run-in-progress bookkeeping: runLen counts the current consecutive
	// hit streak; runStartTs/Axes/Strength/Delta* capture the state at
	// the moment the current streak began, since a confirmation is
	// reported at the streak's earliest tick, not its latest.
	runLen            int
	runStartTs        int64
	runStartAxes      []model.ConfirmAxis
	runStartStrength  float64
	runStartDeltaRet  float64
	runStartDeltaZVol float64
	runStartDeltaSpr  float64

	runSumRet    float64
	runSumZVol   float64
	runSumSpread float64
}

// StrengthScorer re-scores a confirmed event's onset_strength as a
// post-confirmation filter: a scorer may return a value below
// onset_strength_min to suppress the confirmation entirely, after
// persistence has already decided the run qualifies. The default is
// the identity scorer, which leaves the persistence-computed strength
// untouched.
type StrengthScorer interface {
	Score(ev *model.ConfirmedEvent) float64
}

type identityScorer struct{}

func (identityScorer) Score(ev *model.ConfirmedEvent) float64 { return ev.OnsetStrength }

// Detector evaluates confirmation for one symbol's open candidates
// against the feature-record stream. Not safe for concurrent use.
type Detector struct {
	cfg    config.ConfirmConfig
	symbol string
	scorer StrengthScorer

	buf  []model.FeatureRecord // trailing pre_window_s seconds, oldest first
	open []*openCandidate
}

// New constructs a Confirm Detector for one symbol. An optional
// StrengthScorer may be supplied to post-filter confirmations; omitted,
// the identity scorer is used and every persistence-qualifying run
// confirms.
func New(symbol string, cfg config.ConfirmConfig, scorer ...StrengthScorer) *Detector {
	var s StrengthScorer = identityScorer{}
	if len(scorer) > 0 && scorer[0] != nil {
		s = scorer[0]
	}
	return &Detector{cfg: cfg, symbol: symbol, scorer: s}
}

// Push feeds one feature record to the detector: it updates the
// pre-window buffer, advances every open candidate's persistence run,
// and returns a ConfirmedEvent if a candidate's run just reached
// persistent_n. Candidates whose window has fully elapsed without
// confirming are dropped silently.
func (d *Detector) Push(r model.FeatureRecord) *model.ConfirmedEvent {
	d.pushBuffer(r)

	var confirmedNow []*openCandidate
	kept := d.open[:0]
	for _, c := range d.open {
		windowEnd := c.ts + int64(d.cfg.WindowS)*1000
		if !inPostWindow(c.ts, r.Ts, d.cfg) {
			if r.Ts > windowEnd {
				continue // confirmation window elapsed: silent drop
			}
			kept = append(kept, c)
			continue
		}
		if d.applyRecord(c, r) {
			confirmedNow = append(confirmedNow, c)
			continue
		}
		kept = append(kept, c)
	}

	if len(confirmedNow) > 0 {
		winner := confirmedNow[0]
		for _, c := range confirmedNow[1:] {
			if c.runStartTs < winner.runStartTs {
				winner = c
			}
		}
		// On confirmation, every other open candidate for this symbol is
		// discarded, including any other run that also just confirmed.
		d.open = nil
		return d.buildConfirmedEvent(winner)
	}

	d.open = kept
	return nil
}

// OpenCandidate starts tracking a new candidate: it computes pre-window
// baselines from the buffered history strictly before the candidate's
// ts. When exclude_cand_point is false, the candidate's own record (r,
// the same record that produced it) counts toward the post-window, so
// confirmation can in principle fire immediately. Returns
// ErrEmptyPreWindow if there is no buffered history at all to baseline
// against.
func (d *Detector) OpenCandidate(c *model.CandidateEvent, r model.FeatureRecord) (*model.ConfirmedEvent, error) {
	cutoff := c.Ts - int64(d.cfg.PreWindowS)*1000

	var rets, zvols, spreads, slopes []float64
	for _, rec := range d.buf {
		if rec.Ts >= cutoff && rec.Ts < c.Ts {
			rets = append(rets, rec.Ret1s)
			zvols = append(zvols, rec.ZVol1s)
			spreads = append(spreads, rec.Spread)
			slopes = append(slopes, rec.MicropriceSlope)
		}
	}
	if len(rets) == 0 {
		return nil, ErrEmptyPreWindow
	}

	oc := &openCandidate{
		ts:            c.Ts,
		preRet:        mathutil.Median(rets),
		preZVol:       mathutil.Median(zvols),
		preSpread:     mathutil.Median(spreads),
		preMicroSlope: mathutil.Median(slopes),
	}

	if !d.cfg.ExcludeCandPointOrDefault() {
		if d.applyRecord(oc, r) {
			d.open = nil
			return d.buildConfirmedEvent(oc), nil
		}
	}

	d.open = append(d.open, oc)
	return nil, nil
}

// applyRecord evaluates r against c's delta-improvement criteria,
// advances or resets the consecutive-hit run, and reports whether the
// run just reached persistent_n.
func (d *Detector) applyRecord(c *openCandidate, r model.FeatureRecord) bool {
	hit, axes, strength, deltaRet, deltaZVol, deltaSpread := evaluateHit(r, c, d.cfg)
	if !hit {
		c.runLen = 0
		return false
	}

	if c.runLen == 0 {
		c.runStartTs = r.Ts
		c.runStartAxes = axes
		c.runStartStrength = strength
		c.runStartDeltaRet = deltaRet
		c.runStartDeltaZVol = deltaZVol
		c.runStartDeltaSpr = deltaSpread
		c.runSumRet, c.runSumZVol, c.runSumSpread = 0, 0, 0
	}
	c.runLen++
	c.runSumRet += r.Ret1s
	c.runSumZVol += r.ZVol1s
	c.runSumSpread += r.Spread

	return c.runLen >= d.cfg.PersistentN
}

// evaluateHit computes the three delta-improvement axes for record r
// against candidate c's pre-window baselines and reports whether r
// qualifies as a persistence-run hit.
func evaluateHit(r model.FeatureRecord, c *openCandidate, cfg config.ConfirmConfig) (hit bool, axes []model.ConfirmAxis, strength, deltaRet, deltaZVol, deltaSpread float64) {
	deltaRet = r.Ret1s - c.preRet
	deltaSlope := r.MicropriceSlope - c.preMicroSlope
	priceSat := deltaRet >= cfg.Delta.RetMin || deltaSlope >= cfg.Delta.RetMin

	deltaZVol = r.ZVol1s - c.preZVol
	volSat := deltaZVol >= cfg.Delta.ZVolMin

	deltaSpread = c.preSpread - r.Spread
	frictionSat := deltaSpread >= cfg.Delta.SpreadDrop

	count := 0
	if priceSat {
		axes = append(axes, model.AxisPrice)
		count++
	}
	if volSat {
		axes = append(axes, model.AxisVolume)
		count++
	}
	if frictionSat {
		axes = append(axes, model.AxisFrictionC)
		count++
	}

	strength = float64(count) / 3.0
	hit = count >= cfg.MinAxes && meetsStrength(strength, cfg.OnsetStrengthMin)
	if cfg.RequirePriceAxisOrDefault() && !priceSat {
		hit = false
	}
	return hit, axes, strength, deltaRet, deltaZVol, deltaSpread
}

// meetsStrength compares an onset strength against onset_strength_min at
// two-decimal precision, so two of three axes (2/3) clears a minimum of
// 0.67.
func meetsStrength(strength, threshold float64) bool {
	return math.Round(strength*100)/100 >= threshold
}

// inPostWindow reports whether ts falls within candTs's confirmation
// window, honoring exclude_cand_point for the lower bound.
func inPostWindow(candTs, ts int64, cfg config.ConfirmConfig) bool {
	windowEnd := candTs + int64(cfg.WindowS)*1000
	if ts > windowEnd {
		return false
	}
	if cfg.ExcludeCandPointOrDefault() {
		return ts > candTs
	}
	return ts >= candTs
}

// buildConfirmedEvent assembles the confirmation for a run that has
// just reached persistent_n, then runs it through the configured
// StrengthScorer. A scorer that drives the strength below
// onset_strength_min suppresses the confirmation: the run's state is
// already discarded by the caller either way, so this returns nil
// rather than an event.
func (d *Detector) buildConfirmedEvent(c *openCandidate) *model.ConfirmedEvent {
	n := float64(c.runLen)
	if n == 0 {
		n = 1
	}
	ev := &model.ConfirmedEvent{
		Type:            model.EventConfirmed,
		Ts:              c.runStartTs,
		Symbol:          d.symbol,
		ConfirmedFromTs: c.ts,
		SatisfiedAxes:   c.runStartAxes,
		OnsetStrength:   c.runStartStrength,
		Evidence: model.ConfirmedEvidence{
			DeltaRet:       c.runStartDeltaRet,
			DeltaZVol:      c.runStartDeltaZVol,
			DeltaSpread:    c.runStartDeltaSpr,
			PreRet:         c.preRet,
			PreZVol:        c.preZVol,
			PreSpread:      c.preSpread,
			PostRetMean:    c.runSumRet / n,
			PostZVolMean:   c.runSumZVol / n,
			PostSpreadMean: c.runSumSpread / n,
		},
	}
	ev.OnsetStrength = d.scorer.Score(ev)
	if !meetsStrength(ev.OnsetStrength, d.cfg.OnsetStrengthMin) {
		return nil
	}
	return ev
}

func (d *Detector) pushBuffer(r model.FeatureRecord) {
	d.buf = append(d.buf, r)
	cutoff := r.Ts - int64(d.cfg.PreWindowS)*1000
	i := 0
	for i < len(d.buf) && d.buf[i].Ts < cutoff {
		i++
	}
	if i > 0 {
		d.buf = d.buf[i:]
	}
}
