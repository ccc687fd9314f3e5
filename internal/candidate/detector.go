// Package candidate implements the Candidate Detector: a mostly-
// stateless predicate over absolute thresholds across three orthogonal
// axes (speed, participation, friction), with one small piece of state
// — a rolling spread baseline — needed for the friction axis. Follows
// internal/orderbook.Book's pressure-scoring shape: accumulate a small
// window of recent values, derive a threshold from it, compare the
// current reading against it.
package candidate

import (
	"onsetdetect/internal/config"
	"onsetdetect/internal/mathutil"
	"onsetdetect/internal/model"
)

type spreadSample struct {
	ts     int64
	spread float64
}

// Detector evaluates the three absolute-threshold axes for one symbol.
// Not safe for concurrent use.
type Detector struct {
	cfg config.DetectionConfig

	spreadHist []spreadSample // pruned to baseline_window_s, oldest first
}

// New constructs a Candidate Detector from the given configuration.
func New(cfg config.DetectionConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Evaluate checks the three axes against the current feature record and
// returns a CandidateEvent when at least MinAxesRequired axes fire. The
// spread baseline is updated regardless of outcome, since the baseline
// needs continuous history independent of whether a candidate fires.
// Refractory suppression is the caller's responsibility: the pipeline
// consults the refractory manager before candidate evaluation, so this
// method is called only on ticks already confirmed not to be within a
// refractory window.
func (d *Detector) Evaluate(r model.FeatureRecord) *model.CandidateEvent {
	if r.SpreadAvailable {
		d.pushSpread(r.Ts, r.Spread)
	}

	var axes []model.CandidateAxis

	if r.Ret1s > d.cfg.RetThreshold {
		axes = append(axes, model.AxisSpeed)
	}
	if r.ZVol1s > d.cfg.ZVolThreshold {
		axes = append(axes, model.AxisParticipation)
	}
	if d.frictionFires(r) {
		axes = append(axes, model.AxisFriction)
	}

	if len(axes) < d.cfg.MinAxesRequired {
		return nil
	}

	return &model.CandidateEvent{
		Type:        model.EventCandidate,
		Ts:          r.Ts,
		Symbol:      r.Symbol,
		Score:       len(axes),
		TriggerAxes: axes,
		Evidence: model.CandidateEvidence{
			Ret1s:  r.Ret1s,
			ZVol1s: r.ZVol1s,
			Spread: r.Spread,
		},
	}
}

// frictionFires reports whether the friction axis fired: the current
// spread is narrower than spread_narrowing_pct of the trailing median
// spread. If spread is undefined on the current tick, the axis simply
// does not fire (it is absent, not failed).
func (d *Detector) frictionFires(r model.FeatureRecord) bool {
	if !r.SpreadAvailable {
		return false
	}
	if len(d.spreadHist) == 0 {
		return false
	}
	values := make([]float64, len(d.spreadHist))
	for i, s := range d.spreadHist {
		values[i] = s.spread
	}
	baseline := mathutil.Median(values)
	return r.Spread < baseline*d.cfg.SpreadNarrowingPct
}

func (d *Detector) pushSpread(ts int64, spread float64) {
	d.spreadHist = append(d.spreadHist, spreadSample{ts: ts, spread: spread})

	cutoff := ts - int64(d.cfg.BaselineWindowS)*1000
	i := 0
	for i < len(d.spreadHist) && d.spreadHist[i].ts < cutoff {
		i++
	}
	if i > 0 {
		d.spreadHist = d.spreadHist[i:]
	}
}
