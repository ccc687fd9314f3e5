// Package cpd implements an optional change-point pre-filter: a CUSUM
// detector on price return and a Page-Hinkley detector on the volume
// z-score, gating whether downstream candidate evaluation sees a tick
// at all. Default disabled, in which case the gate is a no-op.
//
// The running-baseline bookkeeping (an EMA-updated mean/stdev pair)
// follows internal/pressure.Scorer's adaptive normalization:
// pressure.Scorer tracks a rolling sigma via emaUpdate(prev, |x|, alpha)
// to normalize aggressive/positioning signals. Here the same EMA update
// shape tracks the CUSUM baseline's mean and variance instead of a
// sigma-of-absolute-value, since CUSUM needs a signed mean, not a
// magnitude.
package cpd

import (
	"math"

	"onsetdetect/internal/config"
	"onsetdetect/internal/model"
)

// baselineAlpha is the EMA decay used to track the CUSUM baseline mean
// and variance once warmup completes. Slow adaptation, matching
// pressure.Scorer's SigmaAlpha = 0.05 for stability.
const baselineAlpha = 0.05

// Gate is a per-symbol, two-axis change-point detector used to
// pre-filter the stream before candidate evaluation.
type Gate struct {
	cfg config.CPDConfig

	// Warmup / baseline state for the price (CUSUM) axis.
	warmupSamples  int
	warmupSumRet   float64
	warmupSumRetSq float64
	baselineMean   float64
	baselineVar    float64

	// CUSUM accumulator.
	cusumPos float64

	// Page-Hinkley state for the volume axis.
	phMean float64
	phMT   float64
	phMinT float64
	phInit bool

	// Cooldown bookkeeping — shared across axes, the earliest tick
	// timestamp at which a new trigger is allowed again.
	cooldownUntilTs int64
	hasLastTs       bool
	firstTs         int64
}

// New constructs a CPD gate from the given configuration.
func New(cfg config.CPDConfig) *Gate {
	return &Gate{cfg: cfg}
}

// warmupDone reports whether at least min_pre_s seconds of stream time
// have elapsed since the first record the gate saw. Warmup is measured
// by the ts range of the records, not by how many records arrived, so
// it does not depend on tick rate.
func (g *Gate) warmupDone(ts int64, firstTs int64) bool {
	return ts-firstTs >= int64(g.cfg.Price.MinPreS)*1000
}

// ShouldPass evaluates one feature record and returns whether the gate
// passes it through to the Candidate Detector. When cfg.Use is false the
// gate always passes (no-op default).
func (g *Gate) ShouldPass(r model.FeatureRecord) bool {
	if !g.cfg.Use {
		return true
	}

	if !g.hasLastTs {
		g.firstTs = r.Ts
		g.hasLastTs = true
	}

	inWarmup := !g.warmupDone(r.Ts, g.firstTs)

	g.updateBaseline(r.Ret1s)

	priceFired := g.updateCUSUM(r.Ret1s, inWarmup)
	volumeFired := g.updatePageHinkley(r.ZVol1s, r.ZVolAvailable, inWarmup)

	if inWarmup {
		return false
	}

	fired := priceFired || volumeFired
	if !fired {
		return false
	}

	if r.Ts < g.cooldownUntilTs {
		// Within cooldown: suppress the pass, but baselines above have
		// already been updated.
		return false
	}

	g.cooldownUntilTs = r.Ts + int64(g.cfg.CooldownS*1000)
	return true
}

func (g *Gate) updateBaseline(ret float64) {
	g.warmupSamples++
	if g.warmupSamples <= 1 {
		g.baselineMean = ret
		g.baselineVar = 0
		return
	}
	// Keep an EMA-updated mean/variance so the baseline keeps adapting
	// slowly in both the warmup and live phase.
	delta := ret - g.baselineMean
	g.baselineMean += baselineAlpha * delta
	g.baselineVar = (1-baselineAlpha)*(g.baselineVar+baselineAlpha*delta*delta)
}

func (g *Gate) sigma() float64 {
	s := math.Sqrt(g.baselineVar)
	if s < 1e-9 {
		return 1e-9
	}
	return s
}

// updateCUSUM implements a one-sided CUSUM. Always mutates state; the
// caller decides whether a warmup-phase trigger counts.
func (g *Gate) updateCUSUM(ret float64, inWarmup bool) bool {
	sigma := g.sigma()
	k := g.cfg.Price.KSigma * sigma

	g.cusumPos = math.Max(0, g.cusumPos+(ret-g.baselineMean)/sigma-k)

	threshold := g.cfg.Price.HMult * math.Max(k, 1)
	fired := g.cusumPos > threshold
	if fired {
		g.cusumPos = 0
	}
	if inWarmup {
		return false
	}
	return fired
}

// updatePageHinkley implements a Page-Hinkley detector on z_vol_1s.
func (g *Gate) updatePageHinkley(zVol float64, available bool, inWarmup bool) bool {
	if !available {
		return false
	}

	if !g.phInit {
		g.phMean = zVol
		g.phInit = true
	} else {
		g.phMean += (zVol - g.phMean) / float64(max(1, g.warmupSamples))
	}

	g.phMT += zVol - g.phMean - g.cfg.Volume.Delta
	if g.phMT < g.phMinT {
		g.phMinT = g.phMT
	}

	fired := g.phMT-g.phMinT > g.cfg.Volume.Lambda
	if fired {
		g.phMT = 0
		g.phMinT = 0
	}
	if inWarmup {
		return false
	}
	return fired
}
