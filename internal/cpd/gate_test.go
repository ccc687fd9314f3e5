package cpd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"onsetdetect/internal/config"
	"onsetdetect/internal/model"
)

func rec(ts int64, ret, zvol float64, zvolAvail bool) model.FeatureRecord {
	return model.FeatureRecord{Ts: ts, Ret1s: ret, ZVol1s: zvol, ZVolAvailable: zvolAvail}
}

func TestDisabledGateAlwaysPasses(t *testing.T) {
	cfg := config.Default().CPD
	cfg.Use = false
	g := New(cfg)

	for i := int64(0); i < 50; i++ {
		require.True(t, g.ShouldPass(rec(i*1000, 0.5, 10, true)))
	}
}

func TestGateSuppressesDuringWarmup(t *testing.T) {
	cfg := config.Default().CPD
	cfg.Use = true
	cfg.Price.MinPreS = 10
	g := New(cfg)

	for i := int64(0); i < 9; i++ {
		require.False(t, g.ShouldPass(rec(i*1000, 0.001, 1, true)))
	}
}

func TestCUSUMFiresOnSustainedPositiveReturn(t *testing.T) {
	cfg := config.Default().CPD
	cfg.Use = true
	cfg.Price.MinPreS = 5
	cfg.Price.KSigma = 0.7
	cfg.Price.HMult = 6.0
	cfg.CooldownS = 0
	g := New(cfg)

	// Warmup with tiny noise around 0.
	for i := int64(0); i < 5; i++ {
		g.ShouldPass(rec(i*1000, 0.0001, 1, true))
	}

	fired := false
	for i := int64(5); i < 60; i++ {
		if g.ShouldPass(rec(i*1000, 0.01, 1, true)) {
			fired = true
			break
		}
	}
	require.True(t, fired, "CUSUM should eventually fire on a sustained positive shift")
}

func TestCooldownSuppressesRepeatedTriggers(t *testing.T) {
	cfg := config.Default().CPD
	cfg.Use = true
	cfg.Price.MinPreS = 2
	cfg.Price.KSigma = 0.1
	cfg.Price.HMult = 0.5
	cfg.CooldownS = 5.0
	g := New(cfg)

	for i := int64(0); i < 2; i++ {
		g.ShouldPass(rec(i*1000, 0.0, 1, true))
	}

	firstPass := -1
	for i := int64(2); i < 20; i++ {
		if g.ShouldPass(rec(i*1000, 0.05, 1, true)) {
			firstPass = int(i)
			break
		}
	}
	require.NotEqual(t, -1, firstPass, "expected a trigger before cooldown test can proceed")

	// Immediately after the trigger, further fires within cooldown_s must
	// not pass even if the detector re-triggers.
	blocked := g.ShouldPass(rec(int64(firstPass+1)*1000, 0.05, 1, true))
	require.False(t, blocked)
}

func TestPageHinkleyIgnoresUnavailableZVol(t *testing.T) {
	cfg := config.Default().CPD
	cfg.Use = true
	cfg.Price.MinPreS = 1
	g := New(cfg)

	g.ShouldPass(rec(0, 0, 0, false))
	passed := g.ShouldPass(rec(1000, 0, 0, false))
	require.False(t, passed)
}
