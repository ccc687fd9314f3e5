package pipeline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"onsetdetect/internal/config"
	"onsetdetect/internal/logging"
	"onsetdetect/internal/model"
)

func flatTick(ts int64, price float64) model.Tick {
	return model.Tick{
		Ts: ts, Symbol: "005930", Price: price, Volume: 1.0,
		Bid1: price - 0.05, Ask1: price + 0.05, BidQty1: 100, AskQty1: 100,
	}
}

func surgeTick(ts int64, price, volume float64) model.Tick {
	return model.Tick{
		Ts: ts, Symbol: "005930", Price: price, Volume: volume,
		Bid1: price - 0.02, Ask1: price + 0.02, BidQty1: 100, AskQty1: 100,
	}
}

func pushAll(t *testing.T, p *Pipeline, ticks []model.Tick) []model.Event {
	var all []model.Event
	for _, tk := range ticks {
		evs, err := p.Push(tk)
		require.NoError(t, err)
		all = append(all, evs...)
	}
	return all
}

func flatBaseline(startTs int64, n int, stepMs int64) []model.Tick {
	ticks := make([]model.Tick, 0, n)
	ts := startTs
	for i := 0; i < n; i++ {
		ticks = append(ticks, flatTick(ts, 100.0))
		ts += stepMs
	}
	return ticks
}

func filterByType(evs []model.Event, et model.EventType) []model.Event {
	var out []model.Event
	for _, e := range evs {
		switch v := e.(type) {
		case *model.CandidateEvent:
			if v.Type == et {
				out = append(out, e)
			}
		case *model.ConfirmedEvent:
			if v.Type == et {
				out = append(out, e)
			}
		case *model.RejectedRefractoryEvent:
			if v.Type == et {
				out = append(out, e)
			}
		}
	}
	return out
}

func TestCleanSurgeProducesCandidateAndConfirms(t *testing.T) {
	cfg := config.Default()
	cfg.Confirm.PersistentN = 3
	cfg.Features.VolWindowS = 10
	p := New("005930", cfg, logging.Default("test"))

	var all []model.Event
	all = append(all, pushAll(t, p, flatBaseline(0, 50, 200))...)

	ts := int64(50 * 200)
	var surge []model.Tick
	for i := 0; i < 30; i++ {
		surge = append(surge, surgeTick(ts, 100.3, 8.0))
		ts += 100
	}
	all = append(all, pushAll(t, p, surge)...)

	candidates := filterByType(all, model.EventCandidate)
	confirmed := filterByType(all, model.EventConfirmed)
	require.NotEmpty(t, candidates, "expected at least one candidate during the step surge")
	require.NotEmpty(t, confirmed, "expected the sustained surge to confirm")
}

func TestRefractorySuppressesImmediateDuplicateCandidate(t *testing.T) {
	cfg := config.Default()
	cfg.Confirm.PersistentN = 2
	cfg.Refractory.DurationS = 45
	p := New("005930", cfg, logging.Default("test"))

	var all []model.Event
	all = append(all, pushAll(t, p, flatBaseline(0, 50, 200))...)

	ts := int64(50 * 200)
	var surge []model.Tick
	for i := 0; i < 15; i++ {
		surge = append(surge, surgeTick(ts, 100.3, 8.0))
		ts += 100
	}
	all = append(all, pushAll(t, p, surge)...)

	confirmed := filterByType(all, model.EventConfirmed)
	require.NotEmpty(t, confirmed, "setup requires a confirmation before the refractory check is meaningful")

	// Immediately inject another identical surge; it must not confirm
	// again or even re-candidate while still within the refractory
	// window.
	var again []model.Tick
	for i := 0; i < 15; i++ {
		again = append(again, surgeTick(ts, 100.3, 8.0))
		ts += 100
	}
	followUp := pushAll(t, p, again)

	require.Empty(t, filterByType(followUp, model.EventConfirmed))
	require.NotEmpty(t, filterByType(followUp, model.EventRejectedRefractory))
}

func TestBadTickDoesNotHaltPipeline(t *testing.T) {
	cfg := config.Default()
	p := New("005930", cfg, logging.Default("test"))

	_, err := p.Push(flatTick(0, 100.0))
	require.NoError(t, err)
	_, err = p.Push(flatTick(-1, 100.0)) // ts regression
	require.Error(t, err)

	// Pipeline must still accept subsequent valid ticks.
	_, err = p.Push(flatTick(1000, 100.0))
	require.NoError(t, err)
}

// TestGradualBuildUpNeverConfirms exercises a slow, steady price drift with
// no step change in volume or return: the Candidate Detector's absolute
// thresholds should never fire, so no Candidate and a fortiori no Confirmed
// event is ever produced.
func TestGradualBuildUpNeverConfirms(t *testing.T) {
	cfg := config.Default()
	p := New("005930", cfg, logging.Default("test"))

	var all []model.Event
	all = append(all, pushAll(t, p, flatBaseline(0, 50, 200))...)

	ts := int64(50 * 200)
	price := 100.0
	var drift []model.Tick
	for i := 0; i < 200; i++ {
		price += 0.0002 // far below ret_1s_threshold per tick
		drift = append(drift, flatTick(ts, price))
		ts += 200
	}
	all = append(all, pushAll(t, p, drift)...)

	require.Empty(t, filterByType(all, model.EventCandidate), "a gradual drift must never cross the absolute candidate thresholds")
	require.Empty(t, filterByType(all, model.EventConfirmed))
}

// TestEventTimestampsAreNonDecreasingPerSymbol is Universal Invariant 1:
// every event a pipeline emits for a symbol carries a ts no earlier than
// the previous event's ts.
func TestEventTimestampsAreNonDecreasingPerSymbol(t *testing.T) {
	cfg := config.Default()
	cfg.Confirm.PersistentN = 3
	p := New("005930", cfg, logging.Default("test"))

	var all []model.Event
	all = append(all, pushAll(t, p, flatBaseline(0, 50, 200))...)
	ts := int64(50 * 200)
	var surge []model.Tick
	for i := 0; i < 30; i++ {
		surge = append(surge, surgeTick(ts, 100.3, 8.0))
		ts += 100
	}
	all = append(all, pushAll(t, p, surge)...)

	require.NotEmpty(t, all)
	var lastTs int64 = -1
	for _, e := range all {
		require.GreaterOrEqual(t, e.EventTs(), lastTs)
		lastTs = e.EventTs()
	}
}

// TestConfirmedFromTsReferencesAnEarlierOrEqualCandidate is part of
// Universal Invariant 3: a ConfirmedEvent's confirmed_from_ts must match a
// candidate that was actually observed at or before the confirmation.
func TestConfirmedFromTsReferencesAnEarlierOrEqualCandidate(t *testing.T) {
	cfg := config.Default()
	cfg.Confirm.PersistentN = 3
	p := New("005930", cfg, logging.Default("test"))

	var all []model.Event
	all = append(all, pushAll(t, p, flatBaseline(0, 50, 200))...)
	ts := int64(50 * 200)
	var surge []model.Tick
	for i := 0; i < 30; i++ {
		surge = append(surge, surgeTick(ts, 100.3, 8.0))
		ts += 100
	}
	all = append(all, pushAll(t, p, surge)...)

	candidateTs := map[int64]bool{}
	for _, e := range filterByType(all, model.EventCandidate) {
		candidateTs[e.(*model.CandidateEvent).Ts] = true
	}
	confirmed := filterByType(all, model.EventConfirmed)
	require.NotEmpty(t, confirmed)
	for _, e := range confirmed {
		ce := e.(*model.ConfirmedEvent)
		require.True(t, candidateTs[ce.ConfirmedFromTs], "confirmed_from_ts %d must match an observed candidate", ce.ConfirmedFromTs)
		require.LessOrEqual(t, ce.ConfirmedFromTs, ce.Ts)
	}
}

// TestBatchAndTickByTickReplayProduceIdenticalEvents is Scenario D: feeding
// the same tick sequence through a pipeline all at once or one at a time
// must yield byte-identical event sequences, since Push has no notion of
// "batch" and processes exactly one tick per call either way.
func TestBatchAndTickByTickReplayProduceIdenticalEvents(t *testing.T) {
	cfg := config.Default()
	cfg.Confirm.PersistentN = 3
	ticks := append(flatBaseline(0, 50, 200), func() []model.Tick {
		ts := int64(50 * 200)
		var surge []model.Tick
		for i := 0; i < 30; i++ {
			surge = append(surge, surgeTick(ts, 100.3, 8.0))
			ts += 100
		}
		return surge
	}()...)

	p1 := New("005930", cfg, logging.Default("test"))
	var viaOneCall []model.Event
	for _, tk := range ticks {
		evs, err := p1.Push(tk)
		require.NoError(t, err)
		viaOneCall = append(viaOneCall, evs...)
	}

	p2 := New("005930", cfg, logging.Default("test"))
	var viaLoop []model.Event
	for _, tk := range ticks {
		evs, err := p2.Push(tk)
		require.NoError(t, err)
		for _, e := range evs {
			viaLoop = append(viaLoop, e)
		}
	}

	require.Equal(t, len(viaOneCall), len(viaLoop))
	for i := range viaOneCall {
		require.Equal(t, viaOneCall[i], viaLoop[i])
	}
}

// TestRefractoryWindowNeverOverlapsConfirmedOnsets is Universal Invariant 2:
// no RejectedRefractory event's candidate_ts should fall inside a window
// that was, at the time, not yet opened by a confirmation — and once a
// confirmation opens a refractory window, every rejected candidate until
// blocked_until_ts must report the same (or a later, if extended)
// blocked_until_ts.
func TestRefractoryWindowNeverOverlapsConfirmedOnsets(t *testing.T) {
	cfg := config.Default()
	cfg.Confirm.PersistentN = 2
	cfg.Refractory.DurationS = 45
	p := New("005930", cfg, logging.Default("test"))

	var all []model.Event
	all = append(all, pushAll(t, p, flatBaseline(0, 50, 200))...)
	ts := int64(50 * 200)
	var surge []model.Tick
	for i := 0; i < 15; i++ {
		surge = append(surge, surgeTick(ts, 100.3, 8.0))
		ts += 100
	}
	all = append(all, pushAll(t, p, surge)...)

	confirmed := filterByType(all, model.EventConfirmed)
	require.NotEmpty(t, confirmed)
	lastConfirmTs := confirmed[len(confirmed)-1].(*model.ConfirmedEvent).Ts

	var again []model.Tick
	for i := 0; i < 15; i++ {
		again = append(again, surgeTick(ts, 100.3, 8.0))
		ts += 100
	}
	followUp := pushAll(t, p, again)

	for _, e := range filterByType(followUp, model.EventRejectedRefractory) {
		re := e.(*model.RejectedRefractoryEvent)
		require.GreaterOrEqual(t, re.CandidateTs, lastConfirmTs, "a rejected candidate must fall after the confirmation that opened the window")
		require.Greater(t, re.BlockedUntilTs, re.CandidateTs)
	}
}

// randomWalkPipelineTicks generates a noisy tick sequence for symbol with
// occasional volume/spread bursts layered on top of a random walk, so the
// sequence exercises the Candidate/Confirm/Refractory machinery rather than
// staying forever flat.
func randomWalkPipelineTicks(seed int64, n int, symbol string) []model.Tick {
	rng := rand.New(rand.NewSource(seed))
	ticks := make([]model.Tick, 0, n)
	ts := int64(0)
	price := 100.0
	for i := 0; i < n; i++ {
		ts += int64(50 + rng.Intn(150))
		burst := rng.Intn(40) == 0
		vol := rng.Float64() * 2
		spread := 0.05 + rng.Float64()*0.05
		if burst {
			price += (rng.Float64() - 0.3) * 0.5
			vol += 6
			spread = 0.01 + rng.Float64()*0.02
		} else {
			price += (rng.Float64() - 0.5) * 0.05
		}
		if price < 1 {
			price = 1
		}
		ticks = append(ticks, model.Tick{
			Ts: ts, Symbol: symbol, Price: price, Volume: vol,
			Bid1: price - spread/2, Ask1: price + spread/2, BidQty1: 100, AskQty1: 100,
		})
	}
	return ticks
}

// TestIdempotenceUnderRandomWalkReplay is Universal Invariant 7 exercised
// with a random walk rather than a single fixed scenario: replaying the
// identical tick sequence through two freshly constructed pipelines must
// produce byte-identical event sequences every time, for many distinct
// random seeds.
func TestIdempotenceUnderRandomWalkReplay(t *testing.T) {
	cfg := config.Default()
	cfg.Confirm.PersistentN = 4

	for _, seed := range []int64{1, 2, 3, 4, 5} {
		ticks := randomWalkPipelineTicks(seed, 500, "005930")

		p1 := New("005930", cfg, logging.Default("test"))
		evs1 := pushAll(t, p1, ticks)

		p2 := New("005930", cfg, logging.Default("test"))
		evs2 := pushAll(t, p2, ticks)

		require.Equal(t, len(evs1), len(evs2), "seed %d: replay produced a different event count", seed)
		for i := range evs1 {
			require.Equal(t, evs1[i], evs2[i], "seed %d: event %d diverged on replay", seed, i)
		}
	}
}

// TestDisjointPerSymbolStateUnderInterleaving is Universal Invariant 8:
// interleaving two symbols' tick streams into pipelines keyed by symbol
// must produce, for each symbol, exactly the events that symbol would have
// produced if processed entirely alone — no cross-symbol leakage of
// baseline, refractory, or run state.
func TestDisjointPerSymbolStateUnderInterleaving(t *testing.T) {
	cfg := config.Default()
	cfg.Confirm.PersistentN = 4

	ticksA := randomWalkPipelineTicks(11, 300, "005930")
	ticksB := randomWalkPipelineTicks(97, 300, "000660")

	// Baseline: each symbol processed alone by its own pipeline.
	aAlone := New("005930", cfg, logging.Default("test"))
	wantA := pushAll(t, aAlone, ticksA)

	bAlone := New("000660", cfg, logging.Default("test"))
	wantB := pushAll(t, bAlone, ticksB)

	// Interleaved: a single map of pipelines keyed by symbol, fed ticks
	// from both symbols in arrival order, as Router.runWorker does for
	// every symbol hashed to the same shard.
	pipelines := map[string]*Pipeline{}
	var gotA, gotB []model.Event
	i, j := 0, 0
	for i < len(ticksA) || j < len(ticksB) {
		var tk model.Tick
		var symbol string
		switch {
		case i < len(ticksA) && (j >= len(ticksB) || i <= j):
			tk, symbol = ticksA[i], "005930"
			i++
		default:
			tk, symbol = ticksB[j], "000660"
			j++
		}
		p, ok := pipelines[symbol]
		if !ok {
			p = New(symbol, cfg, logging.Default("test"))
			pipelines[symbol] = p
		}
		evs, err := p.Push(tk)
		require.NoError(t, err)
		if symbol == "005930" {
			gotA = append(gotA, evs...)
		} else {
			gotB = append(gotB, evs...)
		}
	}

	require.Equal(t, wantA, gotA, "symbol 005930's events must be unaffected by interleaving with 000660")
	require.Equal(t, wantB, gotB, "symbol 000660's events must be unaffected by interleaving with 005930")
}
