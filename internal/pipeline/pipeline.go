// Package pipeline wires the Feature Engine, CPD Gate, Candidate
// Detector, Confirm Detector, and Refractory Manager into the
// unidirectional per-symbol pipeline, and shards ticks across symbols
// with a worker pool. The wiring order (bus → single engine goroutine →
// broadcaster) and bus.Bus's non-blocking-publish shape follow
// cmd/orderflow/main.go, generalized from one shared engine instance to
// one pipeline instance per symbol.
package pipeline

import (
	"github.com/rs/zerolog"

	"onsetdetect/internal/candidate"
	"onsetdetect/internal/config"
	"onsetdetect/internal/confirm"
	"onsetdetect/internal/cpd"
	"onsetdetect/internal/features"
	"onsetdetect/internal/metrics"
	"onsetdetect/internal/model"
	"onsetdetect/internal/refractory"
)

// ChangePointGate is the pipeline's pluggable pre-filter capability: it
// decides whether a feature record is even worth evaluating for
// candidacy. cpd.Gate is the only implementation shipped; the interface
// exists so the pipeline stays parametric over the gating strategy,
// selected once at construction rather than dispatched at runtime.
type ChangePointGate interface {
	ShouldPass(r model.FeatureRecord) bool
}

// Pipeline owns one symbol's full detection state. Not safe for
// concurrent use; the Router guarantees each Pipeline is driven by
// exactly one goroutine.
type Pipeline struct {
	symbol string
	log    zerolog.Logger

	features   *features.Engine
	gate       ChangePointGate
	candidates *candidate.Detector
	confirm    *confirm.Detector
	refractory *refractory.Manager
}

// New constructs a Pipeline for one symbol.
func New(symbol string, cfg config.Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		symbol:     symbol,
		log:        log,
		features:   features.NewEngine(symbol, cfg.Features),
		gate:       cpd.New(cfg.CPD),
		candidates: candidate.New(cfg.Detection),
		confirm:    confirm.New(symbol, cfg.Confirm),
		refractory: refractory.New(cfg.Refractory),
	}
}

// Push processes one tick through the full pipeline and returns the
// events it produced — a single tick yields at most one Candidate, one
// Confirmed, and one RejectedRefractory event, never a Candidate and a
// RejectedRefractory together. Push never blocks; the caller decides
// whether and how to log or persist the returned events. A non-nil
// error means the tick was malformed and rejected; the pipeline's own
// state is untouched.
func (p *Pipeline) Push(t model.Tick) ([]model.Event, error) {
	fr, err := p.features.Push(t)
	if err != nil {
		metrics.BadTicksTotal.WithLabelValues(p.symbol).Inc()
		return nil, err
	}
	metrics.TicksProcessedTotal.WithLabelValues(p.symbol).Inc()

	var out []model.Event

	// Confirmation runs on every feature record against a buffer
	// decoupled from the refractory check, regardless of whether this
	// tick itself becomes a candidate.
	if confirmed := p.confirm.Push(fr); confirmed != nil {
		p.onConfirmed(confirmed)
		out = append(out, confirmed)
	}

	if !p.gate.ShouldPass(fr) {
		return out, nil
	}

	if p.refractory.IsBlocked(p.symbol, fr.Ts) {
		out = append(out, p.onRejected(fr.Ts))
		return out, nil
	}

	cand := p.candidates.Evaluate(fr)
	if cand == nil {
		return out, nil
	}
	p.onCandidate(cand)
	out = append(out, cand)

	confirmedNow, err := p.confirm.OpenCandidate(cand, fr)
	if err != nil {
		p.log.Debug().Err(err).Str("symbol", p.symbol).Int64("candidate_ts", cand.Ts).Msg("candidate dropped")
		return out, nil
	}
	if confirmedNow != nil {
		p.onConfirmed(confirmedNow)
		out = append(out, confirmedNow)
	}
	return out, nil
}

func (p *Pipeline) onCandidate(c *model.CandidateEvent) {
	metrics.CandidatesTotal.WithLabelValues(p.symbol).Inc()
}

func (p *Pipeline) onConfirmed(c *model.ConfirmedEvent) {
	p.refractory.OnConfirm(p.symbol, c.Ts)
	metrics.ConfirmedTotal.WithLabelValues(p.symbol).Inc()
	metrics.ConfirmLatencySeconds.WithLabelValues(p.symbol).Observe(float64(c.Ts-c.ConfirmedFromTs) / 1000.0)
}

func (p *Pipeline) onRejected(candidateTs int64) *model.RejectedRefractoryEvent {
	blockedUntil := p.refractory.OnReject(p.symbol)
	metrics.RejectedRefractoryTotal.WithLabelValues(p.symbol).Inc()
	return &model.RejectedRefractoryEvent{
		Type:           model.EventRejectedRefractory,
		Ts:             candidateTs,
		Symbol:         p.symbol,
		CandidateTs:    candidateTs,
		BlockedUntilTs: blockedUntil,
	}
}
