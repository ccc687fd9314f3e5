// Package refractory implements the post-confirmation cooldown that
// suppresses further candidate evaluation for a symbol until its
// refractory window elapses. Follows bus.Bus's subscriber bookkeeping
// shape: a small per-key map guarded by single-goroutine ownership, no
// locking needed because each symbol already lives on one goroutine.
package refractory

import "onsetdetect/internal/config"

// Manager tracks, per symbol, the timestamp before which candidate
// evaluation is suppressed. Not safe for concurrent use across symbols
// sharing one Manager; callers that shard by symbol across goroutines
// must give each shard its own Manager.
type Manager struct {
	cfg config.RefractoryConfig

	blockedUntil map[string]int64
}

// New constructs a Refractory Manager from the given configuration.
func New(cfg config.RefractoryConfig) *Manager {
	return &Manager{
		cfg:          cfg,
		blockedUntil: make(map[string]int64),
	}
}

// IsBlocked reports whether symbol is within its refractory window at
// ts. A symbol never seen before is never blocked.
func (m *Manager) IsBlocked(symbol string, ts int64) bool {
	until, ok := m.blockedUntil[symbol]
	if !ok {
		return false
	}
	return ts < until
}

// BlockedUntil returns the timestamp a symbol is blocked until, and
// whether it has any refractory window recorded at all.
func (m *Manager) BlockedUntil(symbol string) (int64, bool) {
	until, ok := m.blockedUntil[symbol]
	return until, ok
}

// OnConfirm records a new refractory window starting at the confirmed
// event's timestamp. If a window is already open for the symbol and
// extend_on_confirm is set, the new window replaces it outright rather
// than stacking; otherwise the existing window is left alone only when
// it already extends past the new one.
func (m *Manager) OnConfirm(symbol string, ts int64) {
	newUntil := ts + int64(m.cfg.DurationS*1000)

	if existing, ok := m.blockedUntil[symbol]; ok {
		if !m.cfg.ExtendOnConfirmOrDefault() && existing > newUntil {
			return
		}
	}
	m.blockedUntil[symbol] = newUntil
}

// OnReject is a diagnostic hook invoked whenever a candidate is
// suppressed by an active refractory window. It performs no state
// mutation of its own — the window was already set by the confirmation
// that caused it — and exists so callers can build a
// RejectedRefractoryEvent without re-deriving the blocked-until value.
func (m *Manager) OnReject(symbol string) (blockedUntilTs int64) {
	return m.blockedUntil[symbol]
}
