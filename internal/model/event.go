package model

// EventType discriminates the three output event variants.
type EventType string

const (
	EventCandidate          EventType = "onset_candidate"
	EventConfirmed          EventType = "onset_confirmed"
	EventRejectedRefractory EventType = "onset_rejected_refractory"
)

// CandidateEvidence carries the raw feature values observed at the
// candidate tick, for downstream audit.
type CandidateEvidence struct {
	Ret1s  float64 `json:"ret_1s"`
	ZVol1s float64 `json:"z_vol_1s"`
	Spread float64 `json:"spread"`
}

// CandidateEvent is emitted when the Candidate Detector's absolute
// thresholds fire across enough axes and the symbol is not refractory.
type CandidateEvent struct {
	ID           string              `json:"id"`
	Type         EventType           `json:"event_type"`
	Ts           int64               `json:"ts"`
	Symbol       string              `json:"symbol"`
	Score        int                 `json:"score"`
	TriggerAxes  []CandidateAxis     `json:"trigger_axes"`
	Evidence     CandidateEvidence   `json:"evidence"`
}

// ConfirmedEvidence carries the delta measurements that drove the
// confirmation decision.
type ConfirmedEvidence struct {
	DeltaRet       float64 `json:"delta_ret"`
	DeltaZVol      float64 `json:"delta_zvol"`
	DeltaSpread    float64 `json:"delta_spread"`
	PreRet         float64 `json:"pre_ret"`
	PreZVol        float64 `json:"pre_zvol"`
	PreSpread      float64 `json:"pre_spread"`
	PostRetMean    float64 `json:"post_ret_mean"`
	PostZVolMean   float64 `json:"post_zvol_mean"`
	PostSpreadMean float64 `json:"post_spread_mean"`
}

// ConfirmedEvent is emitted when a candidate's delta-improvement holds
// for persistent_n consecutive post-window records.
type ConfirmedEvent struct {
	ID              string            `json:"id"`
	Type            EventType         `json:"event_type"`
	Ts              int64             `json:"ts"`
	Symbol          string            `json:"symbol"`
	ConfirmedFromTs int64             `json:"confirmed_from_ts"`
	SatisfiedAxes   []ConfirmAxis     `json:"satisfied_axes"`
	OnsetStrength   float64           `json:"onset_strength"`
	Evidence        ConfirmedEvidence `json:"evidence"`
}

// RejectedRefractoryEvent is emitted when a candidate would otherwise
// have been evaluated but the symbol is within its refractory window.
type RejectedRefractoryEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"event_type"`
	Ts             int64     `json:"ts"`
	Symbol         string    `json:"symbol"`
	CandidateTs    int64     `json:"candidate_ts"`
	BlockedUntilTs int64     `json:"blocked_until_ts"`
}

// Event is satisfied by all three output event variants, letting
// callers route, log, and persist them uniformly without a type switch
// on every hop.
type Event interface {
	EventSymbol() string
	EventTs() int64
	EventID() string
	SetEventID(id string)
}

func (e CandidateEvent) EventSymbol() string { return e.Symbol }
func (e CandidateEvent) EventTs() int64      { return e.Ts }
func (e CandidateEvent) EventID() string     { return e.ID }
func (e *CandidateEvent) SetEventID(id string) { e.ID = id }

func (e ConfirmedEvent) EventSymbol() string { return e.Symbol }
func (e ConfirmedEvent) EventTs() int64      { return e.Ts }
func (e ConfirmedEvent) EventID() string     { return e.ID }
func (e *ConfirmedEvent) SetEventID(id string) { e.ID = id }

func (e RejectedRefractoryEvent) EventSymbol() string { return e.Symbol }
func (e RejectedRefractoryEvent) EventTs() int64      { return e.Ts }
func (e RejectedRefractoryEvent) EventID() string     { return e.ID }
func (e *RejectedRefractoryEvent) SetEventID(id string) { e.ID = id }
