package model

// CandidateAxis identifies which absolute-threshold axis fired for a
// candidate event. Deliberately a distinct enum from ConfirmAxis: a
// candidate axis names which threshold crossed, a confirm axis names
// which delta-improvement held — the same underlying quantity (friction)
// can appear in both with different meanings.
type CandidateAxis string

const (
	AxisSpeed         CandidateAxis = "speed"
	AxisParticipation CandidateAxis = "participation"
	AxisFriction      CandidateAxis = "friction"
)

// ConfirmAxis identifies which delta-improvement axis was satisfied
// during confirmation.
type ConfirmAxis string

const (
	AxisPrice     ConfirmAxis = "price"
	AxisVolume    ConfirmAxis = "volume"
	AxisFrictionC ConfirmAxis = "friction"
)
