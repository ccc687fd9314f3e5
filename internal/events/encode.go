package events

import (
	"encoding/json"

	"onsetdetect/internal/model"
)

// EncodeCandidate, EncodeConfirmed, and EncodeRejected render one event
// variant as a single JSON line, mirroring BuildLogRow's one-function-
// per-row-shape convention: an explicit translation function per output
// variant rather than a generic marshal, so a future change to one
// event's on-disk shape can't silently affect the others.

func EncodeCandidate(e *model.CandidateEvent) ([]byte, error) {
	return json.Marshal(e)
}

func EncodeConfirmed(e *model.ConfirmedEvent) ([]byte, error) {
	return json.Marshal(e)
}

func EncodeRejected(e *model.RejectedRefractoryEvent) ([]byte, error) {
	return json.Marshal(e)
}

// encode dispatches to the variant-specific encoder by type, falling
// back to a generic marshal for any Event implementation the sink
// doesn't know about by name.
func encode(e model.Event) ([]byte, error) {
	switch v := e.(type) {
	case *model.CandidateEvent:
		return EncodeCandidate(v)
	case *model.ConfirmedEvent:
		return EncodeConfirmed(v)
	case *model.RejectedRefractoryEvent:
		return EncodeRejected(v)
	default:
		return json.Marshal(e)
	}
}
