// Package generation runs QR payload generation as an explicit state
// machine. A Controller owns one Snapshot; every change goes through the
// pure Transition function, so a pending generation resolves exactly once
// and results for an older sequence number are ignored.
package generation

import "github.com/fps2me/fpsqr/identifier"

// State is the generation status
type State string

const (
	StateIdle      State = "idle"
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Terminal reports whether s is Succeeded or Failed
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Snapshot is the observable generation state. Payload is set only when
// Succeeded and Reason only when Failed.
type Snapshot struct {
	State     State           `json:"state"`
	Payload   string          `json:"payload,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Kind      identifier.Kind `json:"kind,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Seq       uint64          `json:"seq"`
}

// Err returns an *EncodingError for a Failed snapshot, nil otherwise
func (s Snapshot) Err() error {
	if s.State != StateFailed {
		return nil
	}
	return &EncodingError{RequestID: s.RequestID, Reason: s.Reason}
}

// Event drives Transition
type Event interface {
	event()
}

// Started begins generation Seq
type Started struct {
	Seq       uint64
	RequestID string
	Kind      identifier.Kind
}

// Resolved completes generation Seq with a payload
type Resolved struct {
	Seq     uint64
	Payload string
}

// Rejected completes generation Seq with a failure reason
type Rejected struct {
	Seq    uint64
	Reason string
}

func (Started) event()  {}
func (Resolved) event() {}
func (Rejected) event() {}

// Transition returns the snapshot after applying e to s. Events that are
// not valid in the current state leave s unchanged: Started while Pending,
// and Resolved or Rejected when not Pending or for a different Seq.
func Transition(s Snapshot, e Event) Snapshot {
	switch ev := e.(type) {
	case Started:
		if s.State == StatePending {
			return s
		}
		return Snapshot{
			State:     StatePending,
			Kind:      ev.Kind,
			RequestID: ev.RequestID,
			Seq:       ev.Seq,
		}

	case Resolved:
		if s.State != StatePending || s.Seq != ev.Seq {
			return s
		}
		if ev.Payload == "" {
			s.State = StateFailed
			s.Reason = "encoder returned an empty payload"
			return s
		}
		s.State = StateSucceeded
		s.Payload = ev.Payload
		return s

	case Rejected:
		if s.State != StatePending || s.Seq != ev.Seq {
			return s
		}
		s.State = StateFailed
		s.Payload = ""
		s.Reason = ev.Reason
		if s.Reason == "" {
			s.Reason = "unknown encoder error"
		}
		return s
	}
	return s
}
