// File: api/schemas/events.go
package schemas

import (
	"time"
)

// Method identifies which detection strategy produced a DetectionEvent.
type Method string

const (
	// MethodMessage is a cross-document message accepted from a trusted origin.
	MethodMessage Method = "message"
	// MethodLocationPoll is a best-effort read of the embedded frame's address.
	MethodLocationPoll Method = "locationPoll"
	// MethodMutation is a positive match on text added to the host document.
	MethodMutation Method = "mutation"
	// MethodNavigation is a load/navigation signal from the embedded frame.
	MethodNavigation Method = "navigation"
	// MethodCustomEvent is one of the recognized completion event names firing.
	MethodCustomEvent Method = "customEvent"
	// MethodManual is an explicit external trigger (fallback button, CLI, debugging).
	MethodManual Method = "manual"
)

// DetectionEvent is a transient notification that a detector believes the
// embedded widget has completed. Events are consumed once by the dispatcher
// and never stored; only their aggregate effect on dispatcher state persists.
type DetectionEvent struct {
	// ID uniquely identifies this event for log correlation.
	ID string `json:"id"`
	// Method is the detection strategy that produced the event.
	Method Method `json:"method"`
	// Payload is the raw signal that triggered classification, serialized for
	// diagnostics (a URL, a message body, the matched text).
	Payload string `json:"payload,omitempty"`
	// Time is when the detector observed the signal.
	Time time.Time `json:"time"`
}

// Sink receives candidate success notifications from detectors. It is
// implemented by the redirect dispatcher and is safe for concurrent use.
type Sink interface {
	// HandleDetection arbitrates a single candidate detection. It may be
	// called any number of times from independent callbacks; the
	// implementation enforces the attempt ceiling and the at-most-one
	// navigation guarantee.
	HandleDetection(event DetectionEvent)
}
