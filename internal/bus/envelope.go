package bus

import (
	"encoding/json"
	"time"

	"github.com/gitcontest/xbridge/internal/errors"
)

// Originator identifies messages this process publishes.
const Originator = "xbridge-processor"

// MimeJSON is the only payload encoding the bridge accepts.
const MimeJSON = "application/json"

// Envelope is the outer bus message. The inner event is double-encoded:
// Payload.Value is itself a JSON string carrying the event.
type Envelope struct {
	Topic      string          `json:"topic"`
	Originator string          `json:"originator"`
	Timestamp  time.Time       `json:"timestamp"`
	MimeType   string          `json:"mime-type"`
	Payload    EnvelopePayload `json:"payload"`
}

// EnvelopePayload wraps the stringified inner event.
type EnvelopePayload struct {
	Value string `json:"value"`
}

// ParseEnvelope decodes and validates an outer bus message.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "malformed envelope")
	}
	if env.MimeType != MimeJSON {
		return nil, errors.Validation("unsupported mime-type %q", env.MimeType)
	}
	if env.Payload.Value == "" {
		return nil, errors.Validation("envelope has no payload value")
	}
	return &env, nil
}

// DecodeEvent parses the double-encoded inner event and validates the
// envelope-level invariants the dispatcher relies on.
func (e *Envelope) DecodeEvent() (*Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(e.Payload.Value), &ev); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "malformed event payload")
	}
	if ev.Event == "" {
		return nil, errors.Validation("event kind missing")
	}
	if IsIssueEvent(ev.Event) {
		if !ev.Provider.IsValid() {
			return nil, errors.Validation("unknown provider %q", ev.Provider)
		}
		if ev.Data.Issue == nil || ev.Data.Repository == nil {
			return nil, errors.Validation("issue event %s missing issue or repository", ev.Event)
		}
	}
	if IsPaymentEvent(ev.Event) && ev.Event != CopilotPaymentCheckUpdates {
		if ev.Data.Payment == nil {
			return nil, errors.Validation("payment event %s missing payment", ev.Event)
		}
	}
	return &ev, nil
}

// NewEnvelope wraps an event for publication, double-encoding the payload.
func NewEnvelope(topic string, ev *Event) (*Envelope, error) {
	inner, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindFatal, "marshal event")
	}
	return &Envelope{
		Topic:      topic,
		Originator: Originator,
		Timestamp:  time.Now().UTC(),
		MimeType:   MimeJSON,
		Payload:    EnvelopePayload{Value: string(inner)},
	}, nil
}

// NewRawEnvelope wraps an already-encoded payload, used for messages that
// are not bridge events (notifications).
func NewRawEnvelope(topic, value string) *Envelope {
	return &Envelope{
		Topic:      topic,
		Originator: Originator,
		Timestamp:  time.Now().UTC(),
		MimeType:   MimeJSON,
		Payload:    EnvelopePayload{Value: value},
	}
}

// Marshal serializes the envelope for the wire.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
