package acquisition

import (
	"encoding/json"
	"time"

	"mindtv/internal/batch"
)

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventLogLine   EventKind = "log"
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// ErrorKind classifies a failed run.
type ErrorKind string

const (
	KindTransportUnavailable ErrorKind = "transport_unavailable"
	KindIO                   ErrorKind = "io_error"
)

// Event is one item of a run's event stream. Only the fields of its Kind are set:
//
//	log        Text
//	progress   Percent (0..100)
//	completed  Batch, Samples, Cancelled
//	failed     ErrKind, Message, Samples
type Event struct {
	Kind      EventKind
	At        time.Time
	Text      string
	Percent   int
	Batch     *batch.Closed
	Samples   int
	Cancelled bool
	ErrKind   ErrorKind
	Message   string
}

// Terminal reports whether e ends its run's stream.
func (e Event) Terminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventFailed
}

func logLineEvent(text string) Event {
	return Event{Kind: EventLogLine, At: time.Now().UTC(), Text: text}
}

func progressEvent(pct int) Event {
	return Event{Kind: EventProgress, At: time.Now().UTC(), Percent: pct}
}

func completedEvent(b *batch.Closed, cancelled bool) Event {
	return Event{Kind: EventCompleted, At: time.Now().UTC(), Batch: b, Samples: b.Len(), Cancelled: cancelled}
}

func failedEvent(kind ErrorKind, msg string, samples int) Event {
	return Event{Kind: EventFailed, At: time.Now().UTC(), ErrKind: kind, Message: msg, Samples: samples}
}

// MarshalJSON encodes only the fields that belong to the event's kind.
// The batch itself is never serialized; consumers fetch samples separately.
func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"kind": e.Kind,
		"at":   e.At,
	}
	switch e.Kind {
	case EventLogLine:
		out["text"] = e.Text
	case EventProgress:
		out["percent"] = e.Percent
	case EventCompleted:
		out["samples"] = e.Samples
		out["cancelled"] = e.Cancelled
	case EventFailed:
		out["error_kind"] = e.ErrKind
		out["message"] = e.Message
		out["samples"] = e.Samples
	}
	return json.Marshal(out)
}
