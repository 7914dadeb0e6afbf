package models

import (
	"encoding/json"
	"time"
)

// EventType tags a push-channel frame.
type EventType string

const (
	EventReportNew    EventType = "report:new"
	EventReportUpdate EventType = "report:update"
	EventKeepAlive    EventType = "keepalive"

	// EventUnknown is produced for frame types this subsystem does not
	// handle. Consumers ignore it.
	EventUnknown EventType = ""
)

// Event is one frame on the push channel. Report is present for the two
// report lifecycle types and absent on keep-alives.
type Event struct {
	Type      EventType `json:"type"`
	Report    *Report   `json:"report,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// eventFrame is the raw two-phase decode shape: the type tag first, the
// payload only for recognized tags.
type eventFrame struct {
	Type      string          `json:"type"`
	Report    json.RawMessage `json:"report"`
	Timestamp time.Time       `json:"timestamp"`
}

// DecodeEvent decodes a single push-channel frame into a tagged event.
// Unrecognized types come back as EventUnknown with no payload; the
// frame itself must still be well-formed JSON.
func DecodeEvent(data []byte) (Event, error) {
	var frame eventFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Event{}, err
	}

	switch EventType(frame.Type) {
	case EventReportNew, EventReportUpdate:
		ev := Event{Type: EventType(frame.Type), Timestamp: frame.Timestamp}
		if len(frame.Report) > 0 {
			var report Report
			if err := json.Unmarshal(frame.Report, &report); err != nil {
				return Event{}, err
			}
			ev.Report = &report
		}
		return ev, nil
	case EventKeepAlive:
		return Event{Type: EventKeepAlive, Timestamp: frame.Timestamp}, nil
	default:
		return Event{Type: EventUnknown, Timestamp: frame.Timestamp}, nil
	}
}
