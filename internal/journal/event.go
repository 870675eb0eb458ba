package journal

import (
	"encoding/json"
	"time"
)

// TimestampFormat is the time format used for journal timestamps.
const TimestampFormat = time.RFC3339Nano

// eventJSON is the wire form of Event; the timestamp is a formatted string.
type eventJSON struct {
	Timestamp       string            `json:"timestamp"`
	RunID           RunID             `json:"runId"`
	EventType       EventType         `json:"eventType"`
	SourcePath      string            `json:"sourcePath,omitempty"`
	DestinationPath string            `json:"destinationPath,omitempty"`
	Key             string            `json:"key,omitempty"`
	Size            int64             `json:"size,omitempty"`
	ErrorDetails    *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler with UTC RFC 3339 timestamps.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		Timestamp:       e.Timestamp.UTC().Format(TimestampFormat),
		RunID:           e.RunID,
		EventType:       e.EventType,
		SourcePath:      e.SourcePath,
		DestinationPath: e.DestinationPath,
		Key:             e.Key,
		Size:            e.Size,
		ErrorDetails:    e.ErrorDetails,
		Metadata:        e.Metadata,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	t, err := time.Parse(TimestampFormat, ej.Timestamp)
	if err != nil {
		return err
	}

	*e = Event{
		Timestamp:       t,
		RunID:           ej.RunID,
		EventType:       ej.EventType,
		SourcePath:      ej.SourcePath,
		DestinationPath: ej.DestinationPath,
		Key:             ej.Key,
		Size:            ej.Size,
		ErrorDetails:    ej.ErrorDetails,
		Metadata:        ej.Metadata,
	}
	return nil
}
