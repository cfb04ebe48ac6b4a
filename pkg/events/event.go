// Package events carries editor traffic between sessions and their hosts. Domain
// events go out over NATS; session envelopes go over the in-process Bus.
package events

import "time"

const (
	NoteAutosaved     = "NOTE_AUTOSAVED"
	NoteSaveFailed    = "NOTE_SAVE_FAILED"
	MediaUploaded     = "MEDIA_UPLOADED"
	MediaUploadFailed = "MEDIA_UPLOAD_FAILED"
)

// Event defines the contract for all domain events.
type Event interface {
	// EventType returns the unique code for this event (e.g. "NOTE_AUTOSAVED").
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func NewEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// String reads a string field from the payload.
func (e BaseEvent) String(key string) string {
	v, _ := e.Data[key].(string)
	return v
}
