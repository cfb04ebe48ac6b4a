package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EditorTopic carries every session envelope; consumers filter on NoteId.
const EditorTopic = "editor_events"

// Outbound envelope kinds.
const (
	TypeDocument     = "document"
	TypeNotification = "notification"
	TypeAutosave     = "autosave"
)

// Envelope is one outbound message for the clients of a note.
type Envelope struct {
	NoteId string          `json:"note_id"`
	Type   string          `json:"type"`
	Name   string          `json:"name,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// NewEnvelope marshals data into an envelope.
func NewEnvelope(noteId, kind, name string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", kind, err)
	}
	return Envelope{NoteId: noteId, Type: kind, Name: name, Data: raw}, nil
}

// Bus is an in-process pub/sub for session envelopes. Publish blocks until every
// subscriber has taken the message, which keeps envelopes for a note in order.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus(logger Logger) *Bus {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            256,
				BlockPublishUntilSubscriberAck: true,
			},
			NewWatermillLogger(logger),
		),
	}
}

func (b *Bus) Publish(env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	return b.pubSub.Publish(EditorTopic, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe streams envelopes until ctx is done. Malformed payloads are acked and skipped.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	messages, err := b.pubSub.Subscribe(ctx, EditorTopic)
	if err != nil {
		return nil, err
	}

	out := make(chan Envelope)
	go func() {
		defer close(out)
		for msg := range messages {
			var env Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				msg.Ack()
				continue
			}
			select {
			case out <- env:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
