// Package nats moves domain events over a JetStream stream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"notefiber-editor/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	moduleName    = "NATS"
	streamName    = "EDITOR_EVENTS"
	subjectPrefix = "editor."
)

type Logger interface {
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}

// Subject maps an event type to its subject on the stream.
func Subject(eventType string) string {
	return subjectPrefix + eventType
}

// EventType is the inverse of Subject.
func EventType(subject string) string {
	return strings.TrimPrefix(subject, subjectPrefix)
}

func connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return nc, js, nil
}

// Publisher sends domain events to the editor stream.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger Logger
}

func NewPublisher(url string, logger Logger) (*Publisher, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ">"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		// the server may come up later; publishing will surface the error then
		logger.Warn(moduleName, "Failed to ensure stream", map[string]interface{}{"stream": streamName, "error": err.Error()})
	}

	return &Publisher{nc: nc, js: js, logger: logger}, nil
}

// Publish sends an event. The payload travels as JSON with the type and timestamp
// folded in so consumers do not depend on the subject layout.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}

	subject := Subject(event.EventType())
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

type wireEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func Encode(event events.Event) ([]byte, error) {
	data, err := json.Marshal(wireEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return data, nil
}

// Decode rebuilds an event. The subject supplies the type when the payload lacks one.
func Decode(subject string, data []byte) (events.BaseEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return events.BaseEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if w.Type == "" {
		w.Type = EventType(subject)
	}
	if w.OccurredAt.IsZero() {
		w.OccurredAt = time.Now()
	}
	return events.BaseEvent{Type: w.Type, Data: w.Data, OccurredAt: w.OccurredAt}, nil
}
