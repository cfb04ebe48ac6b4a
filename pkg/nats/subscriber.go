package nats

import (
	"context"
	"fmt"

	"notefiber-editor/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type EventHandler func(ctx context.Context, event events.Event) error

type Subscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	logger   Logger
	consumes []jetstream.ConsumeContext
}

func NewSubscriber(url string, logger Logger) (*Subscriber, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, logger: logger}, nil
}

// Subscribe attaches a durable consumer for the given event types. Handler errors
// nak the message so JetStream redelivers it; undecodable messages are terminated.
func (s *Subscriber) Subscribe(ctx context.Context, durableName string, handler EventHandler, eventTypes ...string) error {
	subjects := make([]string, len(eventTypes))
	for i, t := range eventTypes {
		subjects[i] = Subject(t)
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:        durableName,
		FilterSubjects: subjects,
		AckPolicy:      jetstream.AckExplicitPolicy,
		MaxDeliver:     5,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := Decode(msg.Subject(), msg.Data())
		if err != nil {
			s.logger.Error(moduleName, "Dropping malformed event", map[string]interface{}{"subject": msg.Subject(), "error": err.Error()})
			_ = msg.Term()
			return
		}

		if err := handler(context.Background(), event); err != nil {
			s.logger.Warn(moduleName, "Handler failed", map[string]interface{}{"subject": msg.Subject(), "error": err.Error()})
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.consumes = append(s.consumes, cc)

	s.logger.Info(moduleName, "Subscribed", map[string]interface{}{"subjects": subjects, "durable": durableName})
	return nil
}

func (s *Subscriber) Close() {
	for _, cc := range s.consumes {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
