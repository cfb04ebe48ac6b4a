package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	go func() {
		for i := 0; i < 3; i++ {
			env, err := NewEnvelope("n1", TypeAutosave, "", map[string]int{"seq": i})
			if err == nil {
				_ = bus.Publish(env)
			}
		}
	}()

	for i := 0; i < 3; i++ {
		select {
		case env := <-sub:
			assert.Equal(t, "n1", env.NoteId)
			var data map[string]int
			require.NoError(t, json.Unmarshal(env.Data, &data))
			assert.Equal(t, i, data["seq"])
		case <-time.After(2 * time.Second):
			t.Fatal("envelope not delivered")
		}
	}
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	env, err := NewEnvelope("n1", TypeDocument, "", []int{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- bus.Publish(env) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
}

type captureLogger struct {
	errors []map[string]interface{}
}

func (c *captureLogger) Debug(string, string, map[string]interface{}) {}
func (c *captureLogger) Info(string, string, map[string]interface{})  {}
func (c *captureLogger) Error(_ string, _ string, d map[string]interface{}) {
	c.errors = append(c.errors, d)
}

func TestWatermillLoggerMergesFields(t *testing.T) {
	l := &captureLogger{}
	adapter := NewWatermillLogger(l).With(watermill.LogFields{"topic": EditorTopic})
	adapter.Error("publish failed", assert.AnError, watermill.LogFields{"uuid": "x"})

	require.Len(t, l.errors, 1)
	assert.Equal(t, EditorTopic, l.errors[0]["topic"])
	assert.Equal(t, "x", l.errors[0]["uuid"])
	assert.Equal(t, assert.AnError, l.errors[0]["error"])
}

func TestBaseEvent(t *testing.T) {
	evt := NewEvent(NoteAutosaved, map[string]interface{}{"note_id": "n1", "version": 2})
	assert.Equal(t, NoteAutosaved, evt.EventType())
	assert.Equal(t, "n1", evt.String("note_id"))
	assert.Equal(t, "", evt.String("version"))
	assert.False(t, evt.Timestamp().IsZero())
}
