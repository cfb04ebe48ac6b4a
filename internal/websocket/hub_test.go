package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"notefiber-editor/internal/pkg/logger"
	"notefiber-editor/pkg/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type releaseRecorder struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *releaseRecorder) Release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *releaseRecorder) released() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.ids...)
}

func startHub(t *testing.T, rdb *redis.Client, rel SessionReleaser) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(rdb, rel, logger.NewNop())
	go h.Run(ctx)
	return h
}

func join(t *testing.T, h *Hub, noteId uuid.UUID) *Client {
	t.Helper()
	c := &Client{Hub: h, UserID: uuid.New(), NoteID: noteId, Send: make(chan []byte, 8)}
	before := h.ClientCount(noteId)
	h.register <- c
	require.Eventually(t, func() bool { return h.ClientCount(noteId) == before+1 }, time.Second, 5*time.Millisecond)
	return c
}

func receive(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case data := <-c.Send:
		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}
	return Frame{}
}

func TestDeliverReachesOnlyClientsOfTheNote(t *testing.T) {
	h := startHub(t, nil, nil)
	noteA, noteB := uuid.New(), uuid.New()
	a := join(t, h, noteA)
	b := join(t, h, noteB)

	env, err := events.NewEnvelope(noteA.String(), events.TypeNotification, "focus_editor", struct{}{})
	require.NoError(t, err)
	h.Deliver(context.Background(), env)

	f := receive(t, a)
	assert.Equal(t, events.TypeNotification, f.Type)
	assert.Equal(t, "focus_editor", f.Name)
	assert.Len(t, b.Send, 0)
}

func TestLastClientReleasesSession(t *testing.T) {
	rel := &releaseRecorder{}
	h := startHub(t, nil, rel)
	noteId := uuid.New()
	first := join(t, h, noteId)
	second := join(t, h, noteId)

	h.unregister <- first
	require.Eventually(t, func() bool { return h.ClientCount(noteId) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, rel.released())

	h.unregister <- second
	assert.Eventually(t, func() bool { return len(rel.released()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uuid.UUID{noteId}, rel.released())

	_, open := <-second.Send
	assert.False(t, open)
}

func TestSendToSkipsDepartedClient(t *testing.T) {
	h := startHub(t, nil, &releaseRecorder{})
	noteId := uuid.New()
	c := join(t, h, noteId)

	assert.True(t, h.sendTo(c, []byte(`{"type":"document"}`)))
	assert.Equal(t, events.TypeDocument, receive(t, c).Type)

	h.unregister <- c
	require.Eventually(t, func() bool { return h.ClientCount(noteId) == 0 }, time.Second, 5*time.Millisecond)
	assert.NotPanics(t, func() { assert.False(t, h.sendTo(c, []byte(`{}`))) })
}

func TestRedisFanOutBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		return rdb
	}

	origin := startHub(t, newClient(), nil)
	remote := startHub(t, newClient(), nil)
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(redisChannel)[redisChannel] == 2
	}, 2*time.Second, 10*time.Millisecond)

	noteId := uuid.New()
	local := join(t, origin, noteId)
	far := join(t, remote, noteId)

	env, err := events.NewEnvelope(noteId.String(), events.TypeAutosave, "", map[string]bool{"dirty": false})
	require.NoError(t, err)
	origin.Deliver(context.Background(), env)

	assert.Equal(t, events.TypeAutosave, receive(t, local).Type)
	assert.Equal(t, events.TypeAutosave, receive(t, far).Type)

	// the origin ignores its own echo
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, local.Send, 0)
}

func TestConsumeForwardsBusEnvelopes(t *testing.T) {
	h := startHub(t, nil, nil)
	bus := events.NewBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.Consume(ctx, bus))

	noteId := uuid.New()
	c := join(t, h, noteId)

	env, err := events.NewEnvelope(noteId.String(), events.TypeDocument, "", []int{})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(env))

	assert.Equal(t, events.TypeDocument, receive(t, c).Type)
}
