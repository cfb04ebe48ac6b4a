package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"notefiber-editor/internal/pkg/logger"
	"notefiber-editor/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	hubModule    = "Hub"
	redisChannel = "editor_cluster_events"
)

// SessionReleaser is told when the last local client of a note disconnects.
type SessionReleaser interface {
	Release(noteId uuid.UUID)
}

// Frame is what clients receive.
type Frame struct {
	Type string          `json:"type"`
	Name string          `json:"name,omitempty"`
	Data json.RawMessage `json:"data"`
}

type clusterMessage struct {
	Origin  string          `json:"origin"`
	NoteID  string          `json:"note_id"`
	Message json.RawMessage `json:"message"`
}

type Hub struct {
	// NoteID -> clients editing it
	clients map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out; nil runs single-instance.
	rdb      *redis.Client
	instance string

	releaser SessionReleaser
	logger   logger.ILogger
}

func NewHub(rdb *redis.Client, releaser SessionReleaser, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		rdb:        rdb,
		instance:   uuid.NewString(),
		releaser:   releaser,
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.mu.Lock()
			last := false
			if set, ok := h.clients[client.NoteID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.Send)
				}
				if len(set) == 0 {
					delete(h.clients, client.NoteID)
					last = true
				}
			}
			h.mu.Unlock()

			if last {
				h.logger.Info(hubModule, "Last client left note", map[string]interface{}{"note_id": client.NoteID})
				if h.releaser != nil {
					// the final save may take a while; keep the hub loop free
					go h.releaser.Release(client.NoteID)
				}
			}
		}
	}
}

// add registers client synchronously.
func (h *Hub) add(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.NoteID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.NoteID] = set
	}
	set[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Info(hubModule, "Client registered", map[string]interface{}{"note_id": client.NoteID, "user_id": client.UserID})
}

// ClientCount reports how many local clients edit noteId.
func (h *Hub) ClientCount(noteId uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[noteId])
}

// Consume forwards every bus envelope to the clients of its note until ctx is done.
func (h *Hub) Consume(ctx context.Context, bus *events.Bus) error {
	envs, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for env := range envs {
			h.Deliver(ctx, env)
		}
	}()
	return nil
}

// Deliver sends an envelope to local clients and to the other instances.
func (h *Hub) Deliver(ctx context.Context, env events.Envelope) {
	noteId, err := uuid.Parse(env.NoteId)
	if err != nil {
		h.logger.Warn(hubModule, "Envelope without note id", map[string]interface{}{"type": env.Type})
		return
	}
	data, _ := json.Marshal(Frame{Type: env.Type, Name: env.Name, Data: env.Data})

	h.sendLocal(noteId, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.instance, NoteID: env.NoteId, Message: data})
		if err := h.rdb.Publish(ctx, redisChannel, payload).Err(); err != nil {
			h.logger.Warn(hubModule, "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) sendLocal(noteId uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[noteId] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn(hubModule, "Client Send buffer full, dropping client", map[string]interface{}{"note_id": noteId, "user_id": client.UserID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// sendTo queues data for one registered client. It reports false when the client is
// gone or its buffer is full.
func (h *Hub) sendTo(client *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.NoteID][client]; !ok {
		return false
	}
	select {
	case client.Send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn(hubModule, "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instance {
			continue
		}
		noteId, err := uuid.Parse(payload.NoteID)
		if err != nil {
			continue
		}
		h.sendLocal(noteId, payload.Message)
	}
}
