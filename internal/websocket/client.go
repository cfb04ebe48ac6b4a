package websocket

import (
	"context"
	"encoding/json"
	"time"

	"notefiber-editor/internal/dto"
	"notefiber-editor/internal/pkg/serverutils"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // pasted HTML can be large
	opTimeout      = 30 * time.Second
)

// OperationHandler applies editor operations sent by a client.
type OperationHandler interface {
	Apply(ctx context.Context, userId, noteId uuid.UUID, op dto.EditorOperation) error
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	UserID uuid.UUID
	NoteID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte
}

// readPump decodes operations from the connection and applies them in order.
func (c *Client) readPump(ops OperationHandler) {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn(hubModule, "Unexpected close", map[string]interface{}{"note_id": c.NoteID, "error": err.Error()})
			}
			break
		}
		c.handle(ops, message)
	}
}

func (c *Client) handle(ops OperationHandler, message []byte) {
	var op dto.EditorOperation
	if err := json.Unmarshal(message, &op); err != nil {
		c.reply("invalid_operation", err)
		return
	}
	if err := serverutils.ValidateRequest(op); err != nil {
		c.reply("invalid_operation", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := ops.Apply(ctx, c.UserID, c.NoteID, op); err != nil {
		c.reply(op.Op, err)
	}
}

// reply reports a failed operation to this client only.
func (c *Client) reply(op string, err error) {
	data, _ := json.Marshal(map[string]string{"op": op, "message": err.Error()})
	frame, _ := json.Marshal(Frame{Type: "error", Data: data})
	select {
	case c.Send <- frame:
	default:
	}
}

// writePump pumps messages from the hub to the websocket connection. Each frame is
// its own websocket message so clients can parse them one by one.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
