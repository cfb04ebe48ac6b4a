package websocket

import (
	"context"
	"encoding/json"

	"notefiber-editor/internal/dto"
	"notefiber-editor/pkg/events"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// SessionService is what a connection needs from the editor service.
type SessionService interface {
	OperationHandler
	Open(ctx context.Context, userId, noteId uuid.UUID) (*dto.DocumentSnapshot, error)
}

// ServeWs attaches a connection to the editing session of a note. The client is
// registered before the session is opened so a concurrent last-client release cannot
// tear the session down underneath it. Document frames carry a version; the snapshot
// may queue behind newer ones and clients keep the highest.
func ServeWs(hub *Hub, sessions SessionService, c *websocket.Conn, userID, noteID uuid.UUID) {
	client := &Client{Hub: hub, Conn: c, UserID: userID, NoteID: noteID, Send: make(chan []byte, 256)}
	hub.add(client)

	snapshot, err := sessions.Open(context.Background(), userID, noteID)
	if err != nil {
		client.Hub.unregister <- client
		data, _ := json.Marshal(map[string]string{"message": err.Error()})
		frame, _ := json.Marshal(Frame{Type: "error", Data: data})
		c.WriteMessage(websocket.TextMessage, frame)
		c.Close()
		return
	}

	data, _ := json.Marshal(snapshot)
	first, _ := json.Marshal(Frame{Type: events.TypeDocument, Data: data})
	if !hub.sendTo(client, first) {
		hub.logger.Warn(hubModule, "Snapshot not queued", map[string]interface{}{"note_id": noteID, "user_id": userID})
	}

	go client.writePump()
	client.readPump(sessions)
}
