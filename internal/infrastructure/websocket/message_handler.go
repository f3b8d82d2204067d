package websocket

import (
	"context"
	"encoding/json"
	"time"

	"circulapp/pkg/logger"
)

// Event types pushed to clients.
const (
	EventChatCreated     = "chat.created"
	EventMessageNew      = "message.new"
	EventMessageEdited   = "message.edited"
	EventMessageDeleted  = "message.deleted"
	EventMessageReaction = "message.reaction"
	EventChatRead        = "chat.read"
	EventTyping          = "typing"
	EventPong            = "pong"
	EventError           = "error"
)

// Frame types clients may send.
const (
	FramePing     = "ping"
	FrameTyping   = "typing"
	FrameMarkRead = "mark_read"
)

const gatewayTimeout = 5 * time.Second

// ChatGateway is the subset of chat operations reachable over the socket.
type ChatGateway interface {
	Counterparts(ctx context.Context, userID, chatID string) ([]string, error)
	MarkAsRead(ctx context.Context, userID, chatID string) error
}

type clientFrame struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId"`
	Typing bool   `json:"typing"`
}

type typingData struct {
	UserID string `json:"userId"`
	Typing bool   `json:"typing"`
}

// HandleClientMessage dispatches one frame received from a client.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		m.sendToClient(client, Event{Type: EventError, Data: "Invalid message format"})
		return
	}

	switch frame.Type {
	case FramePing:
		m.sendToClient(client, Event{Type: EventPong})
	case FrameTyping:
		m.handleTyping(client, frame)
	case FrameMarkRead:
		m.handleMarkRead(client, frame)
	default:
		m.sendToClient(client, Event{Type: EventError, Data: "Unknown message type"})
	}
}

func (m *Manager) handleTyping(client *Client, frame clientFrame) {
	if m.gateway == nil || frame.ChatID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
	defer cancel()

	others, err := m.gateway.Counterparts(ctx, client.UserID, frame.ChatID)
	if err != nil {
		m.sendToClient(client, Event{Type: EventError, ChatID: frame.ChatID, Data: "Chat not found"})
		return
	}
	m.Notify(others, EventTyping, frame.ChatID, typingData{UserID: client.UserID, Typing: frame.Typing})
}

func (m *Manager) handleMarkRead(client *Client, frame clientFrame) {
	if m.gateway == nil || frame.ChatID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
	defer cancel()

	if err := m.gateway.MarkAsRead(ctx, client.UserID, frame.ChatID); err != nil {
		logger.Debug("WebSocket: mark_read from %s on %s failed: %v", client.UserID, frame.ChatID, err)
		m.sendToClient(client, Event{Type: EventError, ChatID: frame.ChatID, Data: "Chat not found"})
	}
}

func (m *Manager) sendToClient(client *Client, event Event) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if _, ok := m.clients[client.UserID][client]; !ok {
		return
	}
	select {
	case client.Send <- payload:
	default:
		logger.Warn("WebSocket: send buffer full for client %s", client.ID)
	}
}
