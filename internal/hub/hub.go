// Package hub is the in-process broadcast registry for conversation events.
// Websocket subscribers attach per conversation and receive pipeline events
// (message ingestion, diagram generation lifecycle, modifications) with
// best-effort delivery: slow or dead subscribers are dropped, never waited on.
package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event kinds emitted by the pipeline.
const (
	EventMessageCreated      = "message.created"
	EventGenerationStarted   = "diagram.generation.started"
	EventGenerationSucceeded = "diagram.generation.succeeded"
	EventGenerationFailed    = "diagram.generation.failed"
	EventDiagramModified     = "diagram.modified"
)

// Event is one broadcast payload. Data carries kind-specific fields.
type Event struct {
	Type           string      `json:"type"`
	ConversationID int64       `json:"conversationId"`
	Data           interface{} `json:"data,omitempty"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingEvery  = (pongWait * 9) / 10
	sendBuffer = 32
)

// Conn is the subset of *websocket.Conn the hub drives.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	ReadMessage() (int, []byte, error)
	Close() error
}

// Client is one attached subscriber.
type Client struct {
	ID             string
	ConversationID int64

	conn Conn
	send chan Event
	once sync.Once
	done chan struct{}
}

// Hub tracks subscribers keyed by conversation.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[string]*Client
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{clients: make(map[int64]map[string]*Client)}
}

// Subscribe registers the connection for a conversation's events and starts
// its pumps. The returned client is deregistered automatically when the
// connection dies; callers may also Unsubscribe explicitly.
func (h *Hub) Subscribe(conversationID int64, conn Conn) *Client {
	client := &Client{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		conn:           conn,
		send:           make(chan Event, sendBuffer),
		done:           make(chan struct{}),
	}

	h.mu.Lock()
	if h.clients[conversationID] == nil {
		h.clients[conversationID] = make(map[string]*Client)
	}
	h.clients[conversationID][client.ID] = client
	h.mu.Unlock()

	log.Debug().Str("client_id", client.ID).Int64("conversation_id", conversationID).Msg("websocket subscriber attached")

	go client.writePump()
	go func() {
		client.readPump()
		h.Unsubscribe(client)
	}()
	return client
}

// Unsubscribe detaches the client and closes its connection. Safe to call
// more than once.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	if clients, ok := h.clients[client.ConversationID]; ok {
		delete(clients, client.ID)
		if len(clients) == 0 {
			delete(h.clients, client.ConversationID)
		}
	}
	h.mu.Unlock()

	client.close()
}

// Broadcast delivers the event to every subscriber of its conversation.
// Delivery is non-blocking: a subscriber with a full buffer is dropped.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	var stale []*Client
	for _, client := range h.clients[event.ConversationID] {
		select {
		case client.send <- event:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		log.Debug().Str("client_id", client.ID).Msg("dropping slow websocket subscriber")
		h.Unsubscribe(client)
	}
}

// SubscriberCount reports attached subscribers for a conversation.
func (h *Hub) SubscriberCount(conversationID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[conversationID])
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case event := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// readPump drains inbound frames to service control messages; subscriber
// connections are receive-only from the client's point of view.
func (c *Client) readPump() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
