package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records written events and blocks reads until closed.
type fakeConn struct {
	mu     sync.Mutex
	events []Event
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event, ok := v.(Event); ok {
		c.events = append(c.events, event)
	}
	return nil
}

func (c *fakeConn) WriteMessage(int, []byte) error { return nil }

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, assert.AnError
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	h := New()
	conn := newFakeConn()

	client := h.Subscribe(7, conn)
	require.NotEmpty(t, client.ID)
	assert.Equal(t, 1, h.SubscriberCount(7))

	h.Broadcast(Event{Type: EventMessageCreated, ConversationID: 7})

	waitFor(t, func() bool { return len(conn.received()) == 1 })
	assert.Equal(t, EventMessageCreated, conn.received()[0].Type)

	h.Unsubscribe(client)
	assert.Equal(t, 0, h.SubscriberCount(7))
}

func TestHub_BroadcastScopedToConversation(t *testing.T) {
	h := New()
	connA := newFakeConn()
	connB := newFakeConn()

	clientA := h.Subscribe(1, connA)
	clientB := h.Subscribe(2, connB)
	defer h.Unsubscribe(clientA)
	defer h.Unsubscribe(clientB)

	h.Broadcast(Event{Type: EventGenerationStarted, ConversationID: 1})

	waitFor(t, func() bool { return len(connA.received()) == 1 })
	assert.Empty(t, connB.received())
}

func TestHub_MultipleSubscribersEachReceive(t *testing.T) {
	h := New()
	conns := []*fakeConn{newFakeConn(), newFakeConn(), newFakeConn()}
	for _, conn := range conns {
		h.Subscribe(3, conn)
	}

	h.Broadcast(Event{Type: EventDiagramModified, ConversationID: 3})

	for i, conn := range conns {
		conn := conn
		waitFor(t, func() bool { return len(conn.received()) == 1 })
		assert.Len(t, conn.received(), 1, "subscriber %d", i)
	}
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	h := New()
	client := h.Subscribe(5, newFakeConn())

	h.Unsubscribe(client)
	h.Unsubscribe(client)
	assert.Equal(t, 0, h.SubscriberCount(5))
}

func TestHub_DeadConnectionDetaches(t *testing.T) {
	h := New()
	conn := newFakeConn()
	h.Subscribe(9, conn)

	conn.Close() // read pump exits, client deregisters

	waitFor(t, func() bool { return h.SubscriberCount(9) == 0 })
}
