package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aseangps/agenthub/protocol"
)

// captureConn records every payload delivered to it; failAfter > 0 makes
// Send start erroring once that many payloads have been accepted.
type captureConn struct {
	mu        sync.Mutex
	payloads  [][]byte
	failAfter int
	sendErr   error
}

func (c *captureConn) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	if c.failAfter > 0 && len(c.payloads) >= c.failAfter {
		return errors.New("send failed")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.payloads = append(c.payloads, buf)
	return nil
}

func (c *captureConn) events(t *testing.T) []protocol.Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Event, 0, len(c.payloads))
	for _, p := range c.payloads {
		var ev protocol.Event
		require.NoError(t, json.Unmarshal(p, &ev))
		out = append(out, ev)
	}
	return out
}

func TestHub_Connect_Idempotent(t *testing.T) {
	h := New()
	conn := &captureConn{}

	h.Connect("s1", conn)
	h.Connect("s1", conn)

	assert.Equal(t, 1, h.ConnectionCount("s1"))
}

func TestHub_Broadcast_AllConnectionsInOrder(t *testing.T) {
	h := New()
	c1 := &captureConn{}
	c2 := &captureConn{}
	h.Connect("s1", c1)
	h.Connect("s1", c2)

	ctx := context.Background()
	h.Broadcast(ctx, "s1", protocol.NewInfoEvent("s1", "first"))
	h.Broadcast(ctx, "s1", protocol.NewInfoEvent("s1", "second"))
	h.Broadcast(ctx, "s1", protocol.NewDoneEvent("s1"))

	for _, c := range []*captureConn{c1, c2} {
		events := c.events(t)
		require.Len(t, events, 3)
		assert.Equal(t, "first", events[0].Content)
		assert.Equal(t, "second", events[1].Content)
		assert.Equal(t, protocol.EventDone, events[2].Type)
	}
}

func TestHub_Broadcast_SessionIsolation(t *testing.T) {
	h := New()
	c1 := &captureConn{}
	c2 := &captureConn{}
	h.Connect("s1", c1)
	h.Connect("s2", c2)

	h.Broadcast(context.Background(), "s1", protocol.NewInfoEvent("s1", "hello"))

	assert.Len(t, c1.events(t), 1)
	assert.Empty(t, c2.events(t))
}

func TestHub_Broadcast_UnknownSessionIsNoOp(t *testing.T) {
	h := New()
	// Must not panic or create session entries.
	h.Broadcast(context.Background(), "ghost", protocol.NewInfoEvent("ghost", "hello"))
	assert.Equal(t, 0, h.ConnectionCount("ghost"))
}

func TestHub_Broadcast_FailingConnectionDropped(t *testing.T) {
	h := New()
	healthy := &captureConn{}
	failing := &captureConn{sendErr: errors.New("broken pipe")}
	h.Connect("s1", failing)
	h.Connect("s1", healthy)

	ctx := context.Background()
	h.Broadcast(ctx, "s1", protocol.NewInfoEvent("s1", "one"))

	// The failing sibling is dropped; the healthy one still got the event.
	assert.Equal(t, 1, h.ConnectionCount("s1"))
	require.Len(t, healthy.events(t), 1)

	h.Broadcast(ctx, "s1", protocol.NewInfoEvent("s1", "two"))
	assert.Len(t, healthy.events(t), 2)
}

func TestHub_Disconnect_SiblingUnaffected(t *testing.T) {
	h := New()
	c1 := &captureConn{}
	c2 := &captureConn{}
	h.Connect("s1", c1)
	h.Connect("s1", c2)

	h.Disconnect("s1", c1)
	assert.Equal(t, 1, h.ConnectionCount("s1"))

	h.Broadcast(context.Background(), "s1", protocol.NewInfoEvent("s1", "still here"))
	assert.Empty(t, c1.events(t))
	assert.Len(t, c2.events(t), 1)
}

func TestHub_Disconnect_UnknownPairIgnored(t *testing.T) {
	h := New()
	h.Disconnect("nope", &captureConn{})
}

func TestHub_SessionSink_FillsSessionID(t *testing.T) {
	h := New()
	c := &captureConn{}
	h.Connect("s1", c)

	sink := h.SessionSink("s1")
	ev := protocol.NewEvent(protocol.EventAgentMessage, "")
	ev.Content = "partial"
	sink.Push(context.Background(), ev)

	events := c.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, "s1", events[0].SessionID)
	assert.Equal(t, "partial", events[0].Content)
}

func TestHub_Broadcast_ConcurrentSessions(t *testing.T) {
	h := New()
	c1 := &captureConn{}
	c2 := &captureConn{}
	h.Connect("s1", c1)
	h.Connect("s2", c2)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Broadcast(context.Background(), "s1", protocol.NewInfoEvent("s1", "a"))
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Broadcast(context.Background(), "s2", protocol.NewInfoEvent("s2", "b"))
		}()
	}
	wg.Wait()

	assert.Len(t, c1.events(t), n)
	assert.Len(t, c2.events(t), n)
}
