package websocket

import (
	"testing"
	"time"

	"wallpaperd/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a client without a connection; only the hub touches it.
func newTestClient(h Hub, name string) *Client {
	return &Client{hub: h, send: make(chan types.StateMessage, 4), name: name}
}

func waitForClients(t *testing.T, h Hub, name string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.ClientCount(name) == n
	}, time.Second, 10*time.Millisecond)
}

func TestHubDeliversToItemAndAllSubscribers(t *testing.T) {
	h := NewHub()
	go h.Run()

	itemClient := newTestClient(h, "Aurora")
	allClient := newTestClient(h, AllItems)
	otherClient := newTestClient(h, "Dunes")
	h.RegisterClient(itemClient)
	h.RegisterClient(allClient)
	h.RegisterClient(otherClient)
	waitForClients(t, h, "Aurora", 1)
	waitForClients(t, h, AllItems, 1)

	h.Broadcast(types.StateMessage{Name: "Aurora", Type: "state", State: types.StateSuccess, Selectable: true})

	for _, c := range []*Client{itemClient, allClient} {
		select {
		case msg := <-c.send:
			assert.Equal(t, "Aurora", msg.Name)
			assert.Equal(t, types.StateSuccess, msg.State)
			assert.True(t, msg.Selectable)
			assert.False(t, msg.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive the message", c.name)
		}
	}

	select {
	case msg := <-otherClient.send:
		t.Fatalf("unexpected message for Dunes subscriber: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newTestClient(h, "Aurora")
	h.RegisterClient(c)
	waitForClients(t, h, "Aurora", 1)

	h.UnregisterClient(c)
	waitForClients(t, h, "Aurora", 0)

	_, ok := <-c.send
	assert.False(t, ok, "send channel should be closed")
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := &Client{hub: h, send: make(chan types.StateMessage), name: "Aurora"}
	h.RegisterClient(c)
	waitForClients(t, h, "Aurora", 1)

	h.Broadcast(types.StateMessage{Name: "Aurora", State: types.StateLoading})
	waitForClients(t, h, "Aurora", 0)
}

func TestClientSnapshot(t *testing.T) {
	c := &Client{send: make(chan types.StateMessage, 1), name: "Aurora"}
	c.Snapshot(
		types.StateMessage{Name: "Aurora", State: types.StateLoading},
		types.StateMessage{Name: "Aurora", State: types.StateSuccess},
	)

	require.Len(t, c.send, 1)
	msg := <-c.send
	assert.Equal(t, types.StateLoading, msg.State)
}
