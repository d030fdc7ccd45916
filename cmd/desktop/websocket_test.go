package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A client whose send buffer is full gets evicted by a broadcast, and a
// late pong from its still-running read loop must not panic on the closed
// channel.
func TestHubEvictsSlowClientSafely(t *testing.T) {
	hub := NewWSHub()

	client := &WSClient{
		id:   "slow",
		send: make(chan []byte, 1),
		hub:  hub,
	}
	hub.register <- client

	// Fill the buffer so the next broadcast cannot be queued.
	require.True(t, client.trySend([]byte(`{"type":"noise"}`)))

	hub.BroadcastSyncStarted()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.clients["slow"]
		return !ok
	}, time.Second, 5*time.Millisecond)

	// The read loop may still try to answer a ping after eviction.
	assert.NotPanics(t, func() { client.sendPong() })
	assert.False(t, client.trySend([]byte("late")))
}

// Disconnecting twice must tolerate the double unregister.
func TestHubUnregisterIsIdempotent(t *testing.T) {
	hub := NewWSHub()

	client := &WSClient{
		id:   "c1",
		send: make(chan []byte, 1),
		hub:  hub,
	}
	hub.register <- client
	hub.unregister <- client
	hub.unregister <- client

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 0
	}, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() { client.closeSend() })
}
