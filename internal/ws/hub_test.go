package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Publish until the message lands; registration races the first send.
	type ping struct {
		Type string `json:"type"`
		Seq  int    `json:"seq"`
	}
	go func() {
		for i := 0; ; i++ {
			hub.Publish(ping{Type: "test", Seq: i})
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got ping
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "test", got.Type)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after context cancel")
	}
}

func TestShutdownWithManyClientsReleasesReaders(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	// More clients than the unregister buffer holds, so their reader
	// goroutines cannot all park on it once the loop has exited.
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conns := make([]*websocket.Conn, 0, 12)
	for i := 0; i < 12; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		conns = append(conns, conn)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after context cancel")
	}

	for _, c := range conns {
		_ = c.Close()
	}
}

func TestPublishUnmarshalableDropsSilently(t *testing.T) {
	hub := NewHub()
	// A channel cannot be marshaled; Publish must not panic or block.
	hub.Publish(make(chan int))
}
