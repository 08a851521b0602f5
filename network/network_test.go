package network

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	sentAt := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	raw, err := Encode(EventSessionRecorded, map[string]int{"human_score": 150}, sentAt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"session_recorded","data":{"human_score":150},"sent_at":"2025-03-14T12:00:00Z"}`, string(raw))

	frame, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, EventSessionRecorded, frame.Type)
	assert.True(t, sentAt.Equal(frame.SentAt))
	assert.JSONEq(t, `{"human_score":150}`, string(frame.Data))
}

func TestEncode_UnsupportedPayload(t *testing.T) {
	_, err := Encode(EventPlayerRegistered, make(chan int), time.Now())
	assert.Error(t, err)
}

func TestWSConnection_SendAndPing(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan *WSConnection, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		received <- NewWSConnection(conn)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	pinged := make(chan struct{}, 1)
	client.SetPingHandler(func(string) error {
		pinged <- struct{}{}
		return nil
	})

	var serverConn *WSConnection
	select {
	case serverConn = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not accept the connection")
	}
	defer serverConn.Close()

	msgs := make(chan []byte, 1)
	go func() {
		for {
			_, data, err := client.ReadMessage()
			if err != nil {
				return
			}
			msgs <- data
		}
	}()

	require.NoError(t, serverConn.Send([]byte(`{"type":"player_registered"}`)))
	require.NoError(t, serverConn.Ping())

	select {
	case data := <-msgs:
		assert.Equal(t, `{"type":"player_registered"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("client did not receive the frame")
	}

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not receive a ping")
	}
}
