package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/motionlab/capserver/internal/websocket"
)

// Exercises the status stream with a client that pings aggressively while
// status events flow, so concurrent writes to the connection would trip the
// race detector.
func TestSessionStatusStreamConcurrentPings(t *testing.T) {
	h := &WSHandler{
		log:      zerolog.Nop(),
		upgrader: buildUpgrader(nil),
	}

	const eventCount = 50
	events := make(chan *redis.Message)
	served := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		h.serve(conn, zerolog.Nop(), "sess-1", "recording", events)
		close(served)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(srv.URL, "http", "ws", 1), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Client pings in a tight loop while the server forwards events.
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		for i := 0; i < eventCount; i++ {
			if err := conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}); err != nil {
				return
			}
		}
	}()

	go func() {
		for i := 0; i < eventCount; i++ {
			payload, _ := json.Marshal(map[string]string{
				"session_id": "sess-1",
				"status":     fmt.Sprintf("status-%d", i),
			})
			events <- &redis.Message{Payload: string(payload)}
		}
		close(events)
	}()

	var statuses, pongs int
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg struct {
			Event string `json:"event"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Event {
		case string(ws.EventStatus):
			statuses++
		case string(ws.EventPong):
			pongs++
		}
	}

	<-pingDone
	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not finish serving the stream")
	}

	// Initial status plus every forwarded event; pings coalesce, so at
	// least one pong is all that is guaranteed.
	if statuses != eventCount+1 {
		t.Errorf("statuses = %d, want %d", statuses, eventCount+1)
	}
	if pongs < 1 {
		t.Errorf("pongs = %d, want at least 1", pongs)
	}
}
