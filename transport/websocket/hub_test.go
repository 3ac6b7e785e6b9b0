package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kouya0205/math-mahjong/game/engine"
	"github.com/kouya0205/math-mahjong/game/service"
	"github.com/kouya0205/math-mahjong/game/session"
)

func newTestHub(t *testing.T) (*Hub, *service.Service) {
	t.Helper()
	svc := service.NewService(session.NewRegistry(nil), engine.DefaultRules(), nil, nil)
	hub := NewHub(svc, nil)
	svc.SetBroadcaster(hub)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub, svc
}

func newTestServer(t *testing.T, hub *Hub) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmd Command) {
	t.Helper()
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("Failed to send command: %v", err)
	}
}

// waitForEvent reads frames until it finds the named event, skipping
// unrelated broadcasts. Frames may carry several newline-separated
// events.
func waitForEvent(t *testing.T, conn *websocket.Conn, name string) Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message: %v", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line == "" {
				continue
			}
			var event Event
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				t.Fatalf("Failed to unmarshal event: %v", err)
			}
			if event.Event == name {
				return event
			}
		}
	}
	t.Fatalf("Event %q not received within timeout", name)
	return Event{}
}

func dataField(t *testing.T, event Event, key string) string {
	t.Helper()
	obj, ok := event.Data.(map[string]any)
	if !ok {
		t.Fatalf("Event data is not an object: %#v", event.Data)
	}
	value, ok := obj[key].(string)
	if !ok {
		t.Fatalf("Event data has no string field %q: %#v", key, obj)
	}
	return value
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil, nil)

	if hub.rooms == nil {
		t.Error("Hub rooms map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHubRegisterUnregisterClient(t *testing.T) {
	hub := NewHub(nil, nil)

	client := &Client{
		hub:    hub,
		roomID: "ROOM1",
		send:   make(chan []byte, 256),
	}

	hub.registerClient(client)
	if !hub.rooms["ROOM1"][client] {
		t.Error("Client was not registered in room")
	}

	hub.unregisterClient(client)
	if _, exists := hub.rooms["ROOM1"]; exists {
		t.Error("Room should have been cleaned up after last client unregistered")
	}
}

func TestHubDropsSlowClientWithoutPanic(t *testing.T) {
	hub := NewHub(nil, nil)

	// Unbuffered channel with no reader, so delivery overflows at once.
	client := &Client{
		hub:      hub,
		roomID:   "ROOM1",
		playerID: "p1",
		send:     make(chan []byte),
	}
	hub.registerClient(client)

	hub.deliver(&outbound{roomID: "ROOM1", event: EventRoomUpdate, shared: map[string]string{"status": "waiting"}})
	if _, exists := hub.rooms["ROOM1"]; exists {
		t.Fatal("Slow client should have been dropped from the room")
	}

	// The read pump may still be answering a command for this client.
	// Its replies must be discarded, not sent on the closed channel.
	client.reply("1", map[string]bool{"ok": true})
	client.sendError("2", "late")
}

func TestWebSocketCreateRoom(t *testing.T) {
	hub, _ := newTestHub(t)
	url := newTestServer(t, hub)

	conn := dial(t, url)
	sendCommand(t, conn, Command{Action: ActionCreateRoom, PlayerName: "alice", RequestID: "1"})

	resp := waitForEvent(t, conn, EventResponse)
	if resp.RequestID != "1" {
		t.Errorf("Expected requestId 1, got %s", resp.RequestID)
	}
	if dataField(t, resp, "roomId") == "" {
		t.Error("Expected a room id in the response")
	}
	if dataField(t, resp, "playerId") == "" {
		t.Error("Expected a player id in the response")
	}
}

func TestWebSocketJoinBroadcastsRoomUpdate(t *testing.T) {
	hub, _ := newTestHub(t)
	url := newTestServer(t, hub)

	host := dial(t, url)
	sendCommand(t, host, Command{Action: ActionCreateRoom, PlayerName: "alice", RequestID: "1"})
	created := waitForEvent(t, host, EventResponse)
	roomID := dataField(t, created, "roomId")

	guest := dial(t, url)
	sendCommand(t, guest, Command{Action: ActionJoinRoom, RoomID: roomID, PlayerName: "bob", RequestID: "2"})
	waitForEvent(t, guest, EventResponse)

	update := waitForEvent(t, host, EventRoomUpdate)
	if update.RoomID != roomID {
		t.Errorf("Expected roomId %s, got %s", roomID, update.RoomID)
	}
}

func TestWebSocketStartGameDealsHands(t *testing.T) {
	hub, _ := newTestHub(t)
	url := newTestServer(t, hub)

	host := dial(t, url)
	sendCommand(t, host, Command{Action: ActionCreateRoom, PlayerName: "alice", RequestID: "1"})
	created := waitForEvent(t, host, EventResponse)
	roomID := dataField(t, created, "roomId")

	guest := dial(t, url)
	sendCommand(t, guest, Command{Action: ActionJoinRoom, RoomID: roomID, PlayerName: "bob", RequestID: "2"})
	waitForEvent(t, guest, EventResponse)

	sendCommand(t, host, Command{Action: ActionStartGame, RequestID: "3"})

	hostStarted := waitForEvent(t, host, EventGameStarted)
	guestStarted := waitForEvent(t, guest, EventGameStarted)

	for _, event := range []Event{hostStarted, guestStarted} {
		obj, ok := event.Data.(map[string]any)
		if !ok {
			t.Fatalf("gameStarted data is not an object: %#v", event.Data)
		}
		hand, ok := obj["playerHand"].([]any)
		if !ok {
			t.Fatalf("gameStarted data has no playerHand: %#v", obj)
		}
		if len(hand) != engine.DefaultRules().HandSize {
			t.Errorf("Expected %d cards in hand, got %d", engine.DefaultRules().HandSize, len(hand))
		}
	}
}

func TestWebSocketGuestCannotStart(t *testing.T) {
	hub, _ := newTestHub(t)
	url := newTestServer(t, hub)

	host := dial(t, url)
	sendCommand(t, host, Command{Action: ActionCreateRoom, PlayerName: "alice", RequestID: "1"})
	created := waitForEvent(t, host, EventResponse)
	roomID := dataField(t, created, "roomId")

	guest := dial(t, url)
	sendCommand(t, guest, Command{Action: ActionJoinRoom, RoomID: roomID, PlayerName: "bob", RequestID: "2"})
	waitForEvent(t, guest, EventResponse)

	sendCommand(t, guest, Command{Action: ActionStartGame, RequestID: "3"})
	errEvent := waitForEvent(t, guest, EventError)
	if errEvent.Error == "" {
		t.Error("Expected an error message")
	}
}

func TestWebSocketDisconnectLeavesRoom(t *testing.T) {
	hub, svc := newTestHub(t)
	url := newTestServer(t, hub)

	host := dial(t, url)
	sendCommand(t, host, Command{Action: ActionCreateRoom, PlayerName: "alice", RequestID: "1"})
	created := waitForEvent(t, host, EventResponse)
	roomID := dataField(t, created, "roomId")

	guest := dial(t, url)
	sendCommand(t, guest, Command{Action: ActionJoinRoom, RoomID: roomID, PlayerName: "bob", RequestID: "2"})
	waitForEvent(t, guest, EventResponse)

	guest.Close()

	// The host should see the roster shrink back to one.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		info, err := svc.RoomInfo(t.Context(), roomID)
		if err == nil && len(info.Players) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Guest was not removed from the room after disconnect")
}

func TestWebSocketLeaveRoomClosesConnection(t *testing.T) {
	hub, svc := newTestHub(t)
	url := newTestServer(t, hub)

	conn := dial(t, url)
	sendCommand(t, conn, Command{Action: ActionCreateRoom, PlayerName: "alice", RequestID: "1"})
	created := waitForEvent(t, conn, EventResponse)
	roomID := dataField(t, created, "roomId")

	sendCommand(t, conn, Command{Action: ActionLeaveRoom, RequestID: "2"})
	left := waitForEvent(t, conn, EventResponse)
	if left.RequestID != "2" {
		t.Errorf("Expected requestId 2, got %s", left.RequestID)
	}

	// The acknowledgement is followed by a close frame; the session is
	// over and the room is gone.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
		t.Errorf("Expected a close frame after leaving, got %v", err)
	}

	if _, err := svc.RoomInfo(t.Context(), roomID); err == nil {
		t.Error("Room should be removed after its last player left")
	}
}

func TestWebSocketUnknownAction(t *testing.T) {
	hub, _ := newTestHub(t)
	url := newTestServer(t, hub)

	conn := dial(t, url)
	sendCommand(t, conn, Command{Action: "teleport", RequestID: "1"})

	errEvent := waitForEvent(t, conn, EventError)
	if !strings.Contains(errEvent.Error, "unknown action") {
		t.Errorf("Expected unknown action error, got %q", errEvent.Error)
	}
}
