package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kouya0205/math-mahjong/game/engine"
	"github.com/kouya0205/math-mahjong/game/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// outbound is a room event queued for delivery. When perPlayer is set,
// each client receives the view rendered for its own player id.
type outbound struct {
	roomID    string
	event     string
	shared    any
	perPlayer map[string]*engine.View
}

// Hub maintains the set of active clients per room and delivers game
// events. It implements service.Broadcaster.
type Hub struct {
	svc    service.GameService
	logger *zap.Logger

	// Room membership, touched only by the run loop.
	rooms map[string]map[*Client]bool

	broadcast  chan *outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates a hub bound to the game service.
func NewHub(svc service.GameService, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		svc:        svc,
		logger:     logger,
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. Call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliver(message)

		case <-h.done:
			return
		}
	}
}

// Stop terminates the run loop.
func (h *Hub) Stop() {
	close(h.done)
}

// ServeWS upgrades an HTTP request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	go client.writePump()
	go client.readPump()
}

// RoomUpdate implements service.Broadcaster.
func (h *Hub) RoomUpdate(roomID string, info *service.RoomInfo) {
	h.enqueue(&outbound{roomID: roomID, event: EventRoomUpdate, shared: info})
}

// GameStarted implements service.Broadcaster.
func (h *Hub) GameStarted(roomID string, views map[string]*engine.View) {
	h.enqueue(&outbound{roomID: roomID, event: EventGameStarted, perPlayer: views})
}

// GameState implements service.Broadcaster.
func (h *Hub) GameState(roomID string, views map[string]*engine.View) {
	h.enqueue(&outbound{roomID: roomID, event: EventGameState, perPlayer: views})
}

// CardsPlayed implements service.Broadcaster.
func (h *Hub) CardsPlayed(roomID string, event *service.CardsPlayedEvent, views map[string]*engine.View) {
	h.enqueue(&outbound{roomID: roomID, event: EventCardsPlayed, shared: event})
}

// GameFinished implements service.Broadcaster.
func (h *Hub) GameFinished(roomID string, winner *service.WinnerEvent, views map[string]*engine.View) {
	h.enqueue(&outbound{roomID: roomID, event: EventGameFinished, shared: winner, perPlayer: views})
}

func (h *Hub) enqueue(msg *outbound) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// registerClient adds a client to its room.
func (h *Hub) registerClient(client *Client) {
	if h.rooms[client.roomID] == nil {
		h.rooms[client.roomID] = make(map[*Client]bool)
	}
	h.rooms[client.roomID][client] = true

	h.logger.Debug("client registered",
		zap.String("room_id", client.roomID),
		zap.String("player_id", client.playerID),
		zap.Int("room_clients", len(h.rooms[client.roomID])))
}

// unregisterClient removes a client from its room.
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.rooms[client.roomID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	client.closeSend()
	if len(clients) == 0 {
		delete(h.rooms, client.roomID)
	}

	h.logger.Debug("client unregistered",
		zap.String("room_id", client.roomID),
		zap.Int("room_clients", len(clients)))
}

// deliver renders and sends a room event to every client in the room.
func (h *Hub) deliver(msg *outbound) {
	clients, ok := h.rooms[msg.roomID]
	if !ok {
		return
	}

	for client := range clients {
		event := Event{Event: msg.event, RoomID: msg.roomID}
		switch {
		case msg.event == EventGameFinished:
			var view *engine.View
			if msg.perPlayer != nil {
				view = msg.perPlayer[client.playerID]
			}
			winner, _ := msg.shared.(*service.WinnerEvent)
			event.Data = &GameFinishedPayload{Winner: winner, State: view}
		case msg.perPlayer != nil:
			view, ok := msg.perPlayer[client.playerID]
			if !ok {
				continue
			}
			event.Data = view
		default:
			event.Data = msg.shared
		}

		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("marshal event failed", zap.Error(err))
			continue
		}
		if !client.trySend(data) {
			// Slow or departed consumer, drop the connection.
			h.unregisterClient(client)
		}
	}
}
