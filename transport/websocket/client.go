package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is one WebSocket connection. roomID and playerID are set by the
// first successful create_room or join_room command and only read by the
// hub's run loop after registration, so they need no locking.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	roomID   string
	playerID string
	gone     bool

	// sendMu guards closed and the close of send. The hub's run loop
	// closes the channel when it drops a client; the read pump queues
	// command replies. Both go through trySend/closeSend.
	sendMu sync.Mutex
	closed bool
}

// closeSend closes the outbound channel exactly once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// trySend queues data without blocking. Returns false when the channel
// is already closed or the buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump pumps commands from the connection to the game service.
func (c *Client) readPump() {
	defer func() {
		c.detach()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.sendError("", "invalid message")
			continue
		}
		c.handleCommand(cmd)
	}
}

// detach removes the player from the game and the hub. Called once, when
// the connection drops or the player leaves.
func (c *Client) detach() {
	if c.gone || c.roomID == "" {
		return
	}
	c.gone = true

	roomID, playerID := c.roomID, c.playerID
	c.hub.unregister <- c
	if err := c.hub.svc.LeaveRoom(context.Background(), roomID, playerID); err != nil {
		c.hub.logger.Debug("leave on disconnect failed",
			zap.String("room_id", roomID),
			zap.Error(err))
	}
}

func (c *Client) handleCommand(cmd Command) {
	ctx := context.Background()

	switch cmd.Action {
	case ActionCreateRoom:
		if c.roomID != "" {
			c.sendError(cmd.RequestID, "already in a room")
			return
		}
		res, err := c.hub.svc.CreateRoom(ctx, cmd.PlayerName)
		if err != nil {
			c.sendError(cmd.RequestID, err.Error())
			return
		}
		c.roomID = res.RoomID
		c.playerID = res.PlayerID
		c.hub.register <- c
		c.reply(cmd.RequestID, res)

	case ActionJoinRoom:
		if c.roomID != "" {
			c.sendError(cmd.RequestID, "already in a room")
			return
		}
		res, err := c.hub.svc.JoinRoom(ctx, cmd.RoomID, cmd.PlayerName)
		if err != nil {
			c.sendError(cmd.RequestID, err.Error())
			return
		}
		c.roomID = res.RoomID
		c.playerID = res.PlayerID
		c.hub.register <- c
		c.reply(cmd.RequestID, res)

	case ActionLeaveRoom:
		if c.roomID == "" {
			c.sendError(cmd.RequestID, "not in a room")
			return
		}
		// A connection serves a single room session. The reply is queued
		// before detach closes the channel; the write pump flushes it,
		// sends a close frame, and tears down the connection.
		c.reply(cmd.RequestID, map[string]bool{"left": true})
		c.detach()

	case ActionStartGame:
		if err := c.hub.svc.StartGame(ctx, c.roomID, c.playerID); err != nil {
			c.sendError(cmd.RequestID, err.Error())
			return
		}
		c.reply(cmd.RequestID, map[string]bool{"started": true})

	case ActionDrawCard:
		res, err := c.hub.svc.DrawCard(ctx, c.roomID, c.playerID)
		if err != nil {
			c.sendError(cmd.RequestID, err.Error())
			return
		}
		c.reply(cmd.RequestID, res)

	case ActionDiscardCard:
		if err := c.hub.svc.DiscardCard(ctx, c.roomID, c.playerID, cmd.CardID); err != nil {
			c.sendError(cmd.RequestID, err.Error())
			return
		}
		c.reply(cmd.RequestID, map[string]bool{"discarded": true})

	case ActionPlayCards:
		res, err := c.hub.svc.PlayCards(ctx, c.roomID, c.playerID, cmd.CardIDs)
		if err != nil {
			c.sendError(cmd.RequestID, err.Error())
			return
		}
		c.reply(cmd.RequestID, res)

	case ActionGetState:
		view, err := c.hub.svc.GameState(ctx, c.roomID, c.playerID)
		if err != nil {
			c.sendError(cmd.RequestID, err.Error())
			return
		}
		c.reply(cmd.RequestID, view)

	default:
		c.sendError(cmd.RequestID, "unknown action: "+cmd.Action)
	}
}

func (c *Client) reply(requestID string, data any) {
	c.sendEvent(Event{
		Event:     EventResponse,
		RoomID:    c.roomID,
		RequestID: requestID,
		Data:      data,
	})
}

func (c *Client) sendError(requestID, message string) {
	c.sendEvent(Event{
		Event:     EventError,
		RequestID: requestID,
		Error:     message,
	})
}

func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.hub.logger.Error("marshal event failed", zap.Error(err))
		return
	}
	c.trySend(data)
}

// writePump pumps messages from the hub to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
