package websocket

import (
	"github.com/kouya0205/math-mahjong/game/engine"
	"github.com/kouya0205/math-mahjong/game/service"
)

// Command actions accepted from clients.
const (
	ActionCreateRoom  = "create_room"
	ActionJoinRoom    = "join_room"
	ActionLeaveRoom   = "leave_room"
	ActionStartGame   = "start_game"
	ActionDrawCard    = "draw_card"
	ActionDiscardCard = "discard_card"
	ActionPlayCards   = "play_cards"
	ActionGetState    = "get_state"
)

// Event names pushed to clients.
const (
	EventResponse     = "response"
	EventError        = "gameError"
	EventRoomUpdate   = "roomUpdate"
	EventGameStarted  = "gameStarted"
	EventGameState    = "gameState"
	EventCardsPlayed  = "cardsPlayed"
	EventGameFinished = "gameFinished"
)

// Command is an incoming client message.
type Command struct {
	Action     string   `json:"action"`
	RequestID  string   `json:"requestId,omitempty"`
	RoomID     string   `json:"roomId,omitempty"`
	PlayerName string   `json:"playerName,omitempty"`
	CardID     string   `json:"cardId,omitempty"`
	CardIDs    []string `json:"cardIds,omitempty"`
}

// Event is an outgoing server message.
type Event struct {
	Event     string `json:"event"`
	RoomID    string `json:"roomId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// GameFinishedPayload pairs the winner announcement with the recipient's
// final view of the game.
type GameFinishedPayload struct {
	Winner *service.WinnerEvent `json:"winner"`
	State  *engine.View         `json:"state,omitempty"`
}
