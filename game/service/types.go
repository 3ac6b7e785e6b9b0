package service

import "github.com/kouya0205/math-mahjong/game/engine"

// RoomPlayer is a roster entry. The host is always the player in seat
// zero; when the host leaves, the next seat inherits the role.
type RoomPlayer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// RoomInfo is the public description of a room.
type RoomInfo struct {
	RoomID     string        `json:"roomId"`
	Status     engine.Status `json:"status"`
	Players    []RoomPlayer  `json:"players"`
	MaxPlayers int           `json:"maxPlayers"`
}

// JoinResult is returned from CreateRoom and JoinRoom.
type JoinResult struct {
	RoomID   string    `json:"roomId"`
	PlayerID string    `json:"playerId"`
	Room     *RoomInfo `json:"room"`
}

// DrawResult reports a draw. Card is nil when the deck was exhausted, in
// which case the game has ended on points.
type DrawResult struct {
	Card          *engine.CardView `json:"card,omitempty"`
	DeckExhausted bool             `json:"deckExhausted"`
}

// PlayResult reports a play attempt. Success is false for a well-formed
// expression that does not equal the target; Message then explains the
// miss. Malformed expressions are also reported here rather than as
// transport errors so the player keeps their turn and cards.
type PlayResult struct {
	Success    bool   `json:"success"`
	Expression string `json:"expression,omitempty"`
	Value      int    `json:"value,omitempty"`
	Target     int    `json:"target"`
	Points     int    `json:"points,omitempty"`
	Message    string `json:"message,omitempty"`
}

// CardsPlayedEvent announces a winning play to the room.
type CardsPlayedEvent struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Expression string `json:"expression"`
	Value      int    `json:"value"`
	Points     int    `json:"points"`
}

// WinnerEvent announces the end of the game.
type WinnerEvent struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Target   int    `json:"target"`
}
