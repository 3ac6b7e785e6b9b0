// Package service exposes the game operations shared by every transport.
// The HTTP handlers, the websocket hub, and the MCP tools all call the
// same GameService so game rules live in exactly one place.
package service

import (
	"context"

	"github.com/kouya0205/math-mahjong/game/engine"
)

// GameService is the application-level API for rooms and gameplay.
type GameService interface {
	// CreateRoom creates a room and seats hostName as its first player.
	CreateRoom(ctx context.Context, hostName string) (*JoinResult, error)

	// JoinRoom seats playerName in an existing waiting room.
	JoinRoom(ctx context.Context, roomID, playerName string) (*JoinResult, error)

	// LeaveRoom removes a player. Empty rooms are dropped from the
	// registry.
	LeaveRoom(ctx context.Context, roomID, playerID string) error

	// RoomInfo returns the public roster and status of a room.
	RoomInfo(ctx context.Context, roomID string) (*RoomInfo, error)

	// ListRooms returns every active room.
	ListRooms(ctx context.Context) ([]*RoomInfo, error)

	// StartGame deals hands and begins play. Only the host may start.
	StartGame(ctx context.Context, roomID, playerID string) error

	// DrawCard draws the top card for the current player. If the deck is
	// already empty it instead ends the game on points.
	DrawCard(ctx context.Context, roomID, playerID string) (*DrawResult, error)

	// DiscardCard discards one card and passes the turn.
	DiscardCard(ctx context.Context, roomID, playerID, cardID string) error

	// PlayCards submits an expression built from the player's cards. A
	// well-formed expression that misses the target is reported in the
	// result, not as an error.
	PlayCards(ctx context.Context, roomID, playerID string, cardIDs []string) (*PlayResult, error)

	// GameState returns the game as seen by one player.
	GameState(ctx context.Context, roomID, playerID string) (*engine.View, error)
}

// Broadcaster receives game events for delivery to connected clients.
// Per-player views are keyed by player id so each client only sees its
// own hand.
type Broadcaster interface {
	RoomUpdate(roomID string, info *RoomInfo)
	GameStarted(roomID string, views map[string]*engine.View)
	GameState(roomID string, views map[string]*engine.View)
	CardsPlayed(roomID string, event *CardsPlayedEvent, views map[string]*engine.View)
	GameFinished(roomID string, winner *WinnerEvent, views map[string]*engine.View)
}
