// Package mcp exposes the game to AI agents over the Model Context
// Protocol.
//
// The package is a thin client: every tool call is proxied to the REST
// API, so an MCP agent plays through exactly the same surface as a
// browser client and can share rooms with human players.
//
// MCP Tools:
//
//   - create_room: Create a room and sit down as its host
//   - join_room: Join an existing room by code
//   - list_rooms: List active rooms
//   - start_game: Deal hands and begin play (host only)
//   - game_state: Get the game as seen by one player
//   - draw_card: Draw the top card of the deck
//   - discard_card: Discard one card and pass the turn
//   - play_cards: Submit an expression built from cards in hand
//   - leave_room: Leave the room
//   - game_instructions: Get the rules of the game
//
// Transport Modes:
//
// The server supports stdio for local MCP clients and an HTTP endpoint
// for remote integration; both are wired in main.
package mcp
