// Package websocket provides the real-time transport for game rooms.
//
// The package uses a hub-and-spoke model: a central Hub owns the room
// membership maps and a run loop, and each connection gets a read and a
// write goroutine. All membership mutation happens inside the run loop,
// so the maps need no locking.
//
// Message Protocol:
//
// Clients send JSON commands:
//
//	{"action": "create_room", "playerName": "alice", "requestId": "1"}
//	{"action": "play_cards", "cardIds": ["..."], "requestId": "2"}
//
// The hub replies with a "response" event carrying the same requestId,
// and pushes room events ("roomUpdate", "gameStarted", "gameState",
// "cardsPlayed", "gameFinished") as the game progresses. Game state
// events are rendered per player, so a client only ever receives its own
// hand.
//
// Connection Lifecycle:
//
// A connection is unattached until its first create_room or join_room
// command succeeds, and serves that one room session: a leave_room
// command is acknowledged and then the server closes the connection.
// Closing the connection removes the player from the room.
package websocket
