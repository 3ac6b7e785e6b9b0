// Package api provides the HTTP REST surface for rooms and gameplay.
//
// Endpoints:
//
// Room Management:
//   - POST /api/rooms - Create a room and seat the host
//   - GET /api/rooms - List active rooms
//   - GET /api/rooms/{id} - Get one room's roster and status
//   - POST /api/rooms/{id}/join - Join a waiting room
//   - DELETE /api/rooms/{id}/players/{playerId} - Leave a room
//
// Game Operations:
//   - POST /api/rooms/{id}/start - Deal hands and begin play (host only)
//   - GET /api/rooms/{id}/state?playerId= - Per-player game view
//   - POST /api/rooms/{id}/draw - Draw the top card
//   - POST /api/rooms/{id}/discard - Discard one card, pass the turn
//   - POST /api/rooms/{id}/play - Submit an expression
//
// Configuration:
//   - GET /api/presets - List rule presets
//
// WebSocket:
//   - GET /ws - Upgrade to the real-time transport
//
// All endpoints accept and return JSON. Errors are returned as
// {"error": "message"} with the status code carrying the class of
// failure: 400 for rule violations, 403 for non-host starts, 404 for
// unknown rooms, 422 for malformed expressions.
package api
