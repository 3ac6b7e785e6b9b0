package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kouya0205/math-mahjong/game/engine"
	"github.com/kouya0205/math-mahjong/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Math Mahjong",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Math Mahjong - MCP Interface

This is a thin client that proxies all requests to the REST API server,
so you share rooms with human players.

GAME OBJECTIVE:
Build an arithmetic expression from the cards in your hand that equals
the room's target number. First exact match wins.

AVAILABLE TOOLS:
- create_room: Create a room and sit down as its host
- join_room: Join an existing room by code
- list_rooms: List active rooms
- start_game: Deal hands and begin play (host only)
- game_state: See your hand, the target, and everyone's score
- draw_card: Draw the top card on your turn
- discard_card: Discard one card and pass the turn
- play_cards: Submit cards in expression order (left to right)
- leave_room: Leave the room
- game_instructions: Full rules, operators, and scoring

NOTE: The 'intent' parameter on play_cards serves as rubber duck
debugging - explain the expression you are trying to build!`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Room management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a new game room and join it as the host",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_name": map[string]interface{}{
					"type":        "string",
					"description": "Display name to use in the room",
				},
			},
			Required: []string{"player_name"},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_room",
		Description: "Join an existing room by its code",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room code to join",
				},
				"player_name": map[string]interface{}{
					"type":        "string",
					"description": "Display name to use in the room",
				},
			},
			Required: []string{"room_id", "player_name"},
		},
	}, c.handleJoinRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all active game rooms",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_room",
		Description: "Leave a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room code",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player id",
				},
			},
			Required: []string{"room_id", "player_id"},
		},
	}, c.handleLeaveRoom)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Deal hands and begin play. Only the host can start.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room code",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player id",
				},
			},
			Required: []string{"room_id", "player_id"},
		},
	}, c.handleStartGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the game as seen by your player: hand, target, scores, discard pile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room code",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player id",
				},
			},
			Required: []string{"room_id", "player_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "draw_card",
		Description: "Draw the top card of the deck. Only legal on your turn.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room code",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player id",
				},
			},
			Required: []string{"room_id", "player_id"},
		},
	}, c.handleDrawCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "discard_card",
		Description: "Discard one card from your hand and pass the turn",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room code",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player id",
				},
				"card_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the card to discard",
				},
			},
			Required: []string{"room_id", "player_id", "card_id"},
		},
	}, c.handleDiscardCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_cards",
		Description: "Submit cards in expression order to hit the target. A miss keeps your cards and your turn.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room code",
				},
				"player_id": map[string]interface{}{
					"type":        "string",
					"description": "Your player id",
				},
				"card_ids": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
					},
					"description": "Card ids in left-to-right expression order",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the expression you are building (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"room_id", "player_id", "card_ids"},
		},
	}, c.handlePlayCards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	playerName, _ := args["player_name"].(string)

	var joined service.JoinResult
	err := c.apiCall("POST", "/api/rooms", map[string]string{"playerName": playerName}, &joined)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatJoinResult(&joined)), nil
}

func (c *Client) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	playerName, _ := args["player_name"].(string)

	var joined service.JoinResult
	err := c.apiCall("POST", fmt.Sprintf("/api/rooms/%s/join", roomID),
		map[string]string{"playerName": playerName}, &joined)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatJoinResult(&joined)), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                 `json:"count"`
		Rooms []*service.RoomInfo `json:"rooms"`
	}

	err := c.apiCall("GET", "/api/rooms", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Rooms (%d):\n\n", response.Count)
	for _, room := range response.Rooms {
		names := make([]string, 0, len(room.Players))
		for _, p := range room.Players {
			names = append(names, p.Name)
		}
		result += fmt.Sprintf("- %s [%s] %d/%d players: %s\n",
			room.RoomID, room.Status, len(room.Players), room.MaxPlayers,
			strings.Join(names, ", "))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleLeaveRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	playerID, _ := args["player_id"].(string)

	err := c.apiCall("DELETE", fmt.Sprintf("/api/rooms/%s/players/%s", roomID, playerID), nil, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Left room %s", roomID)), nil
}

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	playerID, _ := args["player_id"].(string)

	var state engine.View
	err := c.apiCall("POST", fmt.Sprintf("/api/rooms/%s/start", roomID),
		map[string]string{"playerId": playerID}, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Game started!\n\n" + formatView(&state)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	playerID, _ := args["player_id"].(string)

	var state engine.View
	err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s/state?playerId=%s", roomID, playerID), nil, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatView(&state)), nil
}

func (c *Client) handleDrawCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	playerID, _ := args["player_id"].(string)

	var result service.DrawResult
	err := c.apiCall("POST", fmt.Sprintf("/api/rooms/%s/draw", roomID),
		map[string]string{"playerId": playerID}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.DeckExhausted {
		return mcp.NewToolResultText("The deck is empty. The game has ended on points - check game_state for the winner."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Drew: %s (id: %s)\nNow discard one card to pass the turn.",
		result.Card.Display, result.Card.ID)), nil
}

func (c *Client) handleDiscardCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	playerID, _ := args["player_id"].(string)
	cardID, _ := args["card_id"].(string)

	err := c.apiCall("POST", fmt.Sprintf("/api/rooms/%s/discard", roomID),
		map[string]string{"playerId": playerID, "cardId": cardID}, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Discarded. The turn passes to the next player."), nil
}

func (c *Client) handlePlayCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	playerID, _ := args["player_id"].(string)
	cardIDsRaw, _ := args["card_ids"].([]interface{})
	intent, _ := args["intent"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = intent

	cardIDs := make([]string, 0, len(cardIDsRaw))
	for _, raw := range cardIDsRaw {
		if id, ok := raw.(string); ok {
			cardIDs = append(cardIDs, id)
		}
	}

	body := map[string]interface{}{
		"playerId": playerID,
		"cardIds":  cardIDs,
	}

	var result service.PlayResult
	err := c.apiCall("POST", fmt.Sprintf("/api/rooms/%s/play", roomID), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlayResult(&result)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Math Mahjong - Complete Instructions

GAME OBJECTIVE:
Each room has a hidden-then-revealed 3-digit target number. Build an
arithmetic expression from the cards in your hand that equals the target
exactly. The first player to hit it wins the round.

THE DECK (68 cards):
- Number cards 0-9, four copies each
- Operator cards, four copies each: + - * / √ ! ^

TURN FLOW:
1. draw_card: take the top card of the deck into your hand
2. Either play_cards to attempt the target, or discard_card to pass
   the turn
A failed attempt (wrong value or malformed expression) costs nothing:
you keep your cards and your turn.

BUILDING EXPRESSIONS:
- Submit card ids in left-to-right order; the cards are read as written
- Adjacent number cards concatenate: [2][3] reads as 23
- √ is a prefix operator: [√][9] reads as √9 = 3
- ! is a postfix operator: [5][!] reads as 5! = 120
- ^ is power: [2][^][3] reads as 2^3 = 8
- Division must come out even: 7/2 is rejected
- The result must be a whole number

OPERATOR PRECEDENCE (highest first):
^ then √ then ! then * then / then + and -
Note: * binds tighter than /, so 8/2*4 = 8/(2*4) = 1. Plan carefully!

SCORING:
10 points per card played, plus an operator bonus:
+ or - : 5    * or / : 10    √ : 20    ! : 25    ^ : 30
An expression like √9*107 scores 4 cards (40) + √ (20) + * (10) = 70.

END OF GAME:
- A player hits the target: they win immediately
- The deck runs out: the highest score wins
- All opponents leave: the last player standing wins

STRATEGY HINTS:
- Check game_state after every turn; the discard pile tail is visible
- Concatenation is powerful: a 3-digit target can be three number cards
- High-bonus operators (^, !, √) are worth holding for the win`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatJoinResult(joined *service.JoinResult) string {
	names := make([]string, 0, len(joined.Room.Players))
	for _, p := range joined.Room.Players {
		if p.IsHost {
			names = append(names, p.Name+" (host)")
		} else {
			names = append(names, p.Name)
		}
	}
	return fmt.Sprintf("Room: %s\nYour player id: %s\nPlayers: %s\n\nSave your player id - every other tool needs it.",
		joined.RoomID, joined.PlayerID, strings.Join(names, ", "))
}

func formatView(state *engine.View) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Room %s [%s]\n", state.RoomID, state.Status)
	if state.Status != engine.StatusWaiting {
		fmt.Fprintf(&b, "Target: %d\n", state.TargetNumber)
	}
	if state.CurrentPlayer != nil {
		fmt.Fprintf(&b, "Current turn: %s\n", state.CurrentPlayer.Name)
	}
	fmt.Fprintf(&b, "Deck: %d cards left\n\n", state.DeckCount)

	b.WriteString("Your hand:\n")
	for i, card := range state.PlayerHand {
		fmt.Fprintf(&b, "  %d. %s (id: %s)\n", i+1, card.Display, card.ID)
	}

	b.WriteString("\nPlayers:\n")
	for _, p := range state.Players {
		marker := " "
		if p.IsCurrentPlayer {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %s: %d points, %d cards\n", marker, p.Name, p.Score, p.HandCount)
	}

	if len(state.DiscardPile) > 0 {
		displays := make([]string, 0, len(state.DiscardPile))
		for _, card := range state.DiscardPile {
			displays = append(displays, card.Display)
		}
		fmt.Fprintf(&b, "\nRecent discards: %s\n", strings.Join(displays, " "))
	}

	if state.Winner != nil {
		fmt.Fprintf(&b, "\nWINNER: %s with %d points", state.Winner.Name, state.Winner.Score)
		if state.LastAction != nil {
			fmt.Fprintf(&b, " (%s = %d)", state.LastAction.Expression, state.LastAction.Value)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatPlayResult(result *service.PlayResult) string {
	if result.Success {
		return fmt.Sprintf("HIT! %s = %d equals the target %d.\nYou scored %d points and won the game!",
			result.Expression, result.Value, result.Target, result.Points)
	}
	if result.Message != "" {
		return fmt.Sprintf("Miss: %s\nYou keep your cards and your turn.", result.Message)
	}
	return fmt.Sprintf("Miss: %s = %d, target is %d.\nYou keep your cards and your turn.",
		result.Expression, result.Value, result.Target)
}
