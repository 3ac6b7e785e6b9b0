package engine

import (
	"math"
	"math/rand/v2"
	"time"
)

// Status is the lifecycle phase of a game. Transitions are monotonic:
// waiting → playing → finished.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// LastAction records the most recent winning play for broadcast and
// snapshots.
type LastAction struct {
	PlayerID   string
	Expression string
	Value      int
	Timestamp  time.Time
}

// PlayResult is the outcome of a play-cards trial. A trial only commits
// (Won=true, cards leave the game, game finishes) on an exact target match;
// otherwise the hand is untouched and Value is returned for feedback.
type PlayResult struct {
	Expression string
	Value      int
	Target     int
	Won        bool
	Points     int
}

// Game is the per-room turn state machine coordinating players, deck,
// discard pile, target number, and win detection.
type Game struct {
	roomID             string
	rules              Rules
	players            []*Player
	currentPlayerIndex int
	deck               *Deck
	discardPile        []Card
	targetNumber       int
	status             Status
	winner             *Player
	lastAction         *LastAction
}

// NewGame creates a waiting game for a room.
func NewGame(roomID string, rules Rules) *Game {
	return &Game{
		roomID: roomID,
		rules:  rules.withDefaults(),
		deck:   NewDeck(),
		status: StatusWaiting,
	}
}

// RoomID returns the owning room id.
func (g *Game) RoomID() string { return g.roomID }

// Rules returns the rule set the game was created with.
func (g *Game) Rules() Rules { return g.rules }

// Status returns the lifecycle phase.
func (g *Game) Status() Status { return g.status }

// TargetNumber returns the number a winning expression must equal.
func (g *Game) TargetNumber() int { return g.targetNumber }

// Winner returns the winning player, or nil while undecided.
func (g *Game) Winner() *Player { return g.winner }

// LastAction returns the most recent winning play, or nil.
func (g *Game) LastAction() *LastAction { return g.lastAction }

// Players returns the roster in seating order.
func (g *Game) Players() []*Player {
	out := make([]*Player, len(g.players))
	copy(out, g.players)
	return out
}

// PlayerCount returns the roster size.
func (g *Game) PlayerCount() int { return len(g.players) }

// CurrentPlayerIndex returns the index of the player whose turn it is.
func (g *Game) CurrentPlayerIndex() int { return g.currentPlayerIndex }

// CurrentPlayer returns the player whose turn it is, or nil before the
// roster exists.
func (g *Game) CurrentPlayer() *Player {
	if len(g.players) == 0 || g.currentPlayerIndex >= len(g.players) {
		return nil
	}
	return g.players[g.currentPlayerIndex]
}

// DeckCount returns the number of undrawn cards.
func (g *Game) DeckCount() int { return g.deck.Remaining() }

// DiscardTail returns the last n discarded cards, oldest first.
func (g *Game) DiscardTail(n int) []Card {
	if n > len(g.discardPile) {
		n = len(g.discardPile)
	}
	tail := make([]Card, n)
	copy(tail, g.discardPile[len(g.discardPile)-n:])
	return tail
}

// CardsInPlay counts the cards in the deck, every hand, and the discard
// pile. The sum is constant while the game is playing.
func (g *Game) CardsInPlay() int {
	total := g.deck.Remaining() + len(g.discardPile)
	for _, p := range g.players {
		total += len(p.Hand)
	}
	return total
}

// PlayerByID finds a roster member, or nil.
func (g *Game) PlayerByID(id string) *Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddPlayer appends a player to the roster. Rejected once the game has
// started.
func (g *Game) AddPlayer(p *Player) error {
	if g.status != StatusWaiting {
		return validationErrorf("game has already started")
	}
	if len(g.players) >= g.rules.MaxPlayers {
		return validationErrorf("room is full (%d players max)", g.rules.MaxPlayers)
	}
	if g.PlayerByID(p.ID) != nil {
		return validationErrorf("player %s is already in the room", p.ID)
	}
	g.players = append(g.players, p)
	return nil
}

// Start deals a fresh game: new shuffled deck, scores reset, target number
// derived, rules.HandSize cards to each player, first seat to act.
func (g *Game) Start() error {
	if g.status != StatusWaiting {
		return validationErrorf("game has already started")
	}
	if len(g.players) < g.rules.MinPlayers {
		return validationErrorf("need at least %d players to start", g.rules.MinPlayers)
	}

	g.deck = NewDeck()
	g.discardPile = nil
	g.currentPlayerIndex = 0
	g.winner = nil
	g.lastAction = nil
	g.targetNumber = g.deriveTarget()

	for _, p := range g.players {
		p.Hand = []Card{}
		p.Score = 0
		p.AddCards(g.deck.DrawUpTo(g.rules.HandSize)...)
	}

	g.status = StatusPlaying
	return nil
}

// deriveTarget draws number cards under a bounded retry budget to form the
// target. Non-number draws go back to the bottom of the deck; the digit
// cards used go to the discard pile. If the budget runs out (or the digits
// spell zero) the target falls back to a uniformly random value of the
// configured width.
func (g *Game) deriveTarget() int {
	digits := make([]Card, 0, g.rules.TargetDigits)
	for attempts := 0; attempts < g.rules.TargetDrawBudget && len(digits) < g.rules.TargetDigits; attempts++ {
		card, err := g.deck.Draw()
		if err != nil {
			break
		}
		if card.IsNumber() {
			digits = append(digits, card)
		} else {
			g.deck.ReturnToBottom(card)
		}
	}
	g.discardPile = append(g.discardPile, digits...)

	if len(digits) == g.rules.TargetDigits {
		target := 0
		for _, c := range digits {
			target = target*10 + c.Value
		}
		if target > 0 {
			return target
		}
	}

	low := int(math.Pow10(g.rules.TargetDigits - 1))
	return rand.IntN(9*low) + low
}

// NextTurn advances the turn round-robin over the roster. Explicitly
// separate from discarding.
func (g *Game) NextTurn() {
	if g.status != StatusPlaying || len(g.players) == 0 {
		return
	}
	g.currentPlayerIndex = (g.currentPlayerIndex + 1) % len(g.players)
}

// DrawCard moves one card from the deck to the current player's hand. If
// the deck is already empty the game finishes instead, with the
// highest-score player as winner, and the returned card is nil.
func (g *Game) DrawCard(playerID string) (*Card, error) {
	if err := g.requireTurn(playerID); err != nil {
		return nil, err
	}
	card, err := g.deck.Draw()
	if err != nil {
		g.finishOnExhaustion()
		return nil, nil
	}
	g.PlayerByID(playerID).AddCards(card)
	return &card, nil
}

// DiscardCard moves exactly one named card from the current player's hand
// to the discard pile. It does not advance the turn.
func (g *Game) DiscardCard(playerID, cardID string) error {
	if err := g.requireTurn(playerID); err != nil {
		return err
	}
	removed, err := g.PlayerByID(playerID).RemoveCards([]string{cardID})
	if err != nil {
		return err
	}
	g.discardPile = append(g.discardPile, removed...)
	return nil
}

// PlayCards evaluates the submitted card order against the target. Exact
// match: the actor wins, scores the play, the cards leave the game, and the
// game finishes. Mismatch: nothing changes and the computed value is
// returned for feedback. Evaluation failures surface as ExpressionError
// with the hand untouched.
func (g *Game) PlayCards(playerID string, cardIDs []string) (*PlayResult, error) {
	if err := g.requireTurn(playerID); err != nil {
		return nil, err
	}
	if len(cardIDs) == 0 {
		return nil, validationErrorf("no cards selected")
	}
	player := g.PlayerByID(playerID)
	selected, err := player.CardsByID(cardIDs)
	if err != nil {
		return nil, err
	}

	expression := BuildExpression(selected)
	value, err := Evaluate(selected)
	if err != nil {
		return nil, err
	}

	result := &PlayResult{Expression: expression, Value: value, Target: g.targetNumber}
	if value != g.targetNumber {
		return result, nil
	}

	if _, err := player.RemoveCards(cardIDs); err != nil {
		return nil, err
	}
	result.Won = true
	result.Points = Score(selected)
	player.AddScore(result.Points)
	g.winner = player
	g.lastAction = &LastAction{
		PlayerID:   playerID,
		Expression: expression,
		Value:      value,
		Timestamp:  time.Now(),
	}
	g.status = StatusFinished
	return result, nil
}

// RemovePlayer drops a player from the roster. While playing, the leaver's
// hand goes to the discard pile, the turn passes to the next survivor if
// the leaver held it, and a roster of one finishes the game with the
// survivor as winner.
func (g *Game) RemovePlayer(playerID string) error {
	idx := -1
	for i, p := range g.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return validationErrorf("player %s is not in the room", playerID)
	}

	leaver := g.players[idx]
	g.players = append(g.players[:idx], g.players[idx+1:]...)

	if g.status != StatusPlaying {
		return nil
	}

	g.discardPile = append(g.discardPile, leaver.Hand...)
	leaver.Hand = nil

	if idx < g.currentPlayerIndex {
		g.currentPlayerIndex--
	}
	if g.currentPlayerIndex >= len(g.players) {
		g.currentPlayerIndex = 0
	}

	if len(g.players) == 1 {
		g.winner = g.players[0]
		g.status = StatusFinished
	}
	return nil
}

// ForceState replaces one player's hand and the target number, and hands
// that player the turn. It exists for tests and debug tooling and must
// not be called during normal play.
func (g *Game) ForceState(playerID string, hand []Card, target int) error {
	if g.status != StatusPlaying {
		return validationErrorf("game is not in progress")
	}
	for i, p := range g.players {
		if p.ID == playerID {
			p.Hand = append([]Card(nil), hand...)
			g.currentPlayerIndex = i
			g.targetNumber = target
			return nil
		}
	}
	return validationErrorf("player %s is not in the room", playerID)
}

// requireTurn verifies the game is playing and the actor holds the turn.
func (g *Game) requireTurn(playerID string) error {
	switch g.status {
	case StatusWaiting:
		return validationErrorf("game has not started")
	case StatusFinished:
		return validationErrorf("game is finished")
	}
	if g.PlayerByID(playerID) == nil {
		return validationErrorf("player %s is not in the room", playerID)
	}
	if current := g.CurrentPlayer(); current == nil || current.ID != playerID {
		return validationErrorf("not your turn")
	}
	return nil
}

// finishOnExhaustion ends the game when the deck runs dry: the strictly
// highest score wins, with the earliest roster seat breaking ties.
func (g *Game) finishOnExhaustion() {
	var winner *Player
	best := -1
	for _, p := range g.players {
		if p.Score > best {
			best = p.Score
			winner = p
		}
	}
	g.winner = winner
	g.status = StatusFinished
}
