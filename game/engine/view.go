package engine

import "github.com/samber/lo"

// CardView is the wire form of a card: digit values for number cards, the
// symbol for operator cards.
type CardView struct {
	ID      string   `json:"id"`
	Type    CardKind `json:"type"`
	Value   any      `json:"value"`
	Display string   `json:"display"`
}

// View returns the card's wire form.
func (c Card) View() CardView {
	v := CardView{ID: c.ID, Type: c.Kind, Display: c.Display()}
	if c.IsNumber() {
		v.Value = c.Value
	} else {
		v.Value = string(c.Op)
	}
	return v
}

// PlayerRef identifies a player in a view.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayerSummary is the per-player roster entry every recipient sees. Hand
// contents are included only when the reveal-opponent-hands rule is on.
type PlayerSummary struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Score           int        `json:"score"`
	HandCount       int        `json:"handCount"`
	IsCurrentPlayer bool       `json:"isCurrentPlayer"`
	Hand            []CardView `json:"hand,omitempty"`
}

// LastActionView summarizes the winning play for broadcast.
type LastActionView struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Expression string `json:"expression"`
	Value      int    `json:"value"`
}

// WinnerView identifies the winner in a view.
type WinnerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// View is the per-player projection of a game, filtered so a recipient
// never sees more than the visibility policy allows.
type View struct {
	RoomID        string          `json:"roomId"`
	Status        Status          `json:"status"`
	PlayerHand    []CardView      `json:"playerHand"`
	PlayerScore   int             `json:"playerScore"`
	CurrentPlayer *PlayerRef      `json:"currentPlayer,omitempty"`
	Players       []PlayerSummary `json:"players"`
	TargetNumber  int             `json:"targetNumber"`
	DeckCount     int             `json:"deckCount"`
	DiscardPile   []CardView      `json:"discardPile"`
	LastAction    *LastActionView `json:"lastAction,omitempty"`
	Winner        *WinnerView     `json:"winner,omitempty"`
}

// ViewFor projects the game state visible to one player. Pure: it never
// mutates the game.
func ViewFor(g *Game, playerID string) (*View, error) {
	player := g.PlayerByID(playerID)
	if player == nil {
		return nil, validationErrorf("player %s is not in the room", playerID)
	}
	current := g.CurrentPlayer()

	view := &View{
		RoomID:      g.RoomID(),
		Status:      g.Status(),
		PlayerHand:  viewCards(player.Hand),
		PlayerScore: player.Score,
		Players: lo.Map(g.players, func(p *Player, _ int) PlayerSummary {
			summary := PlayerSummary{
				ID:              p.ID,
				Name:            p.Name,
				Score:           p.Score,
				HandCount:       len(p.Hand),
				IsCurrentPlayer: current != nil && current.ID == p.ID,
			}
			if g.rules.RevealOpponentHands {
				summary.Hand = viewCards(p.Hand)
			}
			return summary
		}),
		TargetNumber: g.TargetNumber(),
		DeckCount:    g.DeckCount(),
		DiscardPile:  viewCards(g.DiscardTail(g.rules.DiscardTail)),
	}

	if current != nil {
		view.CurrentPlayer = &PlayerRef{ID: current.ID, Name: current.Name}
	}
	if action := g.LastAction(); action != nil {
		actorName := "unknown"
		if actor := g.PlayerByID(action.PlayerID); actor != nil {
			actorName = actor.Name
		}
		view.LastAction = &LastActionView{
			PlayerID:   action.PlayerID,
			PlayerName: actorName,
			Expression: action.Expression,
			Value:      action.Value,
		}
	}
	if winner := g.Winner(); winner != nil {
		view.Winner = &WinnerView{ID: winner.ID, Name: winner.Name, Score: winner.Score}
	}
	return view, nil
}

func viewCards(cards []Card) []CardView {
	return lo.Map(cards, func(c Card, _ int) CardView { return c.View() })
}
