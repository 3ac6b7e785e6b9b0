package engine

import (
	"testing"
)

// startedGame returns a playing game with n players named p0..p(n-1).
func startedGame(t *testing.T, n int) *Game {
	t.Helper()
	g := NewGame("room1", DefaultRules())
	for i := 0; i < n; i++ {
		if err := g.AddPlayer(NewPlayer("", playerName(i))); err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return g
}

func playerName(i int) string {
	return string(rune('a' + i))
}

func TestGame_AddPlayer(t *testing.T) {
	g := NewGame("room1", DefaultRules())

	if err := g.AddPlayer(NewPlayer("p1", "alice")); err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}
	if err := g.AddPlayer(NewPlayer("p1", "alice again")); err == nil {
		t.Error("Expected duplicate player id to be rejected")
	}
	if g.PlayerCount() != 1 {
		t.Errorf("Expected 1 player, got %d", g.PlayerCount())
	}
}

func TestGame_AddPlayer_RoomFull(t *testing.T) {
	g := NewGame("room1", Rules{MaxPlayers: 2})
	g.AddPlayer(NewPlayer("p1", "a"))
	g.AddPlayer(NewPlayer("p2", "b"))

	err := g.AddPlayer(NewPlayer("p3", "c"))
	if err == nil {
		t.Fatal("Expected room-full error")
	}
	if !IsValidationError(err) {
		t.Errorf("Expected ValidationError, got %T", err)
	}
}

func TestGame_AddPlayer_AfterStart(t *testing.T) {
	g := startedGame(t, 2)

	err := g.AddPlayer(NewPlayer("late", "late"))
	if err == nil {
		t.Fatal("Expected join after start to be rejected")
	}
	if !IsValidationError(err) {
		t.Errorf("Expected ValidationError, got %T", err)
	}
}

func TestGame_Start_NeedsTwoPlayers(t *testing.T) {
	g := NewGame("room1", DefaultRules())
	g.AddPlayer(NewPlayer("p1", "alice"))

	err := g.Start()
	if err == nil {
		t.Fatal("Expected start with one player to fail")
	}
	if g.Status() != StatusWaiting {
		t.Errorf("Expected game to stay waiting, got %s", g.Status())
	}
}

func TestGame_Start(t *testing.T) {
	g := startedGame(t, 3)

	if g.Status() != StatusPlaying {
		t.Fatalf("Expected playing status, got %s", g.Status())
	}
	for _, p := range g.Players() {
		if len(p.Hand) != 7 {
			t.Errorf("Expected 7 cards for %s, got %d", p.Name, len(p.Hand))
		}
		if p.Score != 0 {
			t.Errorf("Expected score reset for %s, got %d", p.Name, p.Score)
		}
	}
	if g.TargetNumber() < 1 || g.TargetNumber() > 999 {
		t.Errorf("Expected target in 1..999, got %d", g.TargetNumber())
	}
	if g.CurrentPlayerIndex() != 0 {
		t.Errorf("Expected first seat to act, got index %d", g.CurrentPlayerIndex())
	}
	if g.Winner() != nil {
		t.Error("Expected no winner at start")
	}
}

func TestGame_Start_Twice(t *testing.T) {
	g := startedGame(t, 2)
	if err := g.Start(); err == nil {
		t.Error("Expected second start to be rejected")
	}
}

func TestGame_CardCountInvariant(t *testing.T) {
	g := startedGame(t, 2)
	total := g.CardsInPlay()

	// The target digits land in the discard pile, so everything dealt from
	// the 68-card deck stays in play.
	if total != DeckSize {
		t.Fatalf("Expected %d cards in play after start, got %d", DeckSize, total)
	}

	current := g.CurrentPlayer()
	if _, err := g.DrawCard(current.ID); err != nil {
		t.Fatalf("DrawCard failed: %v", err)
	}
	if g.CardsInPlay() != total {
		t.Errorf("Draw changed the card count: %d != %d", g.CardsInPlay(), total)
	}

	if err := g.DiscardCard(current.ID, current.Hand[0].ID); err != nil {
		t.Fatalf("DiscardCard failed: %v", err)
	}
	if g.CardsInPlay() != total {
		t.Errorf("Discard changed the card count: %d != %d", g.CardsInPlay(), total)
	}

	// A failed trial must not leak cards either.
	g.targetNumber = -1 // unreachable
	if _, err := g.PlayCards(current.ID, []string{current.Hand[0].ID}); err != nil && !IsExpressionError(err) {
		t.Fatalf("PlayCards trial failed unexpectedly: %v", err)
	}
	if g.CardsInPlay() != total {
		t.Errorf("Failed trial changed the card count: %d != %d", g.CardsInPlay(), total)
	}
}

func TestGame_NextTurn_RoundRobin(t *testing.T) {
	g := startedGame(t, 3)

	want := []int{1, 2, 0, 1, 2, 0}
	for i, expected := range want {
		g.NextTurn()
		if g.CurrentPlayerIndex() != expected {
			t.Fatalf("Turn %d: expected index %d, got %d", i, expected, g.CurrentPlayerIndex())
		}
	}
}

func TestGame_DrawCard_WrongActor(t *testing.T) {
	g := startedGame(t, 2)
	other := g.Players()[1]

	_, err := g.DrawCard(other.ID)
	if err == nil {
		t.Fatal("Expected out-of-turn draw to be rejected")
	}
	if !IsValidationError(err) {
		t.Errorf("Expected ValidationError, got %T", err)
	}
	if len(other.Hand) != 7 {
		t.Errorf("Expected hand untouched, got %d cards", len(other.Hand))
	}
}

func TestGame_DrawCard(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()

	card, err := g.DrawCard(current.ID)
	if err != nil {
		t.Fatalf("DrawCard failed: %v", err)
	}
	if card == nil {
		t.Fatal("Expected a card from a non-empty deck")
	}
	if len(current.Hand) != 8 {
		t.Errorf("Expected 8 cards after draw, got %d", len(current.Hand))
	}
	// Drawing does not advance the turn.
	if g.CurrentPlayer().ID != current.ID {
		t.Error("Expected the turn to stay with the drawer")
	}
}

func TestGame_DrawCard_EmptyDeckFinishes(t *testing.T) {
	g := startedGame(t, 3)
	players := g.Players()
	players[1].Score = 40
	players[2].Score = 40 // ties break toward the earlier seat
	g.deck.cards = nil

	card, err := g.DrawCard(g.CurrentPlayer().ID)
	if err != nil {
		t.Fatalf("Expected exhaustion to finish the game, not error: %v", err)
	}
	if card != nil {
		t.Error("Expected no card from an empty deck")
	}
	if g.Status() != StatusFinished {
		t.Fatalf("Expected finished status, got %s", g.Status())
	}
	if g.Winner() == nil || g.Winner().ID != players[1].ID {
		t.Errorf("Expected earliest top scorer %s to win", players[1].Name)
	}
}

func TestGame_DiscardCard(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()
	cardID := current.Hand[0].ID

	if err := g.DiscardCard(current.ID, cardID); err != nil {
		t.Fatalf("DiscardCard failed: %v", err)
	}
	if len(current.Hand) != 6 {
		t.Errorf("Expected 6 cards after discard, got %d", len(current.Hand))
	}
	tail := g.DiscardTail(1)
	if len(tail) != 1 || tail[0].ID != cardID {
		t.Error("Expected discarded card on top of the discard pile")
	}
	// Turn advancement is a separate explicit step.
	if g.CurrentPlayer().ID != current.ID {
		t.Error("Expected discard not to advance the turn")
	}
}

func TestGame_DiscardCard_UnknownCard(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()

	err := g.DiscardCard(current.ID, "missing")
	if err == nil {
		t.Fatal("Expected unknown card discard to fail")
	}
	if len(current.Hand) != 7 {
		t.Errorf("Expected hand untouched, got %d cards", len(current.Hand))
	}
}

func TestGame_PlayCards_Win(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()

	five := NewNumberCard(5)
	current.Hand = []Card{five}
	g.targetNumber = 5

	result, err := g.PlayCards(current.ID, []string{five.ID})
	if err != nil {
		t.Fatalf("PlayCards failed: %v", err)
	}
	if !result.Won {
		t.Fatal("Expected a winning play")
	}
	if result.Points != 10 {
		t.Errorf("Expected 10 points for one card, got %d", result.Points)
	}
	if g.Status() != StatusFinished {
		t.Errorf("Expected finished status, got %s", g.Status())
	}
	if g.Winner() == nil || g.Winner().ID != current.ID {
		t.Error("Expected the actor to be the winner")
	}
	if len(current.Hand) != 0 {
		t.Error("Expected played cards to leave the hand")
	}
	if action := g.LastAction(); action == nil || action.Expression != "5" || action.Value != 5 {
		t.Errorf("Expected last action 5=5, got %+v", action)
	}

	// Finished games accept no further mutations.
	if _, err := g.PlayCards(current.ID, []string{"x"}); err == nil || !IsValidationError(err) {
		t.Error("Expected mutation after finish to fail with ValidationError")
	}
}

func TestGame_PlayCards_Mismatch(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()

	five := NewNumberCard(5)
	current.Hand = []Card{five}
	g.targetNumber = 123

	result, err := g.PlayCards(current.ID, []string{five.ID})
	if err != nil {
		t.Fatalf("PlayCards trial failed: %v", err)
	}
	if result.Won {
		t.Fatal("Expected a failed trial")
	}
	if result.Value != 5 || result.Target != 123 {
		t.Errorf("Expected value 5 against target 123, got %d against %d", result.Value, result.Target)
	}
	if g.Status() != StatusPlaying {
		t.Errorf("Expected game to keep playing, got %s", g.Status())
	}
	if len(current.Hand) != 1 {
		t.Error("Expected hand untouched by a failed trial")
	}
	if g.Winner() != nil {
		t.Error("Expected no winner after a failed trial")
	}
}

func TestGame_PlayCards_UnknownCard(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()

	_, err := g.PlayCards(current.ID, []string{current.Hand[0].ID, "missing"})
	if err == nil {
		t.Fatal("Expected unknown card id to be rejected")
	}
	if !IsValidationError(err) {
		t.Errorf("Expected ValidationError, got %T", err)
	}
	if len(current.Hand) != 7 {
		t.Errorf("Expected hand untouched, got %d cards", len(current.Hand))
	}
}

func TestGame_PlayCards_InvalidExpression(t *testing.T) {
	g := startedGame(t, 2)
	current := g.CurrentPlayer()

	plus := NewOperatorCard(OpAdd)
	current.Hand = []Card{plus}

	_, err := g.PlayCards(current.ID, []string{plus.ID})
	if err == nil {
		t.Fatal("Expected a malformed expression to fail")
	}
	if !IsExpressionError(err) {
		t.Errorf("Expected ExpressionError, got %T: %v", err, err)
	}
	if len(current.Hand) != 1 {
		t.Error("Expected hand untouched by a failed trial")
	}
	if g.Status() != StatusPlaying {
		t.Errorf("Expected game to keep playing, got %s", g.Status())
	}
}

func TestGame_RemovePlayer_Waiting(t *testing.T) {
	g := NewGame("room1", DefaultRules())
	g.AddPlayer(NewPlayer("p1", "a"))
	g.AddPlayer(NewPlayer("p2", "b"))

	if err := g.RemovePlayer("p1"); err != nil {
		t.Fatalf("RemovePlayer failed: %v", err)
	}
	if g.PlayerCount() != 1 {
		t.Errorf("Expected 1 player, got %d", g.PlayerCount())
	}
	if err := g.RemovePlayer("ghost"); err == nil {
		t.Error("Expected removing an unknown player to fail")
	}
}

func TestGame_RemovePlayer_Playing(t *testing.T) {
	g := startedGame(t, 3)
	players := g.Players()
	total := g.CardsInPlay()

	// Leaver holds the turn; it passes to the next survivor and the hand is
	// discarded.
	if err := g.RemovePlayer(players[0].ID); err != nil {
		t.Fatalf("RemovePlayer failed: %v", err)
	}
	if g.PlayerCount() != 2 {
		t.Fatalf("Expected 2 players, got %d", g.PlayerCount())
	}
	if g.CurrentPlayer().ID != players[1].ID {
		t.Errorf("Expected turn to pass to %s, got %s", players[1].Name, g.CurrentPlayer().Name)
	}
	if g.CardsInPlay() != total {
		t.Errorf("Expected leaver's hand in the discard pile: %d != %d", g.CardsInPlay(), total)
	}
	if g.Status() != StatusPlaying {
		t.Errorf("Expected game to continue with 2 players, got %s", g.Status())
	}
}

func TestGame_RemovePlayer_LastOpponentLeaves(t *testing.T) {
	g := startedGame(t, 2)
	players := g.Players()

	if err := g.RemovePlayer(players[1].ID); err != nil {
		t.Fatalf("RemovePlayer failed: %v", err)
	}
	if g.Status() != StatusFinished {
		t.Fatalf("Expected finished status, got %s", g.Status())
	}
	if g.Winner() == nil || g.Winner().ID != players[0].ID {
		t.Error("Expected the survivor to win")
	}
}
