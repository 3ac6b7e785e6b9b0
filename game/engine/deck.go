package engine

import "math/rand/v2"

const (
	copiesPerNumber   = 4
	copiesPerOperator = 4

	// DeckSize is the full deck: digits 0-9 four times each plus the seven
	// operators four times each.
	DeckSize = 10*copiesPerNumber + 7*copiesPerOperator
)

// Deck is an ordered pile of cards drawn from the top.
type Deck struct {
	cards []Card
}

// NewDeck builds the 68-card deck and shuffles it.
func NewDeck() *Deck {
	d := &Deck{cards: make([]Card, 0, DeckSize)}
	for v := 0; v <= 9; v++ {
		for i := 0; i < copiesPerNumber; i++ {
			d.cards = append(d.cards, NewNumberCard(v))
		}
	}
	for _, op := range Operators {
		for i := 0; i < copiesPerOperator; i++ {
			d.cards = append(d.cards, NewOperatorCard(op))
		}
	}
	d.shuffle()
	return d
}

// shuffle applies an unbiased Fisher-Yates permutation.
func (d *Deck) shuffle() {
	rand.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card, or ErrDeckEmpty if none remain.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckEmpty
	}
	top := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return top, nil
}

// DrawUpTo draws up to n cards, stopping early on exhaustion. Running out
// of cards is not an error; the caller gets whatever was actually drawn.
func (d *Deck) DrawUpTo(n int) []Card {
	drawn := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		card, err := d.Draw()
		if err != nil {
			break
		}
		drawn = append(drawn, card)
	}
	return drawn
}

// ReturnToBottom slides a card under the deck.
func (d *Deck) ReturnToBottom(card Card) {
	d.cards = append([]Card{card}, d.cards...)
}

// Remaining returns the number of undrawn cards.
func (d *Deck) Remaining() int { return len(d.cards) }

// IsEmpty reports whether the deck is exhausted.
func (d *Deck) IsEmpty() bool { return len(d.cards) == 0 }
