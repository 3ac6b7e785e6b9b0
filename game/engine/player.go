package engine

import "github.com/google/uuid"

// Player holds one participant's hand and score. Hand order is display
// order only; it becomes meaningful as the expression order when the client
// submits a play.
type Player struct {
	ID    string
	Name  string
	Hand  []Card
	Score int
}

// NewPlayer creates a player with an empty hand. An empty id gets a fresh
// uuid.
func NewPlayer(id, name string) *Player {
	if id == "" {
		id = uuid.NewString()
	}
	return &Player{ID: id, Name: name, Hand: []Card{}}
}

// AddCards appends cards to the hand.
func (p *Player) AddCards(cards ...Card) {
	p.Hand = append(p.Hand, cards...)
}

// HasCard reports whether the hand contains the card id.
func (p *Player) HasCard(id string) bool {
	for _, c := range p.Hand {
		if c.ID == id {
			return true
		}
	}
	return false
}

// CardsByID resolves ids to cards in the requested order without removing
// them. Duplicate ids must be backed by distinct copies in the hand.
func (p *Player) CardsByID(ids []string) ([]Card, error) {
	indexes, err := p.claimIndexes(ids)
	if err != nil {
		return nil, err
	}
	cards := make([]Card, len(indexes))
	for i, idx := range indexes {
		cards[i] = p.Hand[idx]
	}
	return cards, nil
}

// RemoveCards removes every card named in ids. The call is all-or-nothing:
// if any id is missing, the hand is left untouched and a ValidationError is
// returned.
func (p *Player) RemoveCards(ids []string) ([]Card, error) {
	indexes, err := p.claimIndexes(ids)
	if err != nil {
		return nil, err
	}
	removed := make([]Card, len(indexes))
	taken := make(map[int]bool, len(indexes))
	for i, idx := range indexes {
		removed[i] = p.Hand[idx]
		taken[idx] = true
	}
	kept := make([]Card, 0, len(p.Hand)-len(removed))
	for i, c := range p.Hand {
		if !taken[i] {
			kept = append(kept, c)
		}
	}
	p.Hand = kept
	return removed, nil
}

// AddScore adds points to the score. Scores only ever grow within a game;
// negative deltas are ignored.
func (p *Player) AddScore(points int) {
	if points > 0 {
		p.Score += points
	}
}

// claimIndexes maps each requested id to a distinct hand index, in request
// order, failing without side effects if any id cannot be matched.
func (p *Player) claimIndexes(ids []string) ([]int, error) {
	indexes := make([]int, 0, len(ids))
	claimed := make(map[int]bool, len(ids))
	for _, id := range ids {
		found := -1
		for i, c := range p.Hand {
			if c.ID == id && !claimed[i] {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, validationErrorf("card %s is not in hand", id)
		}
		claimed[found] = true
		indexes = append(indexes, found)
	}
	return indexes, nil
}
