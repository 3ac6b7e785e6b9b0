package engine

// Rules are the tunable gameplay parameters for a room.
type Rules struct {
	HandSize            int  `json:"hand_size"`
	MinPlayers          int  `json:"min_players"`
	MaxPlayers          int  `json:"max_players"`
	TargetDigits        int  `json:"target_digits"`
	TargetDrawBudget    int  `json:"target_draw_budget"`
	DiscardTail         int  `json:"discard_tail"`
	RevealOpponentHands bool `json:"reveal_opponent_hands"`
}

// DefaultRules returns the standard game parameters: 7-card hands, 2-4
// players, a 3-digit target derived within a 10-draw budget, and hidden
// opponent hands.
func DefaultRules() Rules {
	return Rules{
		HandSize:         7,
		MinPlayers:       2,
		MaxPlayers:       4,
		TargetDigits:     3,
		TargetDrawBudget: 10,
		DiscardTail:      5,
	}
}

// withDefaults fills zero-valued fields from DefaultRules so a partially
// specified rule set stays playable.
func (r Rules) withDefaults() Rules {
	def := DefaultRules()
	if r.HandSize <= 0 {
		r.HandSize = def.HandSize
	}
	if r.MinPlayers < 2 {
		r.MinPlayers = def.MinPlayers
	}
	if r.MaxPlayers < r.MinPlayers {
		r.MaxPlayers = def.MaxPlayers
	}
	if r.TargetDigits <= 0 {
		r.TargetDigits = def.TargetDigits
	}
	if r.TargetDrawBudget < r.TargetDigits {
		r.TargetDrawBudget = def.TargetDrawBudget
	}
	if r.DiscardTail <= 0 {
		r.DiscardTail = def.DiscardTail
	}
	return r
}
