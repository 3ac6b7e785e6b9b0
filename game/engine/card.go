package engine

import (
	"strconv"

	"github.com/google/uuid"
)

// CardKind discriminates number cards from operator cards.
type CardKind string

const (
	NumberCard   CardKind = "number"
	OperatorCard CardKind = "operator"
)

// Operator is one of the seven operator symbols in the deck.
type Operator string

const (
	OpAdd       Operator = "+"
	OpSub       Operator = "-"
	OpMul       Operator = "*"
	OpDiv       Operator = "/"
	OpSqrt      Operator = "√"
	OpFactorial Operator = "!"
	OpPow       Operator = "^"
)

// Operators lists the full operator alphabet.
var Operators = []Operator{OpAdd, OpSub, OpMul, OpDiv, OpSqrt, OpFactorial, OpPow}

// Card is an immutable number (0-9) or operator card.
type Card struct {
	ID    string
	Kind  CardKind
	Value int      // digit, number cards only
	Op    Operator // operator cards only
}

// NewNumberCard creates a number card carrying a single digit.
func NewNumberCard(value int) Card {
	return Card{ID: uuid.NewString(), Kind: NumberCard, Value: value}
}

// NewOperatorCard creates an operator card.
func NewOperatorCard(op Operator) Card {
	return Card{ID: uuid.NewString(), Kind: OperatorCard, Op: op}
}

// IsNumber reports whether the card carries a digit.
func (c Card) IsNumber() bool { return c.Kind == NumberCard }

// IsOperator reports whether the card carries an operator symbol.
func (c Card) IsOperator() bool { return c.Kind == OperatorCard }

// Display returns the card's face text: the digit or the operator symbol.
func (c Card) Display() string {
	if c.IsNumber() {
		return strconv.Itoa(c.Value)
	}
	return string(c.Op)
}
