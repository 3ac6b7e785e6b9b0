package engine

import (
	"math"
	"strings"
)

// Operator precedence, highest first. Same-tier operators reduce left to
// right. √ is a unary prefix, ! a unary postfix; everything else is binary.
var precedence = map[Operator]int{
	OpPow:       6,
	OpSqrt:      5,
	OpFactorial: 4,
	OpMul:       3,
	OpDiv:       2,
	OpAdd:       1,
	OpSub:       1,
}

// Score bonus per operator card, on top of the 10-points-per-card base.
var operatorBonus = map[Operator]int{
	OpAdd:       5,
	OpSub:       5,
	OpMul:       10,
	OpDiv:       10,
	OpSqrt:      20,
	OpFactorial: 25,
	OpPow:       30,
}

const baseScorePerCard = 10

// integerEpsilon bounds the float error tolerated when deciding whether a
// value is an integer (√ intermediates are irrational in general).
const integerEpsilon = 1e-9

type token struct {
	value float64
	op    Operator
	isNum bool
}

// BuildExpression renders the submitted card order as display text.
func BuildExpression(cards []Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(c.Display())
	}
	return b.String()
}

// Score computes the points awarded for a winning play: ten per card plus
// the per-operator bonus. Number cards carry no bonus.
func Score(cards []Card) int {
	score := baseScorePerCard * len(cards)
	for _, c := range cards {
		if c.IsOperator() {
			score += operatorBonus[c.Op]
		}
	}
	return score
}

// Evaluate reduces an ordered card sequence to a single integer under the
// game's fixed precedence grammar: it repeatedly finds the
// highest-precedence operator remaining, reduces it with its adjacent
// operand(s), and splices the result back until one value is left.
// Consecutive number cards concatenate into one multi-digit operand.
func Evaluate(cards []Card) (int, error) {
	tokens, err := tokenize(cards)
	if err != nil {
		return 0, err
	}

	for len(tokens) > 1 {
		idx := nextReduction(tokens)
		if idx < 0 {
			return 0, expressionErrorf("malformed expression: operands with no operator between them")
		}
		tokens, err = reduce(tokens, idx)
		if err != nil {
			return 0, err
		}
	}

	if len(tokens) != 1 || !tokens[0].isNum {
		return 0, expressionErrorf("malformed expression")
	}
	result := tokens[0].value
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, expressionErrorf("result is not finite")
	}
	if !isIntegral(result) {
		return 0, expressionErrorf("result %v is not an integer", result)
	}
	return int(math.Round(result)), nil
}

// tokenize folds the card sequence into value/operator tokens, merging runs
// of number cards into a single operand.
func tokenize(cards []Card) ([]token, error) {
	if len(cards) == 0 {
		return nil, expressionErrorf("empty expression")
	}
	tokens := make([]token, 0, len(cards))
	inNumber := false
	for _, c := range cards {
		if c.IsNumber() {
			if inNumber {
				tokens[len(tokens)-1].value = tokens[len(tokens)-1].value*10 + float64(c.Value)
			} else {
				tokens = append(tokens, token{value: float64(c.Value), isNum: true})
				inNumber = true
			}
			continue
		}
		tokens = append(tokens, token{op: c.Op})
		inNumber = false
	}
	return tokens, nil
}

// nextReduction returns the index of the leftmost operator in the highest
// precedence tier still present, or -1 if no operator remains.
func nextReduction(tokens []token) int {
	best, bestPrec := -1, 0
	for i, t := range tokens {
		if t.isNum {
			continue
		}
		if p := precedence[t.op]; p > bestPrec {
			best, bestPrec = i, p
		}
	}
	return best
}

// reduce collapses the operator at idx with its operand(s) into a single
// value token.
func reduce(tokens []token, idx int) ([]token, error) {
	op := tokens[idx].op
	switch op {
	case OpSqrt:
		if idx+1 >= len(tokens) || !tokens[idx+1].isNum {
			return nil, expressionErrorf("√ is missing its operand")
		}
		operand := tokens[idx+1].value
		if operand < 0 || !isIntegral(operand) {
			return nil, expressionErrorf("√ requires a non-negative integer operand")
		}
		return splice(tokens, idx, idx+1, math.Sqrt(operand)), nil

	case OpFactorial:
		if idx == 0 || !tokens[idx-1].isNum {
			return nil, expressionErrorf("! is missing its operand")
		}
		operand := tokens[idx-1].value
		if operand < 0 || !isIntegral(operand) {
			return nil, expressionErrorf("! requires a non-negative integer operand")
		}
		return splice(tokens, idx-1, idx, factorial(operand)), nil

	default:
		if idx == 0 || idx+1 >= len(tokens) || !tokens[idx-1].isNum || !tokens[idx+1].isNum {
			return nil, expressionErrorf("operator %s is missing an operand", op)
		}
		left, right := tokens[idx-1].value, tokens[idx+1].value
		var result float64
		switch op {
		case OpPow:
			result = math.Pow(left, right)
		case OpMul:
			result = left * right
		case OpDiv:
			if right == 0 {
				return nil, expressionErrorf("division by zero")
			}
			result = left / right
		case OpAdd:
			result = left + right
		case OpSub:
			result = left - right
		}
		return splice(tokens, idx-1, idx+1, result), nil
	}
}

// splice replaces tokens[from..to] (inclusive) with a single value token.
func splice(tokens []token, from, to int, value float64) []token {
	out := make([]token, 0, len(tokens)-(to-from))
	out = append(out, tokens[:from]...)
	out = append(out, token{value: value, isNum: true})
	out = append(out, tokens[to+1:]...)
	return out
}

// factorial overflows float64 past 170!, which the finiteness check on the
// final result rejects.
func factorial(n float64) float64 {
	if n > 170 {
		return math.Inf(1)
	}
	result := 1.0
	for i := 2.0; i <= n; i++ {
		result *= i
	}
	return result
}

func isIntegral(v float64) bool {
	return math.Abs(v-math.Round(v)) < integerEpsilon
}
