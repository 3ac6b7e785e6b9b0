// Package engine implements the math-mahjong game core: the card and deck
// model, the fixed-precedence expression evaluator, per-player hands and
// scores, the per-room turn state machine, and the per-player view
// projection used for broadcast.
//
// A Game is not safe for concurrent use. The session registry serializes
// every mutation and every view snapshot behind a per-room lock.
package engine
