package engine

import (
	"errors"
	"fmt"
)

// ErrDeckEmpty signals a draw against an exhausted deck. At the Game level
// it is not a caller fault: DrawCard turns it into the end-of-game
// transition.
var ErrDeckEmpty = errors.New("deck is empty")

// ValidationError reports a rejected command: wrong actor or turn, unknown
// card, insufficient roster, or a mutation against a finished game. The
// session state is never changed by a rejected command.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ExpressionError reports a failed expression trial: a malformed card
// sequence, division by zero, a bad √ or ! operand, or a non-finite or
// non-integer result. The actor's hand is never changed by a failed trial.
type ExpressionError struct {
	Reason string
}

func (e *ExpressionError) Error() string { return e.Reason }

func expressionErrorf(format string, args ...any) *ExpressionError {
	return &ExpressionError{Reason: fmt.Sprintf(format, args...)}
}

// IsExpressionError reports whether err is (or wraps) an ExpressionError.
func IsExpressionError(err error) bool {
	var ee *ExpressionError
	return errors.As(err, &ee)
}
