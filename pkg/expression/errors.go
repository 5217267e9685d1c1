package expression

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an expression was rejected.
type ErrorKind string

const (
	KindEmpty           ErrorKind = "EMPTY"
	KindStarting        ErrorKind = "STARTING"
	KindEnding          ErrorKind = "ENDING"
	KindOperator        ErrorKind = "OPERATOR"
	KindOpenParen       ErrorKind = "OPEN_PAREN"
	KindCloseParen      ErrorKind = "CLOSE_PAREN"
	KindNumberAdjacency ErrorKind = "NUMBER_ADJACENCY"
	KindNumberFormat    ErrorKind = "NUMBER_FORMAT"
	KindInvalidChar     ErrorKind = "INVALID_CHARACTER"
	KindParentheses     ErrorKind = "PARENTHESES"
	KindEvaluateEmpty   ErrorKind = "EVALUATE_EMPTY"

	// KindInternal marks a broken invariant: a postfix sequence that did not
	// come from a successful conversion, or a converter stack underflow.
	KindInternal ErrorKind = "INTERNAL"
)

var kindMessages = map[ErrorKind]string{
	KindEmpty:           "invalid expression, passed a null or an empty string",
	KindStarting:        "invalid expression, can't start expression with an operator or a closing parenthesis",
	KindEnding:          "invalid expression, can't end expression with an operator or an opening parenthesis",
	KindOperator:        "invalid expression, an operator can't follow another operator or an opening parenthesis",
	KindOpenParen:       "invalid expression, an opening parenthesis can't follow a number or a closing parenthesis",
	KindCloseParen:      "invalid expression, a closing parenthesis can't follow an operator or an opening parenthesis",
	KindNumberAdjacency: "invalid expression, a number can't follow a closing parenthesis",
	KindNumberFormat:    "invalid expression, invalid format for a number",
	KindInvalidChar:     "invalid expression, can only be composed of numbers, operators and parentheses",
	KindParentheses:     "invalid expression, misuse of parentheses",
	KindEvaluateEmpty:   "nothing to evaluate, the postfix expression is empty",
	KindInternal:        "malformed postfix expression",
}

// Message returns the fixed human-readable message of the kind.
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "invalid expression"
}

// Kinds returns every error kind in declaration order.
func Kinds() []ErrorKind {
	return []ErrorKind{
		KindEmpty, KindStarting, KindEnding, KindOperator, KindOpenParen, KindCloseParen,
		KindNumberAdjacency, KindNumberFormat, KindInvalidChar, KindParentheses,
		KindEvaluateEmpty, KindInternal,
	}
}

// ExpressionError represents an error during tokenizing, conversion or evaluation.
type ExpressionError struct {
	Kind     ErrorKind
	Position int    // Position in the expression where the error occurred, -1 if unknown
	Message  string // Error message
	Cause    error  // Underlying error
}

// Error implements the error interface.
func (e *ExpressionError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("expression error at position %d: %s", e.Position, e.Message)
	}
	return fmt.Sprintf("expression error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ExpressionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *ExpressionError of the same kind.
func (e *ExpressionError) Is(target error) bool {
	t, ok := target.(*ExpressionError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewExpressionError creates a new ExpressionError.
func NewExpressionError(kind ErrorKind, pos int, message string, cause error) *ExpressionError {
	return &ExpressionError{
		Kind:     kind,
		Position: pos,
		Message:  message,
		Cause:    cause,
	}
}

// newKindError creates an ExpressionError carrying the kind's fixed message.
func newKindError(kind ErrorKind, pos int) *ExpressionError {
	return NewExpressionError(kind, pos, kind.Message(), nil)
}

// Sentinels for errors.Is.
var (
	ErrEmpty           = newKindError(KindEmpty, -1)
	ErrStarting        = newKindError(KindStarting, -1)
	ErrEnding          = newKindError(KindEnding, -1)
	ErrOperator        = newKindError(KindOperator, -1)
	ErrOpenParen       = newKindError(KindOpenParen, -1)
	ErrCloseParen      = newKindError(KindCloseParen, -1)
	ErrNumberAdjacency = newKindError(KindNumberAdjacency, -1)
	ErrNumberFormat    = newKindError(KindNumberFormat, -1)
	ErrInvalidChar     = newKindError(KindInvalidChar, -1)
	ErrParentheses     = newKindError(KindParentheses, -1)
	ErrEvaluateEmpty   = newKindError(KindEvaluateEmpty, -1)
	ErrInternal        = newKindError(KindInternal, -1)
)

// KindOf returns the kind of the first ExpressionError in err's chain, or ""
// when there is none.
func KindOf(err error) ErrorKind {
	var exprErr *ExpressionError
	if errors.As(err, &exprErr) {
		return exprErr.Kind
	}
	return ""
}

// PositionOf returns the position carried by err, or -1.
func PositionOf(err error) int {
	var exprErr *ExpressionError
	if errors.As(err, &exprErr) {
		return exprErr.Position
	}
	return -1
}
