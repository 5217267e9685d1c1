// Package expression tokenizes, converts and evaluates arithmetic expressions.
//
// The pipeline is strictly forward: a raw infix string is tokenized and
// validated, the token sequence is rewritten into postfix order with the
// shunting-yard algorithm, and the postfix sequence is reduced on an operand
// stack to a float64. Every stage is a pure function; no state survives a call.
package expression

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TokenType represents the type of a token.
type TokenType int

const (
	// TokenIllegal is the zero value; it never comes out of Tokenize.
	TokenIllegal TokenType = iota

	TokenNumber   // decimal literal, possibly with a leading minus
	TokenOperator // + - * /
	TokenLParen   // (
	TokenRParen   // )
)

// String returns the string representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenIllegal:
		return "ILLEGAL"
	case TokenNumber:
		return "NUMBER"
	case TokenOperator:
		return "OPERATOR"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	default:
		return "UNKNOWN"
	}
}

// Operator characters.
const (
	OpAdd byte = '+'
	OpSub byte = '-'
	OpMul byte = '*'
	OpDiv byte = '/'
)

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset in the trimmed input, -1 when built directly
}

// NewNumber returns a Number token holding lit verbatim.
func NewNumber(lit string) Token {
	return Token{Type: TokenNumber, Literal: lit, Pos: -1}
}

// NewOperator returns an Operator token for op.
func NewOperator(op byte) Token {
	return Token{Type: TokenOperator, Literal: string(op), Pos: -1}
}

// NewLParen returns an opening parenthesis token.
func NewLParen() Token {
	return Token{Type: TokenLParen, Literal: "(", Pos: -1}
}

// NewRParen returns a closing parenthesis token.
func NewRParen() Token {
	return Token{Type: TokenRParen, Literal: ")", Pos: -1}
}

// ParseToken classifies a single string element. Anything that is not an
// operator, a parenthesis or a run of digits, dots and minus signs becomes
// TokenIllegal.
// Number literals are kept as-is; their format is checked by ToPostfix.
func ParseToken(s string) Token {
	switch s {
	case "+", "-", "*", "/":
		return NewOperator(s[0])
	case "(":
		return NewLParen()
	case ")":
		return NewRParen()
	}
	if s != "" && strings.IndexFunc(s, notNumberRune) < 0 {
		return NewNumber(s)
	}
	return Token{Type: TokenIllegal, Literal: s, Pos: -1}
}

// FromStrings converts a queue of string elements into tokens.
func FromStrings(elems []string) []Token {
	tokens := make([]Token, len(elems))
	for i, e := range elems {
		tokens[i] = ParseToken(e)
	}
	return tokens
}

// Strings returns the literal of every token, in order.
func Strings(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Literal
	}
	return out
}

// Join concatenates token literals with sep.
func Join(tokens []Token, sep string) string {
	return strings.Join(Strings(tokens), sep)
}

// IsOperator reports whether the token is one of the four binary operators.
func (t Token) IsOperator() bool {
	return t.Type == TokenOperator && Precedence(t.Literal) > 0
}

// Value parses a Number token into a float64.
func (t Token) Value() (float64, error) {
	if t.Type != TokenNumber {
		return 0, NewExpressionError(KindInternal, t.Pos, "not a number token: "+t.Type.String(), nil)
	}
	v, err := parseDecimal(t.Literal)
	if err != nil {
		return 0, NewExpressionError(KindNumberFormat, t.Pos, KindNumberFormat.Message(), err)
	}
	return v, nil
}

// Precedence returns the binding strength of an operator literal, or 0 when
// op is not an operator.
func Precedence(op string) int {
	switch op {
	case "+", "-":
		return 1
	case "*", "/":
		return 2
	default:
		return 0
	}
}

// notNumberRune reports runes that can never appear in a number literal.
func notNumberRune(r rune) bool {
	return (r < '0' || r > '9') && r != '.' && r != '-'
}

// isDecimalLiteral accepts an optional leading minus followed by digits with
// at most one decimal point and at least one digit. Exponents, signs other
// than a single leading minus, and names like Inf or NaN are rejected.
func isDecimalLiteral(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case isDigit(s[i]):
			digits++
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// parseDecimal parses a plain decimal literal that must stay finite.
func parseDecimal(lit string) (float64, error) {
	if !isDecimalLiteral(lit) {
		return 0, fmt.Errorf("not a plain decimal: %q", lit)
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("not finite: %q", lit)
	}
	return v, nil
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
