package expression

import "strings"

// lexer holds the scan state of a single Tokenize call.
type lexer struct {
	input  string
	tokens []Token

	num    strings.Builder // pending number literal
	numPos int             // position of the first byte in num

	last  Token // last emitted token, zero value before the first emission
	open  int
	close int
}

// Tokenize scans an infix expression into a validated token sequence.
// Surrounding whitespace is trimmed; whitespace inside the expression is an
// invalid character. On failure no tokens are returned.
func Tokenize(expression string) ([]Token, error) {
	input := strings.TrimSpace(expression)
	if input == "" {
		return nil, newKindError(KindEmpty, -1)
	}

	l := &lexer{input: input}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) run() error {
	first := l.input[0]
	if (isOperatorChar(first) || first == ')') && first != OpSub {
		return newKindError(KindStarting, 0)
	}
	end := len(l.input) - 1
	if last := l.input[end]; isOperatorChar(last) || last == '(' {
		return newKindError(KindEnding, end)
	}

	for pos := 0; pos < len(l.input); pos++ {
		ch := l.input[pos]

		var err error
		switch {
		case isOperatorChar(ch):
			err = l.operator(ch, pos)
		case ch == '(':
			err = l.openParen(pos)
		case ch == ')':
			err = l.closeParen(pos)
		case ch == '.' || isDigit(ch):
			l.appendNumber(ch, pos)
		default:
			err = newKindError(KindInvalidChar, pos)
		}
		if err != nil {
			return err
		}
	}

	if err := l.flush(); err != nil {
		return err
	}

	if l.open != l.close {
		return newKindError(KindParentheses, end)
	}
	return nil
}

// operator handles + - * /. A minus with nothing, an operator or an opening
// parenthesis before it starts a negative literal instead of subtracting.
func (l *lexer) operator(ch byte, pos int) error {
	if err := l.flush(); err != nil {
		return err
	}

	afterOperand := l.last.Type == TokenNumber || l.last.Type == TokenRParen
	if ch == OpSub && !afterOperand {
		l.appendNumber(ch, pos)
		return nil
	}
	if l.last.Type == TokenOperator || l.last.Type == TokenLParen {
		return newKindError(KindOperator, pos)
	}

	l.emit(Token{Type: TokenOperator, Literal: string(ch), Pos: pos})
	return nil
}

func (l *lexer) openParen(pos int) error {
	if err := l.flush(); err != nil {
		return err
	}
	if l.last.Type == TokenNumber || l.last.Type == TokenRParen {
		return newKindError(KindOpenParen, pos)
	}

	l.emit(Token{Type: TokenLParen, Literal: "(", Pos: pos})
	l.open++
	return nil
}

func (l *lexer) closeParen(pos int) error {
	if err := l.flush(); err != nil {
		return err
	}
	if l.last.Type == TokenOperator || l.last.Type == TokenLParen {
		return newKindError(KindCloseParen, pos)
	}

	l.emit(Token{Type: TokenRParen, Literal: ")", Pos: pos})
	l.close++
	if l.close > l.open {
		return newKindError(KindParentheses, pos)
	}
	return nil
}

func (l *lexer) appendNumber(ch byte, pos int) {
	if l.num.Len() == 0 {
		l.numPos = pos
	}
	l.num.WriteByte(ch)
}

// flush emits the pending number literal, if any.
func (l *lexer) flush() error {
	if l.num.Len() == 0 {
		return nil
	}

	if l.last.Type == TokenRParen {
		return newKindError(KindNumberAdjacency, l.numPos)
	}

	lit := l.num.String()
	if _, err := parseDecimal(lit); err != nil {
		return NewExpressionError(KindNumberFormat, l.numPos, KindNumberFormat.Message(), err)
	}

	l.emit(Token{Type: TokenNumber, Literal: lit, Pos: l.numPos})
	l.num.Reset()
	return nil
}

func (l *lexer) emit(tok Token) {
	l.tokens = append(l.tokens, tok)
	l.last = tok
}

func isOperatorChar(ch byte) bool {
	return ch == OpAdd || ch == OpSub || ch == OpMul || ch == OpDiv
}
