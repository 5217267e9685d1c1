package expression

// tokenStack is a LIFO of tokens.
type tokenStack []Token

func (s tokenStack) isEmpty() bool {
	return len(s) == 0
}

func (s tokenStack) peek() Token {
	return s[len(s)-1]
}

func (s *tokenStack) push(t Token) {
	*s = append(*s, t)
}

func (s *tokenStack) pop() Token {
	t := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return t
}

// ToPostfix validates an infix token sequence and rewrites it into postfix
// order. The sequence does not have to come from Tokenize, so the structural
// rules are checked again here before any output is produced. The input slice
// is never modified.
func ToPostfix(tokens []Token) ([]Token, error) {
	if err := validateInfix(tokens); err != nil {
		return nil, err
	}

	postfix := make([]Token, 0, len(tokens))
	var operators tokenStack

	for _, tok := range tokens {
		switch tok.Type {
		case TokenNumber:
			postfix = append(postfix, tok)

		case TokenOperator:
			prec := Precedence(tok.Literal)
			// >= keeps equal-precedence chains left-associative.
			for !operators.isEmpty() && Precedence(operators.peek().Literal) >= prec {
				postfix = append(postfix, operators.pop())
			}
			operators.push(tok)

		case TokenLParen:
			operators.push(tok)

		case TokenRParen:
			matched := false
			for !operators.isEmpty() {
				top := operators.pop()
				if top.Type == TokenLParen {
					matched = true
					break
				}
				postfix = append(postfix, top)
			}
			if !matched {
				return nil, NewExpressionError(KindInternal, tok.Pos, "unmatched closing parenthesis after validation", nil)
			}
		}
	}

	for !operators.isEmpty() {
		postfix = append(postfix, operators.pop())
	}

	return postfix, nil
}

// validateInfix applies the tokenizer's structural rules to a token sequence.
// Positions in the returned errors are token indexes.
func validateInfix(tokens []Token) error {
	if len(tokens) == 0 {
		return newKindError(KindEmpty, -1)
	}

	if first := tokens[0]; first.Type == TokenOperator || first.Type == TokenRParen {
		return newKindError(KindStarting, 0)
	}

	var last Token
	open, closed := 0, 0

	for i, tok := range tokens {
		switch tok.Type {
		case TokenOperator:
			if !tok.IsOperator() {
				return newKindError(KindInvalidChar, i)
			}
			if last.Type == TokenOperator || last.Type == TokenLParen {
				return newKindError(KindOperator, i)
			}

		case TokenLParen:
			if last.Type == TokenNumber || last.Type == TokenRParen {
				return newKindError(KindOpenParen, i)
			}
			open++

		case TokenRParen:
			if last.Type == TokenOperator || last.Type == TokenLParen {
				return newKindError(KindCloseParen, i)
			}
			closed++
			if closed > open {
				return newKindError(KindParentheses, i)
			}

		case TokenNumber:
			if last.Type == TokenRParen || last.Type == TokenNumber {
				return newKindError(KindNumberAdjacency, i)
			}
			if _, err := parseDecimal(tok.Literal); err != nil {
				return NewExpressionError(KindNumberFormat, i, KindNumberFormat.Message(), err)
			}

		default:
			return newKindError(KindInvalidChar, i)
		}

		last = tok
	}

	if open != closed {
		return newKindError(KindParentheses, len(tokens)-1)
	}

	if last.Type == TokenOperator || last.Type == TokenLParen {
		return newKindError(KindEnding, len(tokens)-1)
	}

	return nil
}
