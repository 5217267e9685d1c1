package expression

import "fmt"

// Engine runs the expression pipeline.
type Engine interface {
	// Tokenize scans an infix string into a validated token sequence.
	Tokenize(expression string) ([]Token, error)

	// ToPostfix converts an infix token sequence into postfix order.
	ToPostfix(tokens []Token) ([]Token, error)

	// Evaluate reduces a postfix token sequence to a number.
	Evaluate(postfix []Token) (float64, error)

	// Solve tokenizes, converts and evaluates an infix string.
	Solve(expression string) (float64, error)
}

// DefaultEngine is the default implementation of Engine. It holds no state.
type DefaultEngine struct{}

// NewEngine creates a new DefaultEngine.
func NewEngine() *DefaultEngine {
	return &DefaultEngine{}
}

// Tokenize implements Engine.
func (e *DefaultEngine) Tokenize(expression string) ([]Token, error) {
	return Tokenize(expression)
}

// ToPostfix implements Engine.
func (e *DefaultEngine) ToPostfix(tokens []Token) ([]Token, error) {
	return ToPostfix(tokens)
}

// Evaluate implements Engine.
func (e *DefaultEngine) Evaluate(postfix []Token) (float64, error) {
	return Evaluate(postfix)
}

// Solve implements Engine.
func (e *DefaultEngine) Solve(expression string) (float64, error) {
	return Solve(expression)
}

// Evaluate reduces a postfix token sequence on an operand stack. Division by
// zero is not an error: it yields ±Inf or NaN like any float64 division.
// The result is not rounded.
func Evaluate(postfix []Token) (float64, error) {
	if len(postfix) == 0 {
		return 0, newKindError(KindEvaluateEmpty, -1)
	}

	operands := make([]float64, 0, len(postfix)/2+1)

	for i, tok := range postfix {
		switch tok.Type {
		case TokenNumber:
			v, err := parseDecimal(tok.Literal)
			if err != nil {
				return 0, NewExpressionError(KindInternal, i, "invalid number in postfix: "+tok.Literal, err)
			}
			operands = append(operands, v)

		case TokenOperator:
			if len(operands) < 2 {
				return 0, NewExpressionError(KindInternal, i,
					fmt.Sprintf("operator %q needs two operands, have %d", tok.Literal, len(operands)), nil)
			}
			right := operands[len(operands)-1]
			left := operands[len(operands)-2]
			operands = operands[:len(operands)-2]

			result, err := apply(tok.Literal, left, right)
			if err != nil {
				return 0, NewExpressionError(KindInternal, i, err.Error(), nil)
			}
			operands = append(operands, result)

		default:
			return 0, NewExpressionError(KindInternal, i, "unexpected token in postfix: "+tok.Literal, nil)
		}
	}

	if len(operands) != 1 {
		return 0, NewExpressionError(KindInternal, -1,
			fmt.Sprintf("postfix left %d values on the stack", len(operands)), nil)
	}
	return operands[0], nil
}

// apply applies a binary operator; left was pushed before right.
func apply(op string, left, right float64) (float64, error) {
	switch op {
	case "+":
		return left + right, nil
	case "-":
		return left - right, nil
	case "*":
		return left * right, nil
	case "/":
		return left / right, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", op)
	}
}

// Solve tokenizes, converts and evaluates an infix expression.
func Solve(expression string) (float64, error) {
	tokens, err := Tokenize(expression)
	if err != nil {
		return 0, err
	}
	postfix, err := ToPostfix(tokens)
	if err != nil {
		return 0, err
	}
	return Evaluate(postfix)
}
