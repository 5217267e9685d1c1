package expression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// round2 rounds the way callers display results.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func TestSolve_Expressions(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"(500*1.7/-5.3)+2-0.75/1.45", -158.89},
		{"(-96/7)+(0.99*70)/(1.07*2)", 18.67},
		{"68+(2+9-18)/1.2*5.3", 37.08},
		{"-99+3+1-2/(-4+0.5)", -94.43},
		{"(100/0.3*0.5+4)*0.75", 128},
		{"30/(50+0.5)*10/-5", -1.19},
		{"(10-20)*2-3*2", -26},
		{"(4*2+3-2)/(6/8)", 12},
		{"(1+8-5/2)*2+4", 17},
		{"18+2-0.75/(-2*0.5)", 20.75},
		{"42", 42},
		{"-0.5", -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Solve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, round2(got))
		})
	}
}

func TestEvaluate_TokenQueues(t *testing.T) {
	tests := []struct {
		elems    []string
		expected float64
	}{
		{[]string{"1", "+", "255", "/", "3", "+", "(", "1", "*", "2", ")"}, 88},
		{[]string{"(", "360", "-", "2.50", ")", "/", "(", "2", "*", "(", "3", "-", "2", ")", "+", "62", ")"}, 5.59},
		{[]string{"(", "2", "*", "3", "/", "1", ")", "+", "2"}, 8},
		{[]string{"1", "+", "(", "2.5", "-", "0.75", ")", "/", "70"}, 1.02},
		{[]string{"(", "-22", "+", "4", ")", "/", "9"}, -2},
		{[]string{"(", "(", "64", "-", "7", ")", "+", "(", "44", "/", "4", ")", ")", "/", "2"}, 34},
		{[]string{"3.6", "+", "-0.2", "-", "4", "*", "9"}, -32.6},
		{[]string{"34", "*", "4", "+", "(", "(", "9", "*", "10", ")", "/", "2", ")"}, 181},
		{[]string{"(", "-0.4", "+", "-1.5", "+", "4", ")", "*", "5"}, 10.5},
		{[]string{"(", "(", "74", "+", "52", ")", "/", "2", ")", "*", "(", "(", "9", "*", "8", ")", "/", "4", ")"}, 1134},
		{[]string{"0.2", "*", "0.2", "+", "1.01", "*", "6"}, 6.1},
		{[]string{"(", "44", "/", "2", ")", "*", "(", "53", "/", "2", ")"}, 583},
		{[]string{"100", "*", "4", "+", "-72", "+", "63"}, 391},
		{[]string{"(", "(", "86", "*", "1.63", ")", "/", "2", ")", "*", "54"}, 3784.86},
		{[]string{"(", "(", "(", "9", "+", "10", ")", ")", ")", "+", "2"}, 21},
	}

	for _, tt := range tests {
		t.Run(Join(FromStrings(tt.elems), ""), func(t *testing.T) {
			postfix, err := ToPostfix(FromStrings(tt.elems))
			require.NoError(t, err)

			got, err := Evaluate(postfix)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, round2(got))
		})
	}
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	got, err := Solve("1/0")
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, 1))

	got, err = Solve("-1/0")
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, -1))

	got, err = Solve("0/0")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))

	got, err = Solve("1/0-1/0")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestEvaluate_Empty(t *testing.T) {
	_, err := Evaluate(nil)
	assert.ErrorIs(t, err, ErrEvaluateEmpty)

	_, err = Evaluate([]Token{})
	assert.Equal(t, KindEvaluateEmpty, KindOf(err))
}

func TestEvaluate_MalformedPostfix(t *testing.T) {
	tests := []struct {
		name    string
		postfix []Token
	}{
		{name: "missing operand", postfix: FromStrings([]string{"1", "+"})},
		{name: "operator only", postfix: FromStrings([]string{"*"})},
		{name: "leftover operands", postfix: FromStrings([]string{"1", "2"})},
		{name: "parenthesis", postfix: FromStrings([]string{"1", "(", "2", "+"})},
		{name: "bad number", postfix: FromStrings([]string{"1.2.3"})},
		{name: "illegal", postfix: FromStrings([]string{"x"})},
		{name: "unknown operator", postfix: []Token{NewNumber("1"), NewNumber("2"), {Type: TokenOperator, Literal: "%"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.postfix)
			require.Error(t, err)
			assert.Zero(t, got)
			assert.ErrorIs(t, err, ErrInternal)
		})
	}
}

func TestEvaluate_BadNumberIsOnlyInternal(t *testing.T) {
	_, err := Evaluate(FromStrings([]string{"1.2.3", "1", "+"}))
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrNumberFormat)
	assert.Equal(t, 0, PositionOf(err))

	var exprErr *ExpressionError
	require.ErrorAs(t, err, &exprErr)
	require.Error(t, exprErr.Cause)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Empty(t, KindOf(exprErr.Cause))
}

func TestEvaluate_OperandOrder(t *testing.T) {
	postfix := []Token{NewNumber("10"), NewNumber("4"), NewOperator(OpSub)}
	got, err := Evaluate(postfix)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)

	postfix = []Token{NewNumber("1"), NewNumber("4"), NewOperator(OpDiv)}
	got, err = Evaluate(postfix)
	require.NoError(t, err)
	assert.Equal(t, 0.25, got)
}

func TestEvaluate_DoesNotModifyInput(t *testing.T) {
	postfix := FromStrings([]string{"2", "3", "*", "4", "+"})
	snapshot := append([]Token(nil), postfix...)

	got, err := Evaluate(postfix)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)
	assert.Equal(t, snapshot, postfix)
}

func TestSolve_PropagatesStageErrors(t *testing.T) {
	_, err := Solve("(1+2")
	assert.ErrorIs(t, err, ErrParentheses)

	_, err = Solve("5+")
	assert.ErrorIs(t, err, ErrEnding)

	_, err = Solve("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDefaultEngine_ImplementsEngine(t *testing.T) {
	var engine Engine = NewEngine()

	tokens, err := engine.Tokenize("2*(3+4)")
	require.NoError(t, err)

	postfix, err := engine.ToPostfix(tokens)
	require.NoError(t, err)
	assert.Equal(t, "234+*", Join(postfix, ""))

	got, err := engine.Evaluate(postfix)
	require.NoError(t, err)
	assert.Equal(t, 14.0, got)
}

func TestKinds_HaveMessages(t *testing.T) {
	for _, kind := range Kinds() {
		assert.NotEqual(t, "invalid expression", kind.Message(), "kind %s", kind)
	}
	assert.Equal(t, "invalid expression", ErrorKind("NOPE").Message())
	assert.Equal(t, ErrorKind(""), KindOf(assert.AnError))
	assert.Equal(t, -1, PositionOf(assert.AnError))
}
