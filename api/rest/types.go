// Package rest provides the REST API server for the expression engine.
package rest

import (
	"yqhp/calc-engine/internal/metrics"
	"yqhp/calc-engine/pkg/expression"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ExpressionErrorResponse is returned when an expression is rejected.
// Error carries the error kind, e.g. "ENDING".
type ExpressionErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Position int    `json:"position"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ExpressionRequest carries an infix expression.
type ExpressionRequest struct {
	Expression string `json:"expression"`
}

// PostfixRequest carries either an infix expression or a pre-split infix
// token sequence. Tokens wins when both are set.
type PostfixRequest struct {
	Expression string   `json:"expression,omitempty"`
	Tokens     []string `json:"tokens,omitempty"`
}

// EvaluateRequest represents an evaluation request.
type EvaluateRequest struct {
	Expression string `json:"expression"`
	Precision  *int   `json:"precision,omitempty"`
}

// EvaluatePostfixRequest evaluates an already converted token sequence.
type EvaluatePostfixRequest struct {
	Tokens    []string `json:"tokens"`
	Precision *int     `json:"precision,omitempty"`
}

// TokenResponse describes a single token.
type TokenResponse struct {
	Type     string `json:"type"`
	Literal  string `json:"literal"`
	Position int    `json:"position"`
}

// TokenizeResponse represents a tokenize response.
type TokenizeResponse struct {
	Expression string          `json:"expression"`
	Tokens     []TokenResponse `json:"tokens"`
}

// PostfixResponse represents a postfix conversion response.
type PostfixResponse struct {
	Postfix []string `json:"postfix"`
	Joined  string   `json:"joined"`
}

// EvaluateResponse represents an evaluation response. Result and Rounded are
// numbers, or one of "+Inf", "-Inf", "NaN".
type EvaluateResponse struct {
	ID         string   `json:"id"`
	Expression string   `json:"expression,omitempty"`
	Postfix    []string `json:"postfix"`
	Result     any      `json:"result"`
	Rounded    any      `json:"rounded"`
	Precision  int      `json:"precision"`
}

// StatsResponse represents the stats endpoint response.
type StatsResponse = metrics.Snapshot

// ToTokenResponses converts engine tokens into their API form.
func ToTokenResponses(tokens []expression.Token) []TokenResponse {
	out := make([]TokenResponse, len(tokens))
	for i, tok := range tokens {
		out[i] = TokenResponse{
			Type:     tok.Type.String(),
			Literal:  tok.Literal,
			Position: tok.Pos,
		}
	}
	return out
}
