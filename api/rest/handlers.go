package rest

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"yqhp/calc-engine/internal/format"
	"yqhp/calc-engine/pkg/expression"
	"yqhp/calc-engine/pkg/logger"
)

// maxPrecision matches the config validator's upper bound.
const maxPrecision = 15

// healthCheck handles GET /health
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// tokenize handles POST /api/v1/tokenize
func (s *Server) tokenize(c *fiber.Ctx) error {
	var req ExpressionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if n := len(req.Expression); s.tooLong(n) {
		return s.tooLarge(c, n)
	}

	var tokens []expression.Token
	err := s.recorder.Time(func() (err error) {
		tokens, err = s.engine.Tokenize(req.Expression)
		return err
	})
	if err != nil {
		return s.expressionError(c, err)
	}

	return c.JSON(TokenizeResponse{
		Expression: req.Expression,
		Tokens:     ToTokenResponses(tokens),
	})
}

// postfix handles POST /api/v1/postfix
func (s *Server) postfix(c *fiber.Ctx) error {
	var req PostfixRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if n := requestSize(req.Expression, req.Tokens); s.tooLong(n) {
		return s.tooLarge(c, n)
	}

	var postfix []expression.Token
	err := s.recorder.Time(func() error {
		tokens, err := s.infix(req.Expression, req.Tokens)
		if err != nil {
			return err
		}
		postfix, err = s.engine.ToPostfix(tokens)
		return err
	})
	if err != nil {
		return s.expressionError(c, err)
	}

	return c.JSON(PostfixResponse{
		Postfix: expression.Strings(postfix),
		Joined:  expression.Join(postfix, " "),
	})
}

// evaluate handles POST /api/v1/evaluate
func (s *Server) evaluate(c *fiber.Ctx) error {
	var req EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if n := len(req.Expression); s.tooLong(n) {
		return s.tooLarge(c, n)
	}
	precision, err := s.precision(req.Precision)
	if err != nil {
		return badRequest(c, err)
	}

	postfix, result, err := s.solve(req.Expression)
	if err != nil {
		return s.expressionError(c, err)
	}

	return c.JSON(newEvaluateResponse(req.Expression, postfix, result, precision))
}

// evaluatePostfix handles POST /api/v1/evaluate/postfix
func (s *Server) evaluatePostfix(c *fiber.Ctx) error {
	var req EvaluatePostfixRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if n := requestSize("", req.Tokens); s.tooLong(n) {
		return s.tooLarge(c, n)
	}
	precision, err := s.precision(req.Precision)
	if err != nil {
		return badRequest(c, err)
	}

	postfix := expression.FromStrings(req.Tokens)
	var result float64
	err = s.recorder.Time(func() (err error) {
		result, err = s.engine.Evaluate(postfix)
		return err
	})
	if err != nil {
		return s.expressionError(c, err)
	}

	return c.JSON(newEvaluateResponse("", postfix, result, precision))
}

// stats handles GET /api/v1/stats
func (s *Server) stats(c *fiber.Ctx) error {
	return c.JSON(s.recorder.Snapshot())
}

// solve runs the whole pipeline on expr and records it.
func (s *Server) solve(expr string) (postfix []expression.Token, result float64, err error) {
	err = s.recorder.Time(func() error {
		tokens, err := s.engine.Tokenize(expr)
		if err != nil {
			return err
		}
		if postfix, err = s.engine.ToPostfix(tokens); err != nil {
			return err
		}
		result, err = s.engine.Evaluate(postfix)
		return err
	})
	return postfix, result, err
}

// infix returns the infix token sequence from either a raw expression or
// pre-split tokens.
func (s *Server) infix(expr string, elems []string) ([]expression.Token, error) {
	if len(elems) > 0 {
		return expression.FromStrings(elems), nil
	}
	return s.engine.Tokenize(expr)
}

func (s *Server) precision(requested *int) (int, error) {
	if requested == nil {
		return s.config.Precision, nil
	}
	if *requested < 0 || *requested > maxPrecision {
		return 0, fmt.Errorf("precision must be between 0 and %d", maxPrecision)
	}
	return *requested, nil
}

func (s *Server) tooLong(n int) bool {
	return s.config.MaxExpressionLength > 0 && n > s.config.MaxExpressionLength
}

func (s *Server) tooLarge(c *fiber.Ctx, n int) error {
	return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
		Error:   "expression_too_long",
		Message: fmt.Sprintf("expression is %d bytes, limit is %d", n, s.config.MaxExpressionLength),
	})
}

// expressionError maps an engine error onto an HTTP response. Rejected input
// is a 400; a malformed postfix sequence is a 422.
func (s *Server) expressionError(c *fiber.Ctx, err error) error {
	resp, status, ok := toExpressionError(err)
	if !ok {
		logger.Error("unexpected engine error", zap.Error(err))
		return err
	}

	logger.Debug("expression rejected",
		zap.String("kind", resp.Error),
		zap.Int("position", resp.Position),
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
	)
	return c.Status(status).JSON(resp)
}

func toExpressionError(err error) (ExpressionErrorResponse, int, bool) {
	var exprErr *expression.ExpressionError
	if !errors.As(err, &exprErr) {
		return ExpressionErrorResponse{}, fiber.StatusInternalServerError, false
	}

	status := fiber.StatusBadRequest
	if exprErr.Kind == expression.KindInternal {
		status = fiber.StatusUnprocessableEntity
	}
	return ExpressionErrorResponse{
		Error:    string(exprErr.Kind),
		Message:  exprErr.Message,
		Position: exprErr.Position,
	}, status, true
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: "Failed to parse request: " + err.Error(),
	})
}

func newEvaluateResponse(expr string, postfix []expression.Token, result float64, precision int) EvaluateResponse {
	return EvaluateResponse{
		ID:         uuid.NewString(),
		Expression: expr,
		Postfix:    expression.Strings(postfix),
		Result:     format.JSONValue(result),
		Rounded:    format.JSONValue(format.Round(result, precision)),
		Precision:  precision,
	}
}

func requestSize(expr string, elems []string) int {
	n := len(expr)
	for _, e := range elems {
		n += len(e)
	}
	return n
}
