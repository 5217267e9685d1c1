package rest

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/calc-engine/internal/metrics"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxExpressionLength = 64
	return NewServer(nil, metrics.NewRecorder(), cfg)
}

// doJSON sends body to path and decodes the JSON response into out.
func doJSON(t *testing.T, s *Server, method, path, body string, out any) int {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(data, out), "body: %s", data)
	}
	return resp.StatusCode
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		var resp HealthResponse
		status := doJSON(t, s, "GET", path, "", &resp)
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "healthy", resp.Status)
		assert.NotEmpty(t, resp.Timestamp)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Len(t, resp.Header.Get(fiber.HeaderXRequestID), 36)
}

func TestTokenize(t *testing.T) {
	s := newTestServer(t)

	var resp TokenizeResponse
	status := doJSON(t, s, "POST", "/api/v1/tokenize", `{"expression":"-5*(2-3)"}`, &resp)
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, "-5*(2-3)", resp.Expression)
	require.Len(t, resp.Tokens, 7)
	assert.Equal(t, TokenResponse{Type: "NUMBER", Literal: "-5", Position: 0}, resp.Tokens[0])
	assert.Equal(t, TokenResponse{Type: "OPERATOR", Literal: "*", Position: 2}, resp.Tokens[1])
	assert.Equal(t, TokenResponse{Type: "(", Literal: "(", Position: 3}, resp.Tokens[2])
}

func TestPostfix(t *testing.T) {
	s := newTestServer(t)

	t.Run("from expression", func(t *testing.T) {
		var resp PostfixResponse
		status := doJSON(t, s, "POST", "/api/v1/postfix", `{"expression":"4*2+3-(6/8)"}`, &resp)
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, []string{"4", "2", "*", "3", "+", "6", "8", "/", "-"}, resp.Postfix)
		assert.Equal(t, "4 2 * 3 + 6 8 / -", resp.Joined)
	})

	t.Run("from tokens", func(t *testing.T) {
		var resp PostfixResponse
		body := `{"tokens":["(","360","-","2.50",")","/","(","2","*","(","3","-","2",")","+","62",")"]}`
		status := doJSON(t, s, "POST", "/api/v1/postfix", body, &resp)
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "360 2.50 - 2 3 2 - * 62 + /", resp.Joined)
	})

	t.Run("token errors", func(t *testing.T) {
		var resp ExpressionErrorResponse
		status := doJSON(t, s, "POST", "/api/v1/postfix", `{"tokens":["2","(","1",")"]}`, &resp)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "OPEN_PAREN", resp.Error)
		assert.Equal(t, 1, resp.Position)
	})
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		body      string
		result    any
		rounded   any
		postfix   []string
		precision int
	}{
		{
			name:      "default precision",
			body:      `{"expression":"(500*1.7/-5.3)+2-0.75/1.45"}`,
			rounded:   -158.89,
			precision: 2,
		},
		{
			name:      "explicit precision",
			body:      `{"expression":"2/3","precision":4}`,
			result:    2.0 / 3.0,
			rounded:   0.6667,
			postfix:   []string{"2", "3", "/"},
			precision: 4,
		},
		{
			name:      "zero precision",
			body:      `{"expression":"2.5*1","precision":0}`,
			result:    2.5,
			rounded:   3.0,
			precision: 0,
		},
		{
			name:      "positive infinity",
			body:      `{"expression":"1/0"}`,
			result:    "+Inf",
			rounded:   "+Inf",
			precision: 2,
		},
		{
			name:      "negative infinity",
			body:      `{"expression":"-1/0"}`,
			result:    "-Inf",
			rounded:   "-Inf",
			precision: 2,
		},
		{
			name:      "not a number",
			body:      `{"expression":"0/0"}`,
			result:    "NaN",
			rounded:   "NaN",
			precision: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp EvaluateResponse
			status := doJSON(t, s, "POST", "/api/v1/evaluate", tt.body, &resp)
			require.Equal(t, fiber.StatusOK, status)

			assert.Len(t, resp.ID, 36)
			assert.Equal(t, tt.precision, resp.Precision)
			assert.Equal(t, tt.rounded, resp.Rounded)
			if tt.result != nil {
				assert.Equal(t, tt.result, resp.Result)
			}
			if tt.postfix != nil {
				assert.Equal(t, tt.postfix, resp.Postfix)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		body     string
		status   int
		kind     string
		position int
	}{
		{"empty", "/api/v1/evaluate", `{"expression":"   "}`, fiber.StatusBadRequest, "EMPTY", -1},
		{"ending", "/api/v1/evaluate", `{"expression":"5+"}`, fiber.StatusBadRequest, "ENDING", 1},
		{"operator", "/api/v1/evaluate", `{"expression":"2*/3"}`, fiber.StatusBadRequest, "OPERATOR", 2},
		{"parentheses", "/api/v1/evaluate", `{"expression":"(1+2"}`, fiber.StatusBadRequest, "PARENTHESES", 3},
		{"invalid character", "/api/v1/tokenize", `{"expression":"2^3"}`, fiber.StatusBadRequest, "INVALID_CHARACTER", 1},
		{"malformed postfix", "/api/v1/evaluate/postfix", `{"tokens":["1","+"]}`, fiber.StatusUnprocessableEntity, "INTERNAL", 1},
		{"empty postfix", "/api/v1/evaluate/postfix", `{"tokens":[]}`, fiber.StatusBadRequest, "EVALUATE_EMPTY", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ExpressionErrorResponse
			status := doJSON(t, s, "POST", tt.path, tt.body, &resp)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, resp.Error)
			assert.Equal(t, tt.position, resp.Position)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestEvaluatePostfix(t *testing.T) {
	s := newTestServer(t)

	var resp EvaluateResponse
	status := doJSON(t, s, "POST", "/api/v1/evaluate/postfix", `{"tokens":["10","4","-"],"precision":1}`, &resp)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 6.0, resp.Result)
	assert.Equal(t, []string{"10", "4", "-"}, resp.Postfix)
	assert.Empty(t, resp.Expression)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)

	t.Run("malformed json", func(t *testing.T) {
		var resp ErrorResponse
		status := doJSON(t, s, "POST", "/api/v1/evaluate", `{"expression":`, &resp)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "invalid_request", resp.Error)
	})

	t.Run("precision out of range", func(t *testing.T) {
		var resp ErrorResponse
		status := doJSON(t, s, "POST", "/api/v1/evaluate", `{"expression":"1+1","precision":99}`, &resp)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Contains(t, resp.Message, "precision")
	})

	t.Run("expression too long", func(t *testing.T) {
		var resp ErrorResponse
		body := `{"expression":"` + strings.Repeat("1+", 40) + `1"}`
		status := doJSON(t, s, "POST", "/api/v1/evaluate", body, &resp)
		assert.Equal(t, fiber.StatusRequestEntityTooLarge, status)
		assert.Equal(t, "expression_too_long", resp.Error)
	})

	t.Run("unknown route", func(t *testing.T) {
		var resp ErrorResponse
		status := doJSON(t, s, "GET", "/api/v1/nope", "", &resp)
		assert.Equal(t, fiber.StatusNotFound, status)
		assert.Equal(t, "error_404", resp.Error)
	})
}

func TestStats(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, "POST", "/api/v1/evaluate", `{"expression":"1+2"}`, nil)
	doJSON(t, s, "POST", "/api/v1/evaluate", `{"expression":"1+"}`, nil)
	doJSON(t, s, "POST", "/api/v1/evaluate", `{"expression":"(1"}`, nil)
	doJSON(t, s, "POST", "/api/v1/tokenize", `{"expression":"1)"}`, nil)

	var resp StatsResponse
	status := doJSON(t, s, "GET", "/api/v1/stats", "", &resp)
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, int64(4), resp.Total)
	assert.Equal(t, int64(1), resp.Succeeded)
	assert.Equal(t, int64(3), resp.Failed)
	assert.Equal(t, int64(1), resp.Errors["ENDING"])
	assert.Equal(t, int64(2), resp.Errors["PARENTHESES"])
	assert.Equal(t, int64(4), resp.LatencyUS.Count)
}

func TestCORS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableCORS = true
	cfg.CORSOrigins = []string{"https://calc.example.com"}
	s := NewServer(nil, nil, cfg)

	req := httptest.NewRequest("OPTIONS", "/api/v1/evaluate", nil)
	req.Header.Set("Origin", "https://calc.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://calc.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
