// Package client implements an HTTP client for the calculator REST API
// using Fiber's client.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"yqhp/calc-engine/api/rest"
	"yqhp/calc-engine/pkg/expression"
)

// Config holds the configuration for the HTTP client.
type Config struct {
	// BaseURL is the server root (e.g., "http://localhost:8080").
	BaseURL string

	// RequestTimeout is the timeout for HTTP requests.
	RequestTimeout time.Duration

	// Dial overrides how connections are opened, e.g. for unix sockets or
	// in-memory listeners. Nil uses TCP.
	Dial fasthttp.DialFunc
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8080",
		RequestTimeout: 10 * time.Second,
	}
}

// Client talks to a running calculator server.
type Client struct {
	config *Config
	agent  *fiber.Client
}

// NewClient creates a new HTTP client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	agent := fiber.AcquireClient()
	agent.JSONEncoder = sonic.Marshal
	agent.JSONDecoder = sonic.Unmarshal

	return &Client{
		config: config,
		agent:  agent,
	}
}

// Close releases the underlying fiber client.
func (c *Client) Close() {
	fiber.ReleaseClient(c.agent)
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	var resp rest.HealthResponse
	if err := c.do(ctx, fiber.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("server reports status %q", resp.Status)
	}
	return nil
}

// Tokenize asks the server to tokenize expr.
func (c *Client) Tokenize(ctx context.Context, expr string) (*rest.TokenizeResponse, error) {
	var resp rest.TokenizeResponse
	if err := c.do(ctx, fiber.MethodPost, "/api/v1/tokenize", rest.ExpressionRequest{Expression: expr}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Postfix asks the server to convert expr into postfix order.
func (c *Client) Postfix(ctx context.Context, expr string) (*rest.PostfixResponse, error) {
	var resp rest.PostfixResponse
	if err := c.do(ctx, fiber.MethodPost, "/api/v1/postfix", rest.PostfixRequest{Expression: expr}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Evaluate asks the server to solve expr. A nil precision uses the server
// default.
func (c *Client) Evaluate(ctx context.Context, expr string, precision *int) (*rest.EvaluateResponse, error) {
	req := rest.EvaluateRequest{Expression: expr, Precision: precision}

	var resp rest.EvaluateResponse
	if err := c.do(ctx, fiber.MethodPost, "/api/v1/evaluate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats fetches the server's evaluation statistics.
func (c *Client) Stats(ctx context.Context) (*rest.StatsResponse, error) {
	var resp rest.StatsResponse
	if err := c.do(ctx, fiber.MethodGet, "/api/v1/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends a request and decodes a 200 response into out. Rejected
// expressions come back as *expression.ExpressionError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	url := c.config.BaseURL + path
	var req *fiber.Agent
	if method == fiber.MethodPost {
		req = c.agent.Post(url)
	} else {
		req = c.agent.Get(url)
	}
	if c.config.Dial != nil && req.HostClient != nil {
		req.HostClient.Dial = c.config.Dial
	}
	req.Timeout(c.requestTimeout(ctx))
	if body != nil {
		req.JSON(body)
	}

	statusCode, respBody, errs := req.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request %s failed: %w", path, errs[0])
	}

	switch statusCode {
	case fiber.StatusOK:
		if err := sonic.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal %s response: %w", path, err)
		}
		return nil
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		var exprResp rest.ExpressionErrorResponse
		if err := sonic.Unmarshal(respBody, &exprResp); err == nil && isKind(exprResp.Error) {
			kind := expression.ErrorKind(exprResp.Error)
			return expression.NewExpressionError(kind, exprResp.Position, exprResp.Message, nil)
		}
	}

	var errResp rest.ErrorResponse
	if err := sonic.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("%s failed with status %d: %s", path, statusCode, errResp.Message)
	}
	return fmt.Errorf("%s failed with status: %d", path, statusCode)
}

// requestTimeout is the configured timeout, shortened to the context deadline.
func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	timeout := c.config.RequestTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	return timeout
}

func isKind(s string) bool {
	for _, k := range expression.Kinds() {
		if string(k) == s {
			return true
		}
	}
	return false
}
