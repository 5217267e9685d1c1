// Package mcpserver exposes the expression engine as MCP tools so that
// agents can tokenize, convert and solve expressions over stdio.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"yqhp/calc-engine/api/rest"
	"yqhp/calc-engine/internal/format"
	"yqhp/calc-engine/internal/metrics"
	"yqhp/calc-engine/pkg/expression"
	"yqhp/calc-engine/pkg/logger"
)

// Tool names.
const (
	ToolCalculate = "calculate"
	ToolPostfix   = "to_postfix"
	ToolTokenize  = "tokenize"
)

const maxPrecision = 15

// Config holds the MCP server identity and evaluation defaults.
type Config struct {
	Name      string
	Version   string
	Precision int
}

// Server wraps an MCP server backed by an expression engine.
type Server struct {
	mcp      *server.MCPServer
	engine   expression.Engine
	recorder *metrics.Recorder
	config   Config
}

// NewServer creates the MCP server and registers its tools. A nil engine or
// recorder is replaced with a default one.
func NewServer(engine expression.Engine, recorder *metrics.Recorder, cfg Config) *Server {
	if engine == nil {
		engine = expression.NewEngine()
	}
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}

	s := &Server{
		mcp:      server.NewMCPServer(cfg.Name, cfg.Version, server.WithToolCapabilities(false)),
		engine:   engine,
		recorder: recorder,
		config:   cfg,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool(ToolCalculate,
		mcp.WithDescription("Evaluate an arithmetic expression with + - * / and parentheses. "+
			"A '-' directly before a number at the start or after '(' makes it negative."),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Infix expression, e.g. (1+8-5/2)*2+4")),
		mcp.WithNumber("precision", mcp.Description("Fractional digits in the answer"), mcp.Min(0), mcp.Max(maxPrecision)),
	), s.calculate)

	s.mcp.AddTool(mcp.NewTool(ToolPostfix,
		mcp.WithDescription("Convert an infix expression into postfix (reverse Polish) order."),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Infix expression")),
	), s.toPostfix)

	s.mcp.AddTool(mcp.NewTool(ToolTokenize,
		mcp.WithDescription("Split an infix expression into number, operator and parenthesis tokens."),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Infix expression")),
	), s.tokenize)
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Recorder returns the metrics recorder fed by tool calls.
func (s *Server) Recorder() *metrics.Recorder {
	return s.recorder
}

// ServeStdio serves MCP over stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	logger.Info("MCP server listening on stdio",
		zap.String("name", s.config.Name),
		zap.String("version", s.config.Version),
	)
	return server.ServeStdio(s.mcp)
}

func (s *Server) calculate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	precision := req.GetInt("precision", s.config.Precision)
	if precision < 0 || precision > maxPrecision {
		return mcp.NewToolResultError(fmt.Sprintf("precision must be between 0 and %d", maxPrecision)), nil
	}

	var result float64
	err = s.recorder.Time(func() error {
		tokens, err := s.engine.Tokenize(expr)
		if err != nil {
			return err
		}
		postfix, err := s.engine.ToPostfix(tokens)
		if err != nil {
			return err
		}
		result, err = s.engine.Evaluate(postfix)
		return err
	})
	if err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(format.Result(result, precision)), nil
}

func (s *Server) toPostfix(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var postfix []expression.Token
	err = s.recorder.Time(func() error {
		tokens, err := s.engine.Tokenize(expr)
		if err != nil {
			return err
		}
		postfix, err = s.engine.ToPostfix(tokens)
		return err
	})
	if err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(expression.Join(postfix, " ")), nil
}

func (s *Server) tokenize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var tokens []expression.Token
	err = s.recorder.Time(func() (err error) {
		tokens, err = s.engine.Tokenize(expr)
		return err
	})
	if err != nil {
		return toolError(err), nil
	}

	data, err := sonic.Marshal(rest.TokenizeResponse{
		Expression: expr,
		Tokens:     rest.ToTokenResponses(tokens),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tokens: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports a rejected expression as a tool-level error so the
// calling agent can correct its input.
func toolError(err error) *mcp.CallToolResult {
	kind := expression.KindOf(err)
	if kind == "" {
		logger.Error("unexpected engine error", zap.Error(err))
		return mcp.NewToolResultError(err.Error())
	}
	pos := expression.PositionOf(err)
	if pos >= 0 {
		return mcp.NewToolResultError(fmt.Sprintf("%s at position %d: %s", kind, pos, kind.Message()))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", kind, kind.Message()))
}
