package mcpserver

import (
	"context"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/calc-engine/api/rest"
)

func newTestServer() *Server {
	return NewServer(nil, nil, Config{Name: "calc-engine", Version: "test", Precision: 2})
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])
	return tc.Text
}

func TestCalculate(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"default precision", map[string]any{"expression": "(500*1.7/-5.3)+2-0.75/1.45"}, "-158.89"},
		{"explicit precision", map[string]any{"expression": "2/3", "precision": 4}, "0.6667"},
		{"whole result", map[string]any{"expression": "(1+8-5/2)*2+4"}, "17"},
		{"division by zero", map[string]any{"expression": "1/0"}, "+Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.calculate(context.Background(), callRequest(ToolCalculate, tt.args))
			require.NoError(t, err)
			assert.False(t, result.IsError)
			assert.Equal(t, tt.want, resultText(t, result))
		})
	}
}

func TestCalculate_Errors(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing expression", map[string]any{}, "expression"},
		{"ending", map[string]any{"expression": "5+"}, "ENDING at position 1"},
		{"empty", map[string]any{"expression": "  "}, "EMPTY:"},
		{"precision out of range", map[string]any{"expression": "1+1", "precision": 40}, "precision must be between 0 and 15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.calculate(context.Background(), callRequest(ToolCalculate, tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestToPostfix(t *testing.T) {
	s := newTestServer()

	result, err := s.toPostfix(context.Background(), callRequest(ToolPostfix, map[string]any{"expression": "4*2+3-(6/8)"}))
	require.NoError(t, err)
	assert.Equal(t, "4 2 * 3 + 6 8 / -", resultText(t, result))

	result, err = s.toPostfix(context.Background(), callRequest(ToolPostfix, map[string]any{"expression": "2(3)"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "OPEN_PAREN at position 1")
}

func TestTokenize(t *testing.T) {
	s := newTestServer()

	result, err := s.tokenize(context.Background(), callRequest(ToolTokenize, map[string]any{"expression": "-5*(2-3)"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var resp rest.TokenizeResponse
	require.NoError(t, sonic.UnmarshalString(resultText(t, result), &resp))
	require.Len(t, resp.Tokens, 7)
	assert.Equal(t, rest.TokenResponse{Type: "NUMBER", Literal: "-5", Position: 0}, resp.Tokens[0])
}

func TestToolCallsAreRecorded(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, _ = s.calculate(ctx, callRequest(ToolCalculate, map[string]any{"expression": "1+2"}))
	_, _ = s.calculate(ctx, callRequest(ToolCalculate, map[string]any{"expression": "(1+2"}))
	_, _ = s.toPostfix(ctx, callRequest(ToolPostfix, map[string]any{"expression": "1+2"}))

	snap := s.Recorder().Snapshot()
	assert.Equal(t, int64(3), snap.Total)
	assert.Equal(t, int64(1), snap.Failed)
	assert.Equal(t, int64(1), snap.Errors["PARENTHESES"])
}

func TestInProcessClient(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "calc-test", Version: "1.0.0"}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initResult, err := c.Initialize(ctx, initReq)
	require.NoError(t, err)
	assert.Equal(t, "calc-engine", initResult.ServerInfo.Name)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolCalculate, ToolPostfix, ToolTokenize}, names)

	result, err := c.CallTool(ctx, callRequest(ToolCalculate, map[string]any{"expression": "(4*2+3-2)/(6/8)"}))
	require.NoError(t, err)
	assert.Equal(t, "12", resultText(t, result))
}
