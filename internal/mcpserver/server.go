// Package mcpserver exposes a remote intentgate server as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"intentgate/internal/client"
	"intentgate/internal/domain"
)

// Gateway is the subset of the intentgate client the tools call.
type Gateway interface {
	Ask(ctx context.Context, query string) (domain.AskResponse, error)
	Execute(ctx context.Context, tool string, args map[string]any) (domain.AskResponse, error)
	Capabilities(ctx context.Context) (domain.CapabilitiesResponse, error)
}

var (
	askTool = mcp.NewTool("ask",
		mcp.WithDescription("Send a natural-language request (list, create or clone repositories; run or build containers) and return the reply."),
		mcp.WithString("query", mcp.Required(), mcp.Description("What you want done, in plain words")),
	)
	executeTool = mcp.NewTool("execute",
		mcp.WithDescription("Run one action directly without the model: listRepos, createRepo, cloneRepo, dockerRun or dockerBuild."),
		mcp.WithString("tool", mcp.Required(), mcp.Description("Action name")),
		mcp.WithObject("args", mcp.Description("Action parameters, e.g. {\"name\": \"demo\"}")),
	)
	capabilitiesTool = mcp.NewTool("capabilities",
		mcp.WithDescription("List the backends that are currently reachable."),
	)
)

type Handlers struct {
	gw Gateway
}

func NewHandlers(gw Gateway) *Handlers {
	return &Handlers{gw: gw}
}

func NewServer(gw Gateway, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"intentgate",
		version,
		server.WithToolCapabilities(true),
	)
	h := NewHandlers(gw)
	s.AddTool(askTool, h.HandleAsk)
	s.AddTool(executeTool, h.HandleExecute)
	s.AddTool(capabilitiesTool, h.HandleCapabilities)
	return s
}

// Run serves the tools on stdin/stdout until the client disconnects.
func Run(gw Gateway, version string) error {
	return server.ServeStdio(NewServer(gw, version))
}

func (h *Handlers) HandleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, _ := req.GetArguments()["query"].(string)
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	resp, err := h.gw.Ask(ctx, query)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(resp.Reply), nil
}

func (h *Handlers) HandleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := decode[executeArgs](req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(in.Tool) == "" {
		return mcp.NewToolResultError("tool is required"), nil
	}
	resp, err := h.gw.Execute(ctx, in.Tool, in.Args)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(resp.Reply), nil
}

func (h *Handlers) HandleCapabilities(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caps, err := h.gw.Capabilities(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultJSON(caps)
}

type executeArgs struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(b, &result)
	return result, err
}

// errorResult keeps the server's error kind visible to the MCP client.
func errorResult(err error) *mcp.CallToolResult {
	payload := map[string]any{"code": "INTERNAL", "message": err.Error()}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		payload = map[string]any{"code": apiErr.Kind, "message": apiErr.Message, "status": apiErr.StatusCode}
	}
	content, _ := json.Marshal(map[string]any{"error": payload})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}
