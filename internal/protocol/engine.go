// Package protocol implements the JSON-RPC 2.0 side of an MCP server:
// request validation, the initialize handshake, and dispatch of tools/list
// and tools/call to a toolserver.Server.
package protocol

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lydakis/mcpbridge/internal/toolserver"
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultProtocolVersion is answered when the client does not name one.
const DefaultProtocolVersion = "2024-11-05"

const methodInitialized = "notifications/initialized"

// ServerInfo is reported in the initialize result.
type ServerInfo struct {
	Name    string
	Version string
}

// SessionState tracks the lifecycle handshake of one connection.
type SessionState struct {
	InitReceived bool
	Initialized  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes engine diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine answers requests for one client connection. It is not safe for
// concurrent use; requests are expected strictly in arrival order.
type Engine struct {
	server toolserver.Server
	info   ServerInfo
	logger *slog.Logger
	state  SessionState
}

// New returns an engine dispatching tool calls to server.
func New(server toolserver.Server, info ServerInfo, opts ...Option) *Engine {
	e := &Engine{
		server: server,
		info:   info,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsInitialized reports whether the handshake has completed.
func (e *Engine) IsInitialized() bool {
	return e.state.Initialized
}

// State returns a copy of the connection's lifecycle flags.
func (e *Engine) State() SessionState {
	return e.state
}

// HandleInvalidJSON answers input that could not be decoded at all.
func (e *Engine) HandleInvalidJSON(raw string) *Response {
	e.logger.Debug("parse error", "bytes", len(raw))
	return errorResponse(mcp.NewRequestId(nil), mcp.PARSE_ERROR, "Parse error")
}

// HandleRequest answers one decoded payload. It returns nil for
// notifications, including malformed ones.
func (e *Engine) HandleRequest(ctx context.Context, payload any) *Response {
	req, ok := payload.(map[string]any)
	if !ok {
		return errorResponse(mcp.NewRequestId(nil), mcp.INVALID_REQUEST, "Invalid Request")
	}

	rawID, hasID := req["id"]
	if !hasID {
		e.notify(req)
		return nil
	}

	id, idOK := requestID(rawID)
	method, methodOK := req["method"].(string)
	if !idOK {
		return errorResponse(mcp.NewRequestId(nil), mcp.INVALID_REQUEST, "Invalid Request")
	}
	if req["jsonrpc"] != mcp.JSONRPC_VERSION || !methodOK {
		return errorResponse(id, mcp.INVALID_REQUEST, "Invalid Request")
	}

	start := time.Now()
	resp := e.dispatch(ctx, id, method, req["params"])
	e.logger.Debug("handled request",
		"method", method,
		"id", rawID,
		"error", resp.IsError(),
		"duration", time.Since(start),
	)
	return resp
}

func (e *Engine) notify(req map[string]any) {
	method, _ := req["method"].(string)
	if method != methodInitialized {
		e.logger.Debug("ignored notification", "method", method)
		return
	}
	if !e.state.InitReceived {
		e.logger.Debug("initialized notification before initialize")
		return
	}
	e.state.Initialized = true
}

func (e *Engine) dispatch(ctx context.Context, id mcp.RequestId, method string, params any) *Response {
	switch mcp.MCPMethod(method) {
	case mcp.MethodPing:
		return resultResponse(id, struct{}{})
	case mcp.MethodInitialize:
		return resultResponse(id, e.initialize(params))
	case mcp.MethodToolsList, mcp.MethodToolsCall:
		if !e.state.Initialized {
			return errorResponse(id, CodeNotInitialized, notInitializedMessage)
		}
		if mcp.MCPMethod(method) == mcp.MethodToolsList {
			return resultResponse(id, listResult{Tools: e.listTools()})
		}
		return resultResponse(id, e.callTool(ctx, params))
	default:
		return errorResponse(id, mcp.METHOD_NOT_FOUND, "Method not found")
	}
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    capabilities       `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

type capabilities struct {
	Tools toolsCapability `json:"tools"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

func (e *Engine) initialize(params any) initializeResult {
	version := DefaultProtocolVersion
	if p, ok := params.(map[string]any); ok {
		if v, ok := p["protocolVersion"].(string); ok && v != "" {
			version = v
		}
	}
	e.state.InitReceived = true
	return initializeResult{
		ProtocolVersion: version,
		ServerInfo:      mcp.Implementation{Name: e.info.Name, Version: e.info.Version},
	}
}

type listResult struct {
	Tools []toolserver.Descriptor `json:"tools"`
}

func (e *Engine) listTools() []toolserver.Descriptor {
	tools := e.server.ListTools()
	out := make([]toolserver.Descriptor, 0, len(tools))
	for _, d := range tools {
		if !toolserver.DeclaresType(d.InputSchema) {
			d.InputSchema = toolserver.PermissiveSchema()
		}
		out = append(out, d)
	}
	return out
}

func (e *Engine) callTool(ctx context.Context, params any) *mcp.CallToolResult {
	p, _ := params.(map[string]any)
	name, _ := p["name"].(string)
	args, ok := p["arguments"].(map[string]any)
	if !ok {
		args = map[string]any{}
	}

	result, err := e.server.CallTool(ctx, name, args)
	if err != nil {
		e.logger.Warn("tool call failed", "tool", name, "error", err)
		return errorResult("Error: " + err.Error())
	}
	return toolResult(result)
}

// requestID accepts the id types JSON-RPC allows: number, string, or null.
func requestID(v any) (mcp.RequestId, bool) {
	switch v.(type) {
	case nil, string, json.Number, float64, float32, int, int32, int64:
		return mcp.NewRequestId(v), true
	default:
		return mcp.NewRequestId(nil), false
	}
}
