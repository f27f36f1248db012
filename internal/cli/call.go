package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lydakis/mcpbridge/internal/protocol"
	"github.com/lydakis/mcpbridge/internal/response"
	"github.com/mark3labs/mcp-go/mcp"
)

func runCall(args []string) int {
	var f serverFlags
	fs := newFlagSet("call")
	addServerFlags(fs, &f)
	if handled, code := parseFlags(fs, args, "mcpbridge call --server <type> [FLAGS] <tool> [JSON_ARGS]", &f.help); handled {
		return code
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(rootStderr, "mcpbridge: call takes a tool name and optional JSON arguments")
		return response.ExitUsageErr
	}
	tool := fs.Arg(0)
	toolArgs, err := parseToolArgs(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return response.ExitUsageErr
	}

	session, err := openSession(f)
	if err != nil {
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return response.ExitUsageErr
	}

	ctx, stop := signalContext()
	defer stop()

	result, err := callThroughEngine(ctx, session.Engine(), tool, toolArgs)
	if err != nil {
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return response.ExitInternal
	}
	out, code := response.Unwrap(result)
	if len(out) > 0 {
		rootStdout.Write(out) //nolint:errcheck
	}
	return code
}

// parseToolArgs decodes a JSON object, keeping numbers exact. Empty input
// means no arguments.
func parseToolArgs(raw string) (map[string]any, error) {
	raw = string(bytes.TrimSpace([]byte(raw)))
	if raw == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON arguments: trailing data")
	}
	if args == nil {
		return nil, errors.New("invalid JSON arguments: expected an object")
	}
	return args, nil
}

// callThroughEngine runs the full MCP lifecycle against eng and returns the
// tools/call result.
func callThroughEngine(ctx context.Context, eng *protocol.Engine, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	initResp := eng.HandleRequest(ctx, map[string]any{
		"jsonrpc": mcp.JSONRPC_VERSION,
		"id":      json.Number("1"),
		"method":  string(mcp.MethodInitialize),
		"params": map[string]any{
			"protocolVersion": protocol.DefaultProtocolVersion,
			"clientInfo":      map[string]any{"name": "mcpbridge-call", "version": buildVersion},
		},
	})
	if err := responseError(initResp); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	eng.HandleRequest(ctx, map[string]any{
		"jsonrpc": mcp.JSONRPC_VERSION,
		"method":  "notifications/initialized",
	})

	resp := eng.HandleRequest(ctx, map[string]any{
		"jsonrpc": mcp.JSONRPC_VERSION,
		"id":      json.Number("2"),
		"method":  string(mcp.MethodToolsCall),
		"params":  map[string]any{"name": tool, "arguments": args},
	})
	if err := responseError(resp); err != nil {
		return nil, fmt.Errorf("tools/call: %w", err)
	}
	result, ok := resp.Result.(*mcp.CallToolResult)
	if !ok {
		return nil, fmt.Errorf("tools/call: unexpected result %T", resp.Result)
	}
	return result, nil
}

func responseError(resp *protocol.Response) error {
	switch {
	case resp == nil:
		return errors.New("no response")
	case resp.IsError():
		return fmt.Errorf("%s (%d)", resp.Error.Message, resp.Error.Code)
	default:
		return nil
	}
}
