package upstream

import (
	"context"
	"fmt"
	"os/exec"
	"sort"

	"github.com/lydakis/mcpbridge/internal/config"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

func connectStdio(ctx context.Context, ucfg config.UpstreamConfig, info mcp.Implementation) (*connection, error) {
	if err := checkRuntime(ucfg, exec.LookPath); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(ucfg.Env))
	for k := range ucfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+ucfg.Env[k])
	}

	c, err := mcpclient.NewStdioMCPClient(ucfg.Command, env, ucfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("creating stdio client: %w", err)
	}
	return initialized(ctx, c, info)
}

func connectHTTP(ctx context.Context, ucfg config.UpstreamConfig, info mcp.Implementation) (*connection, error) {
	var opts []transport.StreamableHTTPCOption
	if len(ucfg.Headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(ucfg.Headers))
	}

	c, err := mcpclient.NewStreamableHttpClient(ucfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		c.Close() //nolint: errcheck
		return nil, fmt.Errorf("starting HTTP client: %w", err)
	}
	return initialized(ctx, c, info)
}

// initialized runs the MCP handshake and wraps c. c is closed on failure.
func initialized(ctx context.Context, c *mcpclient.Client, info mcp.Implementation) (*connection, error) {
	if _, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      info,
			Capabilities:    mcp.ClientCapabilities{},
		},
	}); err != nil {
		c.Close() //nolint: errcheck
		return nil, fmt.Errorf("initializing: %w", err)
	}

	return &connection{
		listTools: func(ctx context.Context) ([]mcp.Tool, error) {
			result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
			if err != nil {
				return nil, err
			}
			return result.Tools, nil
		},
		callTool: func(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
			return c.CallTool(ctx, mcp.CallToolRequest{
				Params: mcp.CallToolParams{
					Name:      name,
					Arguments: args,
				},
			})
		},
		close: c.Close,
	}, nil
}
