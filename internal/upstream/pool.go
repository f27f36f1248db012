// Package upstream keeps MCP client connections to configured upstream
// servers, opened on first use.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lydakis/mcpbridge/internal/config"
	"github.com/mark3labs/mcp-go/mcp"
)

// ErrUnknownUpstream is returned for a server name missing from the config.
var ErrUnknownUpstream = errors.New("unknown upstream")

// connection wraps an MCP client with its transport.
type connection struct {
	listTools func(ctx context.Context) ([]mcp.Tool, error)
	callTool  func(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	close     func() error
}

// Pool manages upstream connections, creating them on demand. A connection
// that fails a request is closed and reopened on the next use.
type Pool struct {
	upstreams map[string]config.UpstreamConfig
	info      mcp.Implementation

	mu    sync.Mutex
	conns map[string]*connection
}

// Option configures a Pool.
type Option func(*Pool)

// WithClientInfo sets the client name and version sent in initialize.
func WithClientInfo(name, version string) Option {
	return func(p *Pool) {
		if name != "" {
			p.info.Name = name
		}
		if version != "" {
			p.info.Version = version
		}
	}
}

// New creates a pool over the given upstream definitions.
func New(upstreams map[string]config.UpstreamConfig, opts ...Option) *Pool {
	p := &Pool{
		upstreams: upstreams,
		info:      mcp.Implementation{Name: "mcpbridge", Version: "dev"},
		conns:     make(map[string]*connection),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Names returns the configured upstream names, sorted.
func (p *Pool) Names() []string {
	names := make([]string, 0, len(p.upstreams))
	for name := range p.upstreams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Pool) getOrCreate(ctx context.Context, server string) (*connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.conns[server]; ok {
		return conn, nil
	}

	ucfg, ok := p.upstreams[server]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUpstream, server)
	}

	var conn *connection
	var err error
	switch {
	case ucfg.IsStdio():
		conn, err = connectStdio(ctx, ucfg, p.info)
	case ucfg.IsHTTP():
		conn, err = connectHTTP(ctx, ucfg, p.info)
	default:
		return nil, fmt.Errorf("upstream %s: no command or url configured", server)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", server, err)
	}

	p.conns[server] = conn
	return conn, nil
}

func (p *Pool) invalidate(server string, conn *connection) {
	p.mu.Lock()
	if current, ok := p.conns[server]; ok && current == conn {
		delete(p.conns, server)
	}
	p.mu.Unlock()

	if conn != nil && conn.close != nil {
		conn.close() //nolint: errcheck
	}
}

// ListTools returns the tools an upstream advertises.
func (p *Pool) ListTools(ctx context.Context, server string) ([]mcp.Tool, error) {
	conn, err := p.getOrCreate(ctx, server)
	if err != nil {
		return nil, err
	}
	tools, err := conn.listTools(ctx)
	if err != nil {
		p.invalidate(server, conn)
		return nil, err
	}
	return tools, nil
}

// CallTool invokes tool on an upstream. A tool-level failure comes back as a
// result with IsError set, not as an error.
func (p *Pool) CallTool(ctx context.Context, server, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	conn, err := p.getOrCreate(ctx, server)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	result, err := conn.callTool(ctx, tool, args)
	if err != nil {
		p.invalidate(server, conn)
		return nil, err
	}
	return result, nil
}

// Close disconnects a specific upstream.
func (p *Pool) Close(server string) {
	p.mu.Lock()
	conn, ok := p.conns[server]
	if ok {
		delete(p.conns, server)
	}
	p.mu.Unlock()

	if ok && conn.close != nil {
		conn.close() //nolint: errcheck
	}
}

// CloseAll disconnects every upstream.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[string]*connection)
	p.mu.Unlock()

	for _, conn := range conns {
		if conn.close != nil {
			conn.close() //nolint: errcheck
		}
	}
}
