package gateway

import (
	"context"

	"github.com/lydakis/mcpbridge/internal/backend"
)

// Memory returns the memory backend scoped to agentID.
func (c *Client) Memory(agentID string) backend.Memory {
	return &memoryBackend{c: c, agentID: agentID}
}

// Sessions returns the sessions backend.
func (c *Client) Sessions() backend.Sessions { return &sessionsBackend{c: c} }

// Message returns the channel delivery backend.
func (c *Client) Message() backend.Message { return &messageBackend{c: c} }

// Nodes returns the device invoker, bound to sessionKey when non-empty.
func (c *Client) Nodes(sessionKey string) backend.Invoker {
	return &invoker{c: c, method: "node.invoke", sessionKey: sessionKey}
}

// Browser returns the browser invoker.
func (c *Client) Browser() backend.Invoker { return &invoker{c: c, method: "browser.invoke"} }

// Canvas returns the canvas invoker.
func (c *Client) Canvas() backend.Invoker { return &invoker{c: c, method: "canvas.invoke"} }

var _ backend.Registry = (*Client)(nil)

type memoryBackend struct {
	c       *Client
	agentID string
}

func (m *memoryBackend) Search(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SearchResult, error) {
	params := map[string]any{"agentId": m.agentID, "query": query}
	if opts.MaxResults > 0 {
		params["maxResults"] = opts.MaxResults
	}
	var out struct {
		Results []backend.SearchResult `json:"results"`
	}
	if err := m.c.Call(ctx, "memory.search", params, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (m *memoryBackend) Remember(ctx context.Context, content string, opts backend.RememberOptions) (backend.WriteResult, error) {
	params := map[string]any{"agentId": m.agentID, "content": content}
	if len(opts.Tags) > 0 {
		params["tags"] = opts.Tags
	}
	var out backend.WriteResult
	err := m.c.Call(ctx, "memory.remember", params, &out)
	return out, err
}

func (m *memoryBackend) Forget(ctx context.Context, path string) (backend.WriteResult, error) {
	var out backend.WriteResult
	err := m.c.Call(ctx, "memory.forget", map[string]any{"agentId": m.agentID, "path": path}, &out)
	return out, err
}

type sessionsBackend struct{ c *Client }

func (s *sessionsBackend) List(ctx context.Context) ([]backend.SessionSummary, error) {
	var out struct {
		Sessions []backend.SessionSummary `json:"sessions"`
	}
	if err := s.c.Call(ctx, "sessions.list", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (s *sessionsBackend) History(ctx context.Context, key string, opts backend.HistoryOptions) ([]backend.HistoryMessage, error) {
	params := map[string]any{"sessionKey": key}
	if opts.Limit > 0 {
		params["limit"] = opts.Limit
	}
	var out struct {
		Messages []backend.HistoryMessage `json:"messages"`
	}
	if err := s.c.Call(ctx, "sessions.history", params, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (s *sessionsBackend) Send(ctx context.Context, key, message string) (backend.SendResult, error) {
	var out backend.SendResult
	err := s.c.Call(ctx, "sessions.send", map[string]any{"sessionKey": key, "message": message}, &out)
	return out, err
}

type messageBackend struct{ c *Client }

func (m *messageBackend) Send(ctx context.Context, channelID, target, message string) (backend.SendResult, error) {
	var out backend.SendResult
	err := m.c.Call(ctx, "message.send", map[string]any{
		"channel": channelID,
		"target":  target,
		"message": message,
	}, &out)
	return out, err
}

type invoker struct {
	c          *Client
	method     string
	sessionKey string
}

func (i *invoker) Invoke(ctx context.Context, action string, params map[string]any) (backend.InvokeResult, error) {
	if params == nil {
		params = map[string]any{}
	}
	req := map[string]any{"action": action, "params": params}
	if i.sessionKey != "" {
		req["sessionKey"] = i.sessionKey
	}
	var out backend.InvokeResult
	err := i.c.Call(ctx, i.method, req, &out)
	return out, err
}
