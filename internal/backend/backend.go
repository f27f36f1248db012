// Package backend declares the service adapters the typed tool servers call.
// Implementations live elsewhere (see package gateway); the protocol layer
// never talks to the underlying services directly.
package backend

import "context"

// SearchOptions narrows a memory search.
type SearchOptions struct {
	MaxResults int
}

// SearchResult is one hit from the agent's memory index.
type SearchResult struct {
	Path      string  `json:"path"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
}

// RememberOptions carries optional metadata for a new memory entry.
type RememberOptions struct {
	Tags []string
}

// WriteResult reports the outcome of a memory mutation.
type WriteResult struct {
	OK    bool   `json:"ok"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// Memory searches and edits one agent's memory.
type Memory interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
	Remember(ctx context.Context, content string, opts RememberOptions) (WriteResult, error)
	Forget(ctx context.Context, path string) (WriteResult, error)
}

// SessionSummary describes one gateway session.
type SessionSummary struct {
	Key       string `json:"key"`
	Kind      string `json:"kind,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Label     string `json:"label,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

// HistoryOptions limits a transcript read.
type HistoryOptions struct {
	Limit int
}

// HistoryMessage is one transcript entry.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SendResult is returned by every delivery-shaped operation.
type SendResult struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
	RunID  string `json:"runId,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Sessions lists, reads and messages gateway sessions.
type Sessions interface {
	List(ctx context.Context) ([]SessionSummary, error)
	History(ctx context.Context, key string, opts HistoryOptions) ([]HistoryMessage, error)
	Send(ctx context.Context, key, message string) (SendResult, error)
}

// Message delivers text to a channel target.
type Message interface {
	Send(ctx context.Context, channelID, target, message string) (SendResult, error)
}

// InvokeResult is the outcome of a free-form device/browser/canvas action.
type InvokeResult struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Invoker runs an action against nodes, the browser, or the canvas. The
// implementation owns action-specific validation.
type Invoker interface {
	Invoke(ctx context.Context, action string, params map[string]any) (InvokeResult, error)
}
