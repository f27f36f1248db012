// Package bridge adapts host-provided tools into one MCP tool catalog.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lydakis/mcpbridge/internal/toolserver"
)

// MaxToolNameLength is the longest tool name a catalog accepts.
const MaxToolNameLength = 128

// DefaultName is the server name reported when none is configured.
const DefaultName = "bridge"

// Content is one output block of a tool execution.
type Content struct {
	Type     string
	Text     string
	Data     string
	MimeType string
}

// Result is what a tool execution returns.
type Result struct {
	Content []Content
	Details any
}

// Tool is a host tool definition. Execute receives a fresh call id and the
// caller's context, which carries cancellation.
type Tool struct {
	Name        string
	Label       string
	Description string
	Parameters  any
	Execute     func(ctx context.Context, callID string, params map[string]any) (*Result, error)
}

type schemaSource int

const (
	schemaAsDeclared schemaSource = iota
	schemaRepaired
)

type entry struct {
	tool        Tool
	description string
	schema      any
	source      schemaSource
	messaging   bool
}

// Catalog serves a fixed set of bridged tools.
type Catalog struct {
	name    string
	order   []string
	entries map[string]entry
	signals *Signals
	logger  *slog.Logger
	newID   func() string
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithName sets the server name the catalog reports.
func WithName(name string) CatalogOption {
	return func(c *Catalog) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger routes catalog diagnostics to logger.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog builds a catalog from tools. Tools with invalid names are
// dropped; for duplicate names the first definition wins. signals may be nil.
func NewCatalog(tools []Tool, signals *Signals, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		name:    DefaultName,
		entries: make(map[string]entry, len(tools)),
		signals: signals,
		logger:  slog.New(slog.DiscardHandler),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, t := range tools {
		if !ValidToolName(t.Name) {
			c.logger.Debug("dropping tool with invalid name", "name", t.Name)
			continue
		}
		if _, dup := c.entries[t.Name]; dup {
			c.logger.Debug("dropping duplicate tool", "name", t.Name)
			continue
		}
		e := entry{
			tool:        t,
			description: describe(t),
			schema:      t.Parameters,
			source:      schemaAsDeclared,
			messaging:   IsMessagingTool(t.Name),
		}
		if !toolserver.DeclaresType(t.Parameters) {
			e.schema = toolserver.PermissiveSchema()
			e.source = schemaRepaired
			c.logger.Debug("substituted permissive schema", "name", t.Name)
		}
		c.entries[t.Name] = e
		c.order = append(c.order, t.Name)
	}
	return c
}

// ValidToolName reports whether name is 1-128 characters of [A-Za-z0-9._-].
func ValidToolName(name string) bool {
	if name == "" || len(name) > MaxToolNameLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '.', ch == '_', ch == '-':
		default:
			return false
		}
	}
	return true
}

func describe(t Tool) string {
	switch {
	case t.Description != "":
		return t.Description
	case t.Label != "":
		return t.Label
	default:
		return t.Name
	}
}

// Name returns the server name.
func (c *Catalog) Name() string { return c.name }

// Len returns the number of accepted tools.
func (c *Catalog) Len() int { return len(c.order) }

// SchemaRepaired reports whether name was given the permissive schema.
func (c *Catalog) SchemaRepaired(name string) bool {
	e, ok := c.entries[name]
	return ok && e.source == schemaRepaired
}

// Signals returns the signal set shared with the caller.
func (c *Catalog) Signals() *Signals { return c.signals }

// ListTools returns accepted tools in input order.
func (c *Catalog) ListTools() []toolserver.Descriptor {
	out := make([]toolserver.Descriptor, 0, len(c.order))
	for _, name := range c.order {
		e := c.entries[name]
		out = append(out, toolserver.Descriptor{
			Name:        name,
			Description: e.description,
			InputSchema: e.schema,
		})
	}
	return out
}

// CallTool runs the named tool. Failures of the tool itself come back as an
// error result, never as an error.
func (c *Catalog) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	e, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", toolserver.ErrUnknownTool, name)
	}
	return c.execute(ctx, name, e, args), nil
}

var _ toolserver.Server = (*Catalog)(nil)
