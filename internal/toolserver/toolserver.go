// Package toolserver implements the six typed MCP tool servers. Each server
// owns a fixed tool catalog and dispatches calls to one backend.
package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownTool is returned by CallTool for names outside the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Descriptor is one entry of a tools/list response.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// Server is the contract the protocol engine dispatches to.
//
// CallTool returns a domain result object. Errors are reserved for problems
// finding the tool; backend failures come back as {ok:false,error} data.
type Server interface {
	Name() string
	ListTools() []Descriptor
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

type handler struct {
	descriptor Descriptor
	call       func(ctx context.Context, args map[string]any) any
}

// Catalog is a Server backed by a fixed map of tool name to handler.
type Catalog struct {
	server   string
	order    []string
	handlers map[string]handler
}

func newCatalog(server string, handlers ...handler) *Catalog {
	c := &Catalog{
		server:   server,
		order:    make([]string, 0, len(handlers)),
		handlers: make(map[string]handler, len(handlers)),
	}
	for _, h := range handlers {
		c.order = append(c.order, h.descriptor.Name)
		c.handlers[h.descriptor.Name] = h
	}
	return c
}

// Name returns the server type tag.
func (c *Catalog) Name() string {
	return c.server
}

// ListTools returns the catalog in declaration order.
func (c *Catalog) ListTools() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.handlers[name].descriptor)
	}
	return out
}

// CallTool dispatches to the named tool. Besides the canonical
// <server>__<operation> name it accepts the runtime-qualified
// mcp__<server>__<operation> form and the bare operation.
func (c *Catalog) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	h, ok := c.resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return h.call(ctx, args), nil
}

func (c *Catalog) resolve(name string) (handler, bool) {
	for _, candidate := range toolAliases(c.server, name) {
		if h, ok := c.handlers[candidate]; ok {
			return h, true
		}
	}
	return handler{}, false
}

func toolAliases(server, name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	out := []string{name}
	if trimmed := strings.TrimPrefix(name, "mcp__"); trimmed != name {
		out = append(out, trimmed)
	}
	if !strings.Contains(name, "__") {
		out = append(out, server+"__"+name)
	}
	return out
}

// failure is the uniform shape of a rejected or failed call.
type failure struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func fail(format string, args ...any) failure {
	return failure{Error: fmt.Sprintf(format, args...)}
}

func missing(field string) failure {
	return fail("%s parameter is required", field)
}

// requiredString returns args[key] when it is a string with visible content.
func requiredString(args map[string]any, key string) (string, bool) {
	s, ok := args[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// positiveInt reads an optional count. Absent, unparsable, or non-positive
// values fall back to def.
func positiveInt(args map[string]any, key string, def int) int {
	var n float64
	switch v := args[key].(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return def
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def
		}
		n = f
	default:
		return def
	}
	if math.IsNaN(n) || n < 1 {
		return def
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func stringList(v any) []string {
	var out []string
	switch items := v.(type) {
	case []string:
		for _, s := range items {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range items {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

var _ Server = (*Catalog)(nil)
