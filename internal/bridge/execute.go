package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

var errNoExecutor = errors.New("tool has no executor")

func (c *Catalog) execute(ctx context.Context, name string, e entry, args map[string]any) (res *mcp.CallToolResult) {
	callID := c.newID()
	if args == nil {
		args = map[string]any{}
	}
	c.signals.recordTool(name)
	if e.messaging {
		c.signals.collectInput(name, args)
	}

	logger := c.logger.With("tool", name, "call", callID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool panicked", "panic", r)
			res = toolError(name, fmt.Errorf("panic: %v", r))
		}
	}()

	if e.tool.Execute == nil {
		return toolError(name, errNoExecutor)
	}
	out, err := e.tool.Execute(ctx, callID, args)
	if err != nil {
		logger.Warn("tool failed", "error", err)
		return toolError(name, err)
	}
	if out == nil {
		out = &Result{}
	}
	if e.messaging {
		c.signals.collectDetails(name, out.Details)
	}
	logger.Debug("tool finished", "blocks", len(out.Content))
	return convertResult(out)
}

func toolError(name string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("[%s] %s", name, err.Error()))},
		IsError: true,
	}
}

func convertResult(r *Result) *mcp.CallToolResult {
	out := &mcp.CallToolResult{}
	for _, c := range r.Content {
		switch c.Type {
		case "text":
			out.Content = append(out.Content, mcp.NewTextContent(c.Text))
		case "image":
			out.Content = append(out.Content, mcp.NewImageContent(c.Data, c.MimeType))
		}
	}

	encoded, err := json.Marshal(r.Details)
	if err != nil {
		encoded = nil
	}
	if len(out.Content) == 0 {
		out.Content = []mcp.Content{mcp.NewTextContent(detailsText(r.Details, encoded))}
	}
	if isContainer(encoded) {
		out.StructuredContent = r.Details
	}
	return out
}

// detailsText renders details for tools that returned no content blocks.
func detailsText(details any, encoded []byte) string {
	if details == nil || encoded == nil {
		return `{"ok":true}`
	}
	if isContainer(encoded) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, encoded, "", "  "); err == nil {
			return buf.String()
		}
	}
	return string(encoded)
}

func isContainer(encoded []byte) bool {
	trimmed := bytes.TrimSpace(encoded)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
