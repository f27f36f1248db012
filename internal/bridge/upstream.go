package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// UpstreamSource is a set of named MCP servers that can be listed and called.
type UpstreamSource interface {
	ListTools(ctx context.Context, server string) ([]mcp.Tool, error)
	CallTool(ctx context.Context, server, tool string, args map[string]any) (*mcp.CallToolResult, error)
}

// UpstreamTools exposes every tool of an upstream server as a bridge Tool
// named <server>__<tool>.
func UpstreamTools(ctx context.Context, src UpstreamSource, server string) ([]Tool, error) {
	listed, err := src.ListTools(ctx, server)
	if err != nil {
		return nil, fmt.Errorf("listing tools of %s: %w", server, err)
	}
	out := make([]Tool, 0, len(listed))
	for _, t := range listed {
		remote := t.Name
		out = append(out, Tool{
			Name:        server + "__" + remote,
			Label:       t.Annotations.Title,
			Description: t.Description,
			Parameters:  inputSchema(t),
			Execute: func(ctx context.Context, _ string, params map[string]any) (*Result, error) {
				res, err := src.CallTool(ctx, server, remote, params)
				if err != nil {
					return nil, err
				}
				return fromCallToolResult(res)
			},
		})
	}
	return out, nil
}

// inputSchema returns the declared schema of t as generic JSON.
func inputSchema(t mcp.Tool) any {
	var raw []byte
	switch {
	case len(t.RawInputSchema) > 0:
		raw = t.RawInputSchema
	case t.InputSchema.Type == "":
		return nil
	default:
		encoded, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil
		}
		raw = encoded
	}
	var schema any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	return schema
}

func fromCallToolResult(res *mcp.CallToolResult) (*Result, error) {
	if res == nil {
		return &Result{}, nil
	}
	out := &Result{Details: res.StructuredContent}
	var texts []string
	for _, c := range res.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			out.Content = append(out.Content, Content{Type: "text", Text: v.Text})
			texts = append(texts, v.Text)
		case mcp.ImageContent:
			out.Content = append(out.Content, Content{Type: "image", Data: v.Data, MimeType: v.MIMEType})
		default:
			encoded, err := json.Marshal(c)
			if err == nil {
				out.Content = append(out.Content, Content{Type: "text", Text: string(encoded)})
			}
		}
	}
	if res.IsError {
		msg := strings.TrimSpace(strings.Join(texts, "\n"))
		if msg == "" {
			msg = "upstream tool reported an error"
		}
		return nil, errors.New(msg)
	}
	return out, nil
}
