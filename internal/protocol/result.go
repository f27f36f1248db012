package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// collectionKeys are the list-shaped result fields rendered as a bare array.
var collectionKeys = []string{"results", "sessions", "messages"}

// toolResult maps a domain result object onto MCP content.
func toolResult(v any) *mcp.CallToolResult {
	switch r := v.(type) {
	case *mcp.CallToolResult:
		if r != nil {
			return r
		}
		return jsonResult(nil)
	case mcp.CallToolResult:
		return &r
	}

	generic, err := normalize(v)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: encoding tool result: %v", err))
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		return jsonResult(generic)
	}

	if msg, ok := obj["error"].(string); ok && msg != "" {
		return errorResult(msg)
	}
	for _, key := range collectionKeys {
		if list, ok := obj[key].([]any); ok {
			return jsonResult(list)
		}
	}
	if okValue, present := obj["ok"]; present {
		if okValue != true {
			return errorResult("Failed")
		}
		res := textResult("Success")
		if payload, ok := obj["result"]; ok && payload != nil {
			res.Content = append(res.Content, mcp.NewTextContent(prettyJSON(payload)))
		}
		return res
	}
	return jsonResult(obj)
}

// normalize round-trips v through JSON so typed results and plain maps are
// inspected the same way. Numbers stay json.Number to keep their text.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func prettyJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}
}

func jsonResult(v any) *mcp.CallToolResult {
	return textResult(prettyJSON(v))
}

func errorResult(text string) *mcp.CallToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}
