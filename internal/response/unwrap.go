// Package response renders tool results for the terminal.
package response

import (
	"encoding/base64"
	"encoding/json"
	"mime"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Process exit codes shared by the CLI.
const (
	ExitOK       = 0
	ExitToolErr  = 1
	ExitUsageErr = 2
	ExitInternal = 3
)

const tempPrefix = "mcpbridge"

// Unwrap extracts printable output from a CallToolResult.
// Returns the output bytes and an exit code.
func Unwrap(result *mcp.CallToolResult) ([]byte, int) {
	if result == nil {
		return nil, ExitInternal
	}

	exitCode := ExitOK
	if result.IsError {
		exitCode = ExitToolErr
	}

	if result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			return ensureTrailingNewline(data), exitCode
		}
	}

	var parts []string
	for _, content := range result.Content {
		if rendered, ok := renderContent(content); ok {
			parts = append(parts, rendered)
			continue
		}
		if raw, err := json.Marshal(content); err == nil {
			parts = append(parts, string(raw))
		}
	}
	if len(parts) == 0 {
		return nil, exitCode
	}
	return ensureTrailingNewline([]byte(strings.Join(parts, "\n"))), exitCode
}

// wireContent is the JSON shape shared by every content block.
type wireContent struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
	Resource *struct {
		Text     string `json:"text"`
		Blob     string `json:"blob"`
		MIMEType string `json:"mimeType"`
	} `json:"resource"`
}

// renderContent prints text inline and spills binary payloads to temp files,
// printing their paths.
func renderContent(content mcp.Content) (string, bool) {
	if text, ok := mcp.AsTextContent(content); ok {
		return text.Text, true
	}

	var c wireContent
	raw, err := json.Marshal(content)
	if err != nil || json.Unmarshal(raw, &c) != nil {
		return "", false
	}
	switch c.Type {
	case "text":
		return c.Text, true
	case "image", "audio":
		return spill(writeTempBase64(c.Type, c.MIMEType, c.Data))
	case "resource":
		if c.Resource == nil {
			return "", false
		}
		if c.Resource.Text != "" {
			return spill(writeTempFile("resource", c.Resource.MIMEType, []byte(c.Resource.Text)))
		}
		if c.Resource.Blob != "" {
			return spill(writeTempBase64("resource", c.Resource.MIMEType, c.Resource.Blob))
		}
	}
	return "", false
}

func spill(path string, err error) (string, bool) {
	if err != nil {
		return "", false
	}
	return path, true
}

func writeTempBase64(kind, mimeType, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return writeTempFile(kind, mimeType, data)
}

func writeTempFile(kind, mimeType string, data []byte) (string, error) {
	f, err := os.CreateTemp("", tempPrefix+"-"+kind+"-*"+extForMIMEType(mimeType))
	if err != nil {
		return "", err
	}

	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func extForMIMEType(mimeType string) string {
	mimeType = strings.TrimSpace(strings.ToLower(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType != "" {
		if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
			return exts[0]
		}
		if strings.HasPrefix(mimeType, "text/") {
			return ".txt"
		}
		if strings.Contains(mimeType, "json") {
			return ".json"
		}
	}
	return ".bin"
}

func ensureTrailingNewline(out []byte) []byte {
	if len(out) == 0 || out[len(out)-1] == '\n' {
		return out
	}
	return append(out, '\n')
}
