package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lydakis/mcpbridge/internal/toolserver"
)

func writeToolList(w io.Writer, tools []toolserver.Descriptor, mode outputMode) error {
	if mode.isJSON() {
		if tools == nil {
			tools = []toolserver.Descriptor{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tools); err != nil {
			return fmt.Errorf("writing tool list output: %w", err)
		}
		return nil
	}
	return writeToolListText(w, tools)
}

func writeToolListText(w io.Writer, tools []toolserver.Descriptor) error {
	for _, tool := range tools {
		name := strings.TrimSpace(tool.Name)
		if name == "" {
			continue
		}
		line := name
		if desc := strings.TrimSpace(tool.Description); desc != "" {
			line += "\t" + firstLine(desc)
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("writing tool list output: %w", err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
