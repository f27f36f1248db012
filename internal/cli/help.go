package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/lydakis/mcpbridge/internal/config"
	"github.com/lydakis/mcpbridge/internal/toolserver"
	"github.com/spf13/pflag"
)

func serverTypes() string {
	kinds := toolserver.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, "|")
}

func printRootHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  mcpbridge --server <%s> [--agent-id ID] [--session-key KEY]\n", serverTypes())
	fmt.Fprintln(out, "  mcpbridge serve --server <type> [FLAGS]")
	fmt.Fprintln(out, "  mcpbridge tools --server <type> [--json]")
	fmt.Fprintln(out, "  mcpbridge call --server <type> [FLAGS] <tool> [JSON_ARGS]")
	fmt.Fprintln(out, "  mcpbridge bridge [--upstream NAME]...")
	fmt.Fprintln(out, "  mcpbridge init [--force]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Serving commands speak MCP over stdin/stdout, one JSON-RPC message per line.")
	fmt.Fprintln(out, "Diagnostics go to stderr.")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Global flags:")
	fmt.Fprintln(out, "  --help, -h       Show help")
	fmt.Fprintln(out, "  --version, -V    Show version")
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "Config: %s\n", config.ExampleConfigPath())
}

func printCommandHelp(out io.Writer, usage string, fs *pflag.FlagSet) {
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", usage)
	fmt.Fprint(out, fs.FlagUsages())
}
