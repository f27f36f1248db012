package cli

import (
	"fmt"

	"github.com/lydakis/mcpbridge/internal/response"
)

func runServe(args []string) int {
	var f serverFlags
	fs := newFlagSet("serve")
	addServerFlags(fs, &f)
	if handled, code := parseFlags(fs, args, "mcpbridge serve --server <type> [FLAGS]", &f.help); handled {
		return code
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(rootStderr, "mcpbridge: unexpected argument: %s\n", fs.Arg(0))
		return response.ExitUsageErr
	}

	session, err := openSession(f)
	if err != nil {
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return response.ExitUsageErr
	}

	warnIfTerminal()
	ctx, stop := signalContext()
	defer stop()
	return serveExitCode(session.Serve(ctx, rootStdin, rootStdout))
}

func runTools(args []string) int {
	var (
		f       serverFlags
		jsonOut bool
	)
	fs := newFlagSet("tools")
	addServerFlags(fs, &f)
	fs.BoolVar(&jsonOut, "json", false, "print descriptors as JSON")
	if handled, code := parseFlags(fs, args, "mcpbridge tools --server <type> [--json]", &f.help); handled {
		return code
	}

	session, err := openSession(f)
	if err != nil {
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return response.ExitUsageErr
	}
	if err := writeToolList(rootStdout, session.Server().ListTools(), outputModeFor(jsonOut)); err != nil {
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return response.ExitInternal
	}
	return response.ExitOK
}
