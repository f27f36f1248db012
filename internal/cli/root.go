// Package cli implements the mcpbridge command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/lydakis/mcpbridge/internal/backend"
	"github.com/lydakis/mcpbridge/internal/config"
	"github.com/lydakis/mcpbridge/internal/gateway"
	"github.com/lydakis/mcpbridge/internal/response"
	"github.com/lydakis/mcpbridge/internal/stdio"
	"github.com/lydakis/mcpbridge/internal/toolserver"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// newRegistry connects the typed servers to their backends.
func newRegistry(cfg config.GatewayConfig) (backend.Registry, error) {
	c, err := gateway.New(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Run is the main CLI entry point. Returns an exit code.
func Run(args []string) int {
	if handled, code := handleRootFlags(args); handled {
		return code
	}
	if len(args) == 0 {
		printRootHelp(rootStderr)
		return response.ExitUsageErr
	}

	switch args[0] {
	case "serve":
		return runServe(args[1:])
	case "tools":
		return runTools(args[1:])
	case "call":
		return runCall(args[1:])
	case "bridge":
		return runBridge(args[1:])
	case "init":
		return runInit(args[1:])
	}
	if strings.HasPrefix(args[0], "-") {
		// Launcher form: mcpbridge --server <type> ...
		return runServe(args)
	}
	fmt.Fprintf(rootStderr, "mcpbridge: unknown command: %s\n", args[0])
	printRootHelp(rootStderr)
	return response.ExitUsageErr
}

// serverFlags are shared by every command that hosts a typed server.
type serverFlags struct {
	server     string
	agentID    string
	sessionKey string
	configPath string
	verbose    bool
	help       bool
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(rootStderr)
	fs.Usage = func() {}
	fs.SortFlags = false
	return fs
}

func addCommonFlags(fs *pflag.FlagSet, configPath *string, verbose, help *bool) {
	fs.StringVar(configPath, "config", "", "config file (default "+config.ExampleConfigPath()+")")
	fs.BoolVarP(verbose, "verbose", "v", false, "log debug diagnostics to stderr")
	fs.BoolVarP(help, "help", "h", false, "show help")
}

func addServerFlags(fs *pflag.FlagSet, f *serverFlags) {
	fs.StringVar(&f.server, "server", "", "server type ("+serverTypes()+")")
	fs.StringVar(&f.agentID, "agent-id", "", "agent whose memory the memory server uses")
	fs.StringVar(&f.sessionKey, "session-key", "", "session the nodes server acts for")
	addCommonFlags(fs, &f.configPath, &f.verbose, &f.help)
}

// parseFlags parses args into fs. It returns handled=true with an exit code
// when parsing failed or help was requested.
func parseFlags(fs *pflag.FlagSet, args []string, usage string, help *bool) (bool, int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printCommandHelp(rootStdout, usage, fs)
			return true, response.ExitOK
		}
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return true, response.ExitUsageErr
	}
	if *help {
		printCommandHelp(rootStdout, usage, fs)
		return true, response.ExitOK
	}
	return false, 0
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(server string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return stdio.NewLogger(rootStderr, server, level)
}

// openSession builds the typed server selected by f. Every failure here is a
// usage or configuration problem.
func openSession(f serverFlags) (*stdio.Session, error) {
	if strings.TrimSpace(f.server) == "" {
		return nil, errors.New("--server is required (" + serverTypes() + ")")
	}
	if _, err := toolserver.ParseKind(f.server); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	reg, err := newRegistry(cfg.Gateway)
	if err != nil {
		return nil, err
	}
	return stdio.Open(stdio.Options{
		Server:     f.server,
		AgentID:    f.agentID,
		SessionKey: f.sessionKey,
		Version:    buildVersion,
		Logger:     newLogger(strings.TrimSpace(f.server), f.verbose),
	}, reg)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), shutdownSignals()...)
}

// warnIfTerminal tells a human who ran a serving command by hand what it
// expects on stdin.
func warnIfTerminal() {
	f, ok := rootStdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return
	}
	fmt.Fprintln(rootStderr, "mcpbridge: stdin is a terminal; expecting newline-delimited JSON-RPC from an MCP client (Ctrl-D to quit)")
}

// serveExitCode maps the end of a serve loop to an exit code.
func serveExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return response.ExitOK
	default:
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return response.ExitInternal
	}
}
