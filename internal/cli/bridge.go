package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lydakis/mcpbridge/internal/bridge"
	"github.com/lydakis/mcpbridge/internal/config"
	"github.com/lydakis/mcpbridge/internal/paths"
	"github.com/lydakis/mcpbridge/internal/protocol"
	"github.com/lydakis/mcpbridge/internal/response"
	"github.com/lydakis/mcpbridge/internal/stdio"
	"github.com/lydakis/mcpbridge/internal/upstream"
)

// signalsReport is what a bridge run leaves behind for the host.
type signalsReport struct {
	ToolsUsed      []string        `json:"toolsUsed"`
	SentTexts      []string        `json:"sentTexts"`
	SentTargets    []bridge.Target `json:"sentTargets"`
	DidSendMessage bool            `json:"didSendMessage"`
	FinishedAt     time.Time       `json:"finishedAt"`
}

func runBridge(args []string) int {
	var (
		configPath  string
		upstreams   []string
		signalsFile string
		verbose     bool
		help        bool
	)
	fs := newFlagSet("bridge")
	fs.StringSliceVar(&upstreams, "upstream", nil, "upstream to expose (repeatable, default all)")
	fs.StringVar(&signalsFile, "signals-file", paths.SignalsFile(), "where to record messaging signals on exit (empty to skip)")
	addCommonFlags(fs, &configPath, &verbose, &help)
	if handled, code := parseFlags(fs, args, "mcpbridge bridge [--upstream NAME]... [FLAGS]", &help); handled {
		return code
	}

	cfg, err := loadConfig(configPath)
	if err == nil {
		err = config.ImportUpstreams(cfg)
	}
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return response.ExitUsageErr
	}
	for _, name := range upstreams {
		if _, ok := cfg.Upstreams[name]; !ok {
			fmt.Fprintf(rootStderr, "mcpbridge: unknown upstream: %s\n", name)
			return response.ExitUsageErr
		}
	}

	logger := newLogger(bridge.DefaultName, verbose)
	pool := upstream.New(cfg.Upstreams, upstream.WithClientInfo("mcpbridge", buildVersion))
	defer pool.CloseAll()
	if len(upstreams) == 0 {
		upstreams = pool.Names()
	}

	ctx, stop := signalContext()
	defer stop()

	tools := collectUpstreamTools(ctx, pool, upstreams, logger)
	signals := bridge.NewSignals()
	catalog := bridge.NewCatalog(tools, signals, bridge.WithLogger(logger))
	engine := protocol.New(catalog, protocol.ServerInfo{
		Name:    "mcpbridge-" + catalog.Name(),
		Version: buildVersion,
	}, protocol.WithLogger(logger))

	warnIfTerminal()
	logger.Info("serving", "server", catalog.Name(), "tools", catalog.Len())
	err = stdio.Serve(ctx, engine, rootStdin, rootStdout, logger)
	logger.Info("stopped",
		"server", catalog.Name(),
		"tools_used", len(signals.ToolsUsed()),
		"sent_message", signals.DidSendMessage(),
	)

	if signalsFile != "" {
		if werr := writeSignals(signalsFile, signals); werr != nil {
			logger.Warn("recording signals failed", "error", werr)
		}
	}
	return serveExitCode(err)
}

// collectUpstreamTools lists every selected upstream. An upstream that fails
// to list is left out rather than failing the whole bridge.
func collectUpstreamTools(ctx context.Context, src bridge.UpstreamSource, names []string, logger *slog.Logger) []bridge.Tool {
	var tools []bridge.Tool
	for _, name := range names {
		listed, err := bridge.UpstreamTools(ctx, src, name)
		if err != nil {
			logger.Warn("skipping upstream", "upstream", name, "error", err)
			continue
		}
		logger.Debug("upstream ready", "upstream", name, "tools", len(listed))
		tools = append(tools, listed...)
	}
	return tools
}

func writeSignals(path string, s *bridge.Signals) error {
	report := signalsReport{
		ToolsUsed:      nonNil(s.ToolsUsed()),
		SentTexts:      nonNil(s.SentTexts()),
		SentTargets:    s.SentTargets(),
		DidSendMessage: s.DidSendMessage(),
		FinishedAt:     time.Now().UTC(),
	}
	if report.SentTargets == nil {
		report.SentTargets = []bridge.Target{}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding signals: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing signals: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
