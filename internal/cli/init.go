package cli

import (
	"fmt"
	"os"

	"github.com/lydakis/mcpbridge/internal/config"
	"github.com/lydakis/mcpbridge/internal/response"
)

func runInit(args []string) int {
	var (
		configPath string
		force      bool
		verbose    bool
		help       bool
	)
	fs := newFlagSet("init")
	addCommonFlags(fs, &configPath, &verbose, &help)
	fs.BoolVar(&force, "force", false, "overwrite an existing config")
	if handled, code := parseFlags(fs, args, "mcpbridge init [--config PATH] [--force]", &help); handled {
		return code
	}

	path := configPath
	if path == "" {
		path = config.ExampleConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(rootStderr, "mcpbridge: %s already exists (use --force to overwrite)\n", path)
		return response.ExitUsageErr
	}

	if err := config.SaveTo(path, starterConfig()); err != nil {
		fmt.Fprintf(rootStderr, "mcpbridge: %v\n", err)
		return response.ExitInternal
	}
	fmt.Fprintf(rootStdout, "wrote %s\n", path)
	return response.ExitOK
}

func starterConfig() *config.Config {
	cfg := config.Default()
	cfg.Gateway.Token = "${OPENCLAW_GATEWAY_TOKEN}"
	cfg.Gateway.Timeout = config.DefaultGatewayTimeout.String()
	return cfg
}
