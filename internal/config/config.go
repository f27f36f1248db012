package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lydakis/mcpbridge/internal/paths"
)

// Environment overrides applied after the file is read.
const (
	EnvGatewayURL   = "MCPBRIDGE_GATEWAY_URL"
	EnvGatewayToken = "MCPBRIDGE_GATEWAY_TOKEN"
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the config file at the default location.
// If the file does not exist, it returns Default() (no error).
func Load() (*Config, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a config file at the given path, expands
// ${VAR} placeholders and applies environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if cfg.Upstreams == nil {
		cfg.Upstreams = make(map[string]UpstreamConfig)
	}
	expandConfigEnvVars(cfg)
	applyEnvOverrides(cfg)
	if strings.TrimSpace(cfg.Gateway.URL) == "" {
		cfg.Gateway.URL = DefaultGatewayURL
	}
	return cfg, nil
}

// ExampleConfigPath returns the default config file path (for help messages).
func ExampleConfigPath() string {
	return paths.ConfigFile()
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvGatewayURL)); v != "" {
		cfg.Gateway.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGatewayToken)); v != "" {
		cfg.Gateway.Token = v
	}
}

func expandConfigEnvVars(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Gateway.URL = expandEnvVars(cfg.Gateway.URL)
	cfg.Gateway.Token = expandEnvVars(cfg.Gateway.Token)
	cfg.Gateway.Timeout = expandEnvVars(cfg.Gateway.Timeout)
	for k, v := range cfg.Gateway.Headers {
		cfg.Gateway.Headers[k] = expandEnvVars(v)
	}
	for i := range cfg.ImportFrom {
		cfg.ImportFrom[i] = expandEnvVars(cfg.ImportFrom[i])
	}
	for name, up := range cfg.Upstreams {
		cfg.Upstreams[name] = expandUpstreamEnvVars(up)
	}
}

func expandUpstreamEnvVars(up UpstreamConfig) UpstreamConfig {
	up.Command = expandEnvVars(up.Command)
	up.URL = expandEnvVars(up.URL)

	for i := range up.Args {
		up.Args[i] = expandEnvVars(up.Args[i])
	}
	for k, v := range up.Env {
		up.Env[k] = expandEnvVars(v)
	}
	for k, v := range up.Headers {
		up.Headers[k] = expandEnvVars(v)
	}
	return up
}

// expandEnvVars replaces ${VAR_NAME} with the value of the environment variable.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match // leave unresolved vars as-is
	})
}
