package config

import (
	"strings"
	"time"
)

// DefaultGatewayURL is used when no gateway URL is configured.
const DefaultGatewayURL = "http://127.0.0.1:18789"

// DefaultGatewayTimeout bounds a single gateway RPC when none is configured.
const DefaultGatewayTimeout = 30 * time.Second

// Config is the top-level mcpbridge configuration.
type Config struct {
	Gateway   GatewayConfig             `toml:"gateway"`
	Upstreams map[string]UpstreamConfig `toml:"upstreams"`
	// ImportFrom lists mcpServers JSON documents whose servers are used as
	// upstreams when none are configured here.
	ImportFrom []string `toml:"import_from,omitempty"`
}

// GatewayConfig locates the gateway RPC endpoint behind the typed servers.
type GatewayConfig struct {
	URL     string            `toml:"url"`
	Token   string            `toml:"token,omitempty"`
	Timeout string            `toml:"timeout,omitempty"`
	Headers map[string]string `toml:"headers,omitempty"`
}

// TimeoutDuration returns the parsed timeout, or the default when unset or
// unparsable. Validate reports bad values.
func (g GatewayConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(g.Timeout))
	if err != nil || d <= 0 {
		return DefaultGatewayTimeout
	}
	return d
}

// UpstreamConfig describes how to reach one upstream MCP server.
type UpstreamConfig struct {
	// Stdio transport
	Command string            `toml:"command,omitempty"`
	Args    []string          `toml:"args,omitempty"`
	Env     map[string]string `toml:"env,omitempty"`

	// HTTP transport
	URL     string            `toml:"url,omitempty"`
	Headers map[string]string `toml:"headers,omitempty"`
}

// IsStdio returns true if the upstream uses stdio transport.
func (u UpstreamConfig) IsStdio() bool {
	return u.Command != ""
}

// IsHTTP returns true if the upstream uses HTTP transport.
func (u UpstreamConfig) IsHTTP() bool {
	return u.URL != ""
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Gateway:   GatewayConfig{URL: DefaultGatewayURL},
		Upstreams: make(map[string]UpstreamConfig),
	}
}
