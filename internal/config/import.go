package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type mcpServersDoc struct {
	MCPServers map[string]importedServer `json:"mcpServers"`
	Servers    map[string]importedServer `json:"servers"`
}

type importedServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// ImportUpstreams fills cfg.Upstreams from the mcpServers documents named in
// cfg.ImportFrom. It does nothing when upstreams are already configured.
// Missing files are skipped; names seen earlier win.
func ImportUpstreams(cfg *Config) error {
	if cfg == nil || len(cfg.Upstreams) > 0 || len(cfg.ImportFrom) == 0 {
		return nil
	}
	if cfg.Upstreams == nil {
		cfg.Upstreams = make(map[string]UpstreamConfig)
	}
	for _, path := range cfg.ImportFrom {
		servers, err := readMCPServers(expandHome(path))
		if err != nil {
			return err
		}
		for name, srv := range servers {
			if _, exists := cfg.Upstreams[name]; exists {
				continue
			}
			cfg.Upstreams[name] = expandUpstreamEnvVars(UpstreamConfig{
				Command: srv.Command,
				Args:    srv.Args,
				Env:     srv.Env,
				URL:     srv.URL,
				Headers: srv.Headers,
			})
		}
	}
	return nil
}

func readMCPServers(path string) (map[string]importedServer, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc mcpServersDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(doc.MCPServers) > 0 {
		return doc.MCPServers, nil
	}
	return doc.Servers, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
