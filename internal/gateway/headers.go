package gateway

import (
	"net/http"
	"sort"
	"strings"

	"github.com/lydakis/mcpbridge/internal/config"
)

// requestHeader builds the header set sent with every RPC call. Configured
// names are canonicalized, so spellings that differ only in case collapse to
// one entry and the lexically last spelling wins. The token is sent as a
// bearer Authorization header unless one is configured.
func requestHeader(cfg config.GatewayConfig) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")

	names := make([]string, 0, len(cfg.Headers))
	for name := range cfg.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if key := strings.TrimSpace(name); key != "" {
			h.Set(key, cfg.Headers[name])
		}
	}

	if token := strings.TrimSpace(cfg.Token); token != "" && h.Get("Authorization") == "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
