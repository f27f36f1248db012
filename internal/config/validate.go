package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Validate checks configuration invariants and returns actionable errors.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var errs []error
	errs = append(errs, validateGateway(cfg.Gateway)...)

	names := make([]string, 0, len(cfg.Upstreams))
	for name := range cfg.Upstreams {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		errs = append(errs, validateUpstream(name, cfg.Upstreams[name])...)
	}

	return errors.Join(errs...)
}

func validateGateway(gw GatewayConfig) []error {
	var errs []error
	if strings.TrimSpace(gw.URL) != "" {
		if _, err := url.ParseRequestURI(gw.URL); err != nil {
			errs = append(errs, fmt.Errorf("gateway.url: invalid URL %q: %w", gw.URL, err))
		}
	}
	if gw.Timeout != "" {
		d, err := time.ParseDuration(gw.Timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("gateway.timeout: invalid duration %q: %w", gw.Timeout, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("gateway.timeout: must be > 0, got %q", gw.Timeout))
		}
	}
	return errs
}

func validateUpstream(name string, up UpstreamConfig) []error {
	var errs []error

	if strings.Contains(name, "__") {
		errs = append(errs, fmt.Errorf("upstreams.%s: name must not contain \"__\"", name))
	}

	hasCommand := strings.TrimSpace(up.Command) != ""
	hasURL := strings.TrimSpace(up.URL) != ""

	switch {
	case hasCommand && hasURL:
		errs = append(errs, fmt.Errorf("upstreams.%s: configure either command (stdio) or url (http), not both", name))
	case !hasCommand && !hasURL:
		errs = append(errs, fmt.Errorf("upstreams.%s: missing transport, set command (stdio) or url (http)", name))
	}

	if hasURL {
		if _, err := url.ParseRequestURI(up.URL); err != nil {
			errs = append(errs, fmt.Errorf("upstreams.%s.url: invalid URL %q: %w", name, up.URL, err))
		}
	}

	return errs
}
