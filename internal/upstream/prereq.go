package upstream

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lydakis/mcpbridge/internal/config"
)

type lookPathFunc func(file string) (string, error)

// checkRuntime fails fast when a stdio upstream's command, or the program an
// env(1) wrapper would exec, is missing from PATH.
func checkRuntime(ucfg config.UpstreamConfig, lookPath lookPathFunc) error {
	command := strings.TrimSpace(ucfg.Command)
	if command == "" {
		return nil
	}
	if _, err := lookPath(command); err != nil {
		return fmt.Errorf("required runtime %q not found in PATH", command)
	}
	if filepath.Base(command) != "env" {
		return nil
	}
	wrapped := envTarget(ucfg.Args)
	if wrapped == "" {
		return nil
	}
	if _, err := lookPath(wrapped); err != nil {
		return fmt.Errorf("required runtime %q not found in PATH", wrapped)
	}
	return nil
}

// envTarget returns the program env(1) would run given args, skipping
// options and KEY=value assignments.
func envTarget(args []string) string {
	for i := 0; i < len(args); i++ {
		token := strings.TrimSpace(args[i])
		switch {
		case token == "":
		case token == "--":
			return firstProgram(args[i+1:])
		case token == "-S" || token == "--split-string":
			if i+1 >= len(args) {
				return ""
			}
			i++
			if target := envTarget(strings.Fields(args[i])); target != "" {
				return target
			}
		case strings.HasPrefix(token, "-S="), strings.HasPrefix(token, "--split-string="):
			_, value, _ := strings.Cut(token, "=")
			if target := envTarget(strings.Fields(value)); target != "" {
				return target
			}
		case token == "-u" || token == "--unset" || token == "-C" || token == "--chdir":
			i++
		case strings.HasPrefix(token, "-"):
		case strings.Index(token, "=") > 0:
		default:
			return unquote(token)
		}
	}
	return ""
}

func firstProgram(args []string) string {
	for _, raw := range args {
		token := unquote(strings.TrimSpace(raw))
		if token == "" || strings.Index(token, "=") > 0 {
			continue
		}
		return token
	}
	return ""
}

func unquote(token string) string {
	if len(token) < 2 {
		return token
	}
	if q := token[0]; (q == '\'' || q == '"') && token[len(token)-1] == q {
		return token[1 : len(token)-1]
	}
	return token
}
