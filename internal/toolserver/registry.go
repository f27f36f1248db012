package toolserver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lydakis/mcpbridge/internal/backend"
)

// Kind selects one of the typed servers.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindSessions Kind = "sessions"
	KindMessage  Kind = "message"
	KindNodes    Kind = "nodes"
	KindBrowser  Kind = "browser"
	KindCanvas   Kind = "canvas"
)

var (
	ErrUnknownKind      = errors.New("unknown server type")
	ErrAgentIDRequired  = errors.New("agent id is required for the memory server")
	ErrRegistryRequired = errors.New("backend registry is required")
)

// Options carries the identity parameters some servers bind to.
type Options struct {
	AgentID    string
	SessionKey string
}

// Kinds returns every supported server type in a stable order.
func Kinds() []Kind {
	return []Kind{KindMemory, KindSessions, KindMessage, KindNodes, KindBrowser, KindCanvas}
}

// ParseKind validates a server-type tag.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.TrimSpace(raw))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownKind, raw, kindList())
}

func kindList() string {
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

// New builds the server for kind. Identity parameters are validated before
// the registry is asked for a backend.
func New(kind Kind, reg backend.Registry, opts Options) (Server, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if kind == KindMemory && strings.TrimSpace(opts.AgentID) == "" {
		return nil, ErrAgentIDRequired
	}
	if reg == nil {
		return nil, ErrRegistryRequired
	}

	switch kind {
	case KindMemory:
		return NewMemory(reg.Memory(strings.TrimSpace(opts.AgentID))), nil
	case KindSessions:
		return NewSessions(reg.Sessions()), nil
	case KindMessage:
		return NewMessage(reg.Message()), nil
	case KindNodes:
		return NewNodes(reg.Nodes(strings.TrimSpace(opts.SessionKey))), nil
	case KindBrowser:
		return NewBrowser(reg.Browser()), nil
	default:
		return NewCanvas(reg.Canvas()), nil
	}
}
