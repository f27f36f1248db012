// Package stdio serves a protocol engine over newline-delimited JSON.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lydakis/mcpbridge/internal/backend"
	"github.com/lydakis/mcpbridge/internal/protocol"
	"github.com/lydakis/mcpbridge/internal/toolserver"
)

// MaxLineBytes bounds a single request line.
const MaxLineBytes = 16 << 20

// Handler answers decoded requests. *protocol.Engine implements it.
type Handler interface {
	HandleRequest(ctx context.Context, payload any) *protocol.Response
	HandleInvalidJSON(raw string) *protocol.Response
}

// Options selects and configures a typed server.
type Options struct {
	Server     string
	AgentID    string
	SessionKey string
	Version    string
	// Logger defaults to a stderr logger tagged with the server type.
	Logger *slog.Logger
}

// Session is one typed server bound to its engine.
type Session struct {
	kind   toolserver.Kind
	server toolserver.Server
	engine *protocol.Engine
	logger *slog.Logger
}

// Open validates opts and builds the server for opts.Server. Configuration
// errors surface here, before any input is read.
func Open(opts Options, reg backend.Registry) (*Session, error) {
	kind, err := toolserver.ParseKind(opts.Server)
	if err != nil {
		return nil, err
	}
	server, err := toolserver.New(kind, reg, toolserver.Options{
		AgentID:    opts.AgentID,
		SessionKey: opts.SessionKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%s server: %w", kind, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(os.Stderr, string(kind), slog.LevelInfo)
	}
	engine := protocol.New(server, protocol.ServerInfo{
		Name:    "mcpbridge-" + string(kind),
		Version: opts.Version,
	}, protocol.WithLogger(logger))

	return &Session{kind: kind, server: server, engine: engine, logger: logger}, nil
}

// Kind returns the selected server type.
func (s *Session) Kind() toolserver.Kind { return s.kind }

// Server returns the typed tool server.
func (s *Session) Server() toolserver.Server { return s.server }

// Engine returns the session's protocol engine.
func (s *Session) Engine() *protocol.Engine { return s.engine }

// Serve runs the read loop until in is exhausted or ctx is cancelled.
func (s *Session) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving", "server", s.kind)
	err := Serve(ctx, s.engine, in, out, s.logger)
	s.logger.Info("stopped", "server", s.kind, "initialized", s.engine.IsInitialized())
	return err
}

// Serve reads one request per line from in and writes one response per
// line to out. Blank lines are skipped and notifications produce no output.
// It returns nil at end of input.
func Serve(ctx context.Context, h Handler, in io.Reader, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), MaxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("reading requests: %w", err)
					}
				default:
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				logger.Debug("input closed")
				return nil
			}
			resp := handleLine(ctx, h, line, logger)
			if resp == nil {
				continue
			}
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
		}
	}
}

func handleLine(ctx context.Context, h Handler, line []byte, logger *slog.Logger) *protocol.Response {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil
	}
	payload, err := decodeLine(trimmed)
	if err != nil {
		logger.Warn("invalid json", "error", err)
		return h.HandleInvalidJSON(string(trimmed))
	}
	return h.HandleRequest(ctx, payload)
}

var errTrailingData = errors.New("unexpected data after JSON value")

// decodeLine parses exactly one JSON value, keeping numbers as json.Number
// so request ids are echoed verbatim.
func decodeLine(line []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}

// NewLogger returns a text logger on w whose every line starts with
// "[mcp:<server>] ".
func NewLogger(w io.Writer, server string, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(&prefixWriter{
		w:      w,
		prefix: []byte("[mcp:" + strings.TrimSpace(server) + "] "),
	}, &slog.HandlerOptions{Level: level}))
}

// prefixWriter relies on slog handlers emitting one record per Write.
type prefixWriter struct {
	w      io.Writer
	prefix []byte
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	buf := make([]byte, 0, len(p.prefix)+len(b))
	buf = append(buf, p.prefix...)
	buf = append(buf, b...)
	if _, err := p.w.Write(buf); err != nil {
		return 0, err
	}
	return len(b), nil
}
