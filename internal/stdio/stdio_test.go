package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/lydakis/mcpbridge/internal/backend"
	"github.com/lydakis/mcpbridge/internal/toolserver"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

type memoryStub struct{ queries []string }

func (m *memoryStub) Search(_ context.Context, query string, _ backend.SearchOptions) ([]backend.SearchResult, error) {
	m.queries = append(m.queries, query)
	return []backend.SearchResult{{Path: "MEMORY.md", StartLine: 1, EndLine: 2, Score: 0.95, Snippet: "test"}}, nil
}

func (m *memoryStub) Remember(context.Context, string, backend.RememberOptions) (backend.WriteResult, error) {
	return backend.WriteResult{OK: true}, nil
}

func (m *memoryStub) Forget(context.Context, string) (backend.WriteResult, error) {
	return backend.WriteResult{OK: true}, nil
}

type invokerStub struct{ actions []string }

func (i *invokerStub) Invoke(_ context.Context, action string, _ map[string]any) (backend.InvokeResult, error) {
	i.actions = append(i.actions, action)
	return backend.InvokeResult{OK: true}, nil
}

type registryStub struct {
	memory  *memoryStub
	invoker *invokerStub
	touched int
}

func newRegistryStub() *registryStub {
	return &registryStub{memory: &memoryStub{}, invoker: &invokerStub{}}
}

func (r *registryStub) Memory(string) backend.Memory { r.touched++; return r.memory }
func (r *registryStub) Sessions() backend.Sessions { r.touched++; return nil }
func (r *registryStub) Message() backend.Message { r.touched++; return nil }
func (r *registryStub) Nodes(string) backend.Invoker { r.touched++; return r.invoker }
func (r *registryStub) Browser() backend.Invoker { r.touched++; return r.invoker }
func (r *registryStub) Canvas() backend.Invoker { r.touched++; return r.invoker }

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func readLines(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var got []map[string]any
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("output line %q is not JSON: %v", sc.Text(), err)
		}
		got = append(got, m)
	}
	return got
}

func TestOpenRejectsUnknownServer(t *testing.T) {
	reg := newRegistryStub()
	_, err := Open(Options{Server: "weather", Logger: quietLogger()}, reg)
	if !errors.Is(err, toolserver.ErrUnknownKind) {
		t.Fatalf("Open(weather) error = %v, want ErrUnknownKind", err)
	}
	if reg.touched != 0 {
		t.Fatalf("registry touched %d times before validation", reg.touched)
	}
}

func TestOpenMemoryRequiresAgentID(t *testing.T) {
	_, err := Open(Options{Server: "memory", Logger: quietLogger()}, newRegistryStub())
	if !errors.Is(err, toolserver.ErrAgentIDRequired) {
		t.Fatalf("Open(memory) error = %v, want ErrAgentIDRequired", err)
	}
}

func TestServeSequence(t *testing.T) {
	s, err := Open(Options{Server: "memory", AgentID: "main", Version: "test", Logger: quietLogger()}, newRegistryStub())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
		``,
		`   `,
		`{"jsonrpc":"2.0","id":2,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{not json`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"mcp__memory__recall","arguments":{"query":"test"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"ping"} trailing`,
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	got := readLines(t, &out)
	if len(got) != 5 {
		t.Fatalf("responses = %d, want 5: %v", len(got), got)
	}

	wantCodes := []float64{-32002, 0, -32700, 0, -32700}
	for i, want := range wantCodes {
		errObj, isErr := got[i]["error"].(map[string]any)
		switch {
		case want == 0 && isErr:
			t.Fatalf("response %d error = %v, want result", i, errObj)
		case want != 0 && (!isErr || errObj["code"] != want):
			t.Fatalf("response %d = %v, want error %v", i, got[i], want)
		}
	}
	if name := got[1]["result"].(map[string]any)["serverInfo"].(map[string]any)["name"]; name != "mcpbridge-memory" {
		t.Fatalf("serverInfo.name = %v, want mcpbridge-memory", name)
	}
	content := got[3]["result"].(map[string]any)["content"].([]any)
	if text := content[0].(map[string]any)["text"].(string); !strings.Contains(text, `"score": 0.95`) {
		t.Fatalf("recall text = %q", text)
	}
	if !s.Engine().IsInitialized() {
		t.Fatal("IsInitialized() = false after handshake")
	}
}

func TestServeWritesNothingForNotifications(t *testing.T) {
	s, err := Open(Options{Server: "browser", Logger: quietLogger()}, newRegistryStub())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	in := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" + `{"method":"whatever","params":7}` + "\n"
	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("stdout = %q, want empty", out.String())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s, err := Open(Options{Server: "canvas", Logger: quietLogger()}, newRegistryStub())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, pr, io.Discard) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestServeWriteErrorReleasesReader(t *testing.T) {
	s, err := Open(Options{Server: "canvas", Logger: quietLogger()}, newRegistryStub())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	in := strings.Repeat(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n", 4)

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		err := s.Serve(context.Background(), strings.NewReader(in), failingWriter{})
		if err == nil || !strings.Contains(err.Error(), "writing response") {
			t.Fatalf("Serve() error = %v, want write failure", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before+2 {
		if time.Now().After(deadline) {
			t.Fatalf("goroutines = %d after Serve returned, started with %d", runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServeRejectsOversizedLine(t *testing.T) {
	s, err := Open(Options{Server: "nodes", Logger: quietLogger()}, newRegistryStub())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	line := strings.Repeat("x", MaxLineBytes+1)
	err = s.Serve(context.Background(), strings.NewReader(line), io.Discard)
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("Serve() error = %v, want bufio.ErrTooLong", err)
	}
}

func TestLoggerPrefixesEveryLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "sessions", slog.LevelDebug)
	logger.Info("first")
	logger.Debug("second", "k", "v")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %q, want 2", lines)
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "[mcp:sessions] ") {
			t.Fatalf("log line %q lacks prefix", l)
		}
	}
}

func TestMCPClientOverPipes(t *testing.T) {
	reg := newRegistryStub()
	s, err := Open(Options{Server: "memory", AgentID: "main", Version: "test", Logger: quietLogger()}, reg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	serverIn, clientOut := io.Pipe()
	clientIn, serverOut := io.Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	served := make(chan error, 1)
	go func() {
		err := s.Serve(ctx, serverIn, serverOut)
		serverOut.Close()
		served <- err
	}()

	c := client.NewClient(transport.NewIO(clientIn, clientOut, nil))
	if err := c.Start(ctx); err != nil {
		t.Fatalf("client Start() error = %v", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "stdio-test", Version: "0"}
	initRes, err := c.Initialize(ctx, initReq)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if initRes.ServerInfo.Name != "mcpbridge-memory" {
		t.Fatalf("server name = %q", initRes.ServerInfo.Name)
	}

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools.Tools) != 3 || tools.Tools[0].Name != "memory__recall" {
		t.Fatalf("tools = %+v", tools.Tools)
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = "memory__recall"
	callReq.Params.Arguments = map[string]any{"query": "test"}
	res, err := c.CallTool(ctx, callReq)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.IsError || len(res.Content) != 1 {
		t.Fatalf("CallTool() = %+v", res)
	}
	text, ok := mcp.AsTextContent(res.Content[0])
	if !ok || !strings.Contains(text.Text, "MEMORY.md") {
		t.Fatalf("content = %#v", res.Content[0])
	}
	if len(reg.memory.queries) != 1 || reg.memory.queries[0] != "test" {
		t.Fatalf("queries = %v", reg.memory.queries)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("client Close() error = %v", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-ctx.Done():
		t.Fatal("Serve() did not return after client closed")
	}
}
