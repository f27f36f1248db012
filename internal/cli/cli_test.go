package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lydakis/mcpbridge/internal/config"
	"github.com/lydakis/mcpbridge/internal/response"
)

// testIO swaps the root streams for buffers and isolates config/state dirs.
func testIO(t *testing.T, stdin string) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	oldIn, oldOut, oldErr := rootStdin, rootStdout, rootStderr
	t.Cleanup(func() {
		rootStdin, rootStdout, rootStderr = oldIn, oldOut, oldErr
	})

	var out, errOut bytes.Buffer
	rootStdin = strings.NewReader(stdin)
	rootStdout = &out
	rootStderr = &errOut

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv(config.EnvGatewayURL, "")
	t.Setenv(config.EnvGatewayToken, "")
	return &out, &errOut
}

type gatewayCall struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type testGateway struct {
	mu    sync.Mutex
	calls []gatewayCall
}

func (g *testGateway) methods() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	for i, c := range g.calls {
		out[i] = c.Method
	}
	return out
}

func startGateway(t *testing.T) (*testGateway, string) {
	t.Helper()
	g := &testGateway{}
	r := chi.NewRouter()
	r.Post("/rpc", func(w http.ResponseWriter, req *http.Request) {
		var call gatewayCall
		if err := json.NewDecoder(req.Body).Decode(&call); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g.mu.Lock()
		g.calls = append(g.calls, call)
		g.mu.Unlock()

		switch call.Method {
		case "memory.search":
			_, _ = io.WriteString(w, `{"ok":true,"result":{"results":[{"path":"MEMORY.md","startLine":1,"endLine":2,"score":0.95,"snippet":"test"}]}}`)
		default:
			_, _ = io.WriteString(w, `{"ok":false,"error":{"code":"UNSUPPORTED","message":"unsupported"}}`)
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return g, srv.URL
}

func writeTestConfig(t *testing.T, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func gatewayConfig(t *testing.T, url string) string {
	return writeTestConfig(t, "[gateway]\nurl = \""+url+"\"\n")
}

func outputLines(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var got []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(out.Bytes()))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("stdout line %q is not JSON: %v", sc.Text(), err)
		}
		got = append(got, m)
	}
	return got
}

const handshake = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}
{"jsonrpc":"2.0","method":"notifications/initialized"}
`

func TestRunVersion(t *testing.T) {
	oldVersion := buildVersion
	defer func() { buildVersion = oldVersion }()
	buildVersion = "1.2.3"
	out, errOut := testIO(t, "")

	if code := Run([]string{"--version"}); code != response.ExitOK {
		t.Fatalf("code = %d, want 0", code)
	}
	if out.String() != "mcpbridge 1.2.3\n" {
		t.Fatalf("output = %q", out.String())
	}
	if errOut.Len() != 0 {
		t.Fatalf("stderr = %q, want empty", errOut.String())
	}
}

func TestRunHelp(t *testing.T) {
	out, _ := testIO(t, "")
	if code := Run([]string{"-h"}); code != response.ExitOK {
		t.Fatalf("code = %d, want 0", code)
	}
	for _, want := range []string{"mcpbridge --server <memory|sessions|message|nodes|browser|canvas>", "mcpbridge bridge", "--version, -V"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("help output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no args", args: nil, want: "Usage:"},
		{name: "unknown command", args: []string{"frobnicate"}, want: "unknown command: frobnicate"},
		{name: "bad flag", args: []string{"--nope"}, want: "unknown flag: --nope"},
		{name: "missing server", args: []string{"serve"}, want: "--server is required"},
		{name: "stray argument", args: []string{"serve", "--server", "memory", "extra"}, want: "unexpected argument: extra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut := testIO(t, "")
			if code := Run(tt.args); code != response.ExitUsageErr {
				t.Fatalf("code = %d, want %d (stderr %q)", code, response.ExitUsageErr, errOut.String())
			}
			if !strings.Contains(errOut.String(), tt.want) {
				t.Fatalf("stderr = %q, want %q", errOut.String(), tt.want)
			}
		})
	}
}

func TestUnknownServerReportedBeforeConfigErrors(t *testing.T) {
	_, errOut := testIO(t, "")
	broken := writeTestConfig(t, "[gateway\nurl = ")

	code := Run([]string{"--server", "bogus", "--config", broken})
	if code != response.ExitUsageErr {
		t.Fatalf("code = %d, want %d", code, response.ExitUsageErr)
	}
	if !strings.Contains(errOut.String(), "unknown server type") {
		t.Fatalf("stderr = %q, want unknown server type", errOut.String())
	}
}

func TestServeRejectsUnknownServerBeforeReading(t *testing.T) {
	g, url := startGateway(t)
	out, errOut := testIO(t, handshake)

	code := Run([]string{"--server", "bogus", "--config", gatewayConfig(t, url)})
	if code != response.ExitUsageErr {
		t.Fatalf("code = %d, want %d", code, response.ExitUsageErr)
	}
	if !strings.Contains(errOut.String(), "unknown server type") {
		t.Fatalf("stderr = %q", errOut.String())
	}
	if out.Len() != 0 {
		t.Fatalf("stdout = %q, want nothing", out.String())
	}
	if len(g.methods()) != 0 {
		t.Fatalf("gateway called: %v", g.methods())
	}
}

func TestServeMemoryRequiresAgentID(t *testing.T) {
	_, url := startGateway(t)
	_, errOut := testIO(t, "")

	code := Run([]string{"--server", "memory", "--config", gatewayConfig(t, url)})
	if code != response.ExitUsageErr {
		t.Fatalf("code = %d, want %d", code, response.ExitUsageErr)
	}
	if !strings.Contains(errOut.String(), "agent id is required") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	_, errOut := testIO(t, "")
	path := writeTestConfig(t, "[gateway]\ntimeout = \"soon\"\n")

	code := Run([]string{"serve", "--server", "sessions", "--config", path})
	if code != response.ExitUsageErr {
		t.Fatalf("code = %d, want %d", code, response.ExitUsageErr)
	}
	if !strings.Contains(errOut.String(), "invalid config") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestServeSpeaksMCPOverStdio(t *testing.T) {
	g, url := startGateway(t)
	stdin := handshake +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n" +
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"mcp__memory__recall","arguments":{"query":"tea"}}}` + "\n"
	out, errOut := testIO(t, stdin)

	code := Run([]string{"--server", "memory", "--agent-id", "main", "--config", gatewayConfig(t, url)})
	if code != response.ExitOK {
		t.Fatalf("code = %d, want 0 (stderr %q)", code, errOut.String())
	}

	lines := outputLines(t, out)
	if len(lines) != 3 {
		t.Fatalf("got %d responses, want 3: %s", len(lines), out.String())
	}
	tools := lines[1]["result"].(map[string]any)["tools"].([]any)
	if len(tools) != 3 {
		t.Fatalf("tools/list returned %d tools, want 3", len(tools))
	}
	call := lines[2]["result"].(map[string]any)
	if _, isErr := call["isError"]; isErr {
		t.Fatalf("tools/call reported error: %v", call)
	}
	text := call["content"].([]any)[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, `"score": 0.95`) {
		t.Fatalf("recall text = %q", text)
	}

	g.mu.Lock()
	last := g.calls[len(g.calls)-1]
	g.mu.Unlock()
	if last.Method != "memory.search" || last.Params["agentId"] != "main" || last.Params["query"] != "tea" {
		t.Fatalf("gateway call = %#v", last)
	}
	if !strings.Contains(errOut.String(), "[mcp:memory] ") {
		t.Fatalf("stderr lacks server prefix: %q", errOut.String())
	}
}

func TestToolsListsCatalog(t *testing.T) {
	_, url := startGateway(t)
	cfg := gatewayConfig(t, url)

	out, _ := testIO(t, "")
	if code := Run([]string{"tools", "--server", "sessions", "--config", cfg}); code != response.ExitOK {
		t.Fatalf("code = %d, want 0", code)
	}
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		names = append(names, strings.SplitN(line, "\t", 2)[0])
	}
	want := []string{"sessions__list", "sessions__history", "sessions__send"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("tools = %v, want %v", names, want)
	}

	out, _ = testIO(t, "")
	if code := Run([]string{"tools", "--server", "browser", "--json", "--config", cfg}); code != response.ExitOK {
		t.Fatalf("code = %d, want 0", code)
	}
	var descriptors []map[string]any
	if err := json.Unmarshal(out.Bytes(), &descriptors); err != nil {
		t.Fatalf("--json output: %v\n%s", err, out.String())
	}
	if len(descriptors) != 1 || descriptors[0]["name"] != "browser__invoke" {
		t.Fatalf("descriptors = %v", descriptors)
	}
}

func TestCallPrintsResult(t *testing.T) {
	_, url := startGateway(t)
	out, errOut := testIO(t, "")

	code := Run([]string{"call", "--server", "memory", "--agent-id", "main", "--config", gatewayConfig(t, url), "memory__recall", `{"query":"tea","limit":2}`})
	if code != response.ExitOK {
		t.Fatalf("code = %d, want 0 (stderr %q)", code, errOut.String())
	}
	var hits []map[string]any
	if err := json.Unmarshal(out.Bytes(), &hits); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, out.String())
	}
	if len(hits) != 1 || hits[0]["path"] != "MEMORY.md" {
		t.Fatalf("hits = %v", hits)
	}
}

func TestCallToolFailureExitsWithToolError(t *testing.T) {
	_, url := startGateway(t)
	cfg := gatewayConfig(t, url)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown tool", args: []string{"nodes__nope"}, want: "unknown tool"},
		{name: "backend failure", args: []string{"sessions__list"}, want: "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := testIO(t, "")
			server := strings.SplitN(tt.args[0], "__", 2)[0]
			args := append([]string{"call", "--server", server, "--config", cfg}, tt.args...)
			if code := Run(args); code != response.ExitToolErr {
				t.Fatalf("code = %d, want %d (stdout %q)", code, response.ExitToolErr, out.String())
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Fatalf("stdout = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestCallRejectsBadArguments(t *testing.T) {
	_, url := startGateway(t)
	cfg := gatewayConfig(t, url)
	for _, raw := range []string{`[1,2]`, `{"a":`, `null`, `{} {}`} {
		_, errOut := testIO(t, "")
		code := Run([]string{"call", "--server", "sessions", "--config", cfg, "sessions__list", raw})
		if code != response.ExitUsageErr {
			t.Fatalf("args %q: code = %d, want %d", raw, code, response.ExitUsageErr)
		}
		if !strings.Contains(errOut.String(), "invalid JSON arguments") {
			t.Fatalf("args %q: stderr = %q", raw, errOut.String())
		}
	}
}

func TestParseToolArgsKeepsNumbersExact(t *testing.T) {
	args, err := parseToolArgs(` {"limit": 12345678901234567890} `)
	if err != nil {
		t.Fatalf("parseToolArgs() error = %v", err)
	}
	if n, ok := args["limit"].(json.Number); !ok || n.String() != "12345678901234567890" {
		t.Fatalf("limit = %#v", args["limit"])
	}
	if args, err := parseToolArgs(""); err != nil || args == nil || len(args) != 0 {
		t.Fatalf("parseToolArgs(\"\") = %#v, %v", args, err)
	}
}

func TestInitWritesConfigOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")

	out, _ := testIO(t, "")
	if code := Run([]string{"init", "--config", path}); code != response.ExitOK {
		t.Fatalf("first init code = %d, want 0", code)
	}
	if !strings.Contains(out.String(), path) {
		t.Fatalf("stdout = %q", out.String())
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Gateway.URL != config.DefaultGatewayURL || cfg.Gateway.Timeout != "30s" {
		t.Fatalf("starter gateway = %#v", cfg.Gateway)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("starter config invalid: %v", err)
	}

	_, errOut := testIO(t, "")
	if code := Run([]string{"init", "--config", path}); code != response.ExitUsageErr {
		t.Fatalf("second init code = %d, want %d", code, response.ExitUsageErr)
	}
	if !strings.Contains(errOut.String(), "already exists") {
		t.Fatalf("stderr = %q", errOut.String())
	}

	testIO(t, "")
	if code := Run([]string{"init", "--config", path, "--force"}); code != response.ExitOK {
		t.Fatalf("forced init code = %d, want 0", code)
	}
}

func TestBridgeWithoutUpstreamsRecordsSignals(t *testing.T) {
	cfg := writeTestConfig(t, "")
	signalsPath := filepath.Join(t.TempDir(), "state", "signals.json")
	stdin := handshake + `{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"
	out, errOut := testIO(t, stdin)

	code := Run([]string{"bridge", "--config", cfg, "--signals-file", signalsPath})
	if code != response.ExitOK {
		t.Fatalf("code = %d, want 0 (stderr %q)", code, errOut.String())
	}
	lines := outputLines(t, out)
	if len(lines) != 2 {
		t.Fatalf("got %d responses, want 2: %s", len(lines), out.String())
	}
	info := lines[0]["result"].(map[string]any)["serverInfo"].(map[string]any)
	if info["name"] != "mcpbridge-bridge" {
		t.Fatalf("serverInfo = %v", info)
	}
	if tools := lines[1]["result"].(map[string]any)["tools"].([]any); len(tools) != 0 {
		t.Fatalf("tools = %v, want none", tools)
	}

	data, err := os.ReadFile(signalsPath)
	if err != nil {
		t.Fatalf("reading signals: %v", err)
	}
	var report signalsReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("signals file: %v", err)
	}
	if report.DidSendMessage || report.ToolsUsed == nil || len(report.ToolsUsed) != 0 {
		t.Fatalf("report = %#v", report)
	}
	if !strings.Contains(string(data), `"sentTargets": []`) {
		t.Fatalf("signals file = %s", data)
	}
}

func TestBridgeRejectsUnknownUpstream(t *testing.T) {
	cfg := writeTestConfig(t, "[upstreams.fs]\ncommand = \"mcp-fs\"\n")
	_, errOut := testIO(t, "")

	code := Run([]string{"bridge", "--config", cfg, "--upstream", "nope", "--signals-file", ""})
	if code != response.ExitUsageErr {
		t.Fatalf("code = %d, want %d", code, response.ExitUsageErr)
	}
	if !strings.Contains(errOut.String(), "unknown upstream: nope") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestBridgeSkipsBrokenUpstream(t *testing.T) {
	cfg := writeTestConfig(t, "[upstreams.broken]\ncommand = \"mcpbridge-this-command-does-not-exist\"\n")
	stdin := handshake + `{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"
	out, errOut := testIO(t, stdin)

	code := Run([]string{"bridge", "--config", cfg, "--signals-file", ""})
	if code != response.ExitOK {
		t.Fatalf("code = %d, want 0 (stderr %q)", code, errOut.String())
	}
	if !strings.Contains(errOut.String(), "skipping upstream") {
		t.Fatalf("stderr = %q, want skip warning", errOut.String())
	}
	if lines := outputLines(t, out); len(lines) != 2 {
		t.Fatalf("got %d responses, want 2", len(lines))
	}
}

func TestWriteToolListText(t *testing.T) {
	var buf bytes.Buffer
	if err := writeToolListText(&buf, nil); err != nil || buf.Len() != 0 {
		t.Fatalf("empty list wrote %q, %v", buf.String(), err)
	}
}
