package bridge

import (
	"encoding/json"
	"strings"
	"sync"
)

// Target is a delivery destination addressed through a messaging tool.
type Target struct {
	Tool     string `json:"tool"`
	Provider string `json:"provider"`
	To       string `json:"to"`
}

// Signals records, for one agent run, which tools ran and what the agent
// already delivered through messaging tools. A nil *Signals records nothing.
type Signals struct {
	mu sync.Mutex

	tools    []string
	toolSeen map[string]struct{}

	texts    []string
	textSeen map[string]struct{}

	targets    []Target
	targetSeen map[string]struct{}
}

// NewSignals returns an empty signal set.
func NewSignals() *Signals {
	return &Signals{
		toolSeen:   map[string]struct{}{},
		textSeen:   map[string]struct{}{},
		targetSeen: map[string]struct{}{},
	}
}

// ToolsUsed returns tool names in first-use order.
func (s *Signals) ToolsUsed() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tools...)
}

// SentTexts returns delivered texts in first-seen order.
func (s *Signals) SentTexts() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// SentTargets returns addressed targets in first-seen order.
func (s *Signals) SentTargets() []Target {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Target(nil), s.targets...)
}

// DidSendMessage reports whether any messaging tool produced output.
func (s *Signals) DidSendMessage() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts) > 0 || len(s.targets) > 0
}

func (s *Signals) recordTool(name string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.toolSeen[name]; ok {
		return
	}
	s.toolSeen[name] = struct{}{}
	s.tools = append(s.tools, name)
}

func (s *Signals) addText(text string) {
	text = strings.TrimSpace(text)
	if s == nil || text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.textSeen[text]; ok {
		return
	}
	s.textSeen[text] = struct{}{}
	s.texts = append(s.texts, text)
}

func (s *Signals) addTarget(toolName, to string) {
	to = strings.TrimSpace(to)
	if s == nil || to == "" {
		return
	}
	t := Target{Tool: lastSegment(toolName), Provider: providerOf(to), To: to}
	key := t.Tool + "|" + t.Provider + "|" + t.To

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.targetSeen[key]; ok {
		return
	}
	s.targetSeen[key] = struct{}{}
	s.targets = append(s.targets, t)
}

// collectInput records what a messaging tool is about to send.
func (s *Signals) collectInput(toolName string, args map[string]any) {
	s.addText(firstString(args, "text", "message", "content", "body"))
	s.addTarget(toolName, firstString(args, "to", "target", "sessionKey"))
}

// collectDetails records what a messaging tool reports having sent.
func (s *Signals) collectDetails(toolName string, details any) {
	obj := asObject(details)
	if obj == nil {
		return
	}
	s.addText(firstString(obj, "text", "message"))
	s.addTarget(toolName, firstString(obj, "to", "target"))
	if texts, ok := obj["texts"].([]any); ok {
		for _, t := range texts {
			if str, ok := t.(string); ok {
				s.addText(str)
			}
		}
	}
}

// IsMessagingTool reports whether name looks like a delivery tool: its last
// "__" segment, lowercased, is "message" or "sessions_send" or starts with
// "message_". The match follows the host's naming convention, nothing more.
func IsMessagingTool(name string) bool {
	seg := strings.ToLower(lastSegment(name))
	return seg == "message" || seg == "sessions_send" || strings.HasPrefix(seg, "message_")
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "__"); i >= 0 {
		return name[i+2:]
	}
	return name
}

// providerOf returns the part of a target before the first ':', or
// "unknown" when the target has no ':'. A leading ':' yields "".
func providerOf(to string) string {
	provider, _, found := strings.Cut(to, ":")
	if !found {
		return "unknown"
	}
	return provider
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// asObject views v as a JSON object. Values are normalized through encoding
// so Go-typed fields such as []string read the same as decoded JSON.
func asObject(v any) map[string]any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		if m, ok := v.(map[string]any); ok {
			return m
		}
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
