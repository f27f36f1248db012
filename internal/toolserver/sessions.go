package toolserver

import (
	"context"

	"github.com/lydakis/mcpbridge/internal/backend"
)

const defaultHistoryLimit = 20

type sessionsResult struct {
	Sessions []backend.SessionSummary `json:"sessions"`
}

type historyResult struct {
	Messages []backend.HistoryMessage `json:"messages"`
}

// NewSessions returns the sessions server: list, history, send.
func NewSessions(sessions backend.Sessions) *Catalog {
	return newCatalog(string(KindSessions),
		handler{
			descriptor: Descriptor{
				Name:        "sessions__list",
				Description: "List gateway sessions with their channel, label and last update time.",
				InputSchema: objectSchema(map[string]any{}),
			},
			call: func(ctx context.Context, _ map[string]any) any {
				list, err := sessions.List(ctx)
				if err != nil {
					return fail("%s", err.Error())
				}
				if list == nil {
					list = []backend.SessionSummary{}
				}
				return sessionsResult{Sessions: list}
			},
		},
		handler{
			descriptor: Descriptor{
				Name:        "sessions__history",
				Description: "Read the recent transcript of a session.",
				InputSchema: objectSchema(map[string]any{
					"sessionKey": prop("string", "Session key from sessions__list."),
					"limit": map[string]any{
						"type":        "integer",
						"minimum":     1,
						"description": "Maximum number of messages (default 20).",
					},
				}, "sessionKey"),
			},
			call: func(ctx context.Context, args map[string]any) any {
				key, ok := requiredString(args, "sessionKey")
				if !ok {
					return missing("sessionKey")
				}
				messages, err := sessions.History(ctx, key, backend.HistoryOptions{
					Limit: positiveInt(args, "limit", defaultHistoryLimit),
				})
				if err != nil {
					return fail("%s", err.Error())
				}
				if messages == nil {
					messages = []backend.HistoryMessage{}
				}
				return historyResult{Messages: messages}
			},
		},
		handler{
			descriptor: Descriptor{
				Name:        "sessions__send",
				Description: "Send a message into another session, starting an agent run there.",
				InputSchema: objectSchema(map[string]any{
					"sessionKey": prop("string", "Target session key."),
					"message":    prop("string", "Message text."),
				}, "sessionKey", "message"),
			},
			call: func(ctx context.Context, args map[string]any) any {
				key, ok := requiredString(args, "sessionKey")
				if !ok {
					return missing("sessionKey")
				}
				message, ok := requiredString(args, "message")
				if !ok {
					return missing("message")
				}
				res, err := sessions.Send(ctx, key, message)
				if err != nil {
					return fail("%s", err.Error())
				}
				return res
			},
		},
	)
}
