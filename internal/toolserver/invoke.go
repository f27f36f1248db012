package toolserver

import (
	"context"

	"github.com/lydakis/mcpbridge/internal/backend"
)

var (
	nodeActions = []string{
		"status", "describe", "pending", "approve", "reject", "notify",
		"camera_snap", "camera_list", "screen_record", "location_get", "run",
	}
	browserActions = []string{
		"status", "start", "stop", "tabs", "open", "focus", "close",
		"snapshot", "screenshot", "navigate", "console", "pdf", "act",
	}
	canvasActions = []string{
		"present", "hide", "navigate", "eval", "snapshot", "a2ui_push", "a2ui_reset",
	}
)

// NewNodes returns the paired-device server. The backend is expected to be
// bound to the agent session that owns the devices.
func NewNodes(inv backend.Invoker) *Catalog {
	return invokeCatalog(KindNodes, inv,
		"Control paired devices: list and describe nodes, approve pairing, send notifications, capture camera or screen, read location, run commands.",
		nodeActions,
		map[string]any{
			"node":     prop("string", "Node id or display name."),
			"title":    prop("string", "Notification title (notify)."),
			"body":     prop("string", "Notification body (notify)."),
			"facing":   prop("string", "Camera facing: front, back or both (camera_snap)."),
			"duration": prop("string", "Recording duration such as 10s (screen_record)."),
			"command": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Command and arguments (run).",
			},
			"requestId": prop("string", "Pairing request id (approve, reject)."),
		},
	)
}

// NewBrowser returns the browser-control server.
func NewBrowser(inv backend.Invoker) *Catalog {
	return invokeCatalog(KindBrowser, inv,
		"Drive the managed browser: start and stop it, manage tabs, navigate, snapshot or screenshot pages, read the console, print PDFs and perform UI actions.",
		browserActions,
		map[string]any{
			"profile":  prop("string", "Browser profile name."),
			"targetId": prop("string", "Tab id from tabs."),
			"url":      prop("string", "URL to open or navigate to."),
			"format":   prop("string", "Snapshot format: aria or ai."),
			"fullPage": prop("boolean", "Capture the full page (screenshot)."),
			"request":  prop("object", "UI action request (act), for example {kind:\"click\", ref:\"e12\"}."),
		},
	)
}

// NewCanvas returns the canvas server.
func NewCanvas(inv backend.Invoker) *Catalog {
	return invokeCatalog(KindCanvas, inv,
		"Show, hide and drive the node canvas: present URLs, evaluate JavaScript, snapshot the canvas and push A2UI updates.",
		canvasActions,
		map[string]any{
			"node":       prop("string", "Node id or display name."),
			"url":        prop("string", "URL to present or navigate to."),
			"javaScript": prop("string", "Script to evaluate (eval)."),
			"jsonl":      prop("string", "A2UI JSONL payload (a2ui_push)."),
			"format":     prop("string", "Image format for snapshot: png or jpg."),
		},
	)
}

// invokeCatalog builds a single <server>__invoke tool. Only action is
// enforced; the remaining fields are advisory and the whole argument map goes
// to the backend.
func invokeCatalog(kind Kind, inv backend.Invoker, description string, actions []string, fields map[string]any) *Catalog {
	properties := map[string]any{
		"action": map[string]any{
			"type":        "string",
			"enum":        actions,
			"description": "Operation to perform.",
		},
	}
	for k, v := range fields {
		properties[k] = v
	}
	schema := objectSchema(properties, "action")
	schema["additionalProperties"] = true

	return newCatalog(string(kind),
		handler{
			descriptor: Descriptor{
				Name:        string(kind) + "__invoke",
				Description: description,
				InputSchema: schema,
			},
			call: func(ctx context.Context, args map[string]any) any {
				action, ok := requiredString(args, "action")
				if !ok {
					return missing("action")
				}
				res, err := inv.Invoke(ctx, action, args)
				if err != nil {
					return fail("%s", err.Error())
				}
				return res
			},
		},
	)
}
