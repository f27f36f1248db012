package toolserver

import (
	"context"

	"github.com/lydakis/mcpbridge/internal/backend"
)

const defaultRecallLimit = 10

type recallResult struct {
	Results []backend.SearchResult `json:"results"`
}

// NewMemory returns the memory server: recall, remember, forget.
func NewMemory(mem backend.Memory) *Catalog {
	return newCatalog(string(KindMemory),
		handler{
			descriptor: Descriptor{
				Name:        "memory__recall",
				Description: "Search the agent's long-term memory. Returns matching snippets with file path, line range and relevance score.",
				InputSchema: objectSchema(map[string]any{
					"query": prop("string", "What to look for."),
					"limit": map[string]any{
						"type":        "integer",
						"minimum":     1,
						"description": "Maximum number of results (default 10).",
					},
				}, "query"),
			},
			call: func(ctx context.Context, args map[string]any) any {
				query, ok := requiredString(args, "query")
				if !ok {
					return missing("query")
				}
				results, err := mem.Search(ctx, query, backend.SearchOptions{
					MaxResults: positiveInt(args, "limit", defaultRecallLimit),
				})
				if err != nil {
					return fail("%s", err.Error())
				}
				if results == nil {
					results = []backend.SearchResult{}
				}
				return recallResult{Results: results}
			},
		},
		handler{
			descriptor: Descriptor{
				Name:        "memory__remember",
				Description: "Store a note in the agent's long-term memory.",
				InputSchema: objectSchema(map[string]any{
					"content": prop("string", "Text to remember."),
					"tags": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Optional tags for later recall.",
					},
				}, "content"),
			},
			call: func(ctx context.Context, args map[string]any) any {
				content, ok := requiredString(args, "content")
				if !ok {
					return missing("content")
				}
				res, err := mem.Remember(ctx, content, backend.RememberOptions{Tags: stringList(args["tags"])})
				if err != nil {
					return fail("%s", err.Error())
				}
				return res
			},
		},
		handler{
			descriptor: Descriptor{
				Name:        "memory__forget",
				Description: "Remove a memory entry by path, as returned from memory__recall.",
				InputSchema: objectSchema(map[string]any{
					"path": prop("string", "Path of the entry to remove."),
				}, "path"),
			},
			call: func(ctx context.Context, args map[string]any) any {
				path, ok := requiredString(args, "path")
				if !ok {
					return missing("path")
				}
				res, err := mem.Forget(ctx, path)
				if err != nil {
					return fail("%s", err.Error())
				}
				return res
			},
		},
	)
}
