package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/entrhq/mimic/pkg/types"
)

var analyzeToolDef = mcp.NewTool("analyzeWebpage",
	mcp.WithDescription("Render a public web page, extract its design system (colors, typography, layout, semantic structure) "+
		"and generate a UI component reproducing it for the requested framework and styling. "+
		"Results are cached per URL and config for 24 hours."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("Public http(s) URL to analyze. Localhost and private network addresses are rejected."),
	),
	mcp.WithString("framework",
		mcp.Required(),
		mcp.Description("Target UI framework"),
		mcp.Enum(frameworkNames()...),
	),
	mcp.WithString("styling",
		mcp.Required(),
		mcp.Description("Styling approach. styled-components is only supported with react."),
		mcp.Enum(stylingNames()...),
	),
	mcp.WithObject("options",
		mcp.Description("Generation switches; each defaults to true"),
		mcp.Properties(map[string]any{
			"typescript": map[string]any{
				"type":        "boolean",
				"description": "Generate TypeScript",
			},
			"responsive": map[string]any{
				"type":        "boolean",
				"description": "Include responsive breakpoints",
			},
			"accessibility": map[string]any{
				"type":        "boolean",
				"description": "Add ARIA landmarks and labels",
			},
		}),
	),
)

var cacheStatsToolDef = mcp.NewTool("cacheStats",
	mcp.WithDescription("Report analysis cache statistics: entries, size, hit rate and evictions."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var cacheClearToolDef = mcp.NewTool("cacheClear",
	mcp.WithDescription("Remove every cached analysis. Requests already running are unaffected."),
	mcp.WithDestructiveHintAnnotation(true),
)

func frameworkNames() []string {
	names := make([]string, len(types.Frameworks))
	for i, f := range types.Frameworks {
		names[i] = string(f)
	}
	return names
}

func stylingNames() []string {
	names := make([]string, len(types.Stylings))
	for i, s := range types.Stylings {
		names[i] = string(s)
	}
	return names
}
