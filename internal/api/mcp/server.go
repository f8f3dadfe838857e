// Package mcpapi exposes the weather tool over the Model Context Protocol.
package mcpapi

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

const (
	ServerName      = "weather-tool-server"
	WeatherToolName = "get-weather"
)

// WeatherReporter renders the tool text for a city, success or failure.
type WeatherReporter interface {
	Report(ctx context.Context, city string) string
}

// WeatherArgs are the get-weather tool arguments.
type WeatherArgs struct {
	City string `json:"city" jsonschema:"name of the city to look up, for example Tokyo"`
}

// NewServer returns an MCP server with the get-weather tool registered.
func NewServer(r WeatherReporter, version string, logger zerolog.Logger) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        WeatherToolName,
		Description: "Get current weather for a city",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args WeatherArgs) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(args.City) == "" {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "Invalid params: city is required"}},
			}, nil, nil
		}
		logger.Debug().Str("city", args.City).Msg("mcp tool call")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: r.Report(ctx, args.City)}},
		}, nil, nil
	})

	return s
}
