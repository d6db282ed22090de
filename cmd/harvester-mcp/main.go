// Command harvester-mcp exposes the acquisition engine as MCP tools over
// stdio. The engine runs in-process; no daemon is required.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joblens/harvester/config"
	"github.com/joblens/harvester/engine"
	"github.com/joblens/harvester/models"
)

func main() {
	cfg := config.Load()

	// Structured logs go to stderr; stdio carries the MCP protocol.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	eng := engine.New(cfg)
	defer eng.Close()

	s := server.NewMCPServer(
		"harvester",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	extractLinksTool := mcp.NewTool("extract_links",
		mcp.WithDescription("Load a page in a headless browser, dismiss consent overlays, and return every outbound link as absolute URLs, one per line."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to collect links from"),
		),
	)
	s.AddTool(extractLinksTool, handleExtractLinks(eng))

	extractDetailTool := mcp.NewTool("extract_job_detail",
		mcp.WithDescription("Load a page in a headless browser, dismiss consent overlays, and return the page title and rendered visible text as JSON with keys job_title and text."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the detail page to extract"),
		),
	)
	s.AddTool(extractDetailTool, handleExtractDetail(eng))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleExtractLinks(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		result, err := eng.Run(ctx, models.ScrapeTask{URL: url, Mode: models.ModeLinks})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(strings.Join(result.Links, "\n")), nil
	}
}

func handleExtractDetail(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		result, err := eng.Run(ctx, models.ScrapeTask{URL: url, Mode: models.ModeDetail})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		payload, err := json.Marshal(result.Detail)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal detail: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
