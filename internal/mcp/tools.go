package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	pagesnake "github.com/agentberlin/pagesnake"
	"github.com/agentberlin/pagesnake/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools registers all MCP tools with the server
func (s *MCPServer) registerTools() {
	s.logger.Printf("Registering MCP tools...")

	s.registerDiscoverLinksTool()
	s.registerFetchPagesTool()
	s.registerListRunsTool()
	s.registerGetRunLinksTool()
	s.registerDeleteRunTool()

	s.logger.Printf("All MCP tools registered successfully")
}

// DiscoverLinksArgs defines the input schema for discover_links tool
type DiscoverLinksArgs struct {
	URL          string   `json:"url"`
	ClickBudget  int      `json:"clickBudget,omitempty"`
	ExcludeGlobs []string `json:"excludeGlobs,omitempty"`
	Headless     *bool    `json:"headless,omitempty"`
}

// DiscoverLinksResult defines the output schema for discover_links tool
type DiscoverLinksResult struct {
	Success    bool                    `json:"success"`
	RunID      uint                    `json:"runId,omitempty"`
	FinalState string                  `json:"finalState,omitempty"`
	ClicksUsed int                     `json:"clicksUsed"`
	Counts     pagesnake.CategoryCounts `json:"counts"`
	Links      []pagesnake.SimpleLink  `json:"links,omitempty"`
	Message    string                  `json:"message"`
}

// registerDiscoverLinksTool registers the discover_links tool
func (s *MCPServer) registerDiscoverLinksTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "discover_links",
		Description: "Runs a pagination-aware link discovery crawl on a URL, activating load-more/next controls until exhausted",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DiscoverLinksArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: discover_links for URL: %s", args.URL)

		chromeCfg := pagesnake.NewDefaultChromeConfig()
		if args.Headless != nil {
			chromeCfg.Headless = *args.Headless
		}
		driver, err := pagesnake.NewChromeDriver(chromeCfg)
		if err != nil {
			return nil, DiscoverLinksResult{
				Success: false,
				Message: fmt.Sprintf("Failed to start browser: %v", err),
			}, nil
		}

		crawlCfg := pagesnake.NewDefaultCrawlConfig()
		if args.ClickBudget > 0 {
			crawlCfg.ClickBudget = args.ClickBudget
		}
		crawlCfg.ExcludeGlobs = args.ExcludeGlobs

		crawler, err := pagesnake.NewCrawler(driver, args.URL, crawlCfg)
		if err != nil {
			driver.Close()
			return nil, DiscoverLinksResult{
				Success: false,
				Message: fmt.Sprintf("Invalid crawl request: %v", err),
			}, nil
		}

		result, err := crawler.Run(ctx, args.URL)
		if err != nil {
			return nil, DiscoverLinksResult{
				Success: false,
				Message: fmt.Sprintf("Crawl failed: %v", err),
			}, nil
		}

		runID, err := s.saveRun(args.URL, crawlCfg.ClickBudget, result)
		if err != nil {
			s.logger.Printf("Failed to persist run: %v", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Discovered %d links (%d internal, %d external, %d other) in %d clicks; final state %s",
						len(result.Links), result.Counts.Internal, result.Counts.External,
						result.Counts.Other, result.ClicksUsed, result.FinalState),
				},
			},
		}, DiscoverLinksResult{
			Success:    true,
			RunID:      runID,
			FinalState: string(result.FinalState),
			ClicksUsed: result.ClicksUsed,
			Counts:     result.Counts,
			Links:      result.Links,
			Message:    "Discovery completed",
		}, nil
	})
}

// saveRun persists a crawl result and returns the new run ID
func (s *MCPServer) saveRun(baseURL string, budget int, result *pagesnake.Result) (uint, error) {
	catalog, err := pagesnake.NewCatalog(baseURL, nil)
	if err != nil {
		return 0, err
	}

	run := &store.Run{
		BaseURL:       baseURL,
		Domain:        catalog.Domain(),
		ClickBudget:   budget,
		ClicksUsed:    result.ClicksUsed,
		FinalState:    string(result.FinalState),
		InternalCount: result.Counts.Internal,
		ExternalCount: result.Counts.External,
		OtherCount:    result.Counts.Other,
	}
	for i, link := range result.Links {
		run.Links = append(run.Links, store.Link{
			URL:      link.URL,
			Text:     link.Text,
			Title:    link.Title,
			Ordinal:  i,
			Category: string(catalog.Classify(link.URL)),
		})
	}
	return s.store.CreateRun(run)
}

// FetchPagesArgs defines the input schema for fetch_pages tool
type FetchPagesArgs struct {
	URLs         []string `json:"urls"`
	RunID        uint     `json:"runId,omitempty"`
	IgnoreRobots bool     `json:"ignoreRobots,omitempty"`
}

// registerFetchPagesTool registers the fetch_pages tool
func (s *MCPServer) registerFetchPagesTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "fetch_pages",
		Description: "Batch-fetches a list of known URLs without JavaScript, returning title, canonical URL, meta robots and content hash per page",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FetchPagesArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: fetch_pages for %d URLs", len(args.URLs))

		if len(args.URLs) == 0 {
			return nil, map[string]interface{}{
				"success": false,
				"message": "No URLs given",
			}, nil
		}

		cfg := pagesnake.NewDefaultBatchConfig()
		cfg.IgnoreRobots = args.IgnoreRobots
		fetcher := pagesnake.NewBatchFetcher(cfg)
		results := fetcher.FetchAll(ctx, args.URLs)

		pages := make([]store.Page, 0, len(results))
		failed := 0
		for _, r := range results {
			page := store.Page{
				RunID:       args.RunID,
				URL:         r.URL,
				StatusCode:  r.StatusCode,
				Title:       r.Title,
				Canonical:   r.Canonical,
				NoIndex:     r.NoIndex,
				ContentHash: r.ContentHash,
			}
			if r.Err != nil {
				page.FetchError = r.Err.Error()
				failed++
			}
			pages = append(pages, page)
		}
		if err := s.store.SavePages(pages); err != nil {
			s.logger.Printf("Failed to persist pages: %v", err)
		}

		resultJSON, _ := json.MarshalIndent(pages, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Fetched %d pages (%d failed):\n%s", len(pages), failed, string(resultJSON)),
				},
			},
		}, map[string]interface{}{
			"success": true,
			"fetched": len(pages) - failed,
			"failed":  failed,
			"pages":   pages,
		}, nil
	})
}

// ListRunsArgs defines the input schema for list_runs tool
type ListRunsArgs struct {
	Domain string `json:"domain,omitempty"`
}

// registerListRunsTool registers the list_runs tool
func (s *MCPServer) registerListRunsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "Lists stored discovery runs, optionally filtered by domain",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListRunsArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: list_runs for domain: %s", args.Domain)

		runs, err := s.store.ListRuns(args.Domain)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list runs: %w", err)
		}

		result := map[string]interface{}{
			"runs": runs,
		}
		runsJSON, _ := json.MarshalIndent(result, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Found %d runs:\n%s", len(runs), string(runsJSON)),
				},
			},
		}, result, nil
	})
}

// GetRunLinksArgs defines the input schema for get_run_links tool
type GetRunLinksArgs struct {
	RunID    uint   `json:"runId"`
	Category string `json:"category,omitempty"`
}

// registerGetRunLinksTool registers the get_run_links tool
func (s *MCPServer) registerGetRunLinksTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_run_links",
		Description: "Retrieves the links discovered by a run in discovery order, optionally filtered by category (internal/external/other)",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GetRunLinksArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: get_run_links for run ID: %d", args.RunID)

		links, err := s.store.LinksForRun(args.RunID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get run links: %w", err)
		}

		if args.Category != "" {
			filtered := links[:0]
			for _, l := range links {
				if l.Category == args.Category {
					filtered = append(filtered, l)
				}
			}
			links = filtered
		}

		result := map[string]interface{}{
			"runId": args.RunID,
			"links": links,
		}
		linksJSON, _ := json.MarshalIndent(result, "", "  ")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: fmt.Sprintf("Found %d links for run %d:\n%s", len(links), args.RunID, string(linksJSON)),
				},
			},
		}, result, nil
	})
}

// DeleteRunArgs defines the input schema for delete_run tool
type DeleteRunArgs struct {
	RunID uint `json:"runId"`
}

// registerDeleteRunTool registers the delete_run tool
func (s *MCPServer) registerDeleteRunTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_run",
		Description: "Deletes a stored run and all its links and pages",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DeleteRunArgs) (*mcp.CallToolResult, any, error) {
		s.logger.Printf("Tool called: delete_run for run ID: %d", args.RunID)

		if err := s.store.DeleteRun(args.RunID); err != nil {
			return nil, map[string]interface{}{
				"success": false,
				"message": fmt.Sprintf("Failed to delete run: %v", err),
			}, nil
		}

		result := map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("Run %d deleted successfully", args.RunID),
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{
					Text: result["message"].(string),
				},
			},
		}, result, nil
	})
}
