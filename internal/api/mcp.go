package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jonypilatti/linkedinbot/internal/profile"
	"github.com/jonypilatti/linkedinbot/internal/session"
	"github.com/jonypilatti/linkedinbot/internal/storage"
)

// SessionInfo is the read-only slice of the controller the MCP layer needs.
// Implemented by session.Controller.
type SessionInfo interface {
	Status() session.Snapshot
	Score(description string) float64
}

// MCPDeps holds dependencies for the MCP server. All tools are read-only:
// an agent can inspect the session but never trigger outreach through MCP.
type MCPDeps struct {
	Store   *storage.Store
	Profile *profile.Manager
	Session SessionInfo
}

// NewMCPServer creates an MCP server exposing session status, audit history
// and compatibility scoring.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"linkedinbot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("linkedinbot — read-only inspection of the outreach automation session: status, history, and job compatibility scoring."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("session_status",
			mcp.WithDescription("Report the automation session's state, mode, and today's quota usage."),
		),
		mcpSessionStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("list_history",
			mcp.WithDescription("List entries from the append-only action log, newest first."),
			mcp.WithString("kind", mcp.Description("Filter by action kind (login, search, apply, message, pause, resume, captcha, error)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 20)")),
		),
		mcpListHistory(deps),
	)

	s.AddTool(
		mcp.NewTool("job_compatibility",
			mcp.WithDescription("Score a job description against the configured skill keywords (0-100)."),
			mcp.WithString("description", mcp.Description("Plain-text job description"), mcp.Required()),
		),
		mcpJobCompatibility(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"candidate://profile",
			"Candidate Profile",
			mcp.WithResourceDescription("The candidate profile used for scoring and outreach, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"audit://recent",
			"Recent Actions",
			mcp.WithResourceDescription("Last 10 audit log entries"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpSessionStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Session.Status())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal status: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 200 {
			limit = 200
		}

		var kind storage.ActionKind
		if raw := req.GetString("kind", ""); raw != "" {
			kind = storage.ActionKind(raw)
			if !kind.Valid() {
				return mcpError(fmt.Sprintf("unknown action kind %q", raw)), nil
			}
		}

		records, err := deps.Store.ListRecentActions(limit, kind)
		if err != nil {
			return mcpError(fmt.Sprintf("listing history failed: %v", err)), nil
		}
		if len(records) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(records)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal history: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpJobCompatibility(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		desc, err := req.RequireString("description")
		if err != nil {
			return mcpError("description is required"), nil
		}
		score := deps.Session.Score(desc)
		return mcpText(fmt.Sprintf(`{"score":%.2f}`, score)), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := deps.Profile.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := deps.Store.ListRecentActions(10, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list actions: %w", err)
		}

		type actionSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Kind      string `json:"kind"`
			Success   bool   `json:"success"`
			Details   string `json:"details"`
		}

		summaries := make([]actionSummary, len(records))
		for i, rec := range records {
			details := rec.Details
			if utf8.RuneCountInString(details) > 200 {
				runes := []rune(details)
				details = string(runes[:200]) + "..."
			}
			summaries[i] = actionSummary{
				ID:        rec.ID,
				CreatedAt: rec.CreatedAt.Format(time.RFC3339),
				Kind:      string(rec.Kind),
				Success:   rec.Success,
				Details:   details,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal actions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
