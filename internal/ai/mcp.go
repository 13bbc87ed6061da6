package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// MCPConfig describes how to launch an external MCP inference server.
type MCPConfig struct {
	Name    string
	Command string
	Args    []string
	Env     []string
}

// Tool names the external server is expected to expose.
const (
	toolClassifyStage = "classify_stage"
	toolDraftEmail    = "draft_email"
	toolEnrichAccount = "enrich_account"
	toolRouteActivity = "route_activity"
)

// MCPProvider answers inference questions by calling tools on an external
// MCP server over stdio. When the server call fails and a fallback provider
// is configured, the fallback answers instead; inference is best-effort.
type MCPProvider struct {
	name     string
	client   *client.Client
	fallback Provider
}

// NewMCPProvider launches the configured MCP server and performs the
// initialize handshake.
func NewMCPProvider(ctx context.Context, cfg MCPConfig, fallback Provider) (*MCPProvider, error) {
	if cfg.Command == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "mcp provider: missing command")
	}
	name := cfg.Name
	if name == "" {
		name = "mcp-external"
	}

	c, err := client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeProvider, "mcp provider %q: start failed", name).WithCause(err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "aishacrm-engine",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, schema.NewErrorf(schema.ErrCodeProvider, "mcp provider %q: initialize failed", name).WithCause(err)
	}

	return &MCPProvider{name: name, client: c, fallback: fallback}, nil
}

func (p *MCPProvider) Name() string { return p.name }

// Close shuts down the underlying server process.
func (p *MCPProvider) Close() error { return p.client.Close() }

func (p *MCPProvider) ClassifyStage(ctx context.Context, input string) (string, error) {
	text, err := p.callText(ctx, toolClassifyStage, input)
	if err != nil {
		if p.fallback != nil {
			return p.fallback.ClassifyStage(ctx, input)
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *MCPProvider) DraftEmail(ctx context.Context, input string) (*Draft, error) {
	text, err := p.callText(ctx, toolDraftEmail, input)
	if err != nil {
		if p.fallback != nil {
			return p.fallback.DraftEmail(ctx, input)
		}
		return nil, err
	}
	draft := &Draft{}
	if err := json.Unmarshal([]byte(text), draft); err != nil || draft.Body == "" {
		// Server returned prose instead of the {subject, body} shape.
		return &Draft{Subject: "Following up", Body: text}, nil
	}
	return draft, nil
}

func (p *MCPProvider) EnrichAccount(ctx context.Context, input string) (map[string]any, error) {
	text, err := p.callText(ctx, toolEnrichAccount, input)
	if err != nil {
		if p.fallback != nil {
			return p.fallback.EnrichAccount(ctx, input)
		}
		return nil, err
	}
	var enriched map[string]any
	if err := json.Unmarshal([]byte(text), &enriched); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeProvider,
			"mcp provider %q: enrich_account returned non-JSON output", p.name).WithCause(err)
	}
	return enriched, nil
}

func (p *MCPProvider) RouteActivity(ctx context.Context, input string) (string, error) {
	text, err := p.callText(ctx, toolRouteActivity, input)
	if err != nil {
		if p.fallback != nil {
			return p.fallback.RouteActivity(ctx, input)
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// callText invokes a tool with {"text": input} and concatenates the text
// content blocks of the result.
func (p *MCPProvider) callText(ctx context.Context, tool, input string) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = map[string]any{"text": input}

	result, err := p.client.CallTool(ctx, req)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeProvider, "mcp provider %q: %s failed", p.name, tool).WithCause(err)
	}
	if result.IsError {
		return "", schema.NewErrorf(schema.ErrCodeProvider, "mcp provider %q: %s returned error: %s",
			p.name, tool, flattenContent(result.Content))
	}

	text := flattenContent(result.Content)
	if text == "" {
		return "", schema.NewErrorf(schema.ErrCodeProvider, "mcp provider %q: %s returned no text content", p.name, tool)
	}
	return text, nil
}

func flattenContent(content []mcp.Content) string {
	var sb strings.Builder
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

var _ Provider = (*MCPProvider)(nil)
