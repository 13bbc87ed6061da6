package ai

import (
	"context"
	"fmt"
	"strings"
)

// HeuristicProvider is the built-in keyword-matching inference used when no
// external provider is configured. Deterministic by design so workflow tests
// stay reproducible. Registered under the name "mcp" because that is the
// provider name existing workflow configs carry for the default path.
type HeuristicProvider struct{}

// NewHeuristicProvider creates the keyword-rule provider.
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{}
}

func (p *HeuristicProvider) Name() string { return "mcp" }

// stageRules are checked in order; the first hit wins.
var stageRules = []struct {
	stage    string
	keywords []string
}{
	{"closed_lost", []string{"lost", "declined", "churned", "no longer interested"}},
	{"closed_won", []string{"signed", "closed won", "contract executed", "purchased"}},
	{"negotiation", []string{"negotiat", "pricing", "discount", "redline", "contract review"}},
	{"proposal", []string{"proposal", "quote", "estimate", "statement of work"}},
	{"qualified", []string{"demo", "budget", "qualified", "meeting booked", "decision maker"}},
}

// ClassifyStage maps free text describing a deal to a pipeline stage.
func (p *HeuristicProvider) ClassifyStage(ctx context.Context, input string) (string, error) {
	text := strings.ToLower(input)
	for _, rule := range stageRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.stage, nil
			}
		}
	}
	return "new", nil
}

// DraftEmail produces a plain follow-up draft seeded by the input text.
func (p *HeuristicProvider) DraftEmail(ctx context.Context, input string) (*Draft, error) {
	subject := "Following up"
	text := strings.ToLower(input)
	switch {
	case strings.Contains(text, "demo"):
		subject = "Following up on your demo"
	case strings.Contains(text, "proposal") || strings.Contains(text, "quote"):
		subject = "Your proposal"
	case strings.Contains(text, "welcome") || strings.Contains(text, "new lead"):
		subject = "Welcome!"
	}
	body := fmt.Sprintf("Hi,\n\nThanks for reaching out. Regarding: %s\n\nWe'll be in touch shortly.\n", strings.TrimSpace(input))
	return &Draft{Subject: subject, Body: body}, nil
}

var industryRules = []struct {
	industry string
	keywords []string
}{
	{"financial services", []string{"bank", "finance", "capital", "insurance"}},
	{"healthcare", []string{"health", "medical", "clinic", "pharma"}},
	{"technology", []string{"tech", "software", "cloud", "saas", "data"}},
	{"retail", []string{"shop", "store", "retail", "commerce"}},
	{"manufacturing", []string{"factory", "manufactur", "industrial"}},
}

// EnrichAccount derives coarse firmographics from a company name or domain.
func (p *HeuristicProvider) EnrichAccount(ctx context.Context, input string) (map[string]any, error) {
	text := strings.ToLower(strings.TrimSpace(input))

	industry := "unknown"
	for _, rule := range industryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				industry = rule.industry
				break
			}
		}
		if industry != "unknown" {
			break
		}
	}

	enriched := map[string]any{
		"industry": industry,
		"source":   "heuristic",
	}
	if domain := extractDomain(text); domain != "" {
		enriched["domain"] = domain
	}
	return enriched, nil
}

// RouteActivity picks a destination team for an inbound activity.
func (p *HeuristicProvider) RouteActivity(ctx context.Context, input string) (string, error) {
	text := strings.ToLower(input)
	switch {
	case containsAny(text, "invoice", "payment", "billing", "refund"):
		return "billing", nil
	case containsAny(text, "bug", "error", "broken", "not working", "support"):
		return "support", nil
	case containsAny(text, "cancel", "downgrade", "unsubscribe"):
		return "retention", nil
	default:
		return "sales", nil
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractDomain pulls a domain out of an email address or URL-ish string.
func extractDomain(text string) string {
	if at := strings.LastIndex(text, "@"); at != -1 {
		if fields := strings.Fields(text[at+1:]); len(fields) > 0 {
			return fields[0]
		}
	}
	for _, prefix := range []string{"https://", "http://", "www."} {
		if idx := strings.Index(text, prefix); idx != -1 {
			rest := text[idx+len(prefix):]
			if end := strings.IndexAny(rest, "/ "); end != -1 {
				rest = rest[:end]
			}
			return rest
		}
	}
	return ""
}

var _ Provider = (*HeuristicProvider)(nil)
