package executors

import (
	"context"
	"fmt"

	"github.com/andreibyf/aishacrm-engine/internal/ai"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// AIExecutor backs the four ai_* node types. The node's "provider" config
// key selects the inference strategy; the templated "input" text is what the
// provider reasons over. Results land in the context variables so later
// nodes can template against them.
type AIExecutor struct {
	nodeType  schema.NodeType
	providers *ai.Providers
}

// NewAIClassifyStageExecutor creates the ai_classify_stage executor.
func NewAIClassifyStageExecutor(providers *ai.Providers) *AIExecutor {
	return &AIExecutor{nodeType: schema.NodeAIClassifyStage, providers: providers}
}

// NewAIDraftEmailExecutor creates the ai_draft_email executor.
func NewAIDraftEmailExecutor(providers *ai.Providers) *AIExecutor {
	return &AIExecutor{nodeType: schema.NodeAIDraftEmail, providers: providers}
}

// NewAIEnrichAccountExecutor creates the ai_enrich_account executor.
func NewAIEnrichAccountExecutor(providers *ai.Providers) *AIExecutor {
	return &AIExecutor{nodeType: schema.NodeAIEnrichAccount, providers: providers}
}

// NewAIRouteActivityExecutor creates the ai_route_activity executor.
func NewAIRouteActivityExecutor(providers *ai.Providers) *AIExecutor {
	return &AIExecutor{nodeType: schema.NodeAIRouteActivity, providers: providers}
}

func (e *AIExecutor) Type() schema.NodeType { return e.nodeType }

func (e *AIExecutor) Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error) {
	cfg := node.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	providerName := stringParam(cfg, "provider", "")
	provider := e.providers.Select(providerName)
	if provider == nil {
		return nil, schema.NewError(schema.ErrCodeProvider, "no inference provider configured")
	}

	input := fmt.Sprintf("%v", rc.Resolve(stringParam(cfg, "input", "")))

	var output map[string]any
	var err error
	switch e.nodeType {
	case schema.NodeAIClassifyStage:
		output, err = e.classifyStage(ctx, provider, input, rc)
	case schema.NodeAIDraftEmail:
		output, err = e.draftEmail(ctx, provider, input, rc)
	case schema.NodeAIEnrichAccount:
		output, err = e.enrichAccount(ctx, provider, input, rc)
	case schema.NodeAIRouteActivity:
		output, err = e.routeActivity(ctx, provider, input, rc)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "unsupported ai node type %q", e.nodeType)
	}
	if err != nil {
		return nil, err
	}

	output["provider"] = provider.Name()
	return output, nil
}

func (e *AIExecutor) classifyStage(ctx context.Context, p ai.Provider, input string, rc *RunContext) (map[string]any, error) {
	stage, err := p.ClassifyStage(ctx, input)
	if err != nil {
		return nil, err
	}
	rc.Set("classified_stage", stage)
	return map[string]any{"stage": stage}, nil
}

func (e *AIExecutor) draftEmail(ctx context.Context, p ai.Provider, input string, rc *RunContext) (map[string]any, error) {
	draft, err := p.DraftEmail(ctx, input)
	if err != nil {
		return nil, err
	}
	rc.Set("drafted_email", map[string]any{"subject": draft.Subject, "body": draft.Body})
	return map[string]any{"subject": draft.Subject, "body": draft.Body}, nil
}

func (e *AIExecutor) enrichAccount(ctx context.Context, p ai.Provider, input string, rc *RunContext) (map[string]any, error) {
	enriched, err := p.EnrichAccount(ctx, input)
	if err != nil {
		return nil, err
	}
	rc.Set("enriched_account", enriched)
	return map[string]any{"enriched": enriched}, nil
}

func (e *AIExecutor) routeActivity(ctx context.Context, p ai.Provider, input string, rc *RunContext) (map[string]any, error) {
	team, err := p.RouteActivity(ctx, input)
	if err != nil {
		return nil, err
	}
	rc.Set("routed_team", team)
	return map[string]any{"team": team}, nil
}
