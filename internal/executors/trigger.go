package executors

import (
	"context"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// WebhookTriggerExecutor is the entry node. Pure pass-through: its output is
// the trigger payload.
type WebhookTriggerExecutor struct{}

// NewWebhookTriggerExecutor creates the webhook_trigger executor.
func NewWebhookTriggerExecutor() *WebhookTriggerExecutor {
	return &WebhookTriggerExecutor{}
}

func (e *WebhookTriggerExecutor) Type() schema.NodeType { return schema.NodeWebhookTrigger }

func (e *WebhookTriggerExecutor) Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error) {
	return map[string]any{"payload": rc.Payload}, nil
}
