package executors

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// SendEmailExecutor does not talk to an SMTP provider. It records an
// outbound-email intent as an activity of type "email"; a separate delivery
// process picks those up. The output confirms queuing, not delivery.
type SendEmailExecutor struct {
	crm CRMStore
}

// NewSendEmailExecutor creates the send_email executor.
func NewSendEmailExecutor(crm CRMStore) *SendEmailExecutor {
	return &SendEmailExecutor{crm: crm}
}

func (e *SendEmailExecutor) Type() schema.NodeType { return schema.NodeSendEmail }

func (e *SendEmailExecutor) Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error) {
	cfg := node.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	to := fmt.Sprintf("%v", rc.Resolve(stringParam(cfg, "to", "")))
	if to == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "send_email: missing required config 'to'")
	}
	subject := fmt.Sprintf("%v", rc.Resolve(stringParam(cfg, "subject", "")))
	body := fmt.Sprintf("%v", rc.Resolve(stringParam(cfg, "body", "")))

	fields := map[string]any{
		"type":    "email",
		"to":      to,
		"subject": subject,
		"body":    body,
		"status":  "queued",
	}

	// Link the email to the entity a prior find node located, lead first.
	if id, ok := rc.FoundID("lead"); ok {
		fields["related_to"] = "lead"
		fields["related_id"] = id
	} else if id, ok := rc.FoundID("contact"); ok {
		fields["related_to"] = "contact"
		fields["related_id"] = id
	}

	rec := &store.Record{
		ID:       uuid.New().String(),
		TenantID: rc.TenantID,
		Entity:   "activity",
		Data:     fields,
	}
	if err := e.crm.InsertRecord(ctx, rec); err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "send_email: queue insert failed").WithCause(err)
	}

	return map[string]any{
		"queued":      true,
		"activity_id": rec.ID,
		"to":          to,
		"subject":     subject,
	}, nil
}
