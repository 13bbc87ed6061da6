package executors

import (
	"github.com/andreibyf/aishacrm-engine/internal/ai"
	"github.com/andreibyf/aishacrm-engine/internal/expressions"
)

// RegisterBuiltins registers the executor for every supported node type.
func RegisterBuiltins(reg *Registry, crm CRMStore, providers *ai.Providers, cel *expressions.CELEngine, httpCfg HTTPConfig) error {
	mapper := NewMapper()

	all := []Executor{
		NewWebhookTriggerExecutor(),
		NewHTTPRequestExecutor(httpCfg, mapper),
		NewSendEmailExecutor(crm),

		NewFindLeadExecutor(crm),
		NewFindContactExecutor(crm),
		NewFindAccountExecutor(crm),

		NewCreateLeadExecutor(crm, mapper),
		NewCreateOpportunityExecutor(crm, mapper),
		NewCreateActivityExecutor(crm, mapper),

		NewUpdateLeadExecutor(crm, mapper),
		NewUpdateContactExecutor(crm, mapper),
		NewUpdateAccountExecutor(crm, mapper),
		NewUpdateOpportunityExecutor(crm, mapper),

		NewConditionExecutor(cel),

		NewAIClassifyStageExecutor(providers),
		NewAIDraftEmailExecutor(providers),
		NewAIEnrichAccountExecutor(providers),
		NewAIRouteActivityExecutor(providers),
	}

	for _, e := range all {
		if err := reg.Register(e); err != nil {
			return err
		}
	}
	return nil
}
