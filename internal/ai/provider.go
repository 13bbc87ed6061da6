// Package ai holds the inference strategies behind the ai_* node family.
// A Provider answers the four CRM inference questions; implementations are
// selected per node via the "provider" config key.
package ai

import (
	"context"
	"sync"
)

// Draft is a drafted outbound email.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Provider is the strategy interface for AI-assisted nodes.
type Provider interface {
	Name() string
	ClassifyStage(ctx context.Context, input string) (string, error)
	DraftEmail(ctx context.Context, input string) (*Draft, error)
	EnrichAccount(ctx context.Context, input string) (map[string]any, error)
	RouteActivity(ctx context.Context, input string) (string, error)
}

// Providers is a thread-safe provider lookup with a fallback default.
// Unknown provider names resolve to the default rather than failing the
// node; external providers are best-effort.
type Providers struct {
	mu        sync.RWMutex
	byName    map[string]Provider
	fallback  Provider
}

// NewProviders creates a registry with the given default provider.
func NewProviders(fallback Provider) *Providers {
	p := &Providers{
		byName:   make(map[string]Provider),
		fallback: fallback,
	}
	if fallback != nil {
		p.byName[fallback.Name()] = fallback
	}
	return p
}

// Register adds a named provider, replacing any previous one with that name.
func (p *Providers) Register(provider Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byName[provider.Name()] = provider
}

// Select returns the provider for a name. Empty or unknown names resolve to
// the default.
func (p *Providers) Select(name string) Provider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if name != "" {
		if provider, ok := p.byName[name]; ok {
			return provider
		}
	}
	return p.fallback
}
