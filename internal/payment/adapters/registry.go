package adapters

import (
	"strings"

	"github.com/unselab/saju/internal/payment/domain"
	"go.uber.org/fx"
)

// Registry maps provider names to adapters.
type Registry struct {
	adapters map[string]domain.Adapter
}

type Params struct {
	fx.In

	Adapters []domain.Adapter `group:"payment.adapters"`
}

func NewRegistry(p Params) *Registry {
	registry := &Registry{adapters: map[string]domain.Adapter{}}
	for _, adapter := range p.Adapters {
		if adapter == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(adapter.Provider()))
		if provider == "" {
			continue
		}
		registry.adapters[provider] = adapter
	}
	return registry
}

func (r *Registry) Adapter(provider string) (domain.Adapter, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return adapter, nil
}
