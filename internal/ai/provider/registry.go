package provider

import (
	"fmt"

	"github.com/brenlab/bren-backend/internal/platform/logger"
)

// Registry routes catalog model names to vendor clients. Vendors whose API
// key is absent are simply not registered; invocation falls through to the
// next model in the chain.
type Registry struct {
	log     *logger.Logger
	clients map[string]Client
}

func NewRegistry(log *logger.Logger) *Registry {
	r := &Registry{
		log:     log.With("service", "ProviderRegistry"),
		clients: map[string]Client{},
	}
	if c, err := NewGoogleClient(log); err == nil {
		r.clients[VendorGoogle] = c
	} else {
		r.log.Warn("google provider disabled", "reason", err.Error())
	}
	if c, err := NewOpenAIClient(log); err == nil {
		r.clients[VendorOpenAI] = c
	} else {
		r.log.Warn("openai provider disabled", "reason", err.Error())
	}
	if c, err := NewAnthropicClient(log); err == nil {
		r.clients[VendorAnthropic] = c
	} else {
		r.log.Warn("anthropic provider disabled", "reason", err.Error())
	}
	return r
}

// ForModel resolves the client and wire id for a catalog model name.
func (r *Registry) ForModel(model string) (Client, string, error) {
	info, ok := Lookup(model)
	if !ok {
		return nil, "", fmt.Errorf("unknown model %q", model)
	}
	c, ok := r.clients[info.Vendor]
	if !ok {
		return nil, "", fmt.Errorf("no %s credentials configured", info.Vendor)
	}
	return c, info.Name, nil
}
