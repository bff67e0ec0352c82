package providers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/evalforge/evalforge/internal/llm/transport"
)

// ErrUnknownProvider indicates no adapter is registered for a provider name.
var ErrUnknownProvider = errors.New("unknown provider")

// Router maps provider names to adapters. The zero value is unusable; use
// NewRouter, which registers the OpenAI adapter by default.
type Router struct {
	mu       sync.RWMutex
	adapters map[string]transport.ProviderAdapter
}

// NewRouter creates a router with the default OpenAI adapter registered.
func NewRouter() *Router {
	r := &Router{adapters: make(map[string]transport.ProviderAdapter)}
	r.Register(NewOpenAIAdapter())
	return r
}

// Register adds or replaces the adapter for its provider name.
func (r *Router) Register(adapter transport.ProviderAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Name()] = adapter
}

// Pick implements transport.Router. An empty provider name selects OpenAI.
func (r *Router) Pick(provider string) (transport.ProviderAdapter, error) {
	if provider == "" {
		provider = ProviderOpenAI
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return adapter, nil
}
