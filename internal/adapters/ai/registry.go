package ai

import (
	"sync"

	"scribe/internal/adapters/config"
	"scribe/internal/pricing"
)

// Registry holds the fixed set of configured providers and tracks which
// one is active. Membership never changes after construction; switching
// the active provider is the only mutation.
type Registry struct {
	mu        sync.RWMutex
	order     []ProviderName
	providers map[ProviderName]Provider
	active    ProviderName
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[ProviderName]Provider)}
}

// Register adds a provider. The first registered provider becomes
// active until SetActive chooses another.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
	if r.active == "" {
		r.active = name
	}
}

// Get returns the named provider, or the active one when name is empty.
func (r *Registry) Get(name ProviderName) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.active
	}
	p, ok := r.providers[name]
	return p, ok
}

// List returns provider names in registration order.
func (r *Registry) List() []ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderName, len(r.order))
	copy(out, r.order)
	return out
}

// Active returns the currently selected provider name.
func (r *Registry) Active() ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// SetActive switches the active provider. An unknown name leaves the
// selection unchanged and returns false.
func (r *Registry) SetActive(name ProviderName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return false
	}
	r.active = name
	return true
}

// PricingBook assembles every registered provider's price table, keyed
// by provider name.
func (r *Registry) PricingBook() pricing.Book {
	r.mu.RLock()
	defer r.mu.RUnlock()

	book := make(pricing.Book, len(r.providers))
	for name, p := range r.providers {
		book[string(name)] = p.Config().Pricing()
	}
	return book
}

// BuildRegistry wires all three vendors from configuration. Providers
// without an API key are still registered; their calls fail with
// ErrMissingAPIKey instead of being absent.
func BuildRegistry(cfg config.AIConfig) *Registry {
	timeout := cfg.RequestTimeout
	limiter := func(name ProviderName) RateLimiter {
		return newLimiter(name, cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	}

	r := NewRegistry()
	r.Register(NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, timeout, limiter(ProviderOpenAI)))
	r.Register(NewAnthropicProvider(cfg.AnthropicKey, cfg.AnthropicModel, timeout, limiter(ProviderAnthropic)))
	r.Register(NewGoogleProvider(cfg.GoogleKey, cfg.GoogleModel, timeout, limiter(ProviderGoogle)))

	if !r.SetActive(ProviderName(cfg.ActiveProvider)) {
		r.SetActive(ProviderOpenAI)
	}
	return r
}
