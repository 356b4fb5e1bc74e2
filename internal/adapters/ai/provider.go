package ai

import (
	"context"
	"sort"
	"sync"

	"scribe/internal/pricing"
)

// Provider is a single AI vendor client. Implementations absorb the
// vendor wire protocol and return normalized results with token usage
// attached. Capabilities a vendor lacks return ErrUnsupportedCapability.
type Provider interface {
	Name() ProviderName
	DisplayName() string
	Config() *Config

	// TestConnection performs a minimal authenticated round trip.
	TestConnection(ctx context.Context) error

	GenerateText(ctx context.Context, prompt string, opts GenerationOptions) (*GenerationResult, error)
	AnalyzeImage(ctx context.Context, imageURL string, opts GenerationOptions) (*VisionResult, error)
	GenerateImage(ctx context.Context, prompt string, opts GenerationOptions) (*ImageResult, error)

	// SupportsChat reports whether the vendor has a native multi-turn
	// endpoint. Callers flatten conversations for vendors without one.
	SupportsChat() bool
	ChatCompletion(ctx context.Context, messages []Message, opts GenerationOptions) (*GenerationResult, error)
}

// Config holds a provider's mutable runtime settings. API key and model
// can be rotated at runtime without rebuilding the provider, so access
// is guarded.
type Config struct {
	mu sync.RWMutex

	name         ProviderName
	displayName  string
	apiKey       string
	model        string
	defaultModel string
	models       map[string]string
	prices       pricing.Table
}

// NewConfig builds provider settings with a fixed model catalog.
func NewConfig(name ProviderName, displayName, defaultModel, apiKey string, models map[string]string, prices pricing.Table) *Config {
	return &Config{
		name:         name,
		displayName:  displayName,
		apiKey:       apiKey,
		defaultModel: defaultModel,
		models:       models,
		prices:       prices,
	}
}

func (c *Config) Name() ProviderName  { return c.name }
func (c *Config) DisplayName() string { return c.displayName }

func (c *Config) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

func (c *Config) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

// Model returns the currently selected model, falling back to the
// provider default when none was set.
func (c *Config) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.model != "" {
		return c.model
	}
	return c.defaultModel
}

func (c *Config) SetModel(model string) {
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
}

func (c *Config) DefaultModel() string { return c.defaultModel }

// Models returns the selectable model catalog keyed by model ID, with
// human readable labels as values. The returned map is a copy.
func (c *Config) Models() map[string]string {
	out := make(map[string]string, len(c.models))
	for id, label := range c.models {
		out[id] = label
	}
	return out
}

// ModelIDs returns catalog model IDs in stable order.
func (c *Config) ModelIDs() []string {
	ids := make([]string, 0, len(c.models))
	for id := range c.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pricing returns the per-million-token price table for this provider.
func (c *Config) Pricing() pricing.Table { return c.prices }
