package ai

import (
	"context"
	"net/http"
	"time"

	"scribe/internal/pricing"
	"scribe/pkg/errors"
)

const (
	anthropicDefaultBaseURL     = "https://api.anthropic.com"
	anthropicDefaultModel       = "claude-sonnet-4-5"
	anthropicDefaultVisionModel = "claude-haiku-4-5"
	anthropicAPIVersion         = "2023-06-01"
)

// AnthropicProvider talks to the Anthropic messages API.
type AnthropicProvider struct {
	httpCore
	cfg     *Config
	baseURL string
}

func anthropicModels() map[string]string {
	return map[string]string{
		"claude-opus-4-5":   "Claude Opus 4.5",
		"claude-sonnet-4-5": "Claude Sonnet 4.5",
		"claude-haiku-4-5":  "Claude Haiku 4.5",
	}
}

func anthropicPricing() pricing.Table {
	return pricing.MustTable(
		map[string]string{
			"claude-opus-4-5":   "5.00",
			"claude-sonnet-4-5": "3.00",
			"claude-haiku-4-5":  "1.00",
		},
		map[string]string{
			"claude-opus-4-5":   "25.00",
			"claude-sonnet-4-5": "15.00",
			"claude-haiku-4-5":  "5.00",
		},
	)
}

// NewAnthropicProvider creates an Anthropic client. An empty model
// selects the provider default.
func NewAnthropicProvider(apiKey, model string, timeout time.Duration, limiter RateLimiter) *AnthropicProvider {
	cfg := NewConfig(ProviderAnthropic, "Anthropic", anthropicDefaultModel, apiKey, anthropicModels(), anthropicPricing())
	if model != "" {
		cfg.SetModel(model)
	}
	return &AnthropicProvider{
		httpCore: newHTTPCore(ProviderAnthropic, timeout, limiter),
		cfg:      cfg,
		baseURL:  anthropicDefaultBaseURL,
	}
}

func (p *AnthropicProvider) Name() ProviderName  { return ProviderAnthropic }
func (p *AnthropicProvider) DisplayName() string { return "Anthropic" }
func (p *AnthropicProvider) Config() *Config     { return p.cfg }
func (p *AnthropicProvider) SupportsChat() bool  { return true }

func (p *AnthropicProvider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.cfg.APIKey(),
		"anthropic-version": anthropicAPIVersion,
	}
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicContentPart struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// TestConnection sends a minimal one-word completion request; the
// messages API has no cheap unauthenticated probe.
func (p *AnthropicProvider) TestConnection(ctx context.Context) error {
	if err := requireAPIKey(p.cfg); err != nil {
		return err
	}
	req := anthropicRequest{
		Model:     p.cfg.Model(),
		MaxTokens: 10,
		Messages:  []anthropicMessage{{Role: "user", Content: "Hello"}},
	}
	return p.doJSON(ctx, http.MethodPost, p.baseURL+"/v1/messages", p.headers(), req, nil)
}

func (p *AnthropicProvider) complete(ctx context.Context, req anthropicRequest, promptText string) (*GenerationResult, error) {
	if err := requireAPIKey(p.cfg); err != nil {
		return nil, err
	}

	var resp anthropicResponse
	if err := p.doJSON(ctx, http.MethodPost, p.baseURL+"/v1/messages", p.headers(), req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return nil, errors.Wrap(errors.ErrInvalidResponse, "anthropic: response has no text content")
	}
	text := resp.Content[0].Text

	var usage Usage
	if resp.Usage != nil {
		usage = Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
	} else {
		usage.InputTokens = estimateTokens(promptText)
		usage.OutputTokens = estimateTokens(text)
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &GenerationResult{Text: text, Model: req.Model, Usage: usage}, nil
}

func (p *AnthropicProvider) GenerateText(ctx context.Context, prompt string, opts GenerationOptions) (*GenerationResult, error) {
	model := opts.Model
	if model == "" {
		model = p.cfg.Model()
	}
	req := anthropicRequest{
		Model:       model,
		MaxTokens:   opts.maxTokens(),
		Temperature: opts.temperature(),
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}
	return p.complete(ctx, req, prompt)
}

// ChatCompletion maps system turns to the dedicated system field; the
// messages API accepts only user and assistant roles inline.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, messages []Message, opts GenerationOptions) (*GenerationResult, error) {
	model := opts.Model
	if model == "" {
		model = p.cfg.Model()
	}

	var system, promptText string
	wire := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		promptText += m.Content
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		wire = append(wire, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	req := anthropicRequest{
		Model:       model,
		MaxTokens:   opts.maxTokens(),
		Temperature: opts.temperature(),
		System:      system,
		Messages:    wire,
	}
	return p.complete(ctx, req, promptText)
}

// AnalyzeImage downloads the image and sends it inline; the messages
// API does not fetch remote URLs.
func (p *AnthropicProvider) AnalyzeImage(ctx context.Context, imageURL string, opts GenerationOptions) (*VisionResult, error) {
	if err := requireAPIKey(p.cfg); err != nil {
		return nil, err
	}

	model := opts.Model
	if model == "" {
		model = anthropicDefaultVisionModel
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = defaultVisionPrompt
	}

	data, mimeType, err := p.fetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	req := anthropicRequest{
		Model:     model,
		MaxTokens: opts.maxTokens(),
		Messages: []anthropicMessage{{
			Role: "user",
			Content: []anthropicContentPart{
				{Type: "image", Source: &anthropicImageSource{Type: "base64", MediaType: mimeType, Data: data}},
				{Type: "text", Text: prompt},
			},
		}},
	}

	res, err := p.complete(ctx, req, prompt)
	if err != nil {
		return nil, err
	}
	return &VisionResult{Description: res.Text, Model: res.Model, Usage: res.Usage}, nil
}

func (p *AnthropicProvider) GenerateImage(ctx context.Context, prompt string, opts GenerationOptions) (*ImageResult, error) {
	return nil, errors.Wrap(errors.ErrUnsupportedCapability, "anthropic: image generation not supported")
}
