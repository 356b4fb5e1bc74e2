package ai

import (
	"context"
	"net/http"
	"time"

	"scribe/internal/pricing"
	"scribe/pkg/errors"
)

const (
	openAIDefaultBaseURL     = "https://api.openai.com"
	openAIDefaultModel       = "gpt-5.1"
	openAIDefaultVisionModel = "gpt-4o-mini"
)

// OpenAIProvider talks to the OpenAI chat completions API.
type OpenAIProvider struct {
	httpCore
	cfg     *Config
	baseURL string
}

func openAIModels() map[string]string {
	return map[string]string{
		"gpt-5.1":      "GPT-5.1",
		"gpt-5-mini":   "GPT-5 Mini",
		"gpt-5-nano":   "GPT-5 Nano",
		"gpt-5-pro":    "GPT-5 Pro",
		"gpt-4.1":      "GPT-4.1",
		"gpt-4.1-mini": "GPT-4.1 Mini",
		"gpt-4o":       "GPT-4o",
		"gpt-4o-mini":  "GPT-4o Mini",
		"o3":           "o3",
		"o3-mini":      "o3 Mini",
	}
}

func openAIPricing() pricing.Table {
	return pricing.MustTable(
		map[string]string{
			"gpt-5.1":      "1.25",
			"gpt-5-mini":   "0.25",
			"gpt-5-nano":   "0.05",
			"gpt-5-pro":    "15.00",
			"gpt-4.1":      "2.00",
			"gpt-4.1-mini": "0.40",
			"gpt-4o":       "2.50",
			"gpt-4o-mini":  "0.15",
			"o3":           "0.00",
			"o3-mini":      "1.10",
		},
		map[string]string{
			"gpt-5.1":      "10.00",
			"gpt-5-mini":   "2.00",
			"gpt-5-nano":   "0.40",
			"gpt-5-pro":    "120.00",
			"gpt-4.1":      "8.00",
			"gpt-4.1-mini": "1.60",
			"gpt-4o":       "10.00",
			"gpt-4o-mini":  "0.60",
			"o3":           "0.00",
			"o3-mini":      "4.40",
		},
	)
}

// NewOpenAIProvider creates an OpenAI client. An empty model selects the
// provider default.
func NewOpenAIProvider(apiKey, model string, timeout time.Duration, limiter RateLimiter) *OpenAIProvider {
	cfg := NewConfig(ProviderOpenAI, "OpenAI", openAIDefaultModel, apiKey, openAIModels(), openAIPricing())
	if model != "" {
		cfg.SetModel(model)
	}
	return &OpenAIProvider{
		httpCore: newHTTPCore(ProviderOpenAI, timeout, limiter),
		cfg:      cfg,
		baseURL:  openAIDefaultBaseURL,
	}
}

func (p *OpenAIProvider) Name() ProviderName  { return ProviderOpenAI }
func (p *OpenAIProvider) DisplayName() string { return "OpenAI" }
func (p *OpenAIProvider) Config() *Config     { return p.cfg }
func (p *OpenAIProvider) SupportsChat() bool  { return true }

func (p *OpenAIProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.cfg.APIKey()}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// TestConnection lists models with the configured credential.
func (p *OpenAIProvider) TestConnection(ctx context.Context) error {
	if err := requireAPIKey(p.cfg); err != nil {
		return err
	}
	return p.doJSON(ctx, http.MethodGet, p.baseURL+"/v1/models", p.headers(), nil, nil)
}

func (p *OpenAIProvider) complete(ctx context.Context, messages []openAIMessage, model string, opts GenerationOptions, promptText string) (*GenerationResult, error) {
	if err := requireAPIKey(p.cfg); err != nil {
		return nil, err
	}

	req := openAIChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.maxTokens(),
		Temperature: opts.temperature(),
	}

	var resp openAIChatResponse
	if err := p.doJSON(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", p.headers(), req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.Wrap(errors.ErrInvalidResponse, "openai: response has no completion content")
	}
	text := resp.Choices[0].Message.Content

	var usage Usage
	if resp.Usage != nil {
		usage = Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
		if usage.TotalTokens == 0 {
			usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		}
	} else {
		usage.InputTokens = estimateTokens(promptText)
		usage.OutputTokens = estimateTokens(text)
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}

	return &GenerationResult{Text: text, Model: model, Usage: usage}, nil
}

func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt string, opts GenerationOptions) (*GenerationResult, error) {
	model := opts.Model
	if model == "" {
		model = p.cfg.Model()
	}
	messages := []openAIMessage{{Role: "user", Content: prompt}}
	return p.complete(ctx, messages, model, opts, prompt)
}

func (p *OpenAIProvider) ChatCompletion(ctx context.Context, messages []Message, opts GenerationOptions) (*GenerationResult, error) {
	model := opts.Model
	if model == "" {
		model = p.cfg.Model()
	}

	wire := make([]openAIMessage, 0, len(messages))
	var promptText string
	for _, m := range messages {
		wire = append(wire, openAIMessage{Role: string(m.Role), Content: m.Content})
		promptText += m.Content
	}
	return p.complete(ctx, wire, model, opts, promptText)
}

// AnalyzeImage sends the image by URL; OpenAI fetches it server side.
func (p *OpenAIProvider) AnalyzeImage(ctx context.Context, imageURL string, opts GenerationOptions) (*VisionResult, error) {
	model := opts.Model
	if model == "" {
		model = openAIDefaultVisionModel
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = defaultVisionPrompt
	}

	messages := []openAIMessage{{
		Role: "user",
		Content: []openAIContentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &openAIImageURL{URL: imageURL}},
		},
	}}

	res, err := p.complete(ctx, messages, model, opts, prompt)
	if err != nil {
		return nil, err
	}
	return &VisionResult{Description: res.Text, Model: res.Model, Usage: res.Usage}, nil
}

func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string, opts GenerationOptions) (*ImageResult, error) {
	return nil, errors.Wrap(errors.ErrUnsupportedCapability, "openai: image generation not supported")
}
