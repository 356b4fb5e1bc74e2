package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"scribe/internal/pricing"
	"scribe/pkg/errors"
)

const (
	googleDefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	googleDefaultModel      = "gemini-2.5-flash"
	googleDefaultImageModel = "gemini-2.5-flash-image"

	// Flat per-image output charge; Gemini does not report token usage
	// for generated images.
	googleImageOutputTokens = 100
)

// GoogleProvider talks to the Gemini generateContent API. It is the
// only provider with image generation support.
type GoogleProvider struct {
	httpCore
	cfg     *Config
	baseURL string
}

func googleModels() map[string]string {
	return map[string]string{
		"gemini-3-pro-preview":   "Gemini 3 Pro Preview",
		"gemini-2.5-pro":         "Gemini 2.5 Pro",
		"gemini-2.5-flash":       "Gemini 2.5 Flash",
		"gemini-2.5-flash-lite":  "Gemini 2.5 Flash Lite",
		"gemini-2.5-flash-image": "Gemini 2.5 Flash Image",
		"gemini-3-pro-image":     "Gemini 3 Pro Image",
	}
}

func googlePricing() pricing.Table {
	return pricing.MustTable(
		map[string]string{
			"gemini-3-pro-preview":   "2.00",
			"gemini-2.5-pro":         "1.25",
			"gemini-2.5-flash":       "0.30",
			"gemini-2.5-flash-lite":  "0.10",
			"gemini-2.5-flash-image": "0.30",
			"gemini-3-pro-image":     "0.00",
		},
		map[string]string{
			"gemini-3-pro-preview":   "12.00",
			"gemini-2.5-pro":         "10.00",
			"gemini-2.5-flash":       "2.50",
			"gemini-2.5-flash-lite":  "0.40",
			"gemini-2.5-flash-image": "2.50",
			"gemini-3-pro-image":     "0.00",
		},
	)
}

// NewGoogleProvider creates a Gemini client. An empty model selects the
// provider default.
func NewGoogleProvider(apiKey, model string, timeout time.Duration, limiter RateLimiter) *GoogleProvider {
	cfg := NewConfig(ProviderGoogle, "Google Gemini", googleDefaultModel, apiKey, googleModels(), googlePricing())
	if model != "" {
		cfg.SetModel(model)
	}
	return &GoogleProvider{
		httpCore: newHTTPCore(ProviderGoogle, timeout, limiter),
		cfg:      cfg,
		baseURL:  googleDefaultBaseURL,
	}
}

func (p *GoogleProvider) Name() ProviderName  { return ProviderGoogle }
func (p *GoogleProvider) DisplayName() string { return "Google Gemini" }
func (p *GoogleProvider) Config() *Config     { return p.cfg }

// SupportsChat is false: Gemini calls here are single-turn, so chat
// conversations are flattened into one prompt upstream.
func (p *GoogleProvider) SupportsChat() bool { return false }

func (p *GoogleProvider) modelURL(model, verb string) string {
	return fmt.Sprintf("%s/models/%s%s?key=%s", p.baseURL, model, verb, p.cfg.APIKey())
}

type googleInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type googlePart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *googleInlineData `json:"inline_data,omitempty"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googleGenerationConfig struct {
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	Temperature        float64  `json:"temperature,omitempty"`
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type googleRequest struct {
	Contents         []googleContent         `json:"contents"`
	GenerationConfig *googleGenerationConfig `json:"generationConfig,omitempty"`
}

type googleResponsePart struct {
	Text       string `json:"text"`
	InlineData *struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData"`
}

type googleResponse struct {
	Candidates []struct {
		Content struct {
			Parts []googleResponsePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// TestConnection fetches the active model's metadata.
func (p *GoogleProvider) TestConnection(ctx context.Context) error {
	if err := requireAPIKey(p.cfg); err != nil {
		return err
	}
	return p.doJSON(ctx, http.MethodGet, p.modelURL(p.cfg.Model(), ""), nil, nil, nil)
}

func (p *GoogleProvider) generate(ctx context.Context, model string, req googleRequest) (*googleResponse, error) {
	if err := requireAPIKey(p.cfg); err != nil {
		return nil, err
	}
	var resp googleResponse
	if err := p.doJSON(ctx, http.MethodPost, p.modelURL(model, ":generateContent"), nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func firstText(resp *googleResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text
		}
	}
	return ""
}

func (p *GoogleProvider) GenerateText(ctx context.Context, prompt string, opts GenerationOptions) (*GenerationResult, error) {
	model := opts.Model
	if model == "" {
		model = p.cfg.Model()
	}

	req := googleRequest{
		Contents: []googleContent{{Parts: []googlePart{{Text: prompt}}}},
		GenerationConfig: &googleGenerationConfig{
			MaxOutputTokens: opts.maxTokens(),
			Temperature:     opts.temperature(),
		},
	}

	resp, err := p.generate(ctx, model, req)
	if err != nil {
		return nil, err
	}

	text := firstText(resp)
	if text == "" {
		return nil, errors.Wrap(errors.ErrInvalidResponse, "google: response has no text content")
	}

	// Gemini does not report token counts here; estimate from text.
	usage := Usage{
		InputTokens:  estimateTokens(prompt),
		OutputTokens: estimateTokens(text),
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &GenerationResult{Text: text, Model: model, Usage: usage}, nil
}

func (p *GoogleProvider) ChatCompletion(ctx context.Context, messages []Message, opts GenerationOptions) (*GenerationResult, error) {
	return nil, errors.Wrap(errors.ErrUnsupportedCapability, "google: no native chat endpoint")
}

// AnalyzeImage downloads the image and sends it inline. Token usage is
// estimated from the textual prompt, not the image payload.
func (p *GoogleProvider) AnalyzeImage(ctx context.Context, imageURL string, opts GenerationOptions) (*VisionResult, error) {
	if err := requireAPIKey(p.cfg); err != nil {
		return nil, err
	}

	model := opts.Model
	if model == "" {
		model = p.cfg.Model()
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = defaultVisionPrompt
	}

	data, mimeType, err := p.fetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	req := googleRequest{
		Contents: []googleContent{{Parts: []googlePart{
			{Text: prompt},
			{InlineData: &googleInlineData{MimeType: mimeType, Data: data}},
		}}},
		GenerationConfig: &googleGenerationConfig{
			MaxOutputTokens: opts.maxTokens(),
		},
	}

	resp, err := p.generate(ctx, model, req)
	if err != nil {
		return nil, err
	}

	text := firstText(resp)
	if text == "" {
		return nil, errors.Wrap(errors.ErrInvalidResponse, "google: response has no text content")
	}

	usage := Usage{
		InputTokens:  estimateTokens(prompt),
		OutputTokens: estimateTokens(text),
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &VisionResult{Description: text, Model: model, Usage: usage}, nil
}

func (p *GoogleProvider) GenerateImage(ctx context.Context, prompt string, opts GenerationOptions) (*ImageResult, error) {
	if err := requireAPIKey(p.cfg); err != nil {
		return nil, err
	}

	model := opts.Model
	if model == "" {
		model = googleDefaultImageModel
	}
	count := opts.NumImages
	if count <= 0 {
		count = 1
	}

	req := googleRequest{
		Contents: []googleContent{{Parts: []googlePart{{Text: prompt}}}},
		GenerationConfig: &googleGenerationConfig{
			CandidateCount:     count,
			ResponseModalities: []string{"image"},
		},
	}

	resp, err := p.generate(ctx, model, req)
	if err != nil {
		return nil, err
	}

	var images []GeneratedImage
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				images = append(images, GeneratedImage{
					Data:     part.InlineData.Data,
					MimeType: part.InlineData.MimeType,
				})
			}
		}
	}
	if len(images) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidResponse, "google: response has no image data")
	}

	usage := Usage{
		InputTokens:  estimateTokens(prompt),
		OutputTokens: int64(len(images)) * googleImageOutputTokens,
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &ImageResult{Images: images, Model: model, Usage: usage}, nil
}
