package ai

import "context"

// MessageRole is a chat turn role.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single turn in a chat conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// GenerationOptions tunes a single provider call. Zero values fall back
// to provider defaults.
type GenerationOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// Prompt overrides the default instruction for image analysis.
	Prompt string
	// NumImages requests multiple candidates from image generation.
	NumImages int
}

func (o GenerationOptions) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return defaultMaxTokens
}

func (o GenerationOptions) temperature() float64 {
	if o.Temperature > 0 {
		return o.Temperature
	}
	return defaultTemperature
}

// Usage holds token counts for a completed provider call. Totals are
// always populated: vendors that do not report counts get a
// deterministic estimate instead.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// GenerationResult is the outcome of a text or chat completion.
type GenerationResult struct {
	Text  string
	Model string
	Usage Usage
}

// VisionResult is the outcome of an image analysis call.
type VisionResult struct {
	Description string
	Model       string
	Usage       Usage
}

// GeneratedImage is one candidate produced by image generation.
type GeneratedImage struct {
	// Data is base64-encoded image bytes as returned by the vendor.
	Data     string
	MimeType string
}

// ImageResult is the outcome of an image generation call.
type ImageResult struct {
	Images []GeneratedImage
	Model  string
	Usage  Usage
}

// Subject describes the content entity an operation acts on behalf of,
// plus the acting user when known.
type Subject struct {
	ID       string
	Language string
	ActorID  string
}

// TrackRequest carries everything the usage ledger needs about one call.
type TrackRequest struct {
	Provider  ProviderName
	Action    Action
	Model     string
	Usage     Usage
	ActorID   string
	SubjectID string
	Metadata  map[string]any
}

// UsageRecorder receives accounting records for completed calls.
// Recording is best effort: implementations must not fail the caller.
type UsageRecorder interface {
	Track(ctx context.Context, req TrackRequest)
}
