package ai

// ProviderName identifies a configured AI vendor.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGoogle    ProviderName = "google"
)

// Action labels the kind of operation for usage accounting.
type Action string

const (
	ActionTextGeneration  Action = "text_generation"
	ActionChat            Action = "chat"
	ActionTagging         Action = "tagging"
	ActionTranslation     Action = "translation"
	ActionImageAnalysis   Action = "image_analysis"
	ActionImageGeneration Action = "image_generation"
)

const (
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7

	maxTokensTagging     = 500
	maxTokensTranslation = 1000

	defaultVisionPrompt = "Describe this image in detail, including any text visible in the image."
)
