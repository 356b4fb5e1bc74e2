package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"scribe/internal/events"
	"scribe/internal/metrics"
	"scribe/pkg/errors"
	"scribe/pkg/logger"
)

// ManagerOptions carries site-wide prompt settings.
type ManagerOptions struct {
	// Preamble is prepended to every generation prompt.
	Preamble string
	// VisualStyle is prepended to image-generation prompts.
	VisualStyle string
	// DefaultLanguage pins the response language when the subject has none.
	DefaultLanguage string
}

// Manager is the single entry point for AI operations. It routes calls
// to the active provider, assembles prompts, records usage and emits
// operation events. Provider errors pass through unchanged; there is no
// retry or provider fallback.
type Manager struct {
	registry *Registry
	recorder UsageRecorder
	sink     events.Sink
	log      *logger.Logger
	opts     ManagerOptions
}

func NewManager(registry *Registry, recorder UsageRecorder, sink events.Sink, opts ManagerOptions) *Manager {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Manager{
		registry: registry,
		recorder: recorder,
		sink:     sink,
		log:      logger.Get().With("component", "ai_manager"),
		opts:     opts,
	}
}

func (m *Manager) Registry() *Registry { return m.registry }

func (m *Manager) provider() (Provider, error) {
	p, ok := m.registry.Get("")
	if !ok {
		return nil, errors.Wrap(errors.ErrProviderNotFound, "no active provider")
	}
	return p, nil
}

// TestConnection verifies the named provider's credential, or the
// active provider's when name is empty.
func (m *Manager) TestConnection(ctx context.Context, name ProviderName) error {
	p, ok := m.registry.Get(name)
	if !ok {
		return errors.Wrapf(errors.ErrProviderNotFound, "provider %q", name)
	}
	return p.TestConnection(ctx)
}

func (m *Manager) language(subject *Subject) string {
	if subject != nil && subject.Language != "" {
		return subject.Language
	}
	return m.opts.DefaultLanguage
}

// GenerateText runs a single-prompt completion on the active provider.
// The configured preamble and a language directive are prepended before
// the call.
func (m *Manager) GenerateText(ctx context.Context, prompt string, opts GenerationOptions, subject *Subject) (*GenerationResult, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}

	full := prompt
	if m.opts.Preamble != "" {
		full = m.opts.Preamble + "\n\n" + full
	}
	if lang := m.language(subject); lang != "" {
		full = languageDirective(lang) + "\n\n" + full
	}

	start := time.Now()
	res, err := p.GenerateText(ctx, full, opts)
	if err != nil {
		m.fail(ctx, p, ActionTextGeneration, start, err)
		return nil, err
	}

	m.succeed(ctx, p, ActionTextGeneration, events.TypeTextGenerated, res.Model, res.Usage, subject, nil, start)
	return res, nil
}

// roleLabels render chat turns for providers without a native chat
// endpoint. Unknown roles are skipped.
var roleLabels = map[MessageRole]string{
	RoleSystem:    "System",
	RoleUser:      "User",
	RoleAssistant: "Assistant",
}

// FlattenMessages renders a conversation as a single prompt, one
// "{Role}: {content}" paragraph per turn plus a trailing assistant cue.
// The transformation is deterministic and order preserving.
func FlattenMessages(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		label, ok := roleLabels[msg.Role]
		if !ok {
			continue
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Assistant: ")
	return b.String()
}

// ChatCompletion runs a multi-turn conversation. Providers with native
// chat get the message list as is; the rest get a flattened prompt.
func (m *Manager) ChatCompletion(ctx context.Context, messages []Message, opts GenerationOptions, subject *Subject) (*GenerationResult, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var res *GenerationResult
	if p.SupportsChat() {
		res, err = p.ChatCompletion(ctx, messages, opts)
	} else {
		res, err = p.GenerateText(ctx, FlattenMessages(messages), opts)
	}
	if err != nil {
		m.fail(ctx, p, ActionChat, start, err)
		return nil, err
	}

	details := map[string]any{"messages_count": len(messages)}
	m.succeed(ctx, p, ActionChat, events.TypeChatCompleted, res.Model, res.Usage, subject, details, start)
	return res, nil
}

func buildTaggingPrompt(content string, taxonomies map[string][]string, lang string) string {
	var b strings.Builder

	if lang != "" {
		fmt.Fprintf(&b, "IMPORTANT: The content is in %s (%s). Generate tags and categories in the same language.\n\n",
			LanguageName(lang), lang)
	}

	b.WriteString("Analyze the following content and suggest relevant tags and categories.\n\n")
	fmt.Fprintf(&b, "Content: %s\n\n", content)

	if len(taxonomies) > 0 {
		b.WriteString("Available taxonomies:\n")
		names := make([]string, 0, len(taxonomies))
		for name := range taxonomies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %s\n", name, strings.Join(taxonomies[name], ", "))
		}
	}

	b.WriteString("\nReturn ONLY valid JSON. Do not add any text before or after JSON.\n")
	b.WriteString("{\n")
	b.WriteString("  \"taxonomies\": {\n")
	b.WriteString("    \"post_tag\": [\"tag1\", \"tag2\"],\n")
	b.WriteString("    \"category\": [\"category1\"]\n")
	b.WriteString("  },\n")
	b.WriteString("  \"audience\": [\"audience1\", \"audience2\"]\n")
	b.WriteString("}\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Prefer terms from available taxonomies list when relevant.\n")
	b.WriteString("- Only include taxonomies that are provided in the available taxonomies list.\n")
	b.WriteString("- If a taxonomy has no suitable terms, return an empty array for it.\n")
	b.WriteString("- Keep terms concise and avoid duplicates.")

	return b.String()
}

// GenerateTags asks the active provider for tag and category
// suggestions and parses the response tolerantly. The taxonomies map
// lists existing terms per taxonomy to steer the model.
func (m *Manager) GenerateTags(ctx context.Context, content string, taxonomies map[string][]string, subject *Subject) (*TaxonomySuggestion, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}

	var lang string
	if subject != nil {
		lang = subject.Language
	}
	prompt := buildTaggingPrompt(content, taxonomies, lang)

	start := time.Now()
	res, err := p.GenerateText(ctx, prompt, GenerationOptions{MaxTokens: maxTokensTagging})
	if err != nil {
		m.fail(ctx, p, ActionTagging, start, err)
		return nil, err
	}

	suggestion := ParseTaxonomySuggestion(res.Text)

	details := map[string]any{"tags_count": len(suggestion.Tags) + len(suggestion.Categories)}
	m.succeed(ctx, p, ActionTagging, events.TypeTagsSuggested, res.Model, res.Usage, subject, details, start)
	return suggestion, nil
}

func (m *Manager) buildTranslationPrompt(text, targetLang, sourceLang string, hints []string, subject *Subject) string {
	prompt := fmt.Sprintf("Translate the following text to %s (%s)", LanguageName(targetLang), targetLang)

	if sourceLang != "" && sourceLang != "auto" {
		prompt += fmt.Sprintf(" from %s (%s)", LanguageName(sourceLang), sourceLang)
	}
	if len(hints) > 0 {
		prompt += ". Context: " + strings.Join(hints, ", ")
	}
	if subject != nil && subject.Language != "" && subject.Language != targetLang {
		prompt += fmt.Sprintf(". The content is in %s, ensure the translation maintains the same tone and style.",
			LanguageName(subject.Language))
	}

	return prompt + ":\n\n" + text + "\n\nTranslation:"
}

// TranslateText translates text to the target language. sourceLang
// "auto" or empty lets the model detect the source; hints supply
// optional context terms. Returns only the translated text.
func (m *Manager) TranslateText(ctx context.Context, text, targetLang, sourceLang string, hints []string, subject *Subject) (string, error) {
	p, err := m.provider()
	if err != nil {
		return "", err
	}

	prompt := m.buildTranslationPrompt(text, targetLang, sourceLang, hints, subject)

	start := time.Now()
	res, err := p.GenerateText(ctx, prompt, GenerationOptions{MaxTokens: maxTokensTranslation})
	if err != nil {
		m.fail(ctx, p, ActionTranslation, start, err)
		return "", err
	}

	details := map[string]any{"target_language": targetLang}
	m.succeed(ctx, p, ActionTranslation, events.TypeTextTranslated, res.Model, res.Usage, subject, details, start)
	return res.Text, nil
}

// AnalyzeImage describes the image at the given URL with the active
// provider's vision model.
func (m *Manager) AnalyzeImage(ctx context.Context, imageURL string, opts GenerationOptions, subject *Subject) (*VisionResult, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := p.AnalyzeImage(ctx, imageURL, opts)
	if err != nil {
		m.fail(ctx, p, ActionImageAnalysis, start, err)
		return nil, err
	}

	details := map[string]any{"image_url": imageURL}
	m.succeed(ctx, p, ActionImageAnalysis, events.TypeImageAnalyzed, res.Model, res.Usage, subject, details, start)
	return res, nil
}

// GenerateImage produces images from a text prompt. Visual style and
// preamble instructions are prepended in that order. Providers without
// image support return ErrUnsupportedCapability.
func (m *Manager) GenerateImage(ctx context.Context, prompt string, opts GenerationOptions, subject *Subject) (*ImageResult, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}

	full := prompt
	if m.opts.VisualStyle != "" {
		full = m.opts.VisualStyle + ". " + full
	}
	if m.opts.Preamble != "" {
		full = m.opts.Preamble + ". " + full
	}

	start := time.Now()
	res, err := p.GenerateImage(ctx, full, opts)
	if err != nil {
		m.fail(ctx, p, ActionImageGeneration, start, err)
		return nil, err
	}

	details := map[string]any{"images_count": len(res.Images)}
	m.succeed(ctx, p, ActionImageGeneration, events.TypeImageGenerated, res.Model, res.Usage, subject, details, start)
	return res, nil
}

// succeed records usage and emits the operation event for a completed
// call. Both paths are best effort and never fail the operation.
func (m *Manager) succeed(ctx context.Context, p Provider, action Action, evtType events.Type, model string, usage Usage, subject *Subject, details map[string]any, start time.Time) {
	metrics.RecordAICall(string(p.Name()), string(action), time.Since(start), nil)

	if m.recorder != nil {
		req := TrackRequest{
			Provider: p.Name(),
			Action:   action,
			Model:    model,
			Usage:    usage,
		}
		if subject != nil {
			req.ActorID = subject.ActorID
			req.SubjectID = subject.ID
		}
		m.recorder.Track(ctx, req)
	}

	evt := events.Event{
		Type:        evtType,
		Provider:    string(p.Name()),
		Model:       model,
		TotalTokens: usage.TotalTokens,
		Details:     details,
		At:          time.Now().UTC(),
	}
	if subject != nil {
		evt.SubjectID = subject.ID
	}
	m.emit(ctx, evt)
}

// fail emits a failure event. Failed calls are never billed, so no
// usage record is written.
func (m *Manager) fail(ctx context.Context, p Provider, action Action, start time.Time, err error) {
	metrics.RecordAICall(string(p.Name()), string(action), time.Since(start), err)
	m.log.Errorw("ai call failed", "provider", p.Name(), "action", action, "error", err)

	m.emit(ctx, events.Event{
		Type:     events.TypeCallFailed,
		Provider: string(p.Name()),
		Error:    err.Error(),
		Details:  map[string]any{"action": string(action)},
		At:       time.Now().UTC(),
	})
}

func (m *Manager) emit(ctx context.Context, evt events.Event) {
	if err := m.sink.Publish(ctx, evt); err != nil {
		m.log.Warnw("event publish failed", "type", evt.Type, "error", err)
	}
}
