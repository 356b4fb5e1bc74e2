package events

import (
	"context"
	"time"

	"scribe/pkg/logger"
)

// Type labels an operation event.
type Type string

const (
	TypeTextGenerated  Type = "ai.text_generated"
	TypeChatCompleted  Type = "ai.chat_completed"
	TypeTagsSuggested  Type = "ai.tags_suggested"
	TypeTextTranslated Type = "ai.text_translated"
	TypeImageAnalyzed  Type = "ai.image_analyzed"
	TypeImageGenerated Type = "ai.image_generated"
	TypeCallFailed     Type = "ai.call_failed"
)

// Event describes one completed or failed AI operation.
type Event struct {
	Type        Type           `json:"type"`
	Provider    string         `json:"provider"`
	Model       string         `json:"model,omitempty"`
	SubjectID   string         `json:"subject_id,omitempty"`
	TotalTokens int64          `json:"total_tokens,omitempty"`
	Error       string         `json:"error,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	At          time.Time      `json:"at"`
}

// Sink receives operation events. Publishing is best effort: callers
// log failures but never propagate them.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NoopSink discards all events.
type NoopSink struct{}

func (NoopSink) Publish(ctx context.Context, evt Event) error { return nil }
func (NoopSink) Close() error                                 { return nil }

// LogSink writes events to the application log. Used in development
// when no broker is configured.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{log: logger.Get().With("component", "events")}
}

func (s *LogSink) Publish(ctx context.Context, evt Event) error {
	s.log.Debugw("event", "type", evt.Type, "provider", evt.Provider, "model", evt.Model)
	return nil
}

func (s *LogSink) Close() error { return nil }
