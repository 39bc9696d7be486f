// Package summarize turns normalized text into a schema-constrained
// structured summary through a configured generative provider.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	appcfg "github.com/distill-app/core/internal/config"
	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/distill-app/core/internal/pkg/retry"
	"go.uber.org/zap"
)

// Engine generates structured summaries and streamed abstracts. It is
// stateless; persistence belongs to the summary gateway.
type Engine struct {
	ai       appcfg.AIConfig
	pipeline appcfg.PipelineConfig
	logger   *zap.Logger
}

func NewEngine(cfg *appcfg.AppConfig, logger *zap.Logger) *Engine {
	return &Engine{ai: cfg.AI, pipeline: cfg.Pipeline, logger: logger}
}

// Generate produces a summary draft for already-normalized content. The
// returned model carries no ID, owner, or timestamps; the gateway assigns
// those on persist. Transport failures are retried within the configured
// budget, validation failures never are.
func (e *Engine) Generate(ctx context.Context, content string, sourceType models.SourceType, sourceURL string, prefs models.PreferenceProfile) (*models.SummaryModel, error) {
	if !models.ValidSourceType(sourceType) {
		return nil, &apperrors.ValidationError{Field: "source_type", Message: "unknown source type " + string(sourceType)}
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, &apperrors.ValidationError{Field: "content", Message: "must not be empty"}
	}

	provider := SelectProvider(e.ai, e.ai.SummaryModel)
	if provider == nil {
		return nil, &apperrors.GenerationError{Err: errors.New("no enabled AI provider")}
	}

	systemPrompt, prompt := buildSummaryPrompt(content, sourceType, prefs)
	started := time.Now()

	var raw string
	err := retry.WithBackoff(ctx, e.retryConfig(), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.pipeline.CallTimeout())
		defer cancel()

		var callErr error
		raw, callErr = callStructured(callCtx, provider, systemPrompt, prompt, e.pipeline.CallTimeout())
		return callErr
	})
	if err != nil {
		return nil, &apperrors.GenerationError{Provider: provider.Name, Err: err}
	}

	var payload summaryPayload
	if err := unmarshalAIJSON(raw, &payload); err != nil {
		// Well-formed JSON with a wrong-typed field is a schema violation,
		// not a missing payload.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &apperrors.ValidationError{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("must be of type %s, got %s", typeErr.Type, typeErr.Value),
			}
		}
		return nil, &apperrors.GenerationError{Provider: provider.Name, Err: err}
	}
	if err := validatePayload(&payload); err != nil {
		return nil, err
	}

	wordCount := payload.Metadata.WordCount
	if wordCount == 0 {
		wordCount = len(strings.Fields(content))
	}

	draft := &models.SummaryModel{
		Title:     strings.TrimSpace(payload.Title),
		Content:   content,
		KeyPoints: models.StringSlice(payload.KeyPoints),
		Themes:    models.StringSlice(payload.Themes),
		Insights:  models.InsightSlice(payload.Insights),
		Metadata: models.SummaryMetadata{
			WordCount:      wordCount,
			ProcessingTime: time.Since(started).Milliseconds(),
			// The declared source type wins over whatever the model claims.
			ContentType: sourceType,
		},
		SourceURL: sourceURL,
	}

	e.logger.Info("summary generated",
		zap.String("provider", provider.Name),
		zap.String("source_type", string(sourceType)),
		zap.Int("key_points", len(draft.KeyPoints)),
		zap.Int("insights", len(draft.Insights)),
		zap.Int64("elapsed_ms", draft.Metadata.ProcessingTime),
	)
	return draft, nil
}

// StreamAbstract generates a short plain-text abstract, emitting tokens as
// they arrive, and returns the full text.
func (e *Engine) StreamAbstract(ctx context.Context, content string, prefs models.PreferenceProfile, onToken func(string)) (string, error) {
	if err := prefs.Validate(); err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", &apperrors.ValidationError{Field: "content", Message: "must not be empty"}
	}

	assignment := e.ai.AbstractModel
	if assignment == nil {
		assignment = e.ai.SummaryModel
	}
	provider := SelectProvider(e.ai, assignment)
	if provider == nil {
		return "", &apperrors.GenerationError{Err: errors.New("no enabled AI provider")}
	}

	systemPrompt, prompt := buildAbstractPrompt(content, prefs)
	text, err := callStream(ctx, provider, systemPrompt, prompt, onToken)
	if err != nil {
		return "", &apperrors.GenerationError{Provider: provider.Name, Err: err}
	}
	return strings.TrimSpace(text), nil
}

func (e *Engine) retryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	if e.pipeline.MaxRetries > 0 {
		cfg.MaxRetries = e.pipeline.MaxRetries
	}
	return cfg
}
