// Package preprocess normalizes heterogeneous captures to plain text. One
// strategy is registered per source type; call sites dispatch through the
// registry and never branch on the tag themselves.
package preprocess

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/pkg/apperrors"
	"go.uber.org/zap"
)

// TranscriptSegment is one chronological piece of a video transcript.
type TranscriptSegment struct {
	Text     string
	Offset   float64 // seconds from start
	Duration float64
}

// TranscriptFetcher acquires a transcript for a video reference.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, sourceRef string) ([]TranscriptSegment, error)
}

// Transcriber converts referenced audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, sourceRef string) (string, error)
}

type strategy func(ctx context.Context, content, sourceRef string) (string, error)

// Dispatcher routes (content, sourceType, sourceRef) to the right
// acquisition path.
type Dispatcher struct {
	strategies  map[models.SourceType]strategy
	transcripts TranscriptFetcher
	transcriber Transcriber
	logger      *zap.Logger
}

// NewDispatcher wires one strategy per source type. transcriber may be nil
// when no transcription service is configured; the audio path then fails
// with an acquisition error instead of a panic.
func NewDispatcher(transcripts TranscriptFetcher, transcriber Transcriber, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		transcripts: transcripts,
		transcriber: transcriber,
		logger:      logger,
	}
	d.strategies = map[models.SourceType]strategy{
		models.SourceArticle:  d.passthrough,
		models.SourceBlog:     d.passthrough,
		models.SourceDocument: d.passthrough,
		models.SourceVideo:    d.video,
		models.SourceAudio:    d.audio,
	}
	return d
}

// Normalize returns plain text for the given capture. Acquisition failures
// propagate as *apperrors.AcquisitionError; an empty result is never
// silently returned, since downstream could not tell it from real content.
func (d *Dispatcher) Normalize(ctx context.Context, content string, sourceType models.SourceType, sourceRef string) (string, error) {
	s, ok := d.strategies[sourceType]
	if !ok {
		return "", &apperrors.ValidationError{
			Field:   "source_type",
			Message: fmt.Sprintf("unknown source type %q", sourceType),
		}
	}
	return s(ctx, content, sourceRef)
}

// passthrough serves article, blog and document captures: the caller already
// extracted the text.
func (d *Dispatcher) passthrough(_ context.Context, content, _ string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", &apperrors.ValidationError{
			Field:   "content",
			Message: "must not be empty for text source types",
		}
	}
	return content, nil
}

func (d *Dispatcher) video(ctx context.Context, _ string, sourceRef string) (string, error) {
	segments, err := d.transcripts.Fetch(ctx, sourceRef)
	if err != nil {
		return "", &apperrors.AcquisitionError{
			SourceType: string(models.SourceVideo),
			SourceRef:  sourceRef,
			Err:        err,
		}
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Offset < segments[j].Offset
	})

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	joined := strings.Join(parts, " ")
	if joined == "" {
		return "", &apperrors.AcquisitionError{
			SourceType: string(models.SourceVideo),
			SourceRef:  sourceRef,
			Err:        fmt.Errorf("transcript is empty"),
		}
	}

	d.logger.Debug("transcript normalized",
		zap.String("source_ref", sourceRef),
		zap.Int("segments", len(parts)),
	)
	return joined, nil
}

func (d *Dispatcher) audio(ctx context.Context, _ string, sourceRef string) (string, error) {
	if d.transcriber == nil {
		return "", &apperrors.AcquisitionError{
			SourceType: string(models.SourceAudio),
			SourceRef:  sourceRef,
			Err:        fmt.Errorf("no transcription service configured"),
		}
	}
	text, err := d.transcriber.Transcribe(ctx, sourceRef)
	if err != nil {
		return "", &apperrors.AcquisitionError{
			SourceType: string(models.SourceAudio),
			SourceRef:  sourceRef,
			Err:        err,
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", &apperrors.AcquisitionError{
			SourceType: string(models.SourceAudio),
			SourceRef:  sourceRef,
			Err:        fmt.Errorf("transcription is empty"),
		}
	}
	return text, nil
}
