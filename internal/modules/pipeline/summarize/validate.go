package summarize

import (
	"fmt"
	"strings"

	"github.com/distill-app/core/internal/pkg/apperrors"
)

// validatePayload checks the structured payload field by field. Violations
// are reported with their exact field path and are never repaired: an
// out-of-range confidence is rejected, not clamped.
func validatePayload(p *summaryPayload) error {
	if strings.TrimSpace(p.Title) == "" {
		return &apperrors.ValidationError{Field: "title", Message: "must not be empty"}
	}

	if len(p.KeyPoints) == 0 {
		return &apperrors.ValidationError{Field: "key_points", Message: "must contain at least one point"}
	}
	for i, point := range p.KeyPoints {
		if strings.TrimSpace(point) == "" {
			return &apperrors.ValidationError{
				Field:   fmt.Sprintf("key_points[%d]", i),
				Message: "must not be empty",
			}
		}
	}

	for i, theme := range p.Themes {
		if strings.TrimSpace(theme) == "" {
			return &apperrors.ValidationError{
				Field:   fmt.Sprintf("themes[%d]", i),
				Message: "must not be empty",
			}
		}
	}

	for i, insight := range p.Insights {
		if strings.TrimSpace(insight.Insight) == "" {
			return &apperrors.ValidationError{
				Field:   fmt.Sprintf("insights[%d].insight", i),
				Message: "must not be empty",
			}
		}
		if insight.Confidence < 0 || insight.Confidence > 1 {
			return &apperrors.ValidationError{
				Field:   fmt.Sprintf("insights[%d].confidence", i),
				Message: fmt.Sprintf("must be in [0,1], got %g", insight.Confidence),
			}
		}
		if strings.TrimSpace(insight.SupportingEvidence) == "" {
			return &apperrors.ValidationError{
				Field:   fmt.Sprintf("insights[%d].supporting_evidence", i),
				Message: "must not be empty",
			}
		}
	}

	if p.Metadata.WordCount < 0 {
		return &apperrors.ValidationError{
			Field:   "metadata.word_count",
			Message: fmt.Sprintf("must not be negative, got %d", p.Metadata.WordCount),
		}
	}
	return nil
}
