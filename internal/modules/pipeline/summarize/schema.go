package summarize

import "github.com/distill-app/core/internal/models"

// createSummaryToolName is the tool the model is forced to call; its input
// is the structured summary payload.
const createSummaryToolName = "create_summary"

// summaryPayload is the raw structured output of the generative step,
// before validation. Metadata.ContentType is advisory only: the engine
// overwrites it with the declared source type.
type summaryPayload struct {
	Title     string           `json:"title"`
	KeyPoints []string         `json:"key_points"`
	Themes    []string         `json:"themes"`
	Insights  []models.Insight `json:"insights"`
	Metadata  struct {
		WordCount   int    `json:"word_count"`
		ContentType string `json:"content_type"`
	} `json:"metadata"`
}

func sourceTypeNames() []string {
	types := models.SourceTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

// createSummarySchema is the JSON Schema for the tool input, shared by the
// OpenAI-compatible and Anthropic paths.
func createSummarySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "A clear, descriptive title for the content",
			},
			"key_points": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "The most important takeaways, one point per item",
			},
			"themes": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Recurring themes and topics",
			},
			"insights": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"insight": map[string]any{
							"type":        "string",
							"description": "A non-obvious observation drawn from the content",
						},
						"confidence": map[string]any{
							"type":        "number",
							"minimum":     0,
							"maximum":     1,
							"description": "Confidence in the insight, between 0 and 1",
						},
						"supporting_evidence": map[string]any{
							"type":        "string",
							"description": "The passage or fact the insight rests on",
						},
					},
					"required": []string{"insight", "confidence", "supporting_evidence"},
				},
			},
			"metadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"word_count": map[string]any{
						"type":        "integer",
						"description": "Approximate word count of the source content",
					},
					"content_type": map[string]any{
						"type": "string",
						"enum": sourceTypeNames(),
					},
				},
				"required": []string{"word_count", "content_type"},
			},
		},
		"required": []string{"title", "key_points", "themes", "insights", "metadata"},
	}
}
