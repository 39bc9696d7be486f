// Package markdown renders summary artifacts to HTML for export.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/distill-app/core/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// Render converts markdown text to HTML. On conversion failure the text is
// returned escaped rather than dropped.
func Render(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var out bytes.Buffer
	if err := engine.Convert([]byte(text), &out); err != nil {
		return template.HTMLEscapeString(text)
	}
	return out.String()
}

// RenderSummary lays a summary out as a markdown document and renders it.
func RenderSummary(s *models.SummaryModel) string {
	var b strings.Builder
	b.Grow(2048)

	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	if s.Abstract != "" {
		fmt.Fprintf(&b, "%s\n\n", s.Abstract)
	}

	if len(s.KeyPoints) > 0 {
		b.WriteString("## Key Points\n\n")
		for _, point := range s.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", point)
		}
		b.WriteString("\n")
	}

	if len(s.Themes) > 0 {
		b.WriteString("## Themes\n\n")
		for _, theme := range s.Themes {
			fmt.Fprintf(&b, "- %s\n", theme)
		}
		b.WriteString("\n")
	}

	if len(s.Insights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, insight := range s.Insights {
			fmt.Fprintf(&b, "- %s *(confidence %.2f)*\n\n  > %s\n",
				insight.Insight, insight.Confidence, insight.SupportingEvidence)
		}
		b.WriteString("\n")
	}

	if s.SourceURL != "" {
		fmt.Fprintf(&b, "---\n\nSource: <%s>\n", s.SourceURL)
	}
	return Render(b.String())
}
