package models

import (
	"fmt"

	"github.com/distill-app/core/internal/pkg/apperrors"
)

// SummaryStyle steers the register of generated summaries.
type SummaryStyle string

const (
	StyleAcademic SummaryStyle = "academic"
	StyleCasual   SummaryStyle = "casual"
	StyleBusiness SummaryStyle = "business"
)

// Focus areas a profile may ask the summarizer to emphasize.
const (
	FocusMainPoints   = "main_points"
	FocusExamples     = "examples"
	FocusImplications = "implications"
	FocusCitations    = "citations"
)

var validFocusAreas = map[string]struct{}{
	FocusMainPoints:   {},
	FocusExamples:     {},
	FocusImplications: {},
	FocusCitations:    {},
}

// PreferenceProfile is the immutable value object the summarization engine
// consumes. It is passed by value; engines never mutate it.
type PreferenceProfile struct {
	Style       SummaryStyle `json:"style"`
	DetailLevel int          `json:"detail_level"` // 1..5
	FocusAreas  []string     `json:"focus_areas"`
}

// Validate checks every field against its closed enumeration. It runs
// before any generative call is made.
func (p PreferenceProfile) Validate() error {
	switch p.Style {
	case StyleAcademic, StyleCasual, StyleBusiness:
	default:
		return &apperrors.ValidationError{
			Field:   "prefs.style",
			Message: fmt.Sprintf("unknown style %q", p.Style),
		}
	}
	if p.DetailLevel < 1 || p.DetailLevel > 5 {
		return &apperrors.ValidationError{
			Field:   "prefs.detail_level",
			Message: fmt.Sprintf("must be an integer in [1,5], got %d", p.DetailLevel),
		}
	}
	if len(p.FocusAreas) == 0 {
		return &apperrors.ValidationError{
			Field:   "prefs.focus_areas",
			Message: "must not be empty",
		}
	}
	for i, area := range p.FocusAreas {
		if _, ok := validFocusAreas[area]; !ok {
			return &apperrors.ValidationError{
				Field:   fmt.Sprintf("prefs.focus_areas[%d]", i),
				Message: fmt.Sprintf("unknown focus area %q", area),
			}
		}
	}
	return nil
}

// PreferenceModel is the stored per-user preference profile.
type PreferenceModel struct {
	Base
	UserID      string       `json:"user_id"      gorm:"uniqueIndex;not null"`
	Style       SummaryStyle `json:"style"        gorm:"type:varchar(16);not null"`
	DetailLevel int          `json:"detail_level" gorm:"not null"`
	FocusAreas  StringSlice  `json:"focus_areas"  gorm:"type:json"`
}

func (PreferenceModel) TableName() string { return "user_preferences" }

// Profile converts the stored row into the engine's value object.
func (m *PreferenceModel) Profile() PreferenceProfile {
	return PreferenceProfile{
		Style:       m.Style,
		DetailLevel: m.DetailLevel,
		FocusAreas:  append([]string(nil), m.FocusAreas...),
	}
}
