package models

import (
	"testing"

	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() PreferenceProfile {
	return PreferenceProfile{
		Style:       StyleCasual,
		DetailLevel: 3,
		FocusAreas:  []string{FocusMainPoints},
	}
}

func TestPreferenceProfileValidate(t *testing.T) {
	require.NoError(t, validProfile().Validate())
}

func TestPreferenceProfileValidateStyle(t *testing.T) {
	p := validProfile()
	p.Style = "poetic"

	err := p.Validate()
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "prefs.style", verr.Field)
}

func TestPreferenceProfileValidateDetailLevel(t *testing.T) {
	for _, level := range []int{0, -1, 6} {
		p := validProfile()
		p.DetailLevel = level

		err := p.Validate()
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr, "level %d", level)
		assert.Equal(t, "prefs.detail_level", verr.Field)
	}
	for level := 1; level <= 5; level++ {
		p := validProfile()
		p.DetailLevel = level
		assert.NoError(t, p.Validate(), "level %d", level)
	}
}

func TestPreferenceProfileValidateFocusAreas(t *testing.T) {
	p := validProfile()
	p.FocusAreas = nil
	err := p.Validate()
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "prefs.focus_areas", verr.Field)

	p.FocusAreas = []string{FocusExamples, "vibes"}
	err = p.Validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "prefs.focus_areas[1]", verr.Field)
}

func TestPreferenceModelProfileCopiesFocusAreas(t *testing.T) {
	m := PreferenceModel{
		Style:       StyleAcademic,
		DetailLevel: 4,
		FocusAreas:  StringSlice{FocusCitations},
	}
	p := m.Profile()
	p.FocusAreas[0] = "mutated"
	assert.Equal(t, FocusCitations, m.FocusAreas[0], "profile must not alias the stored slice")
}
