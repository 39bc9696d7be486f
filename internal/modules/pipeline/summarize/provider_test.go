package summarize

import (
	"encoding/json"
	"testing"

	appcfg "github.com/distill-app/core/internal/config"
	"github.com/distill-app/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectProvider(t *testing.T) {
	cfg := appcfg.AIConfig{Providers: []appcfg.AIProvider{
		{ID: "disabled", Type: "openai", APIKey: "k", Enabled: false},
		{ID: "first", Type: "openai", APIKey: "k", DefaultModel: "gpt-4o-mini", Enabled: true},
		{ID: "second", Type: "anthropic", APIKey: "k", DefaultModel: "claude-haiku-4-5-20251001", Enabled: true},
	}}

	t.Run("first enabled wins without assignment", func(t *testing.T) {
		p := SelectProvider(cfg, nil)
		require.NotNil(t, p)
		assert.Equal(t, "first", p.ID)
	})

	t.Run("assignment selects by ID and overrides model", func(t *testing.T) {
		p := SelectProvider(cfg, &appcfg.AIModelAssignment{ProviderID: "second", Model: "claude-sonnet-4-5"})
		require.NotNil(t, p)
		assert.Equal(t, "second", p.ID)
		assert.Equal(t, "claude-sonnet-4-5", p.DefaultModel)
	})

	t.Run("unknown assignment falls back", func(t *testing.T) {
		p := SelectProvider(cfg, &appcfg.AIModelAssignment{ProviderID: "missing"})
		require.NotNil(t, p)
		assert.Equal(t, "first", p.ID)
	})

	t.Run("no enabled providers", func(t *testing.T) {
		p := SelectProvider(appcfg.AIConfig{Providers: []appcfg.AIProvider{{ID: "x", Enabled: false}}}, nil)
		assert.Nil(t, p)
	})
}

func TestIsOpenAICompatibleProviderType(t *testing.T) {
	assert.True(t, isOpenAICompatibleProviderType("OpenAI"))
	assert.True(t, isOpenAICompatibleProviderType("OpenAI-Compatible"))
	assert.True(t, isOpenAICompatibleProviderType("openai_compatible"))
	assert.True(t, isOpenAICompatibleProviderType("OpenRouter"))
	assert.False(t, isOpenAICompatibleProviderType("Anthropic"))
}

func TestUnmarshalAIJSON(t *testing.T) {
	var out struct {
		Title string `json:"title"`
	}

	require.NoError(t, unmarshalAIJSON(`{"title":"plain"}`, &out))
	assert.Equal(t, "plain", out.Title)

	require.NoError(t, unmarshalAIJSON("```json\n{\"title\":\"fenced\"}\n```", &out))
	assert.Equal(t, "fenced", out.Title)

	require.NoError(t, unmarshalAIJSON(`Here you go: {"title":"prose"} hope that helps`, &out))
	assert.Equal(t, "prose", out.Title)

	assert.Error(t, unmarshalAIJSON("not json at all", &out))

	// Well-formed JSON with a wrong-typed field surfaces the json type
	// error so callers can name the offending field.
	var typeErr *json.UnmarshalTypeError
	err := unmarshalAIJSON(`{"title": 123}`, &out)
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "title", typeErr.Field)
}

func TestNormalizeOpenAICompatibleEndpoint(t *testing.T) {
	assert.Equal(t, "https://api.openai.com", normalizeOpenAICompatibleEndpoint(""))
	assert.Equal(t, "https://api.example.com", normalizeOpenAICompatibleEndpoint("https://api.example.com/v1/"))
	assert.Equal(t, "https://api.example.com/proxy", normalizeOpenAICompatibleEndpoint("https://api.example.com/proxy/v1"))
}

func TestBuildSummaryPromptCarriesPreferences(t *testing.T) {
	prefs := models.PreferenceProfile{
		Style:       models.StyleAcademic,
		DetailLevel: 5,
		FocusAreas:  []string{models.FocusImplications},
	}
	system, prompt := buildSummaryPrompt("body text", models.SourceVideo, prefs)

	assert.Contains(t, system, "academic")
	assert.Contains(t, system, "5 of 5")
	assert.Contains(t, system, "implications")
	assert.Contains(t, system, "video")
	assert.Contains(t, prompt, "body text")
}
