package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 2333, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Contains(t, cfg.DSN, "distill")
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 3, cfg.Pipeline.RelatedLimit)
	assert.Equal(t, "en", cfg.Transcripts.Language)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8080
env: production
redis_url: redis://cache:6379/1
ai:
  providers:
    - id: main
      name: Main
      type: openai
      api_key: sk-test
      default_model: gpt-4o-mini
      enabled: true
  summary_model:
    provider_id: main
    model: gpt-4o
pipeline:
  workers: 8
  related_limit: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	require.Len(t, cfg.AI.Providers, 1)
	assert.Equal(t, "main", cfg.AI.Providers[0].ID)
	require.NotNil(t, cfg.AI.SummaryModel)
	assert.Equal(t, "gpt-4o", cfg.AI.SummaryModel.Model)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 5, cfg.Pipeline.RelatedLimit)
}

func TestLoadEnvSeedsOpenAIProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	require.Len(t, cfg.AI.Providers, 1)
	assert.Equal(t, "sk-env", cfg.AI.Providers[0].APIKey)
	assert.True(t, cfg.AI.Providers[0].Enabled)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-env", cfg.Transcription.APIKey)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "super-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "super-secret", cfg.JWTSecret)
}

func TestPipelineCallTimeout(t *testing.T) {
	p := PipelineConfig{}
	assert.Equal(t, "30s", p.CallTimeout().String())

	p.CallTimeoutSec = 5
	assert.Equal(t, "5s", p.CallTimeout().String())
}
