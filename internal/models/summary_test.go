package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSourceType(t *testing.T) {
	for _, st := range SourceTypes() {
		assert.True(t, ValidSourceType(st), st)
	}
	assert.False(t, ValidSourceType("podcast"))
	assert.False(t, ValidSourceType(""))
	assert.False(t, ValidSourceType("Article"), "tags are case sensitive")
}

func TestEmbeddingText(t *testing.T) {
	s := SummaryModel{Title: "Title", Content: "body"}
	assert.Equal(t, "Title body", s.EmbeddingText())

	s.Content = ""
	assert.Equal(t, "Title", s.EmbeddingText())
}

func TestInsightSliceRoundTrip(t *testing.T) {
	in := InsightSlice{{Insight: "observation", Confidence: 0.7, SupportingEvidence: "the second paragraph"}}

	value, err := in.Value()
	require.NoError(t, err)

	var out InsightSlice
	require.NoError(t, out.Scan(value))
	require.Len(t, out, 1)
	assert.Equal(t, in[0], out[0])
}

func TestInsightSliceScanNil(t *testing.T) {
	var out InsightSlice
	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
}

func TestStringSliceScanLegacyPlainString(t *testing.T) {
	var out StringSlice
	require.NoError(t, out.Scan("plain value"))
	assert.Equal(t, StringSlice{"plain value"}, out)
}

func TestStringSliceRoundTrip(t *testing.T) {
	in := StringSlice{"a", "b"}
	value, err := in.Value()
	require.NoError(t, err)

	var out StringSlice
	require.NoError(t, out.Scan(value))
	assert.Equal(t, in, out)
}
