package preprocess

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/distill-app/core/internal/config"
	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	segments []TranscriptSegment
	err      error
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]TranscriptSegment, error) {
	return f.segments, f.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	return f.text, f.err
}

func TestNormalizePassthrough(t *testing.T) {
	d := NewDispatcher(&fakeFetcher{}, nil, zap.NewNop())

	for _, st := range []models.SourceType{models.SourceArticle, models.SourceBlog, models.SourceDocument} {
		out, err := d.Normalize(context.Background(), "some extracted text", st, "")
		require.NoError(t, err, st)
		assert.Equal(t, "some extracted text", out)
	}
}

func TestNormalizeEmptyTextContent(t *testing.T) {
	d := NewDispatcher(&fakeFetcher{}, nil, zap.NewNop())

	_, err := d.Normalize(context.Background(), "   ", models.SourceArticle, "")
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content", verr.Field)
}

func TestNormalizeUnknownSourceType(t *testing.T) {
	d := NewDispatcher(&fakeFetcher{}, nil, zap.NewNop())

	_, err := d.Normalize(context.Background(), "x", models.SourceType("podcast"), "")
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "source_type", verr.Field)
}

func TestNormalizeVideoJoinsSegmentsChronologically(t *testing.T) {
	fetcher := &fakeFetcher{segments: []TranscriptSegment{
		{Text: "world", Offset: 1.2},
		{Text: "  ", Offset: 0.6},
		{Text: "hello", Offset: 0},
	}}
	d := NewDispatcher(fetcher, nil, zap.NewNop())

	out, err := d.Normalize(context.Background(), "", models.SourceVideo, "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestNormalizeVideoFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("no transcript available")}
	d := NewDispatcher(fetcher, nil, zap.NewNop())

	_, err := d.Normalize(context.Background(), "", models.SourceVideo, "https://youtu.be/dQw4w9WgXcQ")
	var aerr *apperrors.AcquisitionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "video", aerr.SourceType)
}

func TestNormalizeVideoEmptyTranscript(t *testing.T) {
	fetcher := &fakeFetcher{segments: []TranscriptSegment{{Text: "   "}}}
	d := NewDispatcher(fetcher, nil, zap.NewNop())

	_, err := d.Normalize(context.Background(), "", models.SourceVideo, "dQw4w9WgXcQ")
	var aerr *apperrors.AcquisitionError
	require.ErrorAs(t, err, &aerr)
}

func TestNormalizeAudio(t *testing.T) {
	d := NewDispatcher(&fakeFetcher{}, &fakeTranscriber{text: "spoken words"}, zap.NewNop())

	out, err := d.Normalize(context.Background(), "", models.SourceAudio, "/tmp/talk.mp3")
	require.NoError(t, err)
	assert.Equal(t, "spoken words", out)
}

func TestNormalizeAudioWithoutTranscriber(t *testing.T) {
	d := NewDispatcher(&fakeFetcher{}, nil, zap.NewNop())

	_, err := d.Normalize(context.Background(), "", models.SourceAudio, "/tmp/talk.mp3")
	var aerr *apperrors.AcquisitionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "audio", aerr.SourceType)
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"not a url", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractVideoID(tc.ref)
		assert.Equal(t, tc.ok, ok, tc.ref)
		assert.Equal(t, tc.want, got, tc.ref)
	}
}

func TestYouTubeTranscriptClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/timedtext", r.URL.Path)
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?><transcript><text start="0" dur="1.4">it&amp;#39;s fine</text><text start="1.4" dur="2">second line</text></transcript>`)
	}))
	defer server.Close()

	client := NewYouTubeTranscriptClient(config.TranscriptConfig{Endpoint: server.URL})
	segments, err := client.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "it's fine", segments[0].Text)
	assert.InDelta(t, 1.4, segments[1].Offset, 1e-9)
}

func TestYouTubeTranscriptClientNoTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// The timedtext API answers 200 with an empty body when no
		// caption track exists.
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewYouTubeTranscriptClient(config.TranscriptConfig{Endpoint: server.URL})
	_, err := client.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transcript available")
}

func TestWhisperTranscriber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "talk.mp3", header.Filename)
		fmt.Fprint(w, `{"text":"spoken words"}`)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "talk.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o600))

	tr, err := NewWhisperTranscriber(config.TranscriptionConfig{Endpoint: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	text, err := tr.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "spoken words", text)
}

func TestWhisperTranscriberRequiresKey(t *testing.T) {
	_, err := NewWhisperTranscriber(config.TranscriptionConfig{})
	require.Error(t, err)
}
