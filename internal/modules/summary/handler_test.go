package summary

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWriteErrorMapsTaxonomy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, zap.NewNop())

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"validation", &apperrors.ValidationError{Field: "insights[0].confidence", Message: "must be in [0,1]"}, http.StatusUnprocessableEntity},
		{"missing preferences", &apperrors.PersistenceConflictError{Message: "no preference profile stored for user"}, http.StatusBadRequest},
		{"acquisition", &apperrors.AcquisitionError{SourceType: "video", SourceRef: "x", Err: errors.New("no transcript")}, http.StatusBadRequest},
		{"generation", &apperrors.GenerationError{Err: errors.New("empty response from AI")}, http.StatusBadGateway},
		{"embedding", &apperrors.EmbeddingError{Err: errors.New("boom")}, http.StatusBadGateway},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			h.writeError(c, tc.err)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestParseLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query string
		want  int
	}{
		{"", 0},
		{"limit=5", 5},
		{"limit=0", 0},
		{"limit=-2", 0},
		{"limit=abc", 0},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/summaries/x/related?"+tc.query, nil)
		assert.Equal(t, tc.want, parseLimit(c), tc.query)
	}
}

func TestCaptureDedupKeyStableAndScoped(t *testing.T) {
	in := CaptureInput{Content: "same content", SourceType: "article", SourceURL: "https://example.com"}
	assert.Equal(t, captureDedupKey("u1", in), captureDedupKey("u1", in))
	assert.NotEqual(t, captureDedupKey("u1", in), captureDedupKey("u2", in), "dedup is per user")

	other := in
	other.Content = "different content"
	assert.NotEqual(t, captureDedupKey("u1", in), captureDedupKey("u1", other))
}
