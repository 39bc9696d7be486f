package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	appcfg "github.com/distill-app/core/internal/config"
	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/modules/pipeline/preprocess"
	"github.com/distill-app/core/internal/modules/pipeline/summarize"
	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/distill-app/core/internal/pkg/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPrefs struct {
	profile models.PreferenceProfile
	err     error
}

func (s *stubPrefs) Get(context.Context, string) (*models.PreferenceModel, error) {
	return nil, nil
}

func (s *stubPrefs) ProfileFor(context.Context, string) (models.PreferenceProfile, error) {
	return s.profile, s.err
}

func (s *stubPrefs) Upsert(context.Context, string, models.PreferenceProfile) (*models.PreferenceModel, error) {
	return nil, nil
}

type stubQueue struct {
	mu      sync.Mutex
	task    *taskqueue.Task
	created bool
	updates []taskqueue.TaskStatus
}

func (q *stubQueue) Enqueue(context.Context, string, interface{}, string) (*taskqueue.Task, bool, error) {
	return q.task, q.created, nil
}

func (q *stubQueue) GetByID(context.Context, string) (*taskqueue.Task, error) {
	return q.task, nil
}

func (q *stubQueue) UpdateStatus(_ context.Context, _ string, status taskqueue.TaskStatus, _ interface{}, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.updates = append(q.updates, status)
	return nil
}

func (q *stubQueue) List(context.Context, int, int, *string, *taskqueue.TaskStatus) ([]*taskqueue.Task, int64, error) {
	return nil, 0, nil
}

func (q *stubQueue) Cancel(context.Context, string) error   { return nil }
func (q *stubQueue) DeleteByID(context.Context, string) error { return nil }

func (q *stubQueue) statuses() []taskqueue.TaskStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]taskqueue.TaskStatus, len(q.updates))
	copy(out, q.updates)
	return out
}

func TestEnqueueCaptureDedupDoesNotRelaunchPendingTask(t *testing.T) {
	// A second identical request can land while the first task is still
	// pending; only the request that created the task may start a worker.
	q := &stubQueue{
		task:    &taskqueue.Task{ID: "t1", Status: taskqueue.TaskPending},
		created: false,
	}
	svc := NewService(nil, nil, nil, nil, &stubPrefs{}, q, appcfg.PipelineConfig{}, zap.NewNop())

	task, err := svc.EnqueueCapture(context.Background(), "u1", CaptureInput{Content: "c", SourceType: models.SourceArticle})
	require.NoError(t, err)
	assert.Equal(t, "t1", task.ID)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, q.statuses(), "dedup hit must not start a second pipeline run")
}

func TestEnqueueCaptureStartsWorkerForNewTask(t *testing.T) {
	q := &stubQueue{
		task:    &taskqueue.Task{ID: "t2", Status: taskqueue.TaskPending},
		created: true,
	}
	prefs := &stubPrefs{err: &apperrors.PersistenceConflictError{Message: "no preference profile stored for user"}}
	svc := NewService(nil, nil, nil, nil, prefs, q, appcfg.PipelineConfig{}, zap.NewNop())

	_, err := svc.EnqueueCapture(context.Background(), "u1", CaptureInput{Content: "c", SourceType: models.SourceArticle})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		st := q.statuses()
		return len(st) == 2 && st[0] == taskqueue.TaskRunning && st[1] == taskqueue.TaskFailed
	}, time.Second, 5*time.Millisecond)
}

type slowFetcher struct {
	delay time.Duration
}

func (f *slowFetcher) Fetch(context.Context, string) ([]preprocess.TranscriptSegment, error) {
	time.Sleep(f.delay)
	return []preprocess.TranscriptSegment{
		{Text: "hello", Offset: 0},
		{Text: "world", Offset: 1},
	}, nil
}

func TestRunPipelineCountsAcquisitionTime(t *testing.T) {
	args, err := json.Marshal(map[string]any{
		"title":      "T",
		"key_points": []string{"k"},
		"themes":     []string{"t"},
		"insights": []map[string]any{{
			"insight":             "i",
			"confidence":          0.5,
			"supporting_evidence": "e",
		}},
		"metadata": map[string]any{"word_count": 2, "content_type": "video"},
	})
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"tool_calls": []map[string]any{{
						"function": map[string]any{"name": "create_summary", "arguments": string(args)},
					}},
				},
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	cfg := &appcfg.AppConfig{
		AI: appcfg.AIConfig{
			Providers: []appcfg.AIProvider{{
				ID:           "test",
				Name:         "test provider",
				Type:         "openai-compatible",
				APIKey:       "test-key",
				Endpoint:     server.URL,
				DefaultModel: "gpt-4o-mini",
				Enabled:      true,
			}},
		},
		Pipeline: appcfg.PipelineConfig{CallTimeoutSec: 5},
	}
	engine := summarize.NewEngine(cfg, zap.NewNop())
	dispatcher := preprocess.NewDispatcher(&slowFetcher{delay: 60 * time.Millisecond}, nil, zap.NewNop())
	prefs := &stubPrefs{profile: models.PreferenceProfile{
		Style:       models.StyleCasual,
		DetailLevel: 3,
		FocusAreas:  []string{models.FocusMainPoints},
	}}
	svc := NewService(nil, dispatcher, engine, nil, prefs, &stubQueue{}, appcfg.PipelineConfig{}, zap.NewNop())

	draft, err := svc.runPipeline(context.Background(), "u1", CaptureInput{
		SourceType: models.SourceVideo,
		SourceURL:  "https://youtu.be/dQw4w9WgXcQ",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", draft.UserID)
	assert.Equal(t, "hello world", draft.Content)
	assert.GreaterOrEqual(t, draft.Metadata.ProcessingTime, int64(60),
		fmt.Sprintf("transcript acquisition must count toward processing time, got %dms", draft.Metadata.ProcessingTime))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_c`, escapeLike("a_c"), "underscore is a single-char wildcard")
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `c:\\temp`, escapeLike(`c:\temp`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
