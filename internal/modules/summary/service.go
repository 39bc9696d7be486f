// Package summary is the pipeline's persistence gateway and HTTP surface:
// it owns capture orchestration, summary CRUD, and relationship queries.
package summary

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	appcfg "github.com/distill-app/core/internal/config"
	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/modules/pipeline/preprocess"
	"github.com/distill-app/core/internal/modules/pipeline/relate"
	"github.com/distill-app/core/internal/modules/pipeline/summarize"
	"github.com/distill-app/core/internal/modules/preferences"
	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/distill-app/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskTypeCapture identifies queued capture jobs.
const TaskTypeCapture = "pipeline:capture"

// ErrNotFound is returned for summaries outside the caller's ownership
// scope, indistinguishable from ones that do not exist.
var ErrNotFound = errors.New("summary not found")

// TaskQueue is the slice of the task-queue service the gateway drives.
type TaskQueue interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey string) (*taskqueue.Task, bool, error)
	GetByID(ctx context.Context, id string) (*taskqueue.Task, error)
	UpdateStatus(ctx context.Context, id string, status taskqueue.TaskStatus, result interface{}, errMsg string) error
	List(ctx context.Context, page, size int, taskType *string, status *taskqueue.TaskStatus) ([]*taskqueue.Task, int64, error)
	Cancel(ctx context.Context, id string) error
	DeleteByID(ctx context.Context, id string) error
}

type Service struct {
	db         *gorm.DB
	dispatcher *preprocess.Dispatcher
	summarizer *summarize.Engine
	relater    *relate.Engine
	prefs      preferences.Store
	tasks      TaskQueue
	cfg        appcfg.PipelineConfig
	logger     *zap.Logger
}

func NewService(
	db *gorm.DB,
	dispatcher *preprocess.Dispatcher,
	summarizer *summarize.Engine,
	relater *relate.Engine,
	prefs preferences.Store,
	tasks TaskQueue,
	cfg appcfg.PipelineConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:         db,
		dispatcher: dispatcher,
		summarizer: summarizer,
		relater:    relater,
		prefs:      prefs,
		tasks:      tasks,
		cfg:        cfg,
		logger:     logger,
	}
}

// CaptureInput is one capture request: raw content plus its declared origin.
type CaptureInput struct {
	Content    string
	SourceType models.SourceType
	SourceURL  string
}

// Capture runs the full pipeline synchronously: resolve preferences,
// normalize, generate, persist, then refresh relationship edges in the
// background. Edge refresh failures never fail the capture.
func (s *Service) Capture(ctx context.Context, userID string, in CaptureInput) (*models.SummaryModel, error) {
	draft, err := s.runPipeline(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(draft).Error; err != nil {
		return nil, err
	}

	go func() {
		if _, err := s.relater.RefreshEdges(context.Background(), draft, 0); err != nil {
			s.logger.Warn("edge refresh after capture failed",
				zap.String("summary_id", draft.ID),
				zap.Error(err),
			)
		}
	}()

	return draft, nil
}

// runPipeline resolves preferences, normalizes, and generates the draft.
// The clock starts before normalization so processing_time covers
// transcript fetches and transcription, not just generation.
func (s *Service) runPipeline(ctx context.Context, userID string, in CaptureInput) (*models.SummaryModel, error) {
	started := time.Now()

	profile, err := s.prefs.ProfileFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	normalized, err := s.dispatcher.Normalize(ctx, in.Content, in.SourceType, in.SourceURL)
	if err != nil {
		return nil, err
	}

	draft, err := s.summarizer.Generate(ctx, normalized, in.SourceType, in.SourceURL, profile)
	if err != nil {
		return nil, err
	}

	draft.UserID = userID
	draft.Metadata.ProcessingTime = time.Since(started).Milliseconds()
	return draft, nil
}

// EnqueueCapture queues a capture for background execution. Identical
// pending requests dedupe onto the existing task; only the request that
// actually created the task starts the worker goroutine, so a dedup hit
// during the pending window cannot run the pipeline twice.
func (s *Service) EnqueueCapture(ctx context.Context, userID string, in CaptureInput) (*taskqueue.Task, error) {
	payload := capturePayload{
		UserID:     userID,
		Content:    in.Content,
		SourceType: string(in.SourceType),
		SourceURL:  in.SourceURL,
	}
	task, created, err := s.tasks.Enqueue(ctx, TaskTypeCapture, payload, captureDedupKey(userID, in))
	if err != nil {
		return nil, err
	}
	if created {
		go s.executeCapture(context.Background(), task.ID, payload)
	}
	return task, nil
}

type capturePayload struct {
	UserID     string `json:"user_id"`
	Content    string `json:"content"`
	SourceType string `json:"source_type"`
	SourceURL  string `json:"source_url"`
}

func captureDedupKey(userID string, in CaptureInput) string {
	h := sha256.Sum256([]byte(userID + ":" + string(in.SourceType) + ":" + in.SourceURL + ":" + in.Content))
	return fmt.Sprintf("%x", h[:16])
}

func (s *Service) executeCapture(ctx context.Context, taskID string, payload capturePayload) {
	s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")

	summary, err := s.Capture(ctx, payload.UserID, CaptureInput{
		Content:    payload.Content,
		SourceType: models.SourceType(payload.SourceType),
		SourceURL:  payload.SourceURL,
	})
	if err != nil {
		s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}
	s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, map[string]string{"summary_id": summary.ID}, "")
}

// Get returns one summary within the caller's scope.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.SummaryModel, error) {
	var row models.SummaryModel
	err := s.db.WithContext(ctx).
		Where("id = ? AND (user_id = ? OR is_public = ?)", id, userID, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ListQuery filters the owner's summaries.
type ListQuery struct {
	SourceType string
	Search     string
}

// Scope builds the filtered gorm query for the pagination helper.
func (s *Service) Scope(ctx context.Context, userID string, q ListQuery) *gorm.DB {
	tx := s.db.WithContext(ctx).
		Model(&models.SummaryModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if q.SourceType != "" {
		tx = tx.Where("meta_content_type = ?", q.SourceType)
	}
	if q.Search != "" {
		like := "%" + escapeLike(q.Search) + "%"
		tx = tx.Where("title LIKE ? OR abstract LIKE ?", like, like)
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes MySQL LIKE wildcards in user-supplied search
// terms. Replacer works in a single pass, so inserted backslashes are
// not re-escaped.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Delete removes a summary and every edge touching it.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.SummaryModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("summary_id = ? OR related_summary_id = ?", id, id).
			Delete(&models.SummaryRelationshipModel{}).Error
	})
}

// SetVisibility flips the public flag on an owned summary.
func (s *Service) SetVisibility(ctx context.Context, userID, id string, isPublic bool) (*models.SummaryModel, error) {
	var row models.SummaryModel
	err := s.db.WithContext(ctx).First(&row, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	row.IsPublic = isPublic
	if err := s.db.WithContext(ctx).Model(&row).Update("is_public", isPublic).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Rename updates the title on an owned summary.
func (s *Service) Rename(ctx context.Context, userID, id, title string) (*models.SummaryModel, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &apperrors.ValidationError{Field: "title", Message: "must not be empty"}
	}

	var row models.SummaryModel
	err := s.db.WithContext(ctx).First(&row, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	row.Title = title
	if err := s.db.WithContext(ctx).Model(&row).Update("title", title).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// RelatedEdge pairs a stored edge with its target summary.
type RelatedEdge struct {
	Summary  *models.SummaryModel `json:"summary"`
	Strength float64              `json:"strength"`
}

// Related returns up to limit stored edges for a summary, strongest
// first. limit <= 0 returns every stored edge.
func (s *Service) Related(ctx context.Context, userID, id string, limit int) ([]RelatedEdge, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).
		Where("summary_id = ?", id).
		Order("strength DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var edges []models.SummaryRelationshipModel
	if err := tx.Find(&edges).Error; err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []RelatedEdge{}, nil
	}

	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.RelatedSummaryID
	}
	var rows []models.SummaryModel
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*models.SummaryModel, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	out := make([]RelatedEdge, 0, len(edges))
	for _, e := range edges {
		target, ok := byID[e.RelatedSummaryID]
		if !ok {
			continue
		}
		out = append(out, RelatedEdge{Summary: target, Strength: e.Strength})
	}
	return out, nil
}

// RefreshRelated recomputes a summary's edges on demand. limit <= 0
// falls back to the configured default.
func (s *Service) RefreshRelated(ctx context.Context, userID, id string, limit int) ([]relate.Related, error) {
	var row models.SummaryModel
	err := s.db.WithContext(ctx).First(&row, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.relater.RefreshEdges(ctx, &row, limit)
}

// GenerateAbstract streams a plain-text abstract for an owned summary and
// persists the result.
func (s *Service) GenerateAbstract(ctx context.Context, userID, id string, onToken func(string)) (string, error) {
	var row models.SummaryModel
	err := s.db.WithContext(ctx).First(&row, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	profile, err := s.prefs.ProfileFor(ctx, userID)
	if err != nil {
		return "", err
	}

	abstract, err := s.summarizer.StreamAbstract(ctx, row.Content, profile, onToken)
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Model(&row).Update("abstract", abstract).Error; err != nil {
		return "", err
	}
	return abstract, nil
}
