package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/distill-app/core/internal/middleware"
	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/distill-app/core/internal/pkg/markdown"
	"github.com/distill-app/core/internal/pkg/pagination"
	"github.com/distill-app/core/internal/pkg/response"
	"github.com/distill-app/core/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/summaries", authMW)
	g.POST("", h.capture)
	g.GET("", h.list)
	g.GET("/search", h.search)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.remove)
	g.GET("/:id/related", h.related)
	g.POST("/:id/related/refresh", h.refreshRelated)
	g.GET("/:id/export", h.export)
	g.GET("/:id/abstract/generate", h.streamAbstract)

	tasks := rg.Group("/tasks", authMW)
	tasks.GET("", h.listTasks)
	tasks.GET("/:id", h.getTask)
	tasks.POST("/:id/cancel", h.cancelTask)
	tasks.DELETE("/:id", h.deleteTask)
}

type captureDTO struct {
	Content    string `json:"content"`
	SourceType string `json:"source_type" binding:"required"`
	SourceURL  string `json:"source_url"`
	Async      bool   `json:"async"`
}

// POST /summaries
func (h *Handler) capture(c *gin.Context) {
	var dto captureDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.CurrentUserID(c)
	in := CaptureInput{
		Content:    dto.Content,
		SourceType: models.SourceType(dto.SourceType),
		SourceURL:  dto.SourceURL,
	}

	if dto.Async {
		task, err := h.svc.EnqueueCapture(c.Request.Context(), userID, in)
		if err != nil {
			h.writeError(c, err)
			return
		}
		response.Accepted(c, gin.H{"task_id": task.ID, "status": task.Status})
		return
	}

	summary, err := h.svc.Capture(c.Request.Context(), userID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, summary)
}

// GET /summaries?page=&size=&source_type=&q=
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	scope := h.svc.Scope(c.Request.Context(), middleware.CurrentUserID(c), ListQuery{
		SourceType: c.Query("source_type"),
		Search:     c.Query("q"),
	})

	var items []models.SummaryModel
	pag, err := pagination.Paginate(scope, q, &items)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.Paged(c, items, pag)
}

// GET /summaries/search?q=
func (h *Handler) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.BadRequest(c, "q is required")
		return
	}

	q := pagination.FromContext(c)
	scope := h.svc.Scope(c.Request.Context(), middleware.CurrentUserID(c), ListQuery{
		SourceType: c.Query("source_type"),
		Search:     query,
	})

	var items []models.SummaryModel
	pag, err := pagination.Paginate(scope, q, &items)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.Paged(c, items, pag)
}

// GET /summaries/:id
func (h *Handler) get(c *gin.Context) {
	summary, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, summary)
}

type updateSummaryDTO struct {
	IsPublic *bool   `json:"is_public"`
	Title    *string `json:"title"`
}

// PATCH /summaries/:id
func (h *Handler) update(c *gin.Context) {
	var dto updateSummaryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.IsPublic == nil && dto.Title == nil {
		response.BadRequest(c, "nothing to update")
		return
	}

	userID := middleware.CurrentUserID(c)
	id := c.Param("id")

	var (
		summary *models.SummaryModel
		err     error
	)
	if dto.IsPublic != nil {
		summary, err = h.svc.SetVisibility(c.Request.Context(), userID, id, *dto.IsPublic)
		if err != nil {
			h.writeError(c, err)
			return
		}
	}
	if dto.Title != nil {
		summary, err = h.svc.Rename(c.Request.Context(), userID, id, *dto.Title)
		if err != nil {
			h.writeError(c, err)
			return
		}
	}
	response.OK(c, summary)
}

// DELETE /summaries/:id
func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// GET /summaries/:id/related?limit=
func (h *Handler) related(c *gin.Context) {
	edges, err := h.svc.Related(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), parseLimit(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, edges)
}

// POST /summaries/:id/related/refresh?limit=
func (h *Handler) refreshRelated(c *gin.Context) {
	related, err := h.svc.RefreshRelated(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), parseLimit(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, related)
}

// parseLimit reads the optional limit query parameter; absent or
// malformed values mean "use the configured default".
func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// GET /summaries/:id/export
func (h *Handler) export(c *gin.Context) {
	summary, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(markdown.RenderSummary(summary)))
}

// GET /summaries/:id/abstract/generate — SSE token stream.
func (h *Handler) streamAbstract(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(eventType, data string) {
		fmt.Fprintf(c.Writer, "data: %s\n\n", fmt.Sprintf(`{"type":%q,"data":%s}`, eventType, data))
		c.Writer.Flush()
	}

	_, err := h.svc.GenerateAbstract(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), func(token string) {
		tokenJSON, _ := json.Marshal(token)
		sendEvent("token", string(tokenJSON))
	})
	if err != nil {
		errJSON, _ := json.Marshal(err.Error())
		sendEvent("error", string(errJSON))
		return
	}
	sendEvent("done", "null")
}

// GET /tasks?page=&size=&status=
func (h *Handler) listTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	taskType := TaskTypeCapture
	var status *taskqueue.TaskStatus
	if raw := c.Query("status"); raw != "" {
		st := taskqueue.TaskStatus(raw)
		status = &st
	}

	tasks, total, err := h.svc.tasks.List(c.Request.Context(), page, size, &taskType, status)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"data": tasks, "total": total})
}

// GET /tasks/:id
func (h *Handler) getTask(c *gin.Context) {
	task, err := h.svc.tasks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

// POST /tasks/:id/cancel
func (h *Handler) cancelTask(c *gin.Context) {
	err := h.svc.tasks.Cancel(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, taskqueue.ErrTaskNotFound):
		response.NotFound(c)
	case err != nil:
		response.BadRequest(c, err.Error())
	default:
		response.OK(c, gin.H{"ok": true})
	}
}

// DELETE /tasks/:id
func (h *Handler) deleteTask(c *gin.Context) {
	if err := h.svc.tasks.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		response.NotFound(c)
		return
	}
	response.NoContent(c)
}

// writeError maps the pipeline error taxonomy onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		verr *apperrors.ValidationError
		aerr *apperrors.AcquisitionError
		gerr *apperrors.GenerationError
		eerr *apperrors.EmbeddingError
		perr *apperrors.PersistenceConflictError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c)
	case errors.As(err, &verr):
		response.UnprocessableEntity(c, verr.Error())
	case errors.As(err, &perr):
		response.BadRequest(c, perr.Error())
	case errors.As(err, &aerr):
		response.BadRequest(c, aerr.Error())
	case errors.As(err, &gerr), errors.As(err, &eerr):
		h.logger.Error("pipeline failure", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"message": "upstream provider failed"})
	default:
		h.logger.Error("unexpected failure", zap.Error(err))
		response.InternalError(c)
	}
}
