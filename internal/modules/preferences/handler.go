package preferences

import (
	"errors"

	"github.com/distill-app/core/internal/middleware"
	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/pkg/apperrors"
	"github.com/distill-app/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler { return &Handler{store: store} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/preferences", authMW)
	g.GET("", h.get)
	g.PUT("", h.upsert)
	g.POST("", h.upsert)
}

type preferenceDTO struct {
	Style       string   `json:"style"        binding:"required"`
	DetailLevel int      `json:"detail_level" binding:"required"`
	FocusAreas  []string `json:"focus_areas"  binding:"required"`
}

// GET /preferences
func (h *Handler) get(c *gin.Context) {
	row, err := h.store.Get(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c)
		return
	}
	if row == nil {
		response.NotFoundMsg(c, "no preference profile stored")
		return
	}
	response.OK(c, row)
}

// PUT /preferences
func (h *Handler) upsert(c *gin.Context) {
	var dto preferenceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile := models.PreferenceProfile{
		Style:       models.SummaryStyle(dto.Style),
		DetailLevel: dto.DetailLevel,
		FocusAreas:  dto.FocusAreas,
	}
	row, err := h.store.Upsert(c.Request.Context(), middleware.CurrentUserID(c), profile)
	if err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			response.UnprocessableEntity(c, verr.Error())
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, row)
}
