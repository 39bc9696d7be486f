package app

import (
	"net/http"

	"github.com/distill-app/core/internal/middleware"
	"github.com/distill-app/core/internal/modules/pipeline/preprocess"
	"github.com/distill-app/core/internal/modules/pipeline/relate"
	"github.com/distill-app/core/internal/modules/pipeline/summarize"
	"github.com/distill-app/core/internal/modules/preferences"
	"github.com/distill-app/core/internal/modules/summary"
	"github.com/distill-app/core/internal/modules/user"
	"github.com/distill-app/core/internal/pkg/response"
	"github.com/distill-app/core/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(
	dispatcher *preprocess.Dispatcher,
	summarizer *summarize.Engine,
	relater *relate.Engine,
	tasks *taskqueue.Service,
) {
	authMW := middleware.Auth()
	api := a.router.Group("/api/v1")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	userSvc := user.NewService(a.db)
	user.NewHandler(userSvc).RegisterRoutes(api, authMW)

	prefsSvc := preferences.NewService(a.db)
	preferences.NewHandler(prefsSvc).RegisterRoutes(api, authMW)

	summarySvc := summary.NewService(
		a.db, dispatcher, summarizer, relater,
		prefsSvc, tasks, a.cfg.Pipeline, a.logger.Named("summary"),
	)
	summary.NewHandler(summarySvc, a.logger.Named("summary")).RegisterRoutes(api, authMW)

	jobs := api.Group("/jobs", authMW)
	jobs.GET("", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})
	jobs.POST("/:name/run", func(c *gin.Context) {
		if err := a.sched.Run(c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.OK(c, gin.H{"ok": true})
	})

	a.router.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	a.router.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})
}
