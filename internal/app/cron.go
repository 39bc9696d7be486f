package app

import (
	"context"
	"time"

	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/modules/pipeline/relate"
	pkgcron "github.com/distill-app/core/internal/pkg/cron"
	"github.com/distill-app/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers the scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, relater *relate.Engine, tasks *taskqueue.Service, logger *zap.Logger) {
	sched.Register(pkgcron.Job{
		Name:        "cleanup_tasks",
		Description: "drop completed pipeline tasks older than 7 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -7).UnixMilli()
			if err := tasks.DeleteCompleted(ctx, cutoff); err != nil {
				logger.Warn("task cleanup failed", zap.Error(err))
				return err
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "backfill_edges",
		Description: "compute relationship edges for summaries that have none",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			var orphans []models.SummaryModel
			err := db.WithContext(ctx).
				Where("id NOT IN (?)", db.Model(&models.SummaryRelationshipModel{}).Select("summary_id")).
				Order("created_at DESC").
				Limit(50).
				Find(&orphans).Error
			if err != nil {
				return err
			}

			for i := range orphans {
				if _, err := relater.RefreshEdges(ctx, &orphans[i], 0); err != nil {
					logger.Warn("edge backfill failed",
						zap.String("summary_id", orphans[i].ID),
						zap.Error(err),
					)
				}
			}
			if len(orphans) > 0 {
				logger.Info("edge backfill pass done", zap.Int("summaries", len(orphans)))
			}
			return nil
		},
	})
}
