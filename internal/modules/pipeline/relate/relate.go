// Package relate scores semantic similarity between summaries and maintains
// the top-K relationship edges derived from it.
package relate

import (
	"context"
	"math"
	"sort"
	"sync"

	appcfg "github.com/distill-app/core/internal/config"
	"github.com/distill-app/core/internal/models"
	"github.com/distill-app/core/internal/pkg/apperrors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Embedder is the vector source. *embeddings.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Related is one scored candidate, ordered by descending similarity.
type Related struct {
	Summary    *models.SummaryModel `json:"summary"`
	Similarity float64              `json:"similarity"`
}

// Engine computes cosine similarity over embedding vectors with bounded
// concurrency.
type Engine struct {
	db       *gorm.DB
	embedder Embedder
	pipeline appcfg.PipelineConfig
	logger   *zap.Logger
}

func NewEngine(db *gorm.DB, embedder Embedder, pipeline appcfg.PipelineConfig, logger *zap.Logger) *Engine {
	return &Engine{db: db, embedder: embedder, pipeline: pipeline, logger: logger}
}

// CosineSimilarity is dot(a,b)/(|a||b|). A zero-magnitude vector yields 0
// rather than NaN.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindRelated scores target against candidates and returns at most limit
// results, most similar first. Ties keep candidate order. A candidate whose
// embedding fails is excluded and logged; it never sinks the whole
// computation. The target itself is always excluded.
func (e *Engine) FindRelated(ctx context.Context, target *models.SummaryModel, candidates []*models.SummaryModel, limit int) ([]Related, error) {
	if limit <= 0 {
		limit = e.defaultLimit()
	}

	targetVec, err := e.embedWithTimeout(ctx, target.EmbeddingText())
	if err != nil {
		return nil, &apperrors.EmbeddingError{Err: err}
	}

	type scored struct {
		index      int
		candidate  *models.SummaryModel
		similarity float64
	}

	var (
		mu      sync.Mutex
		results []scored
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for i, candidate := range candidates {
		if candidate == nil || candidate.ID == target.ID {
			continue
		}
		i, candidate := i, candidate
		g.Go(func() error {
			vec, err := e.embedWithTimeout(gctx, candidate.EmbeddingText())
			if err != nil {
				// One bad candidate must not poison the rest.
				e.logger.Warn("candidate embedding failed",
					zap.String("summary_id", candidate.ID),
					zap.Error(err),
				)
				return nil
			}
			sim := CosineSimilarity(targetVec, vec)
			mu.Lock()
			results = append(results, scored{index: i, candidate: candidate, similarity: sim})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Restore input order before the stable sort so equal scores keep it.
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	sort.SliceStable(results, func(i, j int) bool { return results[i].similarity > results[j].similarity })

	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]Related, len(results))
	for i, r := range results {
		out[i] = Related{Summary: r.candidate, Similarity: r.similarity}
	}
	return out, nil
}

// RefreshEdges recomputes target's relationship edges against every other
// summary owned by the same user and persists the top-K, storing the actual
// similarity as edge strength. limit <= 0 falls back to the configured
// default. Re-inserting an existing pair is a no-op.
func (e *Engine) RefreshEdges(ctx context.Context, target *models.SummaryModel, limit int) ([]Related, error) {
	var candidates []*models.SummaryModel
	if err := e.db.WithContext(ctx).
		Where("user_id = ? AND id <> ?", target.UserID, target.ID).
		Find(&candidates).Error; err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Related{}, nil
	}

	related, err := e.FindRelated(ctx, target, candidates, limit)
	if err != nil {
		return nil, err
	}
	if len(related) == 0 {
		return related, nil
	}

	edges := make([]models.SummaryRelationshipModel, 0, len(related))
	for _, r := range related {
		edges = append(edges, models.SummaryRelationshipModel{
			SummaryID:        target.ID,
			RelatedSummaryID: r.Summary.ID,
			Strength:         r.Similarity,
		})
	}
	if err := e.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edges).Error; err != nil {
		return nil, err
	}

	e.logger.Info("relationship edges refreshed",
		zap.String("summary_id", target.ID),
		zap.Int("edges", len(edges)),
	)
	return related, nil
}

func (e *Engine) embedWithTimeout(ctx context.Context, text string) ([]float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.pipeline.CallTimeout())
	defer cancel()
	return e.embedder.Embed(callCtx, text)
}

func (e *Engine) workers() int {
	if e.pipeline.Workers > 0 {
		return e.pipeline.Workers
	}
	return 4
}

func (e *Engine) defaultLimit() int {
	if e.pipeline.RelatedLimit > 0 {
		return e.pipeline.RelatedLimit
	}
	return 3
}
