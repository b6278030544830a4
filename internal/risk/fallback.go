package risk

import (
	"context"

	"github.com/go-logr/logr"

	"degree_planner/internal/catalog"
	"degree_planner/internal/metrics"
	"degree_planner/internal/recommender"
)

// Fallback scores with Primary and, when that fails, with Secondary.
type Fallback struct {
	Primary   recommender.Predictor
	Secondary recommender.Predictor
}

// NewFallback wraps primary with the heuristic.
func NewFallback(primary recommender.Predictor) *Fallback {
	return &Fallback{Primary: primary, Secondary: Heuristic{}}
}

func (f *Fallback) PredictBatch(ctx context.Context, courses []catalog.Course, p *recommender.StudentProfile, graph *catalog.PrerequisiteGraph, target int) (recommender.RiskScores, error) {
	scores, err := f.Primary.PredictBatch(ctx, courses, p, graph, target)
	if err == nil {
		return scores, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	logr.FromContextOrDiscard(ctx).Error(err, "Risk model unavailable, using heuristic estimate",
		"student", p.StudentID, "courses", len(courses))
	metrics.RiskFallbacks.Inc()
	return f.Secondary.PredictBatch(ctx, courses, p, graph, target)
}

// Trained reports whether the primary predictor is a trained model.
func (f *Fallback) Trained() bool {
	return f.Primary.Trained()
}
