package risk

import (
	"context"

	"degree_planner/internal/catalog"
	"degree_planner/internal/recommender"
)

// Heuristic estimates risk from course difficulty and student CGPA alone.
type Heuristic struct{}

// Score is clip(0.3 + difficulty/20 - cgpa/8, 0, 1).
func (Heuristic) Score(cgpa float64, difficulty int) float64 {
	return clip(0.3 + float64(difficulty)/20 - cgpa/8)
}

func (h Heuristic) PredictBatch(_ context.Context, courses []catalog.Course, p *recommender.StudentProfile, _ *catalog.PrerequisiteGraph, _ int) (recommender.RiskScores, error) {
	out := make(recommender.RiskScores, len(courses))
	for _, c := range courses {
		out[c.Code] = h.Score(p.CGPA, c.Difficulty)
	}
	return out, nil
}

// Trained is always false: the heuristic is not a calibrated model.
func (Heuristic) Trained() bool { return false }

func clip(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
