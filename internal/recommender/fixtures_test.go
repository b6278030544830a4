package recommender

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"degree_planner/internal/catalog"
)

func course(code string, credits, difficulty, semester int) catalog.Course {
	return catalog.Course{Code: code, Name: "Course " + code, Credits: credits, Difficulty: difficulty, OfferedSemester: semester}
}

func edge(prereq, course string) catalog.Prerequisite {
	return catalog.Prerequisite{PrereqCode: prereq, CourseCode: course}
}

func mustCatalog(t *testing.T, courses []catalog.Course, edges ...catalog.Prerequisite) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(courses, edges)
	require.NoError(t, err)
	return cat
}

// chainCatalog: A -> C -> E and B -> D.
func chainCatalog(t *testing.T) *catalog.Catalog {
	return mustCatalog(t,
		[]catalog.Course{
			course("A", 3, 2, 1),
			course("B", 4, 3, 1),
			course("C", 3, 4, 2),
			course("D", 2, 5, 2),
			course("E", 4, 6, 3),
		},
		edge("A", "C"), edge("C", "E"), edge("B", "D"),
	)
}

func profile(id string, cgpa float64, semester int, completed ...string) *StudentProfile {
	return &StudentProfile{
		StudentID:       id,
		CGPA:            cgpa,
		CurrentSemester: semester,
		OnProbation:     cgpa < 2.0,
		Completed:       catalog.NewSet(completed...),
		Backlogs:        catalog.NewSet(),
		LowGrades:       catalog.NewSet(),
		Grades:          map[string]string{},
	}
}

type stubPredictor struct {
	scores  RiskScores
	trained bool
	err     error
	calls   int
}

func (s *stubPredictor) PredictBatch(_ context.Context, courses []catalog.Course, _ *StudentProfile, _ *catalog.PrerequisiteGraph, _ int) (RiskScores, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := RiskScores{}
	for _, c := range courses {
		out[c.Code] = s.scores.Of(c.Code)
	}
	return out, nil
}

func (s *stubPredictor) Trained() bool { return s.trained }
