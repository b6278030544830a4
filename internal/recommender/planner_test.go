package recommender

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degree_planner/internal/catalog"
	"degree_planner/internal/rules"
)

func smallRules(normalCap int) rules.AcademicRules {
	r := rules.Defaults()
	r.MaxNormalCredits = normalCap
	r.MaxOverloadCredits = normalCap + 2
	return r
}

func TestPlanRanksByCreditsWithoutPredictor(t *testing.T) {
	cat := chainCatalog(t)
	p := profile("S1", 2.8, 0)

	plan := NewPlanner(cat, smallRules(7), nil).Plan(context.Background(), p, 4)

	want := []PlannedSemester{
		{Semester: 1, SelectedCodes: []string{"B", "A"}, CourseNames: []string{"Course B", "Course A"}, TotalCredits: 7, NumCourses: 2},
		{Semester: 2, SelectedCodes: []string{"C", "D"}, CourseNames: []string{"Course C", "Course D"}, TotalCredits: 5, NumCourses: 2},
		{Semester: 3, SelectedCodes: []string{"E"}, CourseNames: []string{"Course E"}, TotalCredits: 4, NumCourses: 1},
		{Semester: 4, SelectedCodes: []string{}, CourseNames: []string{}, Note: NoteNoEligibleCourses},
	}
	if diff := cmp.Diff(want, plan.Semesters); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 16, plan.TotalPlannedCredits)
	assert.False(t, plan.RiskAware)
	assert.Empty(t, p.Completed, "caller profile must not change")
}

func TestPlanRanksByRiskThenUnlockPower(t *testing.T) {
	cat := chainCatalog(t)

	tests := []struct {
		name   string
		scores RiskScores
		want   []string
	}{
		{"low risk first", RiskScores{"A": 0.1, "B": 0.5}, []string{"A"}},
		{"higher risk skipped when cap is full", RiskScores{"A": 0.5, "B": 0.1}, []string{"B"}},
		{"equal risk prefers unlock power over credits", RiskScores{"A": 0.2, "B": 0.2}, []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := &stubPredictor{scores: tt.scores, trained: true}
			plan := NewPlanner(cat, smallRules(5), pred).Plan(context.Background(), profile("S2", 2.8, 0), 1)
			require.Len(t, plan.Semesters, 1)
			assert.Equal(t, tt.want, plan.Semesters[0].SelectedCodes)
			assert.True(t, plan.RiskAware)
		})
	}
}

func TestPlanIgnoresUntrainedPredictor(t *testing.T) {
	pred := &stubPredictor{scores: RiskScores{"A": 0.1, "B": 0.9}}
	plan := NewPlanner(chainCatalog(t), smallRules(5), pred).Plan(context.Background(), profile("S3", 2.8, 0), 1)
	assert.Equal(t, []string{"B"}, plan.Semesters[0].SelectedCodes)
	assert.Zero(t, pred.calls)
}

func TestPlanFallsBackWhenPredictionFails(t *testing.T) {
	pred := &stubPredictor{trained: true, err: errors.New("model offline")}
	plan := NewPlanner(chainCatalog(t), smallRules(5), pred).Plan(context.Background(), profile("S4", 2.8, 0), 1)
	assert.Equal(t, []string{"B"}, plan.Semesters[0].SelectedCodes)
}

func TestPlanUsesOverloadCap(t *testing.T) {
	cat := chainCatalog(t)
	// cap 5 normally, 7 with overload
	plan := NewPlanner(cat, smallRules(5), nil).Plan(context.Background(), profile("S5", 3.1, 0), 1)
	assert.Equal(t, 7, plan.Semesters[0].TotalCredits)
}

func TestPlanStopsAtMaxSemesters(t *testing.T) {
	plan := NewPlanner(chainCatalog(t), rules.Defaults(), nil).Plan(context.Background(), profile("S6", 2.8, 7), 4)
	require.Len(t, plan.Semesters, 1)
	assert.Equal(t, 8, plan.Semesters[0].Semester)
}

func TestPlanStopsWhenDegreeCreditsReached(t *testing.T) {
	r := smallRules(7)
	r.TotalDegreeCredits = 7
	plan := NewPlanner(chainCatalog(t), r, nil).Plan(context.Background(), profile("S7", 2.8, 0), 4)
	require.Len(t, plan.Semesters, 1)
	assert.Equal(t, 7, plan.TotalPlannedCredits)
}

func TestPlanDefaultsHorizon(t *testing.T) {
	plan := NewPlanner(chainCatalog(t), rules.Defaults(), nil).Plan(context.Background(), profile("S8", 2.8, 1, "A", "B", "C", "D", "E"), 0)
	assert.Len(t, plan.Semesters, DefaultPlanHorizon)
	for _, sem := range plan.Semesters {
		assert.Equal(t, NoteNoEligibleCourses, sem.Note)
	}
}

func TestEstimateGraduationSemester(t *testing.T) {
	cat := chainCatalog(t)
	r := rules.Defaults()
	r.TotalDegreeCredits = 40
	r.MaxSemesters = 12

	// 40 credits left: probation 15 -> 3, low 16 -> 3, mid 18 -> 3, high 20 -> 2
	tests := []struct {
		cgpa float64
		want int
	}{
		{1.5, 4},
		{2.2, 4},
		{2.7, 4},
		{3.2, 3},
	}
	prev := r.MaxSemesters
	for _, tt := range tests {
		got := EstimateGraduationSemester(cat, r, profile("S", tt.cgpa, 1))
		assert.Equal(t, tt.want, got, "cgpa %.1f", tt.cgpa)
		assert.LessOrEqual(t, got, prev, "better standing must not delay graduation")
		prev = got
	}
}

func TestEstimateGraduationSemesterCaps(t *testing.T) {
	cat := chainCatalog(t)
	r := rules.Defaults()
	planner := NewPlanner(cat, r, nil)

	assert.Equal(t, r.MaxSemesters, planner.EstimateGraduationSemester(profile("S", 1.5, 6)))

	r.TotalDegreeCredits = 5
	done := profile("S", 2.5, 10, "A", "B")
	assert.Equal(t, r.MaxSemesters, EstimateGraduationSemester(cat, r, done))
	done.CurrentSemester = 3
	assert.Equal(t, 3, EstimateGraduationSemester(cat, r, done))
}

func TestPlanNeverRevisitsCompleted(t *testing.T) {
	cat := chainCatalog(t)
	p := profile("S9", 2.8, 1, "A")
	plan := NewPlanner(cat, smallRules(18), nil).Plan(context.Background(), p, 3)

	seen := catalog.NewSet("A")
	for _, sem := range plan.Semesters {
		for _, code := range sem.SelectedCodes {
			assert.False(t, seen.Has(code), "%s planned twice", code)
			for _, pre := range cat.Graph().Predecessors(code) {
				assert.True(t, seen.Has(pre), "%s planned before its prerequisite %s", code, pre)
			}
		}
		for _, code := range sem.SelectedCodes {
			seen.Add(code)
		}
	}
}
