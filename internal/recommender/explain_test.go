package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainOrdersRetakesFirst(t *testing.T) {
	rec := &Recommendation{
		Courses: []RecommendedCourse{
			{Course: course("N", 3, 2, 3), RiskScore: 0.1},
			{Course: course("L", 3, 7, 1), RiskScore: 0.35, LowGrade: true},
			{Course: course("B", 4, 9, 2), RiskScore: 0.8, Backlog: true},
		},
	}
	got := Explain(rec)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"B", "L", "N"}, []string{got[0].Code, got[1].Code, got[2].Code})
	assert.Equal(t, "9/10 (Very Hard)", got[0].Difficulty)
	assert.Contains(t, got[0].Advice, "VERY HIGH RISK")
	assert.Contains(t, got[1].Advice, "extra study time")
	assert.Contains(t, got[2].Advice, "Low risk")
}

func TestDifficultyLabel(t *testing.T) {
	assert.Equal(t, "8/10 (Very Hard)", DifficultyLabel(8))
	assert.Equal(t, "6/10 (Hard)", DifficultyLabel(6))
	assert.Equal(t, "4/10 (Moderate)", DifficultyLabel(4))
	assert.Equal(t, "3/10 (Easy)", DifficultyLabel(3))
}

func TestRiskAdvice(t *testing.T) {
	assert.Contains(t, RiskAdvice(0.55, 3), "HIGH RISK")
	assert.Equal(t, "Manageable with consistent effort", RiskAdvice(0.3, 6))
	assert.Contains(t, RiskAdvice(0.3, 7), "MODERATE")
}

func TestStrategicAdvice(t *testing.T) {
	p := profile("S", 1.7, 4)
	p.Backlogs.Add("X")
	p.Backlogs.Add("Y")
	p.Backlogs.Add("Z")

	advice := StrategicAdvice(p, &Recommendation{TotalCredits: 21, AvgRisk: 0.6, AvgDifficulty: 7.5})
	assert.Contains(t, advice, "Clearing backlogs is your top priority this semester")
	assert.Contains(t, advice, "Focus on clearing backlogs to improve your CGPA")
	assert.Len(t, advice, 7)
}
