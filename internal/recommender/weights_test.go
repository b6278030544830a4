package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdaptiveWeights(t *testing.T) {
	tests := []struct {
		name     string
		cgpa     float64
		backlogs int
		semester int
		want     Weights
	}{
		{"default", 3.0, 0, 3, Weights{Progress: 10, Retake: 30, Difficulty: 2, Risk: 5}},
		{"struggling", 1.9, 0, 3, Weights{Progress: 5, Retake: 50, Difficulty: 4, Risk: 8}},
		{"below average", 2.0, 0, 3, Weights{Progress: 8, Retake: 40, Difficulty: 3, Risk: 6}},
		{"upper bound of below average", 2.49, 1, 3, Weights{Progress: 8, Retake: 40, Difficulty: 3, Risk: 6}},
		{"middle band", 2.5, 0, 3, Weights{Progress: 10, Retake: 30, Difficulty: 2, Risk: 5}},
		{"high performer", 3.5, 0, 3, Weights{Progress: 15, Retake: 20, Difficulty: 1, Risk: 2}},
		{"two backlogs", 3.0, 2, 3, Weights{Progress: 10, Retake: 45, Difficulty: 2, Risk: 5}},
		{"many backlogs override tier", 1.5, 4, 3, Weights{Progress: 5, Retake: 60, Difficulty: 4, Risk: 8}},
		{"final year", 3.8, 0, 7, Weights{Progress: 20, Retake: 20, Difficulty: 1, Risk: 2}},
		{"final year with backlogs", 2.2, 3, 8, Weights{Progress: 20, Retake: 45, Difficulty: 3, Risk: 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdaptiveWeights(tt.cgpa, tt.backlogs, tt.semester))
		})
	}
}

func TestWeightsScale(t *testing.T) {
	w := Weights{Progress: 10, Retake: 30, Difficulty: 2, Risk: 5}
	got := w.Scale(0.7, 1, 1.5, 1.3)
	assert.InDelta(t, 7.0, got.Progress, 1e-9)
	assert.InDelta(t, 30.0, got.Retake, 1e-9)
	assert.InDelta(t, 3.0, got.Difficulty, 1e-9)
	assert.InDelta(t, 6.5, got.Risk, 1e-9)
}
