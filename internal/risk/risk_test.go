package risk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degree_planner/internal/catalog"
	"degree_planner/internal/recommender"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		[]catalog.Course{
			{Code: "MATH1", Name: "Calculus", Credits: 4, Difficulty: 6, OfferedSemester: 1},
			{Code: "PHYS1", Name: "Physics", Credits: 3, Difficulty: 5, OfferedSemester: 1},
			{Code: "MATH2", Name: "Linear Algebra", Credits: 3, Difficulty: 7, OfferedSemester: 2},
		},
		[]catalog.Prerequisite{{PrereqCode: "MATH1", CourseCode: "MATH2"}, {PrereqCode: "PHYS1", CourseCode: "MATH2"}},
	)
	require.NoError(t, err)
	return cat
}

func testProfile() *recommender.StudentProfile {
	return &recommender.StudentProfile{
		StudentID:       "S1",
		CGPA:            2.4,
		CurrentSemester: 1,
		Completed:       catalog.NewSet("MATH1", "PHYS1"),
		Backlogs:        catalog.NewSet(),
		LowGrades:       catalog.NewSet("MATH1"),
		Grades:          map[string]string{"MATH1": "C", "PHYS1": "B+"},
	}
}

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestHeuristicScore(t *testing.T) {
	h := Heuristic{}
	assert.InDelta(t, 0.3+0.25-0.4, h.Score(3.2, 5), 1e-9)
	assert.Equal(t, 0.0, h.Score(4.0, 1))
	assert.InDelta(t, 0.8, h.Score(0, 10), 1e-9)
	assert.False(t, h.Trained())

	cat := testCatalog(t)
	scores, err := h.PredictBatch(context.Background(), cat.Courses(), testProfile(), cat.Graph(), 2)
	require.NoError(t, err)
	assert.Len(t, scores, 3)
	for code, v := range scores {
		assert.GreaterOrEqual(t, v, 0.0, code)
		assert.LessOrEqual(t, v, 1.0, code)
	}
}

func TestBuildFeatures(t *testing.T) {
	cat := testCatalog(t)
	p := testProfile()
	math2, _ := cat.Course("MATH2")

	f := BuildFeatures(math2, p, cat.Graph(), 2)
	assert.Equal(t, 0, f.HasPrereqFailure)
	assert.InDelta(t, (2.0+3.3)/2, f.AvgPrereqGrade, 1e-9)
	assert.Equal(t, 2, f.SemesterNumber)
	assert.Equal(t, 7, f.CourseDifficulty)

	p.Grades["PHYS1"] = "F"
	f = BuildFeatures(math2, p, cat.Graph(), 2)
	assert.Equal(t, 1, f.HasPrereqFailure)

	math1, _ := cat.Course("MATH1")
	f = BuildFeatures(math1, p, cat.Graph(), 2)
	assert.Equal(t, defaultPrereqGrade, f.AvgPrereqGrade)
}

func TestRetryPolicy(t *testing.T) {
	calls := 0
	err := fastRetry(2).Do(context.Background(), func(int) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = fastRetry(5).Do(context.Background(), func(int) error {
		calls++
		return permanent(errors.New("bad request"))
	})
	assert.EqualError(t, err, "bad request")
	assert.Equal(t, 1, calls)

	calls = 0
	err = fastRetry(1).Do(context.Background(), func(int) error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour}.Do(ctx, func(int) error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoff(0, 100*time.Millisecond, time.Second, false))
	assert.Equal(t, 400*time.Millisecond, backoff(2, 100*time.Millisecond, time.Second, false))
	assert.Equal(t, time.Second, backoff(10, 100*time.Millisecond, time.Second, false))

	d := backoff(1, 100*time.Millisecond, time.Second, true)
	assert.GreaterOrEqual(t, d, 100*time.Millisecond)
	assert.Less(t, d, 200*time.Millisecond)
}

func TestClientPredictBatch(t *testing.T) {
	var failures atomic.Int32
	failures.Store(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(map[string]any{"trained": true})
		case "/predict":
			if failures.Add(-1) >= 0 {
				http.Error(w, "warming up", http.StatusServiceUnavailable)
				return
			}
			var req predictRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			scores := map[string]float64{}
			for _, f := range req.Courses {
				scores[f.CourseCode] = float64(f.CourseDifficulty) / 5
			}
			_ = json.NewEncoder(w).Encode(predictResponse{Trained: true, RiskScores: scores})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cat := testCatalog(t)
	c := NewClient(srv.URL+"/", "secret", time.Second, fastRetry(2))
	assert.False(t, c.Trained())
	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.Trained())

	scores, err := c.PredictBatch(context.Background(), cat.Courses(), testProfile(), cat.Graph(), 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scores["MATH1"], 1e-9, "clipped to 1")
	assert.InDelta(t, 1.0, scores["PHYS1"], 1e-9)
	assert.InDelta(t, 1.0, scores["MATH2"], 1e-9)
}

func TestClientRejectsIncompleteScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(predictResponse{Trained: true, RiskScores: map[string]float64{"MATH1": 0.2}})
	}))
	defer srv.Close()

	cat := testCatalog(t)
	_, err := NewClient(srv.URL, "", time.Second, fastRetry(0)).PredictBatch(context.Background(), cat.Courses(), testProfile(), cat.Graph(), 2)
	assert.ErrorIs(t, err, ErrIncompleteScores)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad features", http.StatusBadRequest)
	}))
	defer srv.Close()

	cat := testCatalog(t)
	_, err := NewClient(srv.URL, "", time.Second, fastRetry(3)).PredictBatch(context.Background(), cat.Courses(), testProfile(), cat.Graph(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

type failingPredictor struct{ trained bool }

func (f failingPredictor) PredictBatch(context.Context, []catalog.Course, *recommender.StudentProfile, *catalog.PrerequisiteGraph, int) (recommender.RiskScores, error) {
	return nil, errors.New("model offline")
}

func (f failingPredictor) Trained() bool { return f.trained }

func TestFallbackUsesHeuristic(t *testing.T) {
	cat := testCatalog(t)
	p := testProfile()
	fb := NewFallback(failingPredictor{trained: true})

	scores, err := fb.PredictBatch(context.Background(), cat.Courses(), p, cat.Graph(), 2)
	require.NoError(t, err)
	assert.InDelta(t, Heuristic{}.Score(p.CGPA, 7), scores["MATH2"], 1e-9)
	assert.True(t, fb.Trained())
}

func TestFallbackPropagatesCancellation(t *testing.T) {
	cat := testCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFallback(failingPredictor{}).PredictBatch(ctx, cat.Courses(), testProfile(), cat.Graph(), 2)
	assert.Error(t, err)
}
