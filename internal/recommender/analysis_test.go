package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degree_planner/internal/catalog"
	"degree_planner/internal/rules"
)

func TestCriticalPath(t *testing.T) {
	graph := chainCatalog(t).Graph()

	path, err := CriticalPath(graph, "E", catalog.NewSet())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, path)

	path, err = CriticalPath(graph, "E", catalog.NewSet("A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, path)

	path, err = CriticalPath(graph, "A", catalog.NewSet())
	require.NoError(t, err)
	assert.Empty(t, path)

	_, err = CriticalPath(graph, "ZZ", nil)
	assert.ErrorIs(t, err, catalog.ErrUnknownCourse)
}

func TestCriticalPathRespectsEveryEdge(t *testing.T) {
	cat := mustCatalog(t,
		[]catalog.Course{
			course("M1", 3, 1, 1), course("P1", 3, 1, 1), course("M2", 3, 1, 2), course("P2", 3, 1, 2),
			course("CS1", 3, 1, 1), course("CS2", 3, 1, 2), course("ALG", 3, 1, 3), course("ML", 3, 1, 4),
		},
		edge("M1", "M2"), edge("P1", "P2"), edge("M1", "P2"), edge("CS1", "CS2"),
		edge("CS2", "ALG"), edge("M2", "ALG"), edge("ALG", "ML"), edge("P2", "ML"),
	)
	graph := cat.Graph()

	for _, target := range cat.Codes() {
		path, err := CriticalPath(graph, target, catalog.NewSet())
		require.NoError(t, err)
		assert.ElementsMatch(t, graph.Ancestors(target).Sorted(), path, "target %s", target)

		pos := map[string]int{}
		for i, code := range path {
			pos[code] = i
		}
		for _, code := range path {
			for _, pre := range graph.Predecessors(code) {
				assert.Less(t, pos[pre], pos[code], "%s before %s", pre, code)
			}
		}
	}
}

func TestCriticalPathCycleFallsBack(t *testing.T) {
	cat := mustCatalog(t,
		[]catalog.Course{course("X", 3, 1, 1), course("Y", 3, 1, 1), course("Z", 3, 1, 2)},
		edge("X", "Y"), edge("Y", "X"), edge("Y", "Z"),
	)
	path, err := CriticalPath(cat.Graph(), "Z", catalog.NewSet())
	assert.ErrorIs(t, err, catalog.ErrCycleDetected)
	assert.Equal(t, []string{"X", "Y"}, path)
}

func TestBottlenecks(t *testing.T) {
	cat := chainCatalog(t)

	got := Bottlenecks(cat, catalog.NewSet("A", "B"))
	require.Len(t, got, 2)
	assert.Equal(t, Bottleneck{Code: "A", Name: "Course A", BlocksCount: 2, Semester: 1, Blocked: []string{"C", "E"}}, got[0])
	assert.Equal(t, "B", got[1].Code)
	assert.Equal(t, 1, got[1].BlocksCount)

	got = Bottlenecks(cat, catalog.NewSet("A", "C"))
	require.Len(t, got, 2)
	assert.Equal(t, []string{"A", "C"}, []string{got[0].Code, got[1].Code})

	assert.Empty(t, Bottlenecks(cat, catalog.NewSet("D", "E")))
}

func TestDegreeProgress(t *testing.T) {
	cat := chainCatalog(t)
	got := DegreeProgress(cat, rules.Defaults(), catalog.NewSet("A", "B"))

	assert.Equal(t, 7, got.CreditsCompleted)
	assert.Equal(t, 137, got.CreditsRequired)
	assert.Equal(t, 130, got.CreditsRemaining)
	assert.InDelta(t, 5.1, got.PercentComplete, 1e-9)
	assert.Equal(t, 2, got.CoursesCompleted)
	assert.Equal(t, 5, got.CoursesTotal)
	assert.Equal(t, []SemesterProgress{
		{Semester: 1, Completed: 7, Total: 7},
		{Semester: 2, Completed: 0, Total: 5},
		{Semester: 3, Completed: 0, Total: 4},
	}, got.SemesterBreakdown)
}
