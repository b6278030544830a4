package recommender

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"degree_planner/internal/catalog"
	"degree_planner/internal/rules"
)

// CriticalPath returns the not-yet-completed prerequisite chain of target,
// ordered so that every course follows its prerequisites. When the chain
// contains a cycle the needed courses are returned in lexical order along
// with a *catalog.CycleError.
func CriticalPath(graph *catalog.PrerequisiteGraph, target string, completed catalog.Set) ([]string, error) {
	if !graph.Has(target) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownCourse, target)
	}
	needed := graph.Ancestors(target).Minus(completed)
	needed = needed.Minus(catalog.NewSet(target))
	if len(needed) == 0 {
		return []string{}, nil
	}

	subset := needed.Clone()
	subset.Add(target)
	order, err := graph.TopologicalOrder(subset)
	if err != nil {
		var cycleErr *catalog.CycleError
		if errors.As(err, &cycleErr) {
			return needed.Sorted(), err
		}
		return nil, err
	}

	path := make([]string, 0, len(order)-1)
	for _, code := range order {
		if code != target {
			path = append(path, code)
		}
	}
	return path, nil
}

// Bottleneck is a completed course that still gates future courses.
type Bottleneck struct {
	Code        string   `json:"course_code"`
	Name        string   `json:"course_name"`
	BlocksCount int      `json:"blocks_count"`
	Semester    int      `json:"semester"`
	Blocked     []string `json:"blocked"`
}

// Bottlenecks lists completed courses with uncompleted descendants, most
// blocking first. Ties are ordered by code.
func Bottlenecks(cat *catalog.Catalog, completed catalog.Set) []Bottleneck {
	graph := cat.Graph()
	out := []Bottleneck{}
	for _, code := range completed.Sorted() {
		blocked := graph.Descendants(code).Minus(completed)
		if len(blocked) == 0 {
			continue
		}
		b := Bottleneck{
			Code:        code,
			BlocksCount: len(blocked),
			Blocked:     blocked.Sorted(),
		}
		if course, ok := cat.Course(code); ok {
			b.Name = course.Name
			b.Semester = course.OfferedSemester
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BlocksCount > out[j].BlocksCount
	})
	return out
}

// SemesterProgress is completed against offered credits for one offering semester.
type SemesterProgress struct {
	Semester  int `json:"semester"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Progress summarizes how far a student is through the degree.
type Progress struct {
	CreditsCompleted  int                `json:"total_credits_completed"`
	CreditsRequired   int                `json:"total_credits_required"`
	CreditsRemaining  int                `json:"credits_remaining"`
	PercentComplete   float64            `json:"percentage_complete"`
	CoursesCompleted  int                `json:"courses_completed"`
	CoursesTotal      int                `json:"courses_total"`
	SemesterBreakdown []SemesterProgress `json:"semester_breakdown"`
}

// DegreeProgress computes a Progress. Completed codes outside the catalog
// count toward CoursesCompleted but carry no credits.
func DegreeProgress(cat *catalog.Catalog, r rules.AcademicRules, completed catalog.Set) Progress {
	done := cat.CreditsOf(completed)
	bySemester := map[int]*SemesterProgress{}
	for _, c := range cat.Courses() {
		sp, ok := bySemester[c.OfferedSemester]
		if !ok {
			sp = &SemesterProgress{Semester: c.OfferedSemester}
			bySemester[c.OfferedSemester] = sp
		}
		sp.Total += c.Credits
		if completed.Has(c.Code) {
			sp.Completed += c.Credits
		}
	}

	breakdown := make([]SemesterProgress, 0, len(bySemester))
	for _, sp := range bySemester {
		breakdown = append(breakdown, *sp)
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Semester < breakdown[j].Semester })

	pct := 0.0
	if r.TotalDegreeCredits > 0 {
		pct = math.Round(float64(done)/float64(r.TotalDegreeCredits)*1000) / 10
	}
	return Progress{
		CreditsCompleted:  done,
		CreditsRequired:   r.TotalDegreeCredits,
		CreditsRemaining:  r.TotalDegreeCredits - done,
		PercentComplete:   pct,
		CoursesCompleted:  len(completed),
		CoursesTotal:      cat.Len(),
		SemesterBreakdown: breakdown,
	}
}
