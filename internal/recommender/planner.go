package recommender

import (
	"context"
	"math"
	"sort"

	"github.com/go-logr/logr"

	"degree_planner/internal/catalog"
	"degree_planner/internal/logging"
	"degree_planner/internal/rules"
)

// DefaultPlanHorizon is the number of semesters planned when none is given.
const DefaultPlanHorizon = 4

// NoteNoEligibleCourses marks a simulated semester in which nothing could be taken.
const NoteNoEligibleCourses = "No eligible courses"

// Planner greedily simulates future semesters. Each semester fills a
// simple credit cap first-fit from a ranked eligible list; it does not
// solve the per-semester program the Optimizer solves.
type Planner struct {
	catalog   *catalog.Catalog
	rules     rules.AcademicRules
	predictor Predictor
}

// NewPlanner returns a planner. predictor may be nil.
func NewPlanner(cat *catalog.Catalog, r rules.AcademicRules, predictor Predictor) *Planner {
	return &Planner{catalog: cat, rules: r, predictor: predictor}
}

type rankedCourse struct {
	catalog.Course
	risk   float64
	unlock int
}

// Plan simulates up to semesters semesters after the profile's current one.
// The caller's profile is not modified. Planning never fails: a semester
// with nothing eligible is recorded with a note.
func (p *Planner) Plan(ctx context.Context, profile *StudentProfile, semesters int) SemesterPlan {
	logger := logr.FromContextOrDiscard(ctx)
	if semesters <= 0 {
		semesters = DefaultPlanHorizon
	}

	completed := profile.Completed.Clone()
	remaining := catalog.NewSet(p.catalog.Codes()...).Minus(completed)
	creditCap := p.rules.PlanningCap(profile.CGPA)
	riskAware := p.predictor != nil && p.predictor.Trained()

	plan := SemesterPlan{
		StudentID: profile.StudentID,
		Semesters: []PlannedSemester{},
		RiskAware: riskAware,
	}

	for offset := 1; offset <= semesters; offset++ {
		target := profile.CurrentSemester + offset
		if target > p.rules.MaxSemesters {
			break
		}

		eligible := Eligible(p.catalog, completed, nil, target, MatchOnOrBefore)
		eligible = onlyIn(eligible, remaining)
		if len(eligible) == 0 {
			plan.Semesters = append(plan.Semesters, PlannedSemester{
				Semester:      target,
				SelectedCodes: []string{},
				CourseNames:   []string{},
				Note:          NoteNoEligibleCourses,
			})
			continue
		}

		ranked := p.rank(ctx, eligible, profile.withCompleted(completed.Clone()), target, riskAware)

		sem := PlannedSemester{Semester: target, SelectedCodes: []string{}, CourseNames: []string{}}
		for _, c := range ranked {
			if sem.TotalCredits+c.Credits > creditCap {
				continue
			}
			sem.SelectedCodes = append(sem.SelectedCodes, c.Code)
			sem.CourseNames = append(sem.CourseNames, c.Name)
			sem.TotalCredits += c.Credits
			completed.Add(c.Code)
			delete(remaining, c.Code)
		}
		sem.NumCourses = len(sem.SelectedCodes)
		plan.TotalPlannedCredits += sem.TotalCredits
		plan.Semesters = append(plan.Semesters, sem)

		logger.V(logging.DEBUG).Info("Planned semester",
			"student", profile.StudentID, "semester", target,
			"eligible", len(eligible), "selected", sem.NumCourses, "credits", sem.TotalCredits)

		if plan.TotalPlannedCredits >= p.rules.TotalDegreeCredits {
			break
		}
	}
	return plan
}

// rank orders eligible courses for first-fit selection. With a trained
// predictor: ascending risk, then descending unlock power, then descending
// credits. Otherwise descending credits only. Equal keys keep catalog order.
func (p *Planner) rank(ctx context.Context, eligible []catalog.Course, profile *StudentProfile, target int, riskAware bool) []rankedCourse {
	ranked := make([]rankedCourse, len(eligible))
	for i, c := range eligible {
		ranked[i] = rankedCourse{Course: c}
	}

	if riskAware {
		scores, err := p.predictor.PredictBatch(ctx, eligible, profile, p.catalog.Graph(), target)
		if err != nil {
			logr.FromContextOrDiscard(ctx).Error(err, "Risk prediction failed, ranking by credits",
				"student", profile.StudentID, "semester", target)
			riskAware = false
		} else {
			graph := p.catalog.Graph()
			for i := range ranked {
				ranked[i].risk = scores.Of(ranked[i].Code)
				ranked[i].unlock = graph.UnlockPower(ranked[i].Code)
			}
		}
	}

	if riskAware {
		sort.SliceStable(ranked, func(i, j int) bool {
			a, b := ranked[i], ranked[j]
			if a.risk != b.risk {
				return a.risk < b.risk
			}
			if a.unlock != b.unlock {
				return a.unlock > b.unlock
			}
			return a.Credits > b.Credits
		})
	} else {
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Credits > ranked[j].Credits
		})
	}
	return ranked
}

func onlyIn(courses []catalog.Course, keep catalog.Set) []catalog.Course {
	var out []catalog.Course
	for _, c := range courses {
		if keep.Has(c.Code) {
			out = append(out, c)
		}
	}
	return out
}

// EstimateGraduationSemester estimates the semester in which the student
// finishes, from remaining credits and the average load of their CGPA
// tier. The result never exceeds MaxSemesters.
func (p *Planner) EstimateGraduationSemester(profile *StudentProfile) int {
	return EstimateGraduationSemester(p.catalog, p.rules, profile)
}

// EstimateGraduationSemester is the planner-free form of Planner.EstimateGraduationSemester.
func EstimateGraduationSemester(cat *catalog.Catalog, r rules.AcademicRules, profile *StudentProfile) int {
	remaining := r.TotalDegreeCredits - cat.CreditsOf(profile.Completed)
	if remaining <= 0 {
		return min(profile.CurrentSemester, r.MaxSemesters)
	}
	load := r.AvgLoad(r.StandingFor(profile.CGPA, false))
	needed := int(math.Ceil(float64(remaining) / float64(load)))
	return min(profile.CurrentSemester+needed, r.MaxSemesters)
}
