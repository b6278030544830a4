package recommender

import "degree_planner/internal/catalog"

// SemesterMatch selects how a course's offered semester is compared to the target.
type SemesterMatch int

const (
	// MatchExact requires the course to be offered in the target semester.
	MatchExact SemesterMatch = iota
	// MatchOnOrBefore accepts courses offered in or before the target semester.
	MatchOnOrBefore
)

// Eligible returns, in catalog order, the courses a student may select for
// targetSemester. A course qualifies when it is not completed or is a
// backlog, every direct prerequisite is completed, and its offering matches
// the target. Backlogs skip the offering check.
func Eligible(cat *catalog.Catalog, completed, backlogs catalog.Set, targetSemester int, match SemesterMatch) []catalog.Course {
	graph := cat.Graph()
	var out []catalog.Course
	for _, course := range cat.Courses() {
		retake := backlogs.Has(course.Code)
		if completed.Has(course.Code) && !retake {
			continue
		}
		if !prerequisitesMet(graph, course.Code, completed) {
			continue
		}
		if !retake && !offered(course, targetSemester, match) {
			continue
		}
		out = append(out, course)
	}
	return out
}

// EligibleFor applies Eligible to a student's completed and backlog sets.
func EligibleFor(cat *catalog.Catalog, profile *StudentProfile, targetSemester int) []catalog.Course {
	return Eligible(cat, profile.Completed, profile.Backlogs, targetSemester, MatchExact)
}

func prerequisitesMet(graph *catalog.PrerequisiteGraph, code string, completed catalog.Set) bool {
	for _, prereq := range graph.Predecessors(code) {
		if !completed.Has(prereq) {
			return false
		}
	}
	return true
}

func offered(course catalog.Course, target int, match SemesterMatch) bool {
	if match == MatchOnOrBefore {
		return course.OfferedSemester <= target
	}
	return course.OfferedSemester == target
}
