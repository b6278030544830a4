// Package risk scores how likely a student is to fail a course.
//
// Three predictors satisfy recommender.Predictor: Heuristic, a closed-form
// estimate that needs no model; Client, which asks a remote model service;
// and Fallback, which uses the first and falls back to the second when the
// remote call fails.
package risk

import (
	"degree_planner/internal/catalog"
	"degree_planner/internal/recommender"
)

// defaultPrereqGrade is assumed when no prerequisite has a recorded grade.
const defaultPrereqGrade = 3.0

var gradePoints = map[string]float64{
	"A": 4.0, "A-": 3.7,
	"B+": 3.3, "B": 3.0, "B-": 2.7,
	"C+": 2.3, "C": 2.0, "C-": 1.7,
	"D": 1.0,
	"F": 0.0,
}

// GradePoints converts a letter grade. Unknown grades count as 2.0.
func GradePoints(grade string) float64 {
	if p, ok := gradePoints[grade]; ok {
		return p
	}
	return 2.0
}

// Failing reports whether a grade leaves the course as a backlog.
func Failing(grade string) bool {
	return grade == "D" || grade == "F"
}

// Features is the model input for one (student, course, semester).
type Features struct {
	CourseCode       string  `json:"course_code"`
	StudentCGPA      float64 `json:"student_cgpa"`
	CourseDifficulty int     `json:"course_difficulty"`
	CourseCredits    int     `json:"course_credits"`
	SemesterNumber   int     `json:"semester_number"`
	HasPrereqFailure int     `json:"has_prereq_failure"`
	AvgPrereqGrade   float64 `json:"avg_prereq_grade"`
}

// BuildFeatures derives the model features of course for a student.
func BuildFeatures(c catalog.Course, p *recommender.StudentProfile, graph *catalog.PrerequisiteGraph, target int) Features {
	f := Features{
		CourseCode:       c.Code,
		StudentCGPA:      p.CGPA,
		CourseDifficulty: c.Difficulty,
		CourseCredits:    c.Credits,
		SemesterNumber:   target,
		AvgPrereqGrade:   defaultPrereqGrade,
	}

	sum, graded := 0.0, 0
	for _, pre := range graph.Predecessors(c.Code) {
		if p.IsBacklog(pre) {
			f.HasPrereqFailure = 1
		}
		grade, ok := p.Grades[pre]
		if !ok {
			continue
		}
		if Failing(grade) {
			f.HasPrereqFailure = 1
		}
		sum += GradePoints(grade)
		graded++
	}
	if graded > 0 {
		f.AvgPrereqGrade = sum / float64(graded)
	}
	return f
}
