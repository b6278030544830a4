package recommender

import (
	"context"

	"degree_planner/internal/catalog"
)

// StudentProfile is one student's academic history.
type StudentProfile struct {
	StudentID       string  `json:"student_id"`
	CGPA            float64 `json:"cgpa"`
	CurrentSemester int     `json:"current_semester"`
	OnProbation     bool    `json:"on_probation"`
	// MaxCreditsOverride caps the envelope maximum for this student when set.
	MaxCreditsOverride *int `json:"max_credits_override,omitempty"`

	Completed catalog.Set `json:"-"`
	// Backlogs are completed courses with a failing grade, open for retake.
	Backlogs catalog.Set `json:"-"`
	// LowGrades are completed courses with a C or D, open for voluntary retake.
	LowGrades catalog.Set `json:"-"`
	// Grades maps course code to the last letter grade earned.
	Grades map[string]string `json:"-"`
}

// IsBacklog reports whether code is an open backlog.
func (p *StudentProfile) IsBacklog(code string) bool {
	return p.Backlogs.Has(code)
}

// IsLowGrade reports whether code was passed with a low grade.
func (p *StudentProfile) IsLowGrade(code string) bool {
	return p.LowGrades.Has(code)
}

// withCompleted returns a shallow copy of p whose completed set is replaced.
func (p *StudentProfile) withCompleted(completed catalog.Set) *StudentProfile {
	cp := *p
	cp.Completed = completed
	return &cp
}

// Weights are the objective weights of the single-semester program.
type Weights struct {
	Progress   float64 `json:"progress" validate:"gte=0"`
	Retake     float64 `json:"retake" validate:"gte=0"`
	Difficulty float64 `json:"difficulty" validate:"gte=0"`
	Risk       float64 `json:"risk" validate:"gte=0"`
}

// RiskScores maps course code to a failure probability in [0,1].
type RiskScores map[string]float64

// DefaultRisk is assumed for courses without a score.
const DefaultRisk = 0.3

// Of returns the score for code, or DefaultRisk.
func (r RiskScores) Of(code string) float64 {
	if v, ok := r[code]; ok {
		return v
	}
	return DefaultRisk
}

// Predictor produces failure-risk scores for a student and target semester.
// Trained distinguishes a calibrated model from a heuristic estimate.
type Predictor interface {
	PredictBatch(ctx context.Context, courses []catalog.Course, profile *StudentProfile, graph *catalog.PrerequisiteGraph, targetSemester int) (RiskScores, error)
	Trained() bool
}

// Status is the terminal outcome of a recommendation.
type Status string

const (
	StatusOptimal           Status = "optimal"
	StatusNoEligibleCourses Status = "no_eligible_courses"
	StatusNoSolution        Status = "no_solution"
	StatusSolverTimeout     Status = "solver_timeout"
)

// RecommendedCourse is a selected course with the risk it was scored at.
type RecommendedCourse struct {
	catalog.Course
	RiskScore float64 `json:"risk_score"`
	Backlog   bool    `json:"backlog"`
	LowGrade  bool    `json:"low_grade"`
}

// Recommendation is one semester's selection and how it was reached.
type Recommendation struct {
	Status          Status              `json:"status"`
	SolverStatus    string              `json:"solver_status,omitempty"`
	Profile         string              `json:"profile,omitempty"`
	SelectedCodes   []string            `json:"selected_codes"`
	Courses         []RecommendedCourse `json:"courses"`
	TotalCredits    int                 `json:"total_credits"`
	MinCredits      int                 `json:"min_credits"`
	MaxCredits      int                 `json:"max_credits"`
	NumCourses      int                 `json:"num_courses"`
	BacklogsCleared int                 `json:"backlogs_cleared"`
	AvgDifficulty   float64             `json:"avg_difficulty"`
	AvgRisk         float64             `json:"avg_risk"`
	ObjectiveValue  float64             `json:"objective_value"`
	WeightsUsed     Weights             `json:"weights_used"`
}

// Solved reports whether a selection was produced.
func (r *Recommendation) Solved() bool {
	return r.Status == StatusOptimal
}

// PlannedSemester is one simulated semester of a forward plan.
type PlannedSemester struct {
	Semester      int      `json:"semester"`
	SelectedCodes []string `json:"selected_codes"`
	CourseNames   []string `json:"course_names"`
	TotalCredits  int      `json:"total_credits"`
	NumCourses    int      `json:"num_courses"`
	Note          string   `json:"note,omitempty"`
}

// SemesterPlan is the ordered output of the forward planner.
type SemesterPlan struct {
	StudentID           string            `json:"student_id"`
	Semesters           []PlannedSemester `json:"semesters"`
	TotalPlannedCredits int               `json:"total_planned_credits"`
	RiskAware           bool              `json:"risk_aware"`
}
