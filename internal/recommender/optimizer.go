package recommender

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"degree_planner/internal/catalog"
	"degree_planner/internal/logging"
	"degree_planner/internal/rules"
	"degree_planner/internal/solver"
)

// MaxCoursesPerSemester caps the number of courses in one recommendation,
// whatever their credits.
const MaxCoursesPerSemester = 6

// Retake bonus multipliers applied to the retake weight.
const (
	backlogRetakeFactor  = 1.0
	lowGradeRetakeFactor = 0.5
)

// LinearConstraint is a caller-supplied constraint over the selection
// variables, keyed by course code. Codes outside the eligible set are ignored.
type LinearConstraint struct {
	Name   string             `json:"name"`
	Coeffs map[string]float64 `json:"coeffs"`
	Op     solver.Op          `json:"op"`
	RHS    float64            `json:"rhs"`
}

// Request is the input of a single-semester recommendation.
type Request struct {
	Eligible []catalog.Course
	Profile  *StudentProfile
	Risk     RiskScores
	// Weights overrides the adaptive weights when set.
	Weights     *Weights
	Constraints []LinearConstraint
}

// Optimizer selects one semester's courses by solving a 0/1 program.
type Optimizer struct {
	rules   rules.AcademicRules
	timeout time.Duration
}

// OptimizerOption configures an Optimizer.
type OptimizerOption func(*Optimizer)

// WithSolveTimeout bounds each solve. Zero means no bound beyond the caller's context.
func WithSolveTimeout(d time.Duration) OptimizerOption {
	return func(o *Optimizer) { o.timeout = d }
}

// NewOptimizer returns an optimizer for the given rules.
func NewOptimizer(r rules.AcademicRules, opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{rules: r}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Envelope returns the [min, max] credit bounds for a profile given the
// eligible courses. The standing envelope is capped by the student's
// override, then both bounds are clamped to the credits on offer.
func (o *Optimizer) Envelope(p *StudentProfile, eligible []catalog.Course) rules.CreditRange {
	env := o.rules.Envelope(o.rules.StandingFor(p.CGPA, p.OnProbation))
	if p.MaxCreditsOverride != nil && *p.MaxCreditsOverride < env.Max {
		env.Max = *p.MaxCreditsOverride
	}

	available := 0
	for _, c := range eligible {
		available += c.Credits
	}
	env.Max = min(env.Max, available)
	env.Min = min(env.Min, available)
	if env.Min > env.Max {
		env.Min = env.Max
	}
	return env
}

// Contribution is a course's objective coefficient under w.
func Contribution(c catalog.Course, p *StudentProfile, w Weights, risk float64) float64 {
	score := w.Progress*float64(c.Credits) -
		w.Difficulty*float64(c.Difficulty) -
		w.Risk*risk
	switch {
	case p.IsBacklog(c.Code):
		score += w.Retake * backlogRetakeFactor
	case p.IsLowGrade(c.Code):
		score += w.Retake * lowGradeRetakeFactor
	}
	return score
}

// Recommend solves the program for req. Terminal outcomes are reported on
// Recommendation.Status; an error is returned only for malformed input or
// a canceled context.
func (o *Optimizer) Recommend(ctx context.Context, req Request) (*Recommendation, error) {
	logger := logr.FromContextOrDiscard(ctx)
	p := req.Profile
	if p == nil {
		return nil, errors.New("recommender: request has no student profile")
	}

	w := WeightsFor(p)
	if req.Weights != nil {
		w = *req.Weights
	}

	if len(req.Eligible) == 0 {
		return &Recommendation{
			Status:        StatusNoEligibleCourses,
			SelectedCodes: []string{},
			Courses:       []RecommendedCourse{},
			WeightsUsed:   w,
		}, nil
	}

	env := o.Envelope(p, req.Eligible)
	program := o.buildProgram(req, w, env)

	solveCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	sol, err := solver.Solve(solveCtx, program)
	logger.V(logging.DEBUG).Info("Solved course program",
		"student", p.StudentID, "variables", program.NumVars(),
		"constraints", len(program.Constraints), "nodes", sol.Nodes,
		"status", sol.Status, "elapsed", time.Since(start))

	rec := &Recommendation{
		SelectedCodes: []string{},
		Courses:       []RecommendedCourse{},
		MinCredits:    env.Min,
		MaxCredits:    env.Max,
		WeightsUsed:   w,
	}
	switch {
	case errors.Is(err, solver.ErrTimeout):
		rec.Status = StatusSolverTimeout
		rec.SolverStatus = string(sol.Status)
		return rec, nil
	case err != nil:
		return nil, fmt.Errorf("recommender: solve for %s: %w", p.StudentID, err)
	case sol.Status != solver.StatusOptimal:
		logger.Error(nil, "No feasible course selection, check academic rules",
			"student", p.StudentID, "solverStatus", sol.Status,
			"minCredits", env.Min, "maxCredits", env.Max)
		rec.Status = StatusNoSolution
		rec.SolverStatus = string(sol.Status)
		return rec, nil
	}

	rec.Status = StatusOptimal
	rec.SolverStatus = string(sol.Status)
	rec.ObjectiveValue = sol.Objective
	difficulty, risk := 0.0, 0.0
	for _, i := range sol.Selected() {
		c := req.Eligible[i]
		r := req.Risk.Of(c.Code)
		rc := RecommendedCourse{
			Course:    c,
			RiskScore: r,
			Backlog:   p.IsBacklog(c.Code),
			LowGrade:  p.IsLowGrade(c.Code),
		}
		rec.Courses = append(rec.Courses, rc)
		rec.SelectedCodes = append(rec.SelectedCodes, c.Code)
		rec.TotalCredits += c.Credits
		if rc.Backlog {
			rec.BacklogsCleared++
		}
		difficulty += float64(c.Difficulty)
		risk += r
	}
	rec.NumCourses = len(rec.Courses)
	if rec.NumCourses > 0 {
		rec.AvgDifficulty = round(difficulty/float64(rec.NumCourses), 2)
		rec.AvgRisk = round(risk/float64(rec.NumCourses), 3)
	}
	return rec, nil
}

func (o *Optimizer) buildProgram(req Request, w Weights, env rules.CreditRange) *solver.Program {
	n := len(req.Eligible)
	objective := make([]float64, n)
	credits := make([]float64, n)
	ones := make([]float64, n)
	backlogs := make([]float64, n)
	anyBacklog := false
	index := make(map[string]int, n)

	for i, c := range req.Eligible {
		index[c.Code] = i
		objective[i] = Contribution(c, req.Profile, w, req.Risk.Of(c.Code))
		credits[i] = float64(c.Credits)
		ones[i] = 1
		if req.Profile.IsBacklog(c.Code) {
			backlogs[i] = 1
			anyBacklog = true
		}
	}

	program := solver.NewProgram(objective)
	// Constraint 1 and 2: credit envelope
	program.AddConstraint(solver.Constraint{Name: "max_credits", Coeffs: credits, Op: solver.LE, RHS: float64(env.Max)})
	program.AddConstraint(solver.Constraint{Name: "min_credits", Coeffs: credits, Op: solver.GE, RHS: float64(env.Min)})
	// Constraint 3: retakes per semester
	if anyBacklog && o.rules.MaxBacklogsPerSemester > 0 {
		program.AddConstraint(solver.Constraint{
			Name: "max_backlogs", Coeffs: backlogs, Op: solver.LE,
			RHS: float64(o.rules.MaxBacklogsPerSemester),
		})
	}
	// Constraint 4: course count
	program.AddConstraint(solver.Constraint{Name: "max_courses", Coeffs: ones, Op: solver.LE, RHS: MaxCoursesPerSemester})

	for _, lc := range req.Constraints {
		coeffs := make([]float64, n)
		for code, v := range lc.Coeffs {
			if i, ok := index[code]; ok {
				coeffs[i] = v
			}
		}
		program.AddConstraint(solver.Constraint{Name: lc.Name, Coeffs: coeffs, Op: lc.Op, RHS: lc.RHS})
	}
	return program
}

// Alternative weight profiles.
const (
	ProfileBalanced     = "Balanced"
	ProfileConservative = "Conservative (Lower Risk)"
	ProfileAggressive   = "Aggressive (Max Progress)"
)

// minCGPAForAggressive gates the aggressive alternative.
const minCGPAForAggressive = 2.5

// Alternatives solves the request under the balanced weights and under
// conservative and aggressive variations of them. Unsolved variants and
// variants selecting the same courses as the balanced one are omitted.
func (o *Optimizer) Alternatives(ctx context.Context, req Request) ([]*Recommendation, error) {
	base := WeightsFor(req.Profile)
	if req.Weights != nil {
		base = *req.Weights
	}

	variants := []struct {
		profile string
		weights Weights
	}{
		{ProfileBalanced, base},
		{ProfileConservative, base.Scale(0.7, 1, 1.5, 1.3)},
	}
	if req.Profile.CGPA >= minCGPAForAggressive {
		variants = append(variants, struct {
			profile string
			weights Weights
		}{ProfileAggressive, base.Scale(1.5, 1, 0.7, 1)})
	}

	var out []*Recommendation
	var balanced *Recommendation
	for _, v := range variants {
		vreq := req
		w := v.weights
		vreq.Weights = &w
		rec, err := o.Recommend(ctx, vreq)
		if err != nil {
			return nil, err
		}
		if !rec.Solved() || rec.NumCourses == 0 {
			continue
		}
		if balanced != nil && slices.Equal(balanced.SelectedCodes, rec.SelectedCodes) {
			continue
		}
		rec.Profile = v.profile
		if v.profile == ProfileBalanced {
			balanced = rec
		}
		out = append(out, rec)
	}
	return out, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
