// Package service runs the advising pipeline: it loads a student profile,
// finds eligible courses, scores their risk, solves the semester program and
// explains the result. It also exposes planning and prerequisite analytics.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"degree_planner/internal/catalog"
	"degree_planner/internal/evaluation"
	"degree_planner/internal/logging"
	"degree_planner/internal/metrics"
	"degree_planner/internal/recommender"
	"degree_planner/internal/rules"
)

// AlgorithmVersion is reported in response metadata.
const AlgorithmVersion = "2.0"

// ErrInvalidRequest marks requests that fail validation before any work.
var ErrInvalidRequest = errors.New("service: invalid request")

// Repository provides student profiles.
type Repository interface {
	GetStudentProfile(ctx context.Context, studentID string) (*recommender.StudentProfile, error)
	ListStudentIDs(ctx context.Context) ([]string, error)
}

// AdvisorService is safe for concurrent use: the catalog, rules and
// optimizer are read-only after construction.
type AdvisorService struct {
	catalog   *catalog.Catalog
	rules     rules.AcademicRules
	repo      Repository
	predictor recommender.Predictor
	optimizer *recommender.Optimizer
	planner   *recommender.Planner

	planHorizon int
	workers     int
	seed        int64
	now         func() time.Time
}

// Option configures an AdvisorService.
type Option func(*AdvisorService)

// WithSolveTimeout bounds each optimizer solve.
func WithSolveTimeout(d time.Duration) Option {
	return func(s *AdvisorService) {
		s.optimizer = recommender.NewOptimizer(s.rules, recommender.WithSolveTimeout(d))
	}
}

// WithPlanHorizon sets the number of semesters planned when a request does not say.
func WithPlanHorizon(n int) Option {
	return func(s *AdvisorService) { s.planHorizon = n }
}

// WithWorkers sets the default evaluation worker count.
func WithWorkers(n int) Option {
	return func(s *AdvisorService) { s.workers = n }
}

// WithSeed seeds the random evaluation baseline.
func WithSeed(seed int64) Option {
	return func(s *AdvisorService) { s.seed = seed }
}

// New returns a service over cat. predictor may be nil, in which case
// every course is scored at the default risk.
func New(cat *catalog.Catalog, r rules.AcademicRules, repo Repository, predictor recommender.Predictor, opts ...Option) *AdvisorService {
	s := &AdvisorService{
		catalog:     cat,
		rules:       r,
		repo:        repo,
		predictor:   predictor,
		optimizer:   recommender.NewOptimizer(r),
		planHorizon: recommender.DefaultPlanHorizon,
		workers:     4,
		seed:        42,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.planner = recommender.NewPlanner(cat, r, predictor)
	return s
}

// Catalog returns the course catalog.
func (s *AdvisorService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Rules returns the academic rules in force.
func (s *AdvisorService) Rules() rules.AcademicRules {
	return s.rules
}

// Metadata describes how a response was produced.
type Metadata struct {
	RequestID        string    `json:"request_id"`
	GeneratedAt      time.Time `json:"generation_timestamp"`
	AlgorithmVersion string    `json:"algorithm_version"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	RiskAware        bool      `json:"risk_aware"`
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx for response metadata.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached to ctx, or a new one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *AdvisorService) metadata(ctx context.Context, start time.Time) Metadata {
	return Metadata{
		RequestID:        RequestID(ctx),
		GeneratedAt:      s.now().UTC(),
		AlgorithmVersion: AlgorithmVersion,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		RiskAware:        s.predictor != nil && s.predictor.Trained(),
	}
}

// RecommendRequest asks for one semester's courses.
type RecommendRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	// TargetSemester defaults to the semester after the student's current one.
	TargetSemester int                            `json:"target_semester" binding:"omitempty,gte=1"`
	Weights        *recommender.Weights           `json:"weights,omitempty"`
	Constraints    []recommender.LinearConstraint `json:"constraints,omitempty"`
	Alternatives   bool                           `json:"include_alternatives"`
}

// RecommendResponse is a recommendation with its explanations.
type RecommendResponse struct {
	StudentID      string                        `json:"student_id"`
	TargetSemester int                           `json:"target_semester"`
	Recommendation *recommender.Recommendation   `json:"recommendation"`
	Explanations   []recommender.Explanation     `json:"explanations"`
	Advice         []string                      `json:"strategic_advice"`
	Alternatives   []*recommender.Recommendation `json:"alternatives,omitempty"`
	Metadata       Metadata                      `json:"metadata"`
}

// Recommend runs the full pipeline for one student.
func (s *AdvisorService) Recommend(ctx context.Context, req RecommendRequest) (*RecommendResponse, error) {
	start := time.Now()
	logger := logr.FromContextOrDiscard(ctx).WithValues("student", req.StudentID)
	ctx = logr.NewContext(ctx, logger)

	profile, target, err := s.profile(ctx, req.StudentID, req.TargetSemester)
	if err != nil {
		return nil, err
	}

	optReq, err := s.request(ctx, profile, target)
	if err != nil {
		return nil, err
	}
	optReq.Weights = req.Weights
	optReq.Constraints = req.Constraints

	rec, err := s.optimizer.Recommend(ctx, optReq)
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("service: recommend for %s: %w", req.StudentID, err)
	}
	metrics.Recommendations.WithLabelValues(string(rec.Status)).Inc()

	resp := &RecommendResponse{
		StudentID:      req.StudentID,
		TargetSemester: target,
		Recommendation: rec,
		Explanations:   recommender.Explain(rec),
		Advice:         recommender.StrategicAdvice(profile, rec),
	}
	if req.Alternatives && rec.Solved() {
		alts, err := s.optimizer.Alternatives(ctx, optReq)
		if err != nil {
			return nil, fmt.Errorf("service: alternatives for %s: %w", req.StudentID, err)
		}
		resp.Alternatives = alts
	}
	resp.Metadata = s.metadata(ctx, start)

	logger.Info("Recommendation complete",
		"target", target, "status", rec.Status, "eligible", len(optReq.Eligible),
		"selected", rec.NumCourses, "credits", rec.TotalCredits,
		"elapsedMs", resp.Metadata.ProcessingTimeMs)
	return resp, nil
}

func (s *AdvisorService) profile(ctx context.Context, studentID string, target int) (*recommender.StudentProfile, int, error) {
	if studentID == "" {
		return nil, 0, fmt.Errorf("%w: student id is required", ErrInvalidRequest)
	}
	if target < 0 {
		return nil, 0, fmt.Errorf("%w: target semester %d", ErrInvalidRequest, target)
	}
	profile, err := s.repo.GetStudentProfile(ctx, studentID)
	if err != nil {
		return nil, 0, err
	}
	if target == 0 {
		target = profile.CurrentSemester + 1
	}
	return profile, target, nil
}

// request builds the optimizer input: eligible courses and their risk.
func (s *AdvisorService) request(ctx context.Context, profile *recommender.StudentProfile, target int) (recommender.Request, error) {
	eligible := recommender.EligibleFor(s.catalog, profile, target)
	req := recommender.Request{Eligible: eligible, Profile: profile}
	if len(eligible) == 0 || s.predictor == nil {
		return req, nil
	}

	risk, err := s.predictor.PredictBatch(ctx, eligible, profile, s.catalog.Graph(), target)
	if err != nil {
		return req, fmt.Errorf("service: risk for %s: %w", profile.StudentID, err)
	}
	logr.FromContextOrDiscard(ctx).V(logging.DEBUG).Info("Scored course risk",
		"courses", len(risk), "trained", s.predictor.Trained())
	req.Risk = risk
	return req, nil
}

// PlanRequest asks for a multi-semester forward plan.
type PlanRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Semesters int    `json:"semesters" binding:"omitempty,gte=1,lte=12"`
}

// PlanResponse is a forward plan with the graduation estimate.
type PlanResponse struct {
	Plan                        recommender.SemesterPlan `json:"plan"`
	EstimatedGraduationSemester int                      `json:"estimated_graduation_semester"`
	Metadata                    Metadata                 `json:"metadata"`
}

// Plan simulates the student's next semesters.
func (s *AdvisorService) Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error) {
	start := time.Now()
	logger := logr.FromContextOrDiscard(ctx).WithValues("student", req.StudentID)
	ctx = logr.NewContext(ctx, logger)

	profile, _, err := s.profile(ctx, req.StudentID, 0)
	if err != nil {
		return nil, err
	}
	semesters := req.Semesters
	if semesters <= 0 {
		semesters = s.planHorizon
	}

	plan := s.planner.Plan(ctx, profile, semesters)
	for _, sem := range plan.Semesters {
		outcome := "planned"
		if sem.NumCourses == 0 {
			outcome = "empty"
		}
		metrics.PlannedSemesters.WithLabelValues(outcome).Inc()
	}

	resp := &PlanResponse{
		Plan:                        plan,
		EstimatedGraduationSemester: s.planner.EstimateGraduationSemester(profile),
		Metadata:                    s.metadata(ctx, start),
	}
	logger.Info("Plan complete",
		"semesters", len(plan.Semesters), "credits", plan.TotalPlannedCredits,
		"graduation", resp.EstimatedGraduationSemester)
	return resp, nil
}

// CriticalPathResponse is the remaining prerequisite chain for a course.
type CriticalPathResponse struct {
	StudentID string   `json:"student_id"`
	Target    string   `json:"target_course"`
	Path      []string `json:"path"`
	Credits   int      `json:"credits"`
}

// CriticalPath returns what the student still has to pass before target.
// On a prerequisite cycle the unordered chain is returned with the error.
func (s *AdvisorService) CriticalPath(ctx context.Context, studentID, target string) (*CriticalPathResponse, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: target course is required", ErrInvalidRequest)
	}
	profile, _, err := s.profile(ctx, studentID, 0)
	if err != nil {
		return nil, err
	}

	path, err := recommender.CriticalPath(s.catalog.Graph(), target, profile.Completed)
	if errors.Is(err, catalog.ErrCycleDetected) {
		metrics.CycleErrors.Inc()
		logr.FromContextOrDiscard(ctx).Error(err, "Prerequisite cycle on critical path",
			"student", studentID, "target", target)
	}
	if path == nil {
		return nil, err
	}
	return &CriticalPathResponse{
		StudentID: studentID,
		Target:    target,
		Path:      path,
		Credits:   s.catalog.CreditsOf(catalog.NewSet(path...)),
	}, err
}

// Bottlenecks lists the student's completed courses that gate the most
// remaining courses.
func (s *AdvisorService) Bottlenecks(ctx context.Context, studentID string) ([]recommender.Bottleneck, error) {
	profile, _, err := s.profile(ctx, studentID, 0)
	if err != nil {
		return nil, err
	}
	return recommender.Bottlenecks(s.catalog, profile.Completed), nil
}

// Progress reports credits and courses completed toward the degree.
func (s *AdvisorService) Progress(ctx context.Context, studentID string) (*recommender.Progress, error) {
	profile, _, err := s.profile(ctx, studentID, 0)
	if err != nil {
		return nil, err
	}
	p := recommender.DegreeProgress(s.catalog, s.rules, profile.Completed)
	return &p, nil
}

// Evaluate compares the optimizer against the baselines for every student.
// workers <= 0 uses the configured default.
func (s *AdvisorService) Evaluate(ctx context.Context, workers int) (*evaluation.Report, error) {
	ids, err := s.repo.ListStudentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list students: %w", err)
	}
	if workers <= 0 {
		workers = s.workers
	}
	logr.FromContextOrDiscard(ctx).Info("Evaluating students", "students", len(ids), "workers", workers)
	return evaluation.Batch(ctx, ids, workers, s.EvaluateStudent)
}

// EvaluateStudent compares the optimizer against the baselines for one student.
func (s *AdvisorService) EvaluateStudent(ctx context.Context, studentID string) (evaluation.StudentResult, error) {
	profile, target, err := s.profile(ctx, studentID, 0)
	if err != nil {
		return evaluation.StudentResult{}, err
	}
	req, err := s.request(ctx, profile, target)
	if err != nil {
		return evaluation.StudentResult{}, err
	}
	rec, err := s.optimizer.Recommend(ctx, req)
	if err != nil {
		return evaluation.StudentResult{}, err
	}

	results := evaluation.Compare(rec.SelectedCodes, evaluation.Comparison{
		Eligible:   req.Eligible,
		Profile:    profile,
		Risk:       req.Risk,
		Graph:      s.catalog.Graph(),
		MaxCredits: s.optimizer.Envelope(profile, req.Eligible).Max,
		Baselines:  evaluation.DefaultBaselines(rand.New(rand.NewSource(s.seed))),
	})
	return evaluation.StudentResult{StudentID: studentID, Status: rec.Status, Results: results}, nil
}
