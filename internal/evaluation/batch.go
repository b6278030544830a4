package evaluation

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"degree_planner/internal/metrics"
	"degree_planner/internal/recommender"
)

// StudentResult is the comparison for one student, or the error that
// prevented it.
type StudentResult struct {
	StudentID string             `json:"student_id"`
	Status    recommender.Status `json:"status,omitempty"`
	Results   []MethodResult     `json:"results,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Winner returns the top-ranked method, or "" when nothing was compared.
func (r StudentResult) Winner() string {
	if len(r.Results) == 0 {
		return ""
	}
	return r.Results[0].Method
}

// EvaluateFunc evaluates one student.
type EvaluateFunc func(ctx context.Context, studentID string) (StudentResult, error)

// MethodSummary aggregates one method across students.
type MethodSummary struct {
	Method     string  `json:"method"`
	Wins       int     `json:"wins"`
	AvgQuality float64 `json:"avg_quality"`
	AvgCredits float64 `json:"avg_credits"`
}

// Report is the outcome of a batch run.
type Report struct {
	Students  []StudentResult `json:"students"`
	Evaluated int             `json:"evaluated"`
	Failed    int             `json:"failed"`
	Methods   []MethodSummary `json:"methods"`
}

// Batch runs fn for every student with at most workers in flight. A failing
// student is recorded on its result and does not stop the others; only a
// canceled context aborts the run. Results keep the order of ids.
func Batch(ctx context.Context, ids []string, workers int, fn EvaluateFunc) (*Report, error) {
	logger := logr.FromContextOrDiscard(ctx)
	if workers <= 0 {
		workers = 1
	}

	results := make([]StudentResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	failed := 0
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := fn(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Error(err, "Evaluation failed", "student", id)
				metrics.EvaluatedStudents.WithLabelValues("error").Inc()
				mu.Lock()
				failed++
				mu.Unlock()
				results[i] = StudentResult{StudentID: id, Error: err.Error()}
				return nil
			}
			metrics.EvaluatedStudents.WithLabelValues("ok").Inc()
			res.StudentID = id
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluation: batch canceled: %w", err)
	}

	return &Report{
		Students:  results,
		Evaluated: len(ids) - failed,
		Failed:    failed,
		Methods:   summarize(results),
	}, nil
}

func summarize(results []StudentResult) []MethodSummary {
	type acc struct {
		wins, n        int
		quality, creds float64
	}
	byMethod := map[string]*acc{}
	for _, r := range results {
		for _, m := range r.Results {
			a := byMethod[m.Method]
			if a == nil {
				a = &acc{}
				byMethod[m.Method] = a
			}
			a.n++
			a.quality += m.Metrics.Quality
			a.creds += float64(m.Metrics.TotalCredits)
		}
		if w := r.Winner(); w != "" {
			byMethod[w].wins++
		}
	}

	out := make([]MethodSummary, 0, len(byMethod))
	for name, a := range byMethod {
		out = append(out, MethodSummary{
			Method:     name,
			Wins:       a.wins,
			AvgQuality: round(a.quality/float64(a.n), 1),
			AvgCredits: round(a.creds/float64(a.n), 1),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgQuality != out[j].AvgQuality {
			return out[i].AvgQuality > out[j].AvgQuality
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// WriteCSV writes one row per student and method, students in id order.
func WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	header := []string{
		"student_id", "method", "rank", "selected_codes", "total_credits",
		"num_courses", "backlogs_cleared", "avg_difficulty", "avg_risk",
		"workload_score", "quality_score", "prerequisite_compliance", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	students := append([]StudentResult(nil), report.Students...)
	sort.SliceStable(students, func(i, j int) bool { return students[i].StudentID < students[j].StudentID })

	for _, s := range students {
		if s.Error != "" {
			row := make([]string, len(header))
			row[0], row[len(row)-1] = s.StudentID, s.Error
			if err := cw.Write(row); err != nil {
				return err
			}
			continue
		}
		for _, r := range s.Results {
			m := r.Metrics
			row := []string{
				s.StudentID,
				r.Method,
				strconv.Itoa(r.Rank),
				joinCodes(r.Selected),
				strconv.Itoa(m.TotalCredits),
				strconv.Itoa(m.NumCourses),
				strconv.Itoa(m.BacklogsCleared),
				formatFloat(m.AvgDifficulty),
				formatFloat(m.AvgRisk),
				formatFloat(m.Workload),
				formatFloat(m.Quality),
				formatFloat(m.PrerequisiteCompliance),
				"",
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func joinCodes(codes []string) string {
	return strings.Join(codes, ";")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
