package evaluation

import (
	"math"
	"math/rand"
	"sort"

	"degree_planner/internal/catalog"
	"degree_planner/internal/recommender"
)

// Metrics measures one selection.
type Metrics struct {
	TotalCredits           int     `json:"total_credits"`
	NumCourses             int     `json:"num_courses"`
	BacklogsCleared        int     `json:"backlogs_cleared"`
	LowGradesImproved      int     `json:"low_grades_improved"`
	AvgDifficulty          float64 `json:"avg_difficulty"`
	AvgRisk                float64 `json:"avg_risk"`
	Workload               float64 `json:"workload_score"`
	Quality                float64 `json:"quality_score"`
	PrerequisiteCompliance float64 `json:"prerequisite_compliance"`
}

// Score computes the metrics of selected. Codes not in eligible are ignored.
// Quality rewards credits, cleared backlogs and improved grades and
// penalizes workload (difficulty times credits) and average risk.
func Score(selected []string, eligible []catalog.Course, p *recommender.StudentProfile, risk recommender.RiskScores, graph *catalog.PrerequisiteGraph) Metrics {
	byCode := make(map[string]catalog.Course, len(eligible))
	for _, c := range eligible {
		byCode[c.Code] = c
	}

	var m Metrics
	difficulty, riskSum := 0.0, 0.0
	for _, code := range selected {
		c, ok := byCode[code]
		if !ok {
			continue
		}
		m.NumCourses++
		m.TotalCredits += c.Credits
		if p.IsBacklog(code) {
			m.BacklogsCleared++
		}
		if p.IsLowGrade(code) {
			m.LowGradesImproved++
		}
		difficulty += float64(c.Difficulty)
		riskSum += risk.Of(code)
		m.Workload += float64(c.Difficulty * c.Credits)
	}
	m.PrerequisiteCompliance = PrerequisiteCompliance(selected, p.Completed, graph)
	if m.NumCourses == 0 {
		return m
	}

	m.AvgDifficulty = round(difficulty/float64(m.NumCourses), 2)
	avgRisk := riskSum / float64(m.NumCourses)
	m.AvgRisk = round(avgRisk, 3)
	m.Quality = round(float64(m.TotalCredits)*2.0+
		float64(m.BacklogsCleared)*15.0+
		float64(m.LowGradesImproved)*5.0-
		m.Workload*0.3-
		avgRisk*20.0, 1)
	return m
}

// PrerequisiteCompliance is the fraction of selected courses whose direct
// prerequisites are all completed. An empty selection is fully compliant.
func PrerequisiteCompliance(selected []string, completed catalog.Set, graph *catalog.PrerequisiteGraph) float64 {
	if len(selected) == 0 {
		return 1.0
	}
	compliant := 0
	for _, code := range selected {
		ok := true
		for _, pre := range graph.Predecessors(code) {
			if !completed.Has(pre) {
				ok = false
				break
			}
		}
		if ok {
			compliant++
		}
	}
	return float64(compliant) / float64(len(selected))
}

// MethodResult is one row of a comparison.
type MethodResult struct {
	Method   string   `json:"method"`
	Selected []string `json:"selected_codes"`
	Metrics  Metrics  `json:"metrics"`
	Rank     int      `json:"rank"`
}

// Comparison inputs besides the optimizer's own selection.
type Comparison struct {
	Eligible   []catalog.Course
	Profile    *recommender.StudentProfile
	Risk       recommender.RiskScores
	Graph      *catalog.PrerequisiteGraph
	MaxCredits int
	Baselines  map[string]Baseline
}

// Compare scores the optimizer selection and every baseline, best quality
// first. Equal quality keeps the optimizer ahead, then method name order.
func Compare(optimized []string, c Comparison) []MethodResult {
	results := []MethodResult{{
		Method:   MethodOptimizer,
		Selected: optimized,
		Metrics:  Score(optimized, c.Eligible, c.Profile, c.Risk, c.Graph),
	}}

	names := make([]string, 0, len(c.Baselines))
	for name := range c.Baselines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sel := c.Baselines[name](c.Eligible, c.MaxCredits, c.Profile.Backlogs)
		results = append(results, MethodResult{
			Method:   name,
			Selected: sel,
			Metrics:  Score(sel, c.Eligible, c.Profile, c.Risk, c.Graph),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Metrics.Quality > results[j].Metrics.Quality
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// DefaultBaselines returns the three standard baselines.
func DefaultBaselines(rng *rand.Rand) map[string]Baseline {
	return map[string]Baseline{
		MethodRandom:        RandomBaseline(rng),
		MethodGreedyCredits: GreedyMaxCredits,
		MethodGreedyEasiest: GreedyEasiest,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
