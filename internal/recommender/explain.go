package recommender

import (
	"fmt"
	"sort"
)

// Explanation says why a course was selected and what to watch out for.
type Explanation struct {
	Code       string  `json:"course_code"`
	Name       string  `json:"course_name"`
	Credits    int     `json:"credits"`
	Difficulty string  `json:"difficulty"`
	Risk       float64 `json:"risk"`
	Reason     string  `json:"reason"`
	Advice     string  `json:"advice"`
	Priority   int     `json:"priority"`
}

// Risk advice thresholds.
const (
	riskVeryHigh = 0.7
	riskHigh     = 0.5
	riskModerate = 0.3
)

// Explain returns one explanation per selected course, retakes first.
func Explain(rec *Recommendation) []Explanation {
	out := make([]Explanation, 0, len(rec.Courses))
	for _, c := range rec.Courses {
		e := Explanation{
			Code:       c.Code,
			Name:       c.Name,
			Credits:    c.Credits,
			Difficulty: DifficultyLabel(c.Difficulty),
			Risk:       c.RiskScore,
			Advice:     RiskAdvice(c.RiskScore, c.Difficulty),
		}
		switch {
		case c.Backlog:
			e.Reason, e.Priority = "CRITICAL: must retake (previous F/D)", 1
		case c.LowGrade:
			e.Reason, e.Priority = "RECOMMENDED: improve grade (previous C/D)", 2
		default:
			e.Reason, e.Priority = "Degree requirement for progression", 3
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// DifficultyLabel renders a 1-10 difficulty with a word.
func DifficultyLabel(d int) string {
	var word string
	switch {
	case d >= 8:
		word = "Very Hard"
	case d >= 6:
		word = "Hard"
	case d >= 4:
		word = "Moderate"
	default:
		word = "Easy"
	}
	return fmt.Sprintf("%d/10 (%s)", d, word)
}

// RiskAdvice returns study advice for a course's risk and difficulty.
func RiskAdvice(risk float64, difficulty int) string {
	switch {
	case risk >= riskVeryHigh:
		return "VERY HIGH RISK: strongly consider tutoring and study groups"
	case risk >= riskHigh:
		return "HIGH RISK: form a study group and attend office hours"
	case risk >= riskModerate && difficulty >= 7:
		return "MODERATE RISK: allocate extra study time"
	case risk >= riskModerate:
		return "Manageable with consistent effort"
	default:
		return "Low risk: good fit for your profile"
	}
}

// StrategicAdvice returns general advice for the student given the
// recommendation they received.
func StrategicAdvice(p *StudentProfile, rec *Recommendation) []string {
	var advice []string
	switch {
	case p.CGPA < 2.0:
		advice = append(advice,
			"Focus on clearing backlogs to improve your CGPA",
			"Consider reducing extracurricular commitments this semester")
	case p.CGPA < 2.5:
		advice = append(advice, "Prioritize consistent study habits and time management")
	case p.CGPA >= 3.5:
		advice = append(advice, "You're doing great! Consider taking challenging electives")
	}
	if len(p.Backlogs) > 2 {
		advice = append(advice, "Clearing backlogs is your top priority this semester")
	}
	if rec.TotalCredits >= 20 {
		advice = append(advice, "This is a heavy load, plan your time carefully")
	}
	if rec.AvgRisk >= riskHigh {
		advice = append(advice, "High-risk courses detected, form study groups early")
	}
	if rec.AvgDifficulty >= 7 {
		advice = append(advice, "Challenging courses ahead, start assignments early")
	}
	return append(advice, "Attend office hours if you're struggling with any course")
}
