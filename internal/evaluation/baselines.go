// Package evaluation compares recommendations against simple baselines and
// runs recommendations over every student.
package evaluation

import (
	"math/rand"
	"sort"

	"degree_planner/internal/catalog"
)

// Baseline picks course codes from eligible up to maxCredits.
type Baseline func(eligible []catalog.Course, maxCredits int, backlogs catalog.Set) []string

// Baseline method names.
const (
	MethodOptimizer     = "Optimizer"
	MethodRandom        = "Random Selection"
	MethodGreedyCredits = "Greedy (Max Credits)"
	MethodGreedyEasiest = "Greedy (Easiest)"
)

// RandomBaseline shuffles the eligible courses, takes one backlog first if
// there is one, then fills first-fit.
func RandomBaseline(rng *rand.Rand) Baseline {
	return func(eligible []catalog.Course, maxCredits int, backlogs catalog.Set) []string {
		shuffled := append([]catalog.Course(nil), eligible...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		var f filler
		for _, c := range shuffled {
			if backlogs.Has(c.Code) {
				f.take(c, maxCredits)
				break
			}
		}
		for _, c := range shuffled {
			f.take(c, maxCredits)
		}
		return f.codes
	}
}

// GreedyMaxCredits takes backlogs first, then the highest-credit courses.
func GreedyMaxCredits(eligible []catalog.Course, maxCredits int, backlogs catalog.Set) []string {
	sorted := append([]catalog.Course(nil), eligible...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Credits > sorted[j].Credits })

	var f filler
	for _, c := range sorted {
		if backlogs.Has(c.Code) {
			f.take(c, maxCredits)
		}
	}
	for _, c := range sorted {
		f.take(c, maxCredits)
	}
	return f.codes
}

// GreedyEasiest takes the lowest-difficulty courses first.
func GreedyEasiest(eligible []catalog.Course, maxCredits int, _ catalog.Set) []string {
	sorted := append([]catalog.Course(nil), eligible...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Difficulty < sorted[j].Difficulty })

	var f filler
	for _, c := range sorted {
		f.take(c, maxCredits)
	}
	return f.codes
}

type filler struct {
	codes   []string
	taken   catalog.Set
	credits int
}

func (f *filler) take(c catalog.Course, maxCredits int) {
	if f.taken == nil {
		f.taken = catalog.NewSet()
	}
	if f.taken.Has(c.Code) || f.credits+c.Credits > maxCredits {
		return
	}
	f.taken.Add(c.Code)
	f.codes = append(f.codes, c.Code)
	f.credits += c.Credits
}
