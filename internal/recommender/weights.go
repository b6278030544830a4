package recommender

// AdaptiveWeights maps a student's standing to objective weights.
// CGPA picks the base tier; backlog count and final-year status then
// override the retake and progress weights.
func AdaptiveWeights(cgpa float64, backlogCount, currentSemester int) Weights {
	w := Weights{Progress: 10, Retake: 30, Difficulty: 2, Risk: 5}

	switch {
	case cgpa < 2.0:
		// struggling: retakes first, stay away from hard courses
		w = Weights{Progress: 5, Retake: 50, Difficulty: 4, Risk: 8}
	case cgpa < 2.5:
		w = Weights{Progress: 8, Retake: 40, Difficulty: 3, Risk: 6}
	case cgpa >= 3.5:
		w = Weights{Progress: 15, Retake: 20, Difficulty: 1, Risk: 2}
	}

	if backlogCount > 3 {
		w.Retake = 60
	} else if backlogCount > 1 {
		w.Retake = 45
	}

	// final year push
	if currentSemester >= 7 {
		w.Progress = 20
	}
	return w
}

// WeightsFor applies AdaptiveWeights to a profile.
func WeightsFor(p *StudentProfile) Weights {
	return AdaptiveWeights(p.CGPA, len(p.Backlogs), p.CurrentSemester)
}

// Scale multiplies each weight by the matching factor.
func (w Weights) Scale(progress, retake, difficulty, risk float64) Weights {
	return Weights{
		Progress:   w.Progress * progress,
		Retake:     w.Retake * retake,
		Difficulty: w.Difficulty * difficulty,
		Risk:       w.Risk * risk,
	}
}
