package attainment

// StudentOutcome computes a single student's attainment percentage for one
// course outcome: marks obtained over marks possible, across every question
// mapped to the outcome that the student actually attempted.
//
// A question the student has no recorded score for is excluded from both the
// numerator and the denominator; not attempting is not the same as scoring
// zero. When the student attempted none of the mapped questions, or the
// outcome has no mapped questions at all, the result is 0 with attempted
// false.
func StudentOutcome(marks MarkIndex, questions QuestionOutcomeIndex, studentID, outcomeID string) (percent float64, attempted bool) {
	var obtained, possible float64
	for _, q := range questions[outcomeID] {
		score, ok := marks.Score(studentID, q.AssessmentID, q.Label)
		if !ok {
			continue
		}
		obtained += score
		possible += q.MaxMarks
	}
	if possible == 0 {
		return 0, false
	}
	percent = obtained / possible * 100
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	return percent, true
}
