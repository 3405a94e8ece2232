package attainment

import "github.com/noah-isme/obe-portal-api/internal/models"

// OutcomeSummary is the cohort-level result for one course outcome.
type OutcomeSummary struct {
	OutcomeID             string
	PercentMeetingTarget  float64
	Level                 int
	QuestionCount         int
	EligibleStudents      int
	StudentsMeetingTarget int
}

// AttainmentLevel classifies a percentage against the course's three
// thresholds, highest first. Thresholds are taken as configured; no ordering
// between them is assumed.
func AttainmentLevel(percent float64, course models.Course) int {
	switch {
	case percent >= float64(course.AttainmentLevel3):
		return 3
	case percent >= float64(course.AttainmentLevel2):
		return 2
	case percent >= float64(course.AttainmentLevel1):
		return 1
	default:
		return 0
	}
}

// CourseOutcomeSummary computes the share of the population meeting the
// course target on one outcome, classified into an attainment level.
//
// Every student in the population counts toward the denominator. A student
// with no recorded score on any mapped question scores 0 percent and fails
// any positive target; skipping per-question happens inside StudentOutcome,
// not here. An outcome with no mapped questions, or an empty population,
// reports 0 percent at level 0 regardless of how the thresholds are
// configured.
func CourseOutcomeSummary(course models.Course, population Population, marks MarkIndex, questions QuestionOutcomeIndex, outcomeID string) OutcomeSummary {
	summary := OutcomeSummary{
		OutcomeID:        outcomeID,
		QuestionCount:    len(questions[outcomeID]),
		EligibleStudents: len(population.Students),
	}
	if summary.QuestionCount == 0 {
		return summary
	}
	for _, student := range population.Students {
		percent, _ := StudentOutcome(marks, questions, student.ID, outcomeID)
		if percent >= float64(course.Target) {
			summary.StudentsMeetingTarget++
		}
	}
	if summary.EligibleStudents == 0 {
		return summary
	}
	summary.PercentMeetingTarget = float64(summary.StudentsMeetingTarget) / float64(summary.EligibleStudents) * 100
	summary.Level = AttainmentLevel(summary.PercentMeetingTarget, course)
	return summary
}

// CourseOutcomeSummaries evaluates every outcome of a course over the same
// population, in the order the outcomes appear in the snapshot.
func CourseOutcomeSummaries(snap *Snapshot, course models.Course, population Population) []OutcomeSummary {
	marks := NewMarkIndex(snap.Marks, StudentIDSet(population.Students))
	questions := NewQuestionOutcomeIndex(population.Assessments)
	outcomes := snap.OutcomesForCourse(course.ID)
	summaries := make([]OutcomeSummary, 0, len(outcomes))
	for _, outcome := range outcomes {
		summaries = append(summaries, CourseOutcomeSummary(course, population, marks, questions, outcome.ID))
	}
	return summaries
}
