package attainment

import (
	"github.com/noah-isme/obe-portal-api/internal/models"
)

// MarkIndex is a three-level lookup of recorded scores:
// student id → assessment id → question label → marks. A missing leaf means
// the question was never attempted, which is distinct from a recorded zero.
type MarkIndex map[string]map[string]map[string]float64

// NewMarkIndex builds the lookup from flat mark records, restricted to the
// provided student-id set. Construction is linear in the number of scores;
// duplicate (student, assessment, question) entries are an upstream data
// problem and are not deduplicated here.
func NewMarkIndex(marks []models.Mark, studentIDs map[string]struct{}) MarkIndex {
	index := make(MarkIndex, len(studentIDs))
	for _, mark := range marks {
		if _, ok := studentIDs[mark.StudentID]; !ok {
			continue
		}
		byAssessment, ok := index[mark.StudentID]
		if !ok {
			byAssessment = make(map[string]map[string]float64)
			index[mark.StudentID] = byAssessment
		}
		byQuestion, ok := byAssessment[mark.AssessmentID]
		if !ok {
			byQuestion = make(map[string]float64, len(mark.Scores))
			byAssessment[mark.AssessmentID] = byQuestion
		}
		for _, score := range mark.Scores {
			byQuestion[score.Label] = score.Marks
		}
	}
	return index
}

// Score looks up a recorded score. The second return reports whether the
// question was attempted at all.
func (idx MarkIndex) Score(studentID, assessmentID, label string) (float64, bool) {
	byAssessment, ok := idx[studentID]
	if !ok {
		return 0, false
	}
	byQuestion, ok := byAssessment[assessmentID]
	if !ok {
		return 0, false
	}
	score, ok := byQuestion[label]
	return score, ok
}

// QuestionRef identifies one question testing a course outcome.
type QuestionRef struct {
	Label        string
	MaxMarks     float64
	AssessmentID string
}

// QuestionOutcomeIndex maps each course outcome id to the questions tagged to
// it across the assessments in scope. An outcome no question is tagged with
// is simply absent and reads as an empty list.
type QuestionOutcomeIndex map[string][]QuestionRef

// NewQuestionOutcomeIndex builds the outcome lookup from assessments.
func NewQuestionOutcomeIndex(assessments []models.Assessment) QuestionOutcomeIndex {
	index := make(QuestionOutcomeIndex)
	for _, assessment := range assessments {
		for _, question := range assessment.Questions {
			for _, outcomeID := range question.OutcomeIDs {
				index[outcomeID] = append(index[outcomeID], QuestionRef{
					Label:        question.Label,
					MaxMarks:     question.MaxMarks,
					AssessmentID: assessment.ID,
				})
			}
		}
	}
	return index
}

// StudentIDSet collects ids for restricting a MarkIndex to a population.
func StudentIDSet(students []models.Student) map[string]struct{} {
	ids := make(map[string]struct{}, len(students))
	for _, student := range students {
		ids[student.ID] = struct{}{}
	}
	return ids
}
