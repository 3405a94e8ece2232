package attainment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/obe-portal-api/internal/models"
)

func TestStudentOutcomeExcludesUnattemptedQuestions(t *testing.T) {
	questions := QuestionOutcomeIndex{"co1": {
		{Label: "Q1", MaxMarks: 10, AssessmentID: "a1"},
		{Label: "Q2", MaxMarks: 10, AssessmentID: "a1"},
	}}
	marks := NewMarkIndex([]models.Mark{
		{StudentID: "st1", AssessmentID: "a1", Scores: models.ScoreList{{Label: "Q1", Marks: 8}}},
	}, map[string]struct{}{"st1": {}})

	percent, attempted := StudentOutcome(marks, questions, "st1", "co1")

	// Q2 was never attempted, so it counts in neither numerator nor
	// denominator.
	assert.True(t, attempted)
	assert.Equal(t, 80.0, percent)
}

func TestStudentOutcomeRecordedZeroIsAttempted(t *testing.T) {
	questions := QuestionOutcomeIndex{"co1": {
		{Label: "Q1", MaxMarks: 10, AssessmentID: "a1"},
	}}
	marks := NewMarkIndex([]models.Mark{
		{StudentID: "st1", AssessmentID: "a1", Scores: models.ScoreList{{Label: "Q1", Marks: 0}}},
	}, map[string]struct{}{"st1": {}})

	percent, attempted := StudentOutcome(marks, questions, "st1", "co1")

	assert.True(t, attempted)
	assert.Equal(t, 0.0, percent)
}

func TestStudentOutcomeNothingAttempted(t *testing.T) {
	questions := QuestionOutcomeIndex{"co1": {
		{Label: "Q1", MaxMarks: 10, AssessmentID: "a1"},
	}}
	marks := NewMarkIndex(nil, map[string]struct{}{"st1": {}})

	percent, attempted := StudentOutcome(marks, questions, "st1", "co1")

	assert.False(t, attempted)
	assert.Equal(t, 0.0, percent)
}

func TestStudentOutcomeNoMappedQuestions(t *testing.T) {
	marks := NewMarkIndex(nil, map[string]struct{}{"st1": {}})

	percent, attempted := StudentOutcome(marks, QuestionOutcomeIndex{}, "st1", "co1")

	assert.False(t, attempted)
	assert.Equal(t, 0.0, percent)
}

func TestStudentOutcomeClampsAboveHundred(t *testing.T) {
	questions := QuestionOutcomeIndex{"co1": {
		{Label: "Q1", MaxMarks: 10, AssessmentID: "a1"},
	}}
	marks := NewMarkIndex([]models.Mark{
		{StudentID: "st1", AssessmentID: "a1", Scores: models.ScoreList{{Label: "Q1", Marks: 12}}},
	}, map[string]struct{}{"st1": {}})

	percent, attempted := StudentOutcome(marks, questions, "st1", "co1")

	assert.True(t, attempted)
	assert.Equal(t, 100.0, percent)
}
