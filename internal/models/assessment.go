package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AssessmentType distinguishes internally and externally evaluated work.
type AssessmentType string

const (
	AssessmentTypeInternal AssessmentType = "Internal"
	AssessmentTypeExternal AssessmentType = "External"
)

// Question is one entry in an assessment's ordered question list. OutcomeIDs
// tags the course outcomes the question tests; the JSON field names match the
// stored document shape.
type Question struct {
	Label      string   `json:"q"`
	MaxMarks   float64  `json:"maxMarks"`
	OutcomeIDs []string `json:"coIds"`
}

// Assessment belongs to one section and holds its question paper.
type Assessment struct {
	ID        string         `db:"id" json:"id"`
	SectionID string         `db:"section_id" json:"section_id"`
	Name      string         `db:"name" json:"name"`
	Type      AssessmentType `db:"type" json:"type"`
	Questions QuestionList   `db:"questions" json:"questions"`
}

// QuestionScore records marks obtained for one question. A missing entry for
// a question means "not attempted", which is distinct from a recorded zero.
type QuestionScore struct {
	Label string  `json:"q"`
	Marks float64 `json:"marks"`
}

// Mark is the per-student score sheet for one assessment.
type Mark struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	AssessmentID string    `db:"assessment_id" json:"assessment_id"`
	Scores       ScoreList `db:"scores" json:"scores"`
}

// QuestionList is a JSONB-backed question collection.
type QuestionList []Question

// Value marshals the questions for persistence.
func (l QuestionList) Value() (driver.Value, error) {
	if l == nil {
		l = QuestionList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the question list.
func (l *QuestionList) Scan(value interface{}) error {
	return scanJSON(value, l, "questions")
}

// ScoreList is a JSONB-backed score collection.
type ScoreList []QuestionScore

// Value marshals the scores for persistence.
func (l ScoreList) Value() (driver.Value, error) {
	if l == nil {
		l = ScoreList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal scores: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the score list.
func (l *ScoreList) Scan(value interface{}) error {
	return scanJSON(value, l, "scores")
}

func scanJSON(value interface{}, dest interface{}, label string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, label)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", label, err)
	}
	return nil
}
