package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CourseStatus tracks where a course sits in its delivery lifecycle.
type CourseStatus string

const (
	CourseStatusActive    CourseStatus = "Active"
	CourseStatusCompleted CourseStatus = "Completed"
	CourseStatusFuture    CourseStatus = "Future"
)

// Course carries the attainment configuration alongside identity. Target is
// the per-student pass threshold (percentage); the three attainment levels are
// percentage-of-class thresholds evaluated highest first.
type Course struct {
	ID                 string       `db:"id" json:"id"`
	Name               string       `db:"name" json:"name"`
	Code               string       `db:"code" json:"code"`
	ProgramID          string       `db:"program_id" json:"program_id"`
	Target             int          `db:"target" json:"target"`
	InternalWeightage  int          `db:"internal_weightage" json:"internal_weightage"`
	ExternalWeightage  int          `db:"external_weightage" json:"external_weightage"`
	AttainmentLevel3   int          `db:"attainment_level3" json:"attainment_level3"`
	AttainmentLevel2   int          `db:"attainment_level2" json:"attainment_level2"`
	AttainmentLevel1   int          `db:"attainment_level1" json:"attainment_level1"`
	Status             CourseStatus `db:"status" json:"status"`
	TeacherID          *string      `db:"teacher_id" json:"teacher_id,omitempty"`
	SectionTeacherIDs  StringMap    `db:"section_teacher_ids" json:"section_teacher_ids,omitempty"`
}

// CourseOutcome is a single competency taught within one course.
type CourseOutcome struct {
	ID          string `db:"id" json:"id"`
	CourseID    string `db:"course_id" json:"course_id"`
	Number      string `db:"number" json:"number"`
	Description string `db:"description" json:"description"`
}

// ProgramOutcome is a graduate-level competency of a program.
type ProgramOutcome struct {
	ID          string `db:"id" json:"id"`
	ProgramID   string `db:"program_id" json:"program_id"`
	Number      string `db:"number" json:"number"`
	Description string `db:"description" json:"description"`
}

// CoPoMapping records how strongly a course outcome contributes to a program
// outcome. Strength is 1-3; an absent row is equivalent to strength 0.
type CoPoMapping struct {
	ID               string `db:"id" json:"id"`
	CourseID         string `db:"course_id" json:"course_id"`
	CourseOutcomeID  string `db:"co_id" json:"co_id"`
	ProgramOutcomeID string `db:"po_id" json:"po_id"`
	Strength         int    `db:"strength" json:"strength"`
}

// StringMap is a JSONB-backed string-to-string map (section id to teacher id).
type StringMap map[string]string

// Value marshals the map for persistence.
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal string map: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the map.
func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StringMap", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal string map: %w", err)
	}
	return nil
}
