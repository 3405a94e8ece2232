package models

// ScopeOverall selects the whole-course population; any other scope value is
// interpreted as a section id.
const ScopeOverall = "overall"

// CourseOutcomeAttainmentRow is the class-level rollup for one course outcome.
type CourseOutcomeAttainmentRow struct {
	OutcomeID             string  `json:"outcome_id"`
	OutcomeNumber         string  `json:"outcome_number"`
	PercentMeetingTarget  float64 `json:"percent_meeting_target"`
	AttainmentLevel       int     `json:"attainment_level"`
	QuestionCount         int     `json:"question_count"`
	EligibleStudents      int     `json:"eligible_students"`
	StudentsMeetingTarget int     `json:"students_meeting_target"`
}

// CourseAttainmentReport aggregates outcome rollups for one course and scope.
type CourseAttainmentReport struct {
	CourseID   string                       `json:"course_id"`
	CourseCode string                       `json:"course_code"`
	CourseName string                       `json:"course_name"`
	Scope      string                       `json:"scope"`
	Target     int                          `json:"target"`
	Outcomes   []CourseOutcomeAttainmentRow `json:"outcomes"`
}

// StudentOutcomeAttainmentRow is one student's percentage for one outcome.
type StudentOutcomeAttainmentRow struct {
	OutcomeID     string  `json:"outcome_id"`
	OutcomeNumber string  `json:"outcome_number"`
	Percentage    float64 `json:"percentage"`
}

// StudentAttainmentReport lists a student's attainment across a course's
// outcomes.
type StudentAttainmentReport struct {
	CourseID    string                        `json:"course_id"`
	StudentID   string                        `json:"student_id"`
	StudentName string                        `json:"student_name"`
	Scope       string                        `json:"scope"`
	Outcomes    []StudentOutcomeAttainmentRow `json:"outcomes"`
}

// CoursePOLinkageRow summarises one course's contribution to program
// outcomes: an overall attainment score plus, per program outcome, the
// average mapping strength over the outcomes actually linked to it.
type CoursePOLinkageRow struct {
	CourseID          string             `json:"course_id"`
	CourseCode        string             `json:"course_code"`
	CourseName        string             `json:"course_name"`
	OverallAttainment float64            `json:"overall_attainment"`
	AverageLinkages   map[string]float64 `json:"average_linkages"`
}

// ProgramAttainmentReport aggregates course linkage rows for a program.
type ProgramAttainmentReport struct {
	ProgramID   string               `json:"program_id"`
	ProgramName string               `json:"program_name"`
	Batch       string               `json:"batch"`
	Outcomes    []ProgramOutcome     `json:"outcomes"`
	Courses     []CoursePOLinkageRow `json:"courses"`
}
