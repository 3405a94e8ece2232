package models

// StudentStatus marks whether a student participates in attainment rollups.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "Active"
	StudentStatusInactive StudentStatus = "Inactive"
)

// Student represents a learner registered to a program.
type Student struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	ProgramID string        `db:"program_id" json:"program_id"`
	Status    StudentStatus `db:"status" json:"status"`
	SectionID *string       `db:"section_id" json:"section_id,omitempty"`
}

// Enrollment registers a student to a course within a section. The section
// may be unset for students awaiting allocation; such enrollments never match
// a section-scoped population.
type Enrollment struct {
	ID        string  `db:"id" json:"id"`
	CourseID  string  `db:"course_id" json:"course_id"`
	StudentID string  `db:"student_id" json:"student_id"`
	SectionID *string `db:"section_id" json:"section_id,omitempty"`
}
