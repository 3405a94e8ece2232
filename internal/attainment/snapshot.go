package attainment

import (
	"github.com/noah-isme/obe-portal-api/internal/models"
)

// Snapshot is the immutable input bundle for one round of attainment
// computation. Every calculator reads from a snapshot and nothing else; no
// state survives between invocations, so callers may rebuild or reuse
// snapshots freely as upstream data changes.
type Snapshot struct {
	Programs        []models.Program
	Batches         []models.Batch
	Sections        []models.Section
	Courses         []models.Course
	CourseOutcomes  []models.CourseOutcome
	ProgramOutcomes []models.ProgramOutcome
	Mappings        []models.CoPoMapping
	Assessments     []models.Assessment
	Marks           []models.Mark
	Enrollments     []models.Enrollment
	Students        []models.Student
}

// Course finds a course by id.
func (s *Snapshot) Course(id string) (models.Course, bool) {
	for _, course := range s.Courses {
		if course.ID == id {
			return course, true
		}
	}
	return models.Course{}, false
}

// Student finds a student by id.
func (s *Snapshot) Student(id string) (models.Student, bool) {
	for _, student := range s.Students {
		if student.ID == id {
			return student, true
		}
	}
	return models.Student{}, false
}

// OutcomesForCourse returns the course outcomes in snapshot order.
func (s *Snapshot) OutcomesForCourse(courseID string) []models.CourseOutcome {
	outcomes := make([]models.CourseOutcome, 0)
	for _, outcome := range s.CourseOutcomes {
		if outcome.CourseID == courseID {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

// OutcomesForProgram returns the program outcomes in snapshot order.
func (s *Snapshot) OutcomesForProgram(programID string) []models.ProgramOutcome {
	outcomes := make([]models.ProgramOutcome, 0)
	for _, outcome := range s.ProgramOutcomes {
		if outcome.ProgramID == programID {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

// CoursesForProgram returns the program's courses in snapshot order.
func (s *Snapshot) CoursesForProgram(programID string) []models.Course {
	courses := make([]models.Course, 0)
	for _, course := range s.Courses {
		if course.ProgramID == programID {
			courses = append(courses, course)
		}
	}
	return courses
}

// EnrollmentsForCourse returns the course's enrollments in snapshot order.
func (s *Snapshot) EnrollmentsForCourse(courseID string) []models.Enrollment {
	enrollments := make([]models.Enrollment, 0)
	for _, enrollment := range s.Enrollments {
		if enrollment.CourseID == courseID {
			enrollments = append(enrollments, enrollment)
		}
	}
	return enrollments
}

func (s *Snapshot) batchByName(programID, name string) (models.Batch, bool) {
	for _, batch := range s.Batches {
		if batch.ProgramID == programID && batch.Name == name {
			return batch, true
		}
	}
	return models.Batch{}, false
}

func (s *Snapshot) sectionIDsInBatch(batchID string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, section := range s.Sections {
		if section.BatchID == batchID {
			ids[section.ID] = struct{}{}
		}
	}
	return ids
}

func (s *Snapshot) assessmentsForSections(sectionIDs map[string]struct{}) []models.Assessment {
	assessments := make([]models.Assessment, 0)
	for _, assessment := range s.Assessments {
		if _, ok := sectionIDs[assessment.SectionID]; ok {
			assessments = append(assessments, assessment)
		}
	}
	return assessments
}
