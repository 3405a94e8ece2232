package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/obe-portal-api/internal/attainment"
	"github.com/noah-isme/obe-portal-api/internal/models"
)

// SnapshotRepository loads the immutable data slices attainment computations
// run over. Each load produces a self-contained snapshot; callers never see
// rows change underneath them mid-computation.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new instance of SnapshotRepository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// CourseSnapshot loads everything needed to evaluate one course: the course
// with its outcomes and mappings, the program's outcomes, batches and
// sections, enrollments with their students, and the assessments and marks of
// the enrolled sections.
func (r *SnapshotRepository) CourseSnapshot(ctx context.Context, courseID string) (*attainment.Snapshot, error) {
	var course models.Course
	const courseQuery = `SELECT id, name, code, program_id, target, internal_weightage, external_weightage, attainment_level3, attainment_level2, attainment_level1, status, teacher_id, section_teacher_ids FROM courses WHERE id = $1 LIMIT 1`
	if err := r.db.GetContext(ctx, &course, courseQuery, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load course: %w", err)
	}

	snap := &attainment.Snapshot{Courses: []models.Course{course}}

	const outcomeQuery = `SELECT id, course_id, number, description FROM course_outcomes WHERE course_id = $1 ORDER BY number ASC`
	if err := r.db.SelectContext(ctx, &snap.CourseOutcomes, outcomeQuery, courseID); err != nil {
		return nil, fmt.Errorf("load course outcomes: %w", err)
	}

	const mappingQuery = `SELECT id, course_id, co_id, po_id, strength FROM co_po_mappings WHERE course_id = $1`
	if err := r.db.SelectContext(ctx, &snap.Mappings, mappingQuery, courseID); err != nil {
		return nil, fmt.Errorf("load co-po mappings: %w", err)
	}

	if err := r.loadProgramStructure(ctx, snap, course.ProgramID); err != nil {
		return nil, err
	}

	const enrollmentQuery = `SELECT id, course_id, student_id, section_id FROM enrollments WHERE course_id = $1`
	if err := r.db.SelectContext(ctx, &snap.Enrollments, enrollmentQuery, courseID); err != nil {
		return nil, fmt.Errorf("load enrollments: %w", err)
	}

	const studentQuery = `SELECT id, name, program_id, status, section_id FROM students WHERE id IN (SELECT student_id FROM enrollments WHERE course_id = $1)`
	if err := r.db.SelectContext(ctx, &snap.Students, studentQuery, courseID); err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}

	const assessmentQuery = `SELECT id, section_id, name, type, questions FROM assessments WHERE section_id IN (SELECT DISTINCT section_id FROM enrollments WHERE course_id = $1 AND section_id IS NOT NULL)`
	if err := r.db.SelectContext(ctx, &snap.Assessments, assessmentQuery, courseID); err != nil {
		return nil, fmt.Errorf("load assessments: %w", err)
	}

	const markQuery = `SELECT id, student_id, assessment_id, scores FROM marks WHERE assessment_id IN (SELECT id FROM assessments WHERE section_id IN (SELECT DISTINCT section_id FROM enrollments WHERE course_id = $1 AND section_id IS NOT NULL))`
	if err := r.db.SelectContext(ctx, &snap.Marks, markQuery, courseID); err != nil {
		return nil, fmt.Errorf("load marks: %w", err)
	}

	return snap, nil
}

// ProgramSnapshot loads the program-wide slice used for PO linkage: every
// course of the program with its outcomes, mappings, enrollments, students,
// assessments and marks.
func (r *SnapshotRepository) ProgramSnapshot(ctx context.Context, programID string) (*attainment.Snapshot, error) {
	snap := &attainment.Snapshot{}

	const programQuery = `SELECT id, name, college_id, duration FROM programs WHERE id = $1 LIMIT 1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, programQuery, programID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load program: %w", err)
	}
	snap.Programs = []models.Program{program}

	const coursesQuery = `SELECT id, name, code, program_id, target, internal_weightage, external_weightage, attainment_level3, attainment_level2, attainment_level1, status, teacher_id, section_teacher_ids FROM courses WHERE program_id = $1 ORDER BY code ASC`
	if err := r.db.SelectContext(ctx, &snap.Courses, coursesQuery, programID); err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}

	const outcomeQuery = `SELECT id, course_id, number, description FROM course_outcomes WHERE course_id IN (SELECT id FROM courses WHERE program_id = $1) ORDER BY number ASC`
	if err := r.db.SelectContext(ctx, &snap.CourseOutcomes, outcomeQuery, programID); err != nil {
		return nil, fmt.Errorf("load course outcomes: %w", err)
	}

	const mappingQuery = `SELECT id, course_id, co_id, po_id, strength FROM co_po_mappings WHERE course_id IN (SELECT id FROM courses WHERE program_id = $1)`
	if err := r.db.SelectContext(ctx, &snap.Mappings, mappingQuery, programID); err != nil {
		return nil, fmt.Errorf("load co-po mappings: %w", err)
	}

	if err := r.loadProgramStructure(ctx, snap, programID); err != nil {
		return nil, err
	}

	const enrollmentQuery = `SELECT id, course_id, student_id, section_id FROM enrollments WHERE course_id IN (SELECT id FROM courses WHERE program_id = $1)`
	if err := r.db.SelectContext(ctx, &snap.Enrollments, enrollmentQuery, programID); err != nil {
		return nil, fmt.Errorf("load enrollments: %w", err)
	}

	const studentQuery = `SELECT id, name, program_id, status, section_id FROM students WHERE program_id = $1`
	if err := r.db.SelectContext(ctx, &snap.Students, studentQuery, programID); err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}

	const assessmentQuery = `SELECT id, section_id, name, type, questions FROM assessments WHERE section_id IN (SELECT id FROM sections WHERE program_id = $1)`
	if err := r.db.SelectContext(ctx, &snap.Assessments, assessmentQuery, programID); err != nil {
		return nil, fmt.Errorf("load assessments: %w", err)
	}

	const markQuery = `SELECT id, student_id, assessment_id, scores FROM marks WHERE assessment_id IN (SELECT id FROM assessments WHERE section_id IN (SELECT id FROM sections WHERE program_id = $1))`
	if err := r.db.SelectContext(ctx, &snap.Marks, markQuery, programID); err != nil {
		return nil, fmt.Errorf("load marks: %w", err)
	}

	return snap, nil
}

func (r *SnapshotRepository) loadProgramStructure(ctx context.Context, snap *attainment.Snapshot, programID string) error {
	const poQuery = `SELECT id, program_id, number, description FROM program_outcomes WHERE program_id = $1 ORDER BY number ASC`
	if err := r.db.SelectContext(ctx, &snap.ProgramOutcomes, poQuery, programID); err != nil {
		return fmt.Errorf("load program outcomes: %w", err)
	}

	const batchQuery = `SELECT id, program_id, name FROM batches WHERE program_id = $1`
	if err := r.db.SelectContext(ctx, &snap.Batches, batchQuery, programID); err != nil {
		return fmt.Errorf("load batches: %w", err)
	}

	const sectionQuery = `SELECT id, name, program_id, batch_id FROM sections WHERE program_id = $1`
	if err := r.db.SelectContext(ctx, &snap.Sections, sectionQuery, programID); err != nil {
		return fmt.Errorf("load sections: %w", err)
	}
	return nil
}

// DataVersion returns the most recent modification time across marks,
// assessments and enrollments as a unix timestamp. Cache keys embed this
// value so stale attainment entries die with the data that produced them.
func (r *SnapshotRepository) DataVersion(ctx context.Context) (int64, error) {
	const query = `SELECT COALESCE(GREATEST(
		(SELECT MAX(updated_at) FROM marks),
		(SELECT MAX(updated_at) FROM assessments),
		(SELECT MAX(updated_at) FROM enrollments)
	), 'epoch'::timestamptz)`
	var ts time.Time
	if err := r.db.GetContext(ctx, &ts, query); err != nil {
		return 0, fmt.Errorf("load data version: %w", err)
	}
	return ts.Unix(), nil
}
