package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/obe-portal-api/internal/attainment"
	"github.com/noah-isme/obe-portal-api/internal/models"
	appErrors "github.com/noah-isme/obe-portal-api/pkg/errors"
)

// SnapshotRepository loads immutable data slices for attainment computation.
type SnapshotRepository interface {
	CourseSnapshot(ctx context.Context, courseID string) (*attainment.Snapshot, error)
	ProgramSnapshot(ctx context.Context, programID string) (*attainment.Snapshot, error)
	DataVersion(ctx context.Context) (int64, error)
}

// AttainmentService computes course, student and program attainment on top of
// snapshot loads, with cache-aside memoisation keyed by data version.
type AttainmentService struct {
	snapshots SnapshotRepository
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewAttainmentService constructs the service.
func NewAttainmentService(snapshots SnapshotRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *AttainmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttainmentService{
		snapshots: snapshots,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// effectiveScope names the scope echoed in responses and used in cache keys.
// Teachers always compute over their own sections regardless of the request.
func effectiveScope(viewer attainment.Viewer, scope string) string {
	if viewer.Role == models.RoleTeacher {
		return "my-sections"
	}
	if scope == "" {
		return models.ScopeOverall
	}
	return scope
}

// CourseAttainment returns the per-outcome rollup for a course under the
// viewer's resolved population. The second return reports a cache hit.
func (s *AttainmentService) CourseAttainment(ctx context.Context, courseID string, viewer attainment.Viewer, scope string) (*models.CourseAttainmentReport, bool, error) {
	scope = effectiveScope(viewer, scope)
	key := s.cacheKey(ctx, "course", courseID, viewer, scope)

	if key != "" {
		var cached models.CourseAttainmentReport
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	snap, err := s.loadCourseSnapshot(ctx, courseID)
	if err != nil {
		return nil, false, err
	}
	course, _ := snap.Course(courseID)
	if err := s.checkProgramAccess(viewer, course.ProgramID); err != nil {
		return nil, false, err
	}

	start := time.Now()
	population := attainment.ResolveScope(snap, courseID, viewer, scope)
	summaries := attainment.CourseOutcomeSummaries(snap, course, population)
	if s.metrics != nil {
		s.metrics.ObserveComputation("course", time.Since(start))
	}

	outcomes := snap.OutcomesForCourse(courseID)
	rows := make([]models.CourseOutcomeAttainmentRow, 0, len(summaries))
	for i, summary := range summaries {
		rows = append(rows, models.CourseOutcomeAttainmentRow{
			OutcomeID:             summary.OutcomeID,
			OutcomeNumber:         outcomes[i].Number,
			PercentMeetingTarget:  summary.PercentMeetingTarget,
			AttainmentLevel:       summary.Level,
			QuestionCount:         summary.QuestionCount,
			EligibleStudents:      summary.EligibleStudents,
			StudentsMeetingTarget: summary.StudentsMeetingTarget,
		})
	}

	report := &models.CourseAttainmentReport{
		CourseID:   course.ID,
		CourseCode: course.Code,
		CourseName: course.Name,
		Scope:      scope,
		Target:     course.Target,
		Outcomes:   rows,
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache course attainment", zap.String("course_id", courseID), zap.Error(err))
		}
	}
	return report, false, nil
}

// StudentAttainment returns one student's per-outcome percentages for a
// course. The student must belong to the viewer's resolved population.
func (s *AttainmentService) StudentAttainment(ctx context.Context, courseID, studentID string, viewer attainment.Viewer, scope string) (*models.StudentAttainmentReport, bool, error) {
	scope = effectiveScope(viewer, scope)
	key := s.cacheKey(ctx, "student", courseID+":"+studentID, viewer, scope)

	if key != "" {
		var cached models.StudentAttainmentReport
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	snap, err := s.loadCourseSnapshot(ctx, courseID)
	if err != nil {
		return nil, false, err
	}
	course, _ := snap.Course(courseID)
	if err := s.checkProgramAccess(viewer, course.ProgramID); err != nil {
		return nil, false, err
	}

	population := attainment.ResolveScope(snap, courseID, viewer, scope)
	var student *models.Student
	for i := range population.Students {
		if population.Students[i].ID == studentID {
			student = &population.Students[i]
			break
		}
	}
	if student == nil {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found in scope")
	}

	start := time.Now()
	marks := attainment.NewMarkIndex(snap.Marks, map[string]struct{}{studentID: {}})
	questions := attainment.NewQuestionOutcomeIndex(population.Assessments)
	outcomes := snap.OutcomesForCourse(courseID)
	rows := make([]models.StudentOutcomeAttainmentRow, 0, len(outcomes))
	for _, outcome := range outcomes {
		percent, _ := attainment.StudentOutcome(marks, questions, studentID, outcome.ID)
		rows = append(rows, models.StudentOutcomeAttainmentRow{
			OutcomeID:     outcome.ID,
			OutcomeNumber: outcome.Number,
			Percentage:    percent,
		})
	}
	if s.metrics != nil {
		s.metrics.ObserveComputation("student", time.Since(start))
	}

	report := &models.StudentAttainmentReport{
		CourseID:    courseID,
		StudentID:   studentID,
		StudentName: student.Name,
		Scope:       scope,
		Outcomes:    rows,
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache student attainment", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return report, false, nil
}

// ProgramAttainment evaluates every course of a program against program
// outcomes for the viewer's batch.
func (s *AttainmentService) ProgramAttainment(ctx context.Context, programID string, viewer attainment.Viewer) (*models.ProgramAttainmentReport, bool, error) {
	if err := s.checkProgramAccess(viewer, programID); err != nil {
		return nil, false, err
	}
	key := s.cacheKey(ctx, "program", programID, viewer, models.ScopeOverall)

	if key != "" {
		var cached models.ProgramAttainmentReport
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	loadStart := time.Now()
	snap, err := s.snapshots.ProgramSnapshot(ctx, programID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("program_snapshot", time.Since(loadStart))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program data")
	}

	start := time.Now()
	linkages := attainment.ProgramLinkage(snap, programID, viewer)
	if s.metrics != nil {
		s.metrics.ObserveComputation("program", time.Since(start))
	}

	rows := make([]models.CoursePOLinkageRow, 0, len(linkages))
	for _, linkage := range linkages {
		course, _ := snap.Course(linkage.CourseID)
		rows = append(rows, models.CoursePOLinkageRow{
			CourseID:          linkage.CourseID,
			CourseCode:        course.Code,
			CourseName:        course.Name,
			OverallAttainment: linkage.OverallAttainment,
			AverageLinkages:   linkage.AverageLinkages,
		})
	}

	report := &models.ProgramAttainmentReport{
		ProgramID: programID,
		Batch:     viewer.BatchName,
		Outcomes:  snap.OutcomesForProgram(programID),
		Courses:   rows,
	}
	if len(snap.Programs) > 0 {
		report.ProgramName = snap.Programs[0].Name
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache program attainment", zap.String("program_id", programID), zap.Error(err))
		}
	}
	return report, false, nil
}

// TeacherHasCourse reports whether the teacher owns at least one enrolled
// section of the course. Used to gate teacher report requests.
func (s *AttainmentService) TeacherHasCourse(ctx context.Context, teacherID, courseID string) (bool, error) {
	snap, err := s.loadCourseSnapshot(ctx, courseID)
	if err != nil {
		return false, err
	}
	viewer := attainment.Viewer{Role: models.RoleTeacher, UserID: teacherID}
	population := attainment.ResolveScope(snap, courseID, viewer, "")
	return len(population.SectionIDs) > 0, nil
}

func (s *AttainmentService) loadCourseSnapshot(ctx context.Context, courseID string) (*attainment.Snapshot, error) {
	start := time.Now()
	snap, err := s.snapshots.CourseSnapshot(ctx, courseID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("course_snapshot", time.Since(start))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course data")
	}
	return snap, nil
}

// checkProgramAccess restricts program coordinators to their own program.
func (s *AttainmentService) checkProgramAccess(viewer attainment.Viewer, programID string) error {
	if viewer.Role == models.RoleProgramCoordinator && viewer.ProgramID != "" && viewer.ProgramID != programID {
		return appErrors.Clone(appErrors.ErrForbidden, "course outside coordinator program")
	}
	return nil
}

// cacheKey builds a version-tagged key; an empty key disables caching for the
// call (cache off or version lookup failed).
func (s *AttainmentService) cacheKey(ctx context.Context, kind, subject string, viewer attainment.Viewer, scope string) string {
	if !s.cache.Enabled() {
		return ""
	}
	version, err := s.snapshots.DataVersion(ctx)
	if err != nil {
		s.logger.Warn("data version lookup failed, skipping cache", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("attainment:%s:%s:%s:%s:%s:%s:v%d", kind, subject, scope, viewer.Role, viewer.UserID, viewer.BatchName, version)
}
