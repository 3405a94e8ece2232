package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/obe-portal-api/internal/attainment"
	"github.com/noah-isme/obe-portal-api/internal/models"
	appErrors "github.com/noah-isme/obe-portal-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func testSnapshot() *attainment.Snapshot {
	return &attainment.Snapshot{
		Programs: []models.Program{{ID: "p1", Name: "CSE"}},
		Batches:  []models.Batch{{ID: "b1", ProgramID: "p1", Name: "2024"}},
		Sections: []models.Section{{ID: "s1", ProgramID: "p1", BatchID: "b1"}},
		Courses: []models.Course{{
			ID:               "c1",
			Name:             "Data Structures",
			Code:             "CS201",
			ProgramID:        "p1",
			Target:           60,
			AttainmentLevel3: 80,
			AttainmentLevel2: 70,
			AttainmentLevel1: 50,
			TeacherID:        strPtr("t1"),
		}},
		CourseOutcomes: []models.CourseOutcome{
			{ID: "co1", CourseID: "c1", Number: "CO1"},
		},
		ProgramOutcomes: []models.ProgramOutcome{
			{ID: "po1", ProgramID: "p1", Number: "PO1"},
		},
		Mappings: []models.CoPoMapping{
			{ID: "mp1", CourseID: "c1", CourseOutcomeID: "co1", ProgramOutcomeID: "po1", Strength: 3},
		},
		Assessments: []models.Assessment{
			{ID: "a1", SectionID: "s1", Questions: models.QuestionList{
				{Label: "Q1", MaxMarks: 10, OutcomeIDs: []string{"co1"}},
			}},
		},
		Marks: []models.Mark{
			{ID: "m1", StudentID: "st1", AssessmentID: "a1", Scores: models.ScoreList{{Label: "Q1", Marks: 8}}},
			{ID: "m2", StudentID: "st2", AssessmentID: "a1", Scores: models.ScoreList{{Label: "Q1", Marks: 4}}},
		},
		Enrollments: []models.Enrollment{
			{ID: "e1", CourseID: "c1", StudentID: "st1", SectionID: strPtr("s1")},
			{ID: "e2", CourseID: "c1", StudentID: "st2", SectionID: strPtr("s1")},
		},
		Students: []models.Student{
			{ID: "st1", Name: "Asha", ProgramID: "p1", Status: models.StudentStatusActive},
			{ID: "st2", Name: "Ravi", ProgramID: "p1", Status: models.StudentStatusActive},
		},
	}
}

type fakeSnapshotRepo struct {
	snap    *attainment.Snapshot
	version int64
	loads   int
}

func (f *fakeSnapshotRepo) CourseSnapshot(ctx context.Context, courseID string) (*attainment.Snapshot, error) {
	f.loads++
	if _, ok := f.snap.Course(courseID); !ok {
		return nil, sql.ErrNoRows
	}
	return f.snap, nil
}

func (f *fakeSnapshotRepo) ProgramSnapshot(ctx context.Context, programID string) (*attainment.Snapshot, error) {
	f.loads++
	for _, p := range f.snap.Programs {
		if p.ID == programID {
			return f.snap, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSnapshotRepo) DataVersion(ctx context.Context) (int64, error) {
	return f.version, nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = make(map[string][]byte)
	return nil
}

func disabledCache() *CacheService {
	return NewCacheService(nil, nil, 0, zap.NewNop(), false)
}

func TestAttainmentServiceCourseAttainment(t *testing.T) {
	repo := &fakeSnapshotRepo{snap: testSnapshot(), version: 1}
	svc := NewAttainmentService(repo, disabledCache(), nil, zap.NewNop(), time.Minute)
	viewer := attainment.Viewer{Role: models.RoleAdmin, BatchName: "2024"}

	report, hit, err := svc.CourseAttainment(context.Background(), "c1", viewer, "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "CS201", report.CourseCode)
	assert.Equal(t, models.ScopeOverall, report.Scope)
	require.Len(t, report.Outcomes, 1)
	// st1 scored 80% of CO1 marks, st2 scored 40%: one of two meets the
	// 60% target.
	assert.Equal(t, 50.0, report.Outcomes[0].PercentMeetingTarget)
	assert.Equal(t, 1, report.Outcomes[0].AttainmentLevel)
	assert.Equal(t, 2, report.Outcomes[0].EligibleStudents)
}

func TestAttainmentServiceCourseNotFound(t *testing.T) {
	repo := &fakeSnapshotRepo{snap: testSnapshot()}
	svc := NewAttainmentService(repo, disabledCache(), nil, zap.NewNop(), time.Minute)

	_, _, err := svc.CourseAttainment(context.Background(), "missing", attainment.Viewer{Role: models.RoleAdmin, BatchName: "2024"}, "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAttainmentServiceCoordinatorProgramMismatch(t *testing.T) {
	repo := &fakeSnapshotRepo{snap: testSnapshot()}
	svc := NewAttainmentService(repo, disabledCache(), nil, zap.NewNop(), time.Minute)
	viewer := attainment.Viewer{Role: models.RoleProgramCoordinator, ProgramID: "p2", BatchName: "2024"}

	_, _, err := svc.CourseAttainment(context.Background(), "c1", viewer, "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAttainmentServiceCourseAttainmentCacheHit(t *testing.T) {
	repo := &fakeSnapshotRepo{snap: testSnapshot(), version: 7}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewAttainmentService(repo, cache, nil, zap.NewNop(), time.Minute)
	viewer := attainment.Viewer{Role: models.RoleAdmin, BatchName: "2024"}

	_, hit, err := svc.CourseAttainment(context.Background(), "c1", viewer, "")
	require.NoError(t, err)
	assert.False(t, hit)
	loadsAfterFirst := repo.loads

	report, hit, err := svc.CourseAttainment(context.Background(), "c1", viewer, "")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, loadsAfterFirst, repo.loads)
	assert.Equal(t, "CS201", report.CourseCode)
}

func TestAttainmentServiceStudentAttainment(t *testing.T) {
	repo := &fakeSnapshotRepo{snap: testSnapshot()}
	svc := NewAttainmentService(repo, disabledCache(), nil, zap.NewNop(), time.Minute)
	viewer := attainment.Viewer{Role: models.RoleTeacher, UserID: "t1"}

	report, _, err := svc.StudentAttainment(context.Background(), "c1", "st1", viewer, "")
	require.NoError(t, err)
	assert.Equal(t, "Asha", report.StudentName)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, 80.0, report.Outcomes[0].Percentage)
}

func TestAttainmentServiceStudentOutsideScope(t *testing.T) {
	repo := &fakeSnapshotRepo{snap: testSnapshot()}
	svc := NewAttainmentService(repo, disabledCache(), nil, zap.NewNop(), time.Minute)
	// t2 teaches nothing in this course, so every student is out of scope.
	viewer := attainment.Viewer{Role: models.RoleTeacher, UserID: "t2"}

	_, _, err := svc.StudentAttainment(context.Background(), "c1", "st1", viewer, "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAttainmentServiceProgramAttainment(t *testing.T) {
	repo := &fakeSnapshotRepo{snap: testSnapshot()}
	svc := NewAttainmentService(repo, disabledCache(), nil, zap.NewNop(), time.Minute)
	viewer := attainment.Viewer{Role: models.RoleAdmin, BatchName: "2024"}

	report, _, err := svc.ProgramAttainment(context.Background(), "p1", viewer)
	require.NoError(t, err)
	assert.Equal(t, "CSE", report.ProgramName)
	assert.Equal(t, "2024", report.Batch)
	require.Len(t, report.Courses, 1)
	// Per-student means are 80 and 40.
	assert.InDelta(t, 60.0, report.Courses[0].OverallAttainment, 0.001)
	assert.Equal(t, 3.0, report.Courses[0].AverageLinkages["po1"])
}

func TestAttainmentServiceTeacherHasCourse(t *testing.T) {
	repo := &fakeSnapshotRepo{snap: testSnapshot()}
	svc := NewAttainmentService(repo, disabledCache(), nil, zap.NewNop(), time.Minute)

	ok, err := svc.TeacherHasCourse(context.Background(), "t1", "c1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.TeacherHasCourse(context.Background(), "t9", "c1")
	require.NoError(t, err)
	assert.False(t, ok)
}
