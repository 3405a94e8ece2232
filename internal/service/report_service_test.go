package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/obe-portal-api/internal/models"
	"github.com/noah-isme/obe-portal-api/internal/repository"
	appErrors "github.com/noah-isme/obe-portal-api/pkg/errors"
	"github.com/noah-isme/obe-portal-api/pkg/jobs"
)

type fakeReportStore struct {
	jobs      map[string]*models.ReportJob
	createErr error
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{jobs: make(map[string]*models.ReportJob)}
}

func (f *fakeReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	stored := *job
	f.jobs[job.ID] = &stored
	return nil
}

func (f *fakeReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (f *fakeReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (f *fakeReportStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range f.jobs {
		if job.Status == models.ReportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type fakeDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (f *fakeDispatcher) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

type fakeAccessChecker struct {
	allowed bool
	err     error
}

func (f *fakeAccessChecker) TeacherHasCourse(ctx context.Context, teacherID, courseID string) (bool, error) {
	return f.allowed, f.err
}

func TestReportServiceCreateJob(t *testing.T) {
	store := newFakeReportStore()
	queue := &fakeDispatcher{}
	svc := NewReportService(store, &fakeAccessChecker{allowed: true}, queue, nil, zap.NewNop(), ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), ReportRequest{
		Type:     models.ReportTypeCourseAttainment,
		CourseID: "c1",
		Scope:    models.ScopeOverall,
		Batch:    "2024",
		Format:   models.ReportFormatCSV,
	}, "u1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
	assert.Equal(t, "c1", store.jobs[resp.ID].Params.CourseID)
}

func TestReportServiceCreateJobTeacherWithoutAccess(t *testing.T) {
	svc := NewReportService(newFakeReportStore(), &fakeAccessChecker{allowed: false}, &fakeDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{
		Type:     models.ReportTypeCourseAttainment,
		CourseID: "c1",
		Format:   models.ReportFormatCSV,
	}, "t1", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateJobTeacherProgramReport(t *testing.T) {
	svc := NewReportService(newFakeReportStore(), &fakeAccessChecker{allowed: true}, &fakeDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{
		Type:      models.ReportTypeProgramAttainment,
		ProgramID: "p1",
		Batch:     "2024",
		Format:    models.ReportFormatPDF,
	}, "t1", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc := NewReportService(newFakeReportStore(), nil, &fakeDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{
		Type:   models.ReportTypeCourseAttainment,
		Format: models.ReportFormatCSV,
	}, "u1", models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateJob(context.Background(), ReportRequest{
		Type:     models.ReportTypeCourseAttainment,
		CourseID: "c1",
		Format:   "xlsx",
	}, "u1", models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := newFakeReportStore()
	queue := &fakeDispatcher{err: errors.New("queue stopped")}
	svc := NewReportService(store, nil, queue, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{
		Type:     models.ReportTypeCourseAttainment,
		CourseID: "c1",
		Format:   models.ReportFormatCSV,
	}, "u1", models.RoleAdmin)
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportServiceGetStatusOwnership(t *testing.T) {
	store := newFakeReportStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Status: models.ReportStatusProcessing, CreatedBy: "t1"}
	svc := NewReportService(store, nil, &fakeDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	status, err := svc.GetStatus(context.Background(), "job-1", "t1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, status.Status)

	_, err = svc.GetStatus(context.Background(), "job-1", "t2", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.GetStatus(context.Background(), "nope", "t1", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	store := newFakeReportStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Type: models.ReportTypeCourseAttainment, Status: models.ReportStatusQueued}
	store.jobs["job-2"] = &models.ReportJob{ID: "job-2", Type: models.ReportTypeCourseAttainment, Status: models.ReportStatusFinished}
	queue := &fakeDispatcher{}
	svc := NewReportService(store, nil, queue, nil, zap.NewNop(), ReportServiceConfig{})

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "job-1", queue.enqueued[0].ID)
}

type stubGenerator struct {
	result *ExportResult
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	return s.result, s.err
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	store := newFakeReportStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Type: models.ReportTypeCourseAttainment, Status: models.ReportStatusQueued}
	worker := NewReportWorker(store, &stubGenerator{result: &ExportResult{URL: "/api/v1/reports/download/tok"}}, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/reports/download/tok", *job.ResultURL)
	assert.NotNil(t, job.FinishedAt)
}

func TestReportWorkerHandleFailureRequeuesThenFails(t *testing.T) {
	store := newFakeReportStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Type: models.ReportTypeCourseAttainment, Status: models.ReportStatusQueued}
	worker := NewReportWorker(store, &stubGenerator{err: errors.New("render failed")}, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, store.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, store.jobs["job-1"].Status)
}
