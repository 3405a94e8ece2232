package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/obe-portal-api/internal/attainment"
	"github.com/noah-isme/obe-portal-api/internal/models"
	appErrors "github.com/noah-isme/obe-portal-api/pkg/errors"
	"github.com/noah-isme/obe-portal-api/pkg/export"
	"github.com/noah-isme/obe-portal-api/pkg/storage"
)

type attainmentProvider interface {
	CourseAttainment(ctx context.Context, courseID string, viewer attainment.Viewer, scope string) (*models.CourseAttainmentReport, bool, error)
	ProgramAttainment(ctx context.Context, programID string, viewer attainment.Viewer) (*models.ProgramAttainmentReport, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders attainment reports into files and hands out signed
// download tokens. Background jobs run with the access already validated at
// submission time, so generation uses an unrestricted viewer bound to the
// job's scope and batch parameters.
type ExportService struct {
	attainments attainmentProvider
	storage     fileStorage
	csv         tableRenderer
	pdf         tableRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(attainments attainmentProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf tableRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		attainments: attainments,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the report table for the job and stores the rendered file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	table, err := s.buildTable(ctx, job)
	if err != nil {
		return nil, err
	}

	payload, err := s.render(table, job.Params.Format)
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenderCourse produces a course attainment export on the fly for the given
// viewer, without persisting anything.
func (s *ExportService) RenderCourse(ctx context.Context, courseID string, viewer attainment.Viewer, scope string, format models.ReportFormat) ([]byte, string, error) {
	report, _, err := s.attainments.CourseAttainment(ctx, courseID, viewer, scope)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.render(courseTable(report), format)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("%s-attainment.%s", sanitizeFilename(report.CourseCode), format)
	return payload, filename, nil
}

// RenderProgram produces a program linkage export on the fly for the given
// viewer.
func (s *ExportService) RenderProgram(ctx context.Context, programID string, viewer attainment.Viewer, format models.ReportFormat) ([]byte, string, error) {
	report, _, err := s.attainments.ProgramAttainment(ctx, programID, viewer)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.render(programTable(report), format)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("%s-%s-attainment.%s", sanitizeFilename(report.ProgramName), sanitizeFilename(report.Batch), format)
	return payload, filename, nil
}

func (s *ExportService) render(table export.Table, format models.ReportFormat) ([]byte, error) {
	switch format {
	case models.ReportFormatCSV:
		return s.csv.Render(table)
	case models.ReportFormatPDF:
		return s.pdf.Render(table)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildTable(ctx context.Context, job *models.ReportJob) (export.Table, error) {
	viewer := attainment.Viewer{Role: models.RoleAdmin, BatchName: job.Params.Batch}
	switch job.Type {
	case models.ReportTypeCourseAttainment:
		report, _, err := s.attainments.CourseAttainment(ctx, job.Params.CourseID, viewer, job.Params.Scope)
		if err != nil {
			return export.Table{}, err
		}
		return courseTable(report), nil
	case models.ReportTypeProgramAttainment:
		report, _, err := s.attainments.ProgramAttainment(ctx, job.Params.ProgramID, viewer)
		if err != nil {
			return export.Table{}, err
		}
		return programTable(report), nil
	default:
		return export.Table{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func courseTable(report *models.CourseAttainmentReport) export.Table {
	rows := make([][]string, 0, len(report.Outcomes))
	for _, row := range report.Outcomes {
		rows = append(rows, []string{
			row.OutcomeNumber,
			formatPercent(row.PercentMeetingTarget),
			strconv.Itoa(row.AttainmentLevel),
			strconv.Itoa(row.EligibleStudents),
			strconv.Itoa(row.StudentsMeetingTarget),
			strconv.Itoa(row.QuestionCount),
		})
	}
	return export.Table{
		Title:   fmt.Sprintf("%s %s attainment (%s)", report.CourseCode, report.CourseName, report.Scope),
		Headers: []string{"Outcome", "% Meeting Target", "Level", "Eligible", "Meeting Target", "Questions"},
		Rows:    rows,
	}
}

func programTable(report *models.ProgramAttainmentReport) export.Table {
	headers := []string{"Course", "Overall %"}
	poIDs := make([]string, 0, len(report.Outcomes))
	for _, po := range report.Outcomes {
		headers = append(headers, po.Number)
		poIDs = append(poIDs, po.ID)
	}
	if len(report.Outcomes) == 0 {
		// Degenerate programs still export; fall back to whatever linkage
		// keys the rows carry.
		seen := map[string]struct{}{}
		for _, course := range report.Courses {
			for id := range course.AverageLinkages {
				seen[id] = struct{}{}
			}
		}
		for id := range seen {
			poIDs = append(poIDs, id)
		}
		sort.Strings(poIDs)
		headers = append(headers, poIDs...)
	}

	rows := make([][]string, 0, len(report.Courses))
	for _, course := range report.Courses {
		row := []string{course.CourseCode, formatPercent(course.OverallAttainment)}
		for _, poID := range poIDs {
			row = append(row, strconv.FormatFloat(course.AverageLinkages[poID], 'f', 2, 64))
		}
		rows = append(rows, row)
	}
	return export.Table{
		Title:   fmt.Sprintf("%s program attainment, batch %s", report.ProgramName, report.Batch),
		Headers: headers,
		Rows:    rows,
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	subject := job.Params.CourseID
	if job.Type == models.ReportTypeProgramAttainment {
		subject = job.Params.ProgramID
	}
	return fmt.Sprintf("%s_%s_%s.%s", string(job.Type), sanitizeFilename(subject), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
