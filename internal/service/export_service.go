package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lab-scheduler-api/pkg/errors"
	"github.com/noah-isme/lab-scheduler-api/pkg/export"
)

var scheduleExportHeaders = []string{"Date", "Time Slot", "Lab", "Course", "Class", "Professor", "Students"}

type scheduleLister interface {
	ListForExport(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered schedule export ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders the active schedule list as CSV or PDF.
type ExportService struct {
	schedules scheduleLister
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the default exporters.
func NewExportService(schedules scheduleLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{schedules: schedules, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Export renders the schedules matching filter in the requested format.
func (s *ExportService) Export(ctx context.Context, filter models.ScheduleFilter, format string) (*ExportResult, error) {
	f := export.Format(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = export.FormatCSV
	}
	if f != export.FormatCSV && f != export.FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	items, err := s.schedules.ListForExport(ctx, filter)
	if err != nil {
		return nil, err
	}
	dataset := scheduleDataset(items)

	var body []byte
	switch f {
	case export.FormatPDF:
		body, err = s.pdf.Render(dataset, "Lab Schedules")
	default:
		body, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render schedule export")
	}

	filename := fmt.Sprintf("lab_schedules_%s.%s", s.now().UTC().Format("20060102_150405"), f)
	s.logger.Info("schedules exported", zap.String("format", string(f)), zap.Int("rows", len(items)))
	return &ExportResult{Filename: filename, ContentType: f.ContentType(), Body: body, Rows: len(items)}, nil
}

func scheduleDataset(items []models.ScheduleDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"Date":      models.FormatDate(item.Date),
			"Time Slot": item.TimeSlot,
			"Lab":       item.LabName,
			"Course":    item.CourseName,
			"Class":     item.ClassName,
			"Professor": item.ProfessorName,
			"Students":  strconv.Itoa(item.ExpectedStudents),
		})
	}
	return export.Dataset{Headers: scheduleExportHeaders, Rows: rows}
}
