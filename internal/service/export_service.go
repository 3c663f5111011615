package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edusync/school-api/internal/models"
	appErrors "github.com/edusync/school-api/pkg/errors"
	"github.com/edusync/school-api/pkg/export"
)

// ExportFormat selects the rendering backend for history exports.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders attendance history pages as downloadable files.
type ExportService struct {
	attendance *AttendanceService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	xlsx       *export.XLSXExporter
	logger     *zap.Logger
}

func NewExportService(attendance *AttendanceService, logger *zap.Logger) *ExportService {
	return &ExportService{
		attendance: attendance,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		xlsx:       export.NewXLSXExporter(),
		logger:     logger,
	}
}

var historyHeaders = []string{"Date", "Student", "Roll Number", "Class", "Status", "Method", "Marked By", "Notes"}

// historyDataset flattens history rows in page order.
func historyDataset(rows []models.AttendanceHistoryRow) export.Dataset {
	data := export.Dataset{Headers: historyHeaders}
	for _, row := range rows {
		roll := ""
		if row.RollNumber != nil {
			roll = *row.RollNumber
		}
		markedBy := row.MarkedBy
		if markedBy == "" && row.TeacherName != nil {
			markedBy = *row.TeacherName
		}
		data.Rows = append(data.Rows, map[string]string{
			"Date":        row.Date.Format("2006-01-02"),
			"Student":     row.StudentName,
			"Roll Number": roll,
			"Class":       fmt.Sprintf("%d", row.Class),
			"Status":      string(row.Status),
			"Method":      string(row.Method),
			"Marked By":   markedBy,
			"Notes":       row.Notes,
		})
	}
	return data
}

// ExportHistory renders one history page in the requested format. The
// rows mirror the history endpoint's ordering exactly.
func (s *ExportService) ExportHistory(ctx context.Context, claims *models.JWTClaims, req HistoryRequest, format ExportFormat) (*ExportFile, error) {
	result, err := s.attendance.History(ctx, claims, req)
	if err != nil {
		return nil, err
	}

	data := historyDataset(result.Attendance)
	stamp := ""
	if req.StartDate != "" {
		stamp = "-" + req.StartDate
	}

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV")
		}
		return &ExportFile{Content: content, ContentType: "text/csv", Filename: fmt.Sprintf("attendance-history%s.csv", stamp)}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(data, "Attendance History")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF")
		}
		return &ExportFile{Content: content, ContentType: "application/pdf", Filename: fmt.Sprintf("attendance-history%s.pdf", stamp)}, nil
	case ExportFormatXLSX:
		content, err := s.xlsx.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render XLSX")
		}
		return &ExportFile{
			Content:     content,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Filename:    fmt.Sprintf("attendance-history%s.xlsx", stamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
