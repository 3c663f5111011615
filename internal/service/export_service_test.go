package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusync/school-api/internal/models"
	appErrors "github.com/edusync/school-api/pkg/errors"
)

func historyFixture() []models.AttendanceHistoryRow {
	roll := "12"
	teacher := "Ms. Rivera"
	return []models.AttendanceHistoryRow{
		{
			Attendance: models.Attendance{
				StudentID: "stu-1",
				Class:     5,
				Status:    models.AttendanceStatusPresent,
				Method:    models.AttendanceMethodManual,
				Date:      time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local),
				MarkedBy:  "Ms. Rivera",
			},
			StudentName: "Asha Patel",
			RollNumber:  &roll,
			TeacherName: &teacher,
		},
		{
			Attendance: models.Attendance{
				StudentID: "stu-2",
				Class:     5,
				Status:    models.AttendanceStatusAbsent,
				Method:    models.AttendanceMethodURL,
				Date:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.Local),
			},
			StudentName: "Ben Okafor",
		},
	}
}

func newTestExportService(rows []models.AttendanceHistoryRow) *ExportService {
	att := &fakeAttendanceRepo{
		history: func(ctx context.Context, filter models.AttendanceHistoryFilter) ([]models.AttendanceHistoryRow, int, error) {
			return rows, len(rows), nil
		},
	}
	return NewExportService(newTestAttendanceService(att, &fakeUserRepo{}), zap.NewNop())
}

func TestExportHistoryCSV(t *testing.T) {
	svc := newTestExportService(historyFixture())

	file, err := svc.ExportHistory(context.Background(), adminClaims(), HistoryRequest{StartDate: "2026-03-09", EndDate: "2026-03-10"}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "attendance-history-2026-03-09.csv", file.Filename)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Student")
	assert.Contains(t, lines[1], "Asha Patel")
	assert.Contains(t, lines[1], "present")
	assert.Contains(t, lines[2], "Ben Okafor")
	assert.Contains(t, lines[2], "url")
}

func TestExportHistoryPDF(t *testing.T) {
	svc := newTestExportService(historyFixture())

	file, err := svc.ExportHistory(context.Background(), adminClaims(), HistoryRequest{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestExportHistoryXLSX(t *testing.T) {
	svc := newTestExportService(historyFixture())

	file, err := svc.ExportHistory(context.Background(), adminClaims(), HistoryRequest{}, ExportFormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Content), "PK"))
}

func TestExportHistoryUnsupportedFormat(t *testing.T) {
	svc := newTestExportService(nil)

	_, err := svc.ExportHistory(context.Background(), adminClaims(), HistoryRequest{}, ExportFormat("docx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportHistoryForbidden(t *testing.T) {
	svc := newTestExportService(nil)

	claims := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent, SchoolID: "school-1"}
	_, err := svc.ExportHistory(context.Background(), claims, HistoryRequest{}, ExportFormatCSV)
	assert.Equal(t, appErrors.ErrForbidden, err)
}
