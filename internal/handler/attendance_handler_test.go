package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusync/school-api/internal/middleware"
	"github.com/edusync/school-api/internal/models"
	"github.com/edusync/school-api/internal/service"
	appErrors "github.com/edusync/school-api/pkg/errors"
)

type fakeAttendanceSrv struct {
	statsResp   *models.StatsResult
	statsHit    bool
	statsErr    error
	historyResp *service.HistoryResult
	historyErr  error
	markResp    *models.Attendance
	markCreated bool
	markErr     error
	todayResp   *models.TodayPercentage
	todayErr    error
	studentResp *service.StudentListResult
	studentErr  error

	lastMark struct {
		req    service.MarkRequest
		marker *models.JWTClaims
		method models.AttendanceMethod
	}
}

func (f *fakeAttendanceSrv) Stats(context.Context, *models.JWTClaims, service.StatsRequest) (*models.StatsResult, bool, error) {
	return f.statsResp, f.statsHit, f.statsErr
}

func (f *fakeAttendanceSrv) History(context.Context, *models.JWTClaims, service.HistoryRequest) (*service.HistoryResult, error) {
	return f.historyResp, f.historyErr
}

func (f *fakeAttendanceSrv) Mark(_ context.Context, req service.MarkRequest, marker *models.JWTClaims, method models.AttendanceMethod) (*models.Attendance, bool, error) {
	f.lastMark.req = req
	f.lastMark.marker = marker
	f.lastMark.method = method
	return f.markResp, f.markCreated, f.markErr
}

func (f *fakeAttendanceSrv) TodayPercentage(context.Context, *models.JWTClaims) (*models.TodayPercentage, error) {
	return f.todayResp, f.todayErr
}

func (f *fakeAttendanceSrv) Students(context.Context, *models.JWTClaims, service.StudentListRequest) (*service.StudentListResult, error) {
	return f.studentResp, f.studentErr
}

type fakeExportSrv struct {
	file *service.ExportFile
	err  error

	lastFormat service.ExportFormat
}

func (f *fakeExportSrv) ExportHistory(_ context.Context, _ *models.JWTClaims, _ service.HistoryRequest, format service.ExportFormat) (*service.ExportFile, error) {
	f.lastFormat = format
	return f.file, f.err
}

func withClaims(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID:   "teacher-1",
		Name:     "Ms. Rivera",
		Role:     models.RoleTeacher,
		SchoolID: "school-1",
	})
}

func TestAttendanceHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{
		statsResp: &models.StatsResult{Today: models.TodayStats{Date: "2026-03-10"}},
		statsHit:  true,
	}, &fakeExportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/stats?class=5", nil)
	withClaims(c)

	handler.Stats(c)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, string(body["data"]), "2026-03-10")
}

func TestAttendanceHandlerStatsForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{statsErr: appErrors.ErrForbidden}, &fakeExportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/stats", nil)
	withClaims(c)

	handler.Stats(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestAttendanceHandlerHistoryPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{
		historyResp: &service.HistoryResult{
			Attendance: []models.AttendanceHistoryRow{{StudentName: "Asha Patel"}},
			Pagination: models.NewPagination(2, 10, 101),
		},
	}, &fakeExportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/history?page=2&limit=10", nil)
	withClaims(c)

	handler.History(c)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 101, body.Pagination.Total)
	assert.Equal(t, 11, body.Pagination.Pages)
}

func TestAttendanceHandlerHistoryEmptyPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{
		historyResp: &service.HistoryResult{
			Attendance: []models.AttendanceHistoryRow{},
			Pagination: models.NewPagination(1, 50, 0),
		},
	}, &fakeExportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/history", nil)
	withClaims(c)

	handler.History(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	// An empty page is an array, never null.
	assert.Contains(t, rec.Body.String(), `"data":[]`)
	assert.NotContains(t, rec.Body.String(), `"data":null`)
}

func TestAttendanceHandlerExportHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	export := &fakeExportSrv{
		file: &service.ExportFile{
			Content:     []byte("Date,Student\n"),
			ContentType: "text/csv",
			Filename:    "attendance-history.csv",
		},
	}
	handler := NewAttendanceHandler(&fakeAttendanceSrv{}, export)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/history/export?format=xlsx", nil)
	withClaims(c)

	handler.ExportHistory(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatXLSX, export.lastFormat)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance-history.csv")
}

func TestAttendanceHandlerExportDefaultsToCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	export := &fakeExportSrv{file: &service.ExportFile{ContentType: "text/csv", Filename: "x.csv"}}
	handler := NewAttendanceHandler(&fakeAttendanceSrv{}, export)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/history/export", nil)
	withClaims(c)

	handler.ExportHistory(c)

	assert.Equal(t, service.ExportFormatCSV, export.lastFormat)
}

func TestAttendanceHandlerMarkManualCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttendanceSrv{
		markResp:    &models.Attendance{ID: "att-1", Status: models.AttendanceStatusPresent},
		markCreated: true,
	}
	handler := NewAttendanceHandler(srv, &fakeExportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	payload := `{"studentId":"stu-1","status":"present"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/manual", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	withClaims(c)

	handler.MarkManual(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.AttendanceMethodManual, srv.lastMark.method)
	require.NotNil(t, srv.lastMark.marker)
	assert.Equal(t, "teacher-1", srv.lastMark.marker.UserID)
}

func TestAttendanceHandlerMarkManualUpdated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttendanceSrv{
		markResp: &models.Attendance{ID: "att-1", Status: models.AttendanceStatusLate},
	}
	handler := NewAttendanceHandler(srv, &fakeExportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	payload := `{"studentId":"stu-1","status":"late"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/manual", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	withClaims(c)

	handler.MarkManual(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttendanceHandlerMarkViaURLHasNoMarker(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttendanceSrv{
		markResp:    &models.Attendance{ID: "att-1", Method: models.AttendanceMethodURL},
		markCreated: true,
	}
	handler := NewAttendanceHandler(srv, &fakeExportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/mark/stu-1", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "stu-1"}}

	handler.MarkViaURL(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "stu-1", srv.lastMark.req.StudentID)
	assert.Equal(t, models.AttendanceMethodURL, srv.lastMark.method)
	assert.Nil(t, srv.lastMark.marker)
}

func TestAttendanceHandlerTodayPercentage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&fakeAttendanceSrv{
		todayResp: &models.TodayPercentage{
			Date:                 "2026-03-10",
			TotalStudents:        3,
			PresentToday:         2,
			AttendancePercentage: "66.67%",
		},
	}, &fakeExportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/percentage/today", nil)
	withClaims(c)

	handler.TodayPercentage(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "66.67%")
	assert.Contains(t, rec.Body.String(), "attendancePercentage")
}

func TestAttendanceHandlerStudents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	status := models.AttendanceStatusPresent
	handler := NewAttendanceHandler(&fakeAttendanceSrv{
		studentResp: &service.StudentListResult{
			Students: []models.StudentWithAttendance{
				{User: models.User{ID: "stu-1", Name: "Asha Patel", CreatedAt: time.Now()}, AttendanceStatus: &status},
			},
			Pagination: models.NewPagination(1, 10, 1),
		},
	}, &fakeExportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students", nil)
	withClaims(c)

	handler.Students(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Asha Patel")
	assert.Contains(t, rec.Body.String(), "attendanceStatus")
}
