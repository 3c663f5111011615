package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/edusync/school-api/internal/models"
	"github.com/edusync/school-api/internal/service"
	appErrors "github.com/edusync/school-api/pkg/errors"
)

type fakeTeacherAttendanceSrv struct {
	scanResp   *service.ScanResult
	scanErr    error
	listResp   *service.TeacherListResult
	listErr    error
	notifResp  []service.TeacherNotification
	notifErr   error
	lastUserID string
}

func (f *fakeTeacherAttendanceSrv) Scan(_ context.Context, _ *models.JWTClaims, userID string) (*service.ScanResult, error) {
	f.lastUserID = userID
	return f.scanResp, f.scanErr
}

func (f *fakeTeacherAttendanceSrv) ListToday(context.Context, *models.JWTClaims, string, string, int, int) (*service.TeacherListResult, error) {
	return f.listResp, f.listErr
}

func (f *fakeTeacherAttendanceSrv) Notifications(context.Context, *models.JWTClaims) ([]service.TeacherNotification, error) {
	return f.notifResp, f.notifErr
}

func TestTeacherAttendanceHandlerScanSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeTeacherAttendanceSrv{
		scanResp: &service.ScanResult{Action: "check-in", Record: &models.TeacherAttendance{ID: "ta-1", CheckIn: time.Now()}},
	}
	handler := NewTeacherAttendanceHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/teacher-attendance/scan", nil)
	withClaims(c)

	handler.Scan(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.lastUserID)
	assert.Contains(t, rec.Body.String(), "check-in")
}

func TestTeacherAttendanceHandlerScanForOther(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeTeacherAttendanceSrv{
		scanResp: &service.ScanResult{Action: "check-out", Record: &models.TeacherAttendance{ID: "ta-1"}},
	}
	handler := NewTeacherAttendanceHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/teacher-attendance/scan", strings.NewReader(`{"userId":"teacher-2"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	withClaims(c)

	handler.Scan(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "teacher-2", srv.lastUserID)
}

func TestTeacherAttendanceHandlerScanConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTeacherAttendanceHandler(&fakeTeacherAttendanceSrv{
		scanErr: appErrors.Clone(appErrors.ErrConflict, "already checked in and out today"),
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/teacher-attendance/scan", nil)
	withClaims(c)

	handler.Scan(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTeacherAttendanceHandlerToday(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTeacherAttendanceHandler(&fakeTeacherAttendanceSrv{
		listResp: &service.TeacherListResult{
			Records:    []models.TeacherAttendance{{ID: "ta-1", Name: "Ms. Rivera"}},
			Pagination: models.NewPagination(1, 10, 1),
		},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/teacher-attendance/today", nil)
	withClaims(c)

	handler.Today(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ms. Rivera")
}

func TestTeacherAttendanceHandlerNotifications(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTeacherAttendanceHandler(&fakeTeacherAttendanceSrv{
		notifResp: []service.TeacherNotification{
			{UserID: "t2", Name: "Late Arrival", Type: "late-check-in"},
		},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/teacher-attendance/notifications", nil)
	withClaims(c)

	handler.Notifications(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "late-check-in")
}
