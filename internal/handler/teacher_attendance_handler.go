package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edusync/school-api/internal/models"
	"github.com/edusync/school-api/internal/service"
	appErrors "github.com/edusync/school-api/pkg/errors"
	"github.com/edusync/school-api/pkg/response"
)

type teacherAttendanceService interface {
	Scan(ctx context.Context, claims *models.JWTClaims, userID string) (*service.ScanResult, error)
	ListToday(ctx context.Context, claims *models.JWTClaims, name, date string, page, limit int) (*service.TeacherListResult, error)
	Notifications(ctx context.Context, claims *models.JWTClaims) ([]service.TeacherNotification, error)
}

// TeacherAttendanceHandler exposes staff check-in endpoints.
type TeacherAttendanceHandler struct {
	service teacherAttendanceService
}

func NewTeacherAttendanceHandler(svc teacherAttendanceService) *TeacherAttendanceHandler {
	return &TeacherAttendanceHandler{service: svc}
}

type scanRequest struct {
	UserID string `json:"userId"`
}

// Scan godoc
// @Summary Process a staff badge scan (check-in, then check-out)
// @Tags TeacherAttendance
// @Accept json
// @Produce json
// @Param payload body scanRequest false "Target user (admins only); defaults to the caller"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher-attendance/scan [post]
func (h *TeacherAttendanceHandler) Scan(c *gin.Context) {
	var req scanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload"))
			return
		}
	}

	result, err := h.service.Scan(c.Request.Context(), claimsFromContext(c), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Today godoc
// @Summary Staff check-ins for one day
// @Tags TeacherAttendance
// @Produce json
// @Param name query string false "Name search"
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher-attendance/today [get]
func (h *TeacherAttendanceHandler) Today(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.service.ListToday(c.Request.Context(), claimsFromContext(c), c.Query("name"), c.Query("date"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Records, result.Pagination)
}

// Notifications godoc
// @Summary Late check-in and missing check-out alerts for today
// @Tags TeacherAttendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher-attendance/notifications [get]
func (h *TeacherAttendanceHandler) Notifications(c *gin.Context) {
	notifications, err := h.service.Notifications(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, nil)
}
