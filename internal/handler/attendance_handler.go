package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edusync/school-api/internal/middleware"
	"github.com/edusync/school-api/internal/models"
	"github.com/edusync/school-api/internal/service"
	appErrors "github.com/edusync/school-api/pkg/errors"
	"github.com/edusync/school-api/pkg/response"
)

type attendanceService interface {
	Stats(ctx context.Context, claims *models.JWTClaims, req service.StatsRequest) (*models.StatsResult, bool, error)
	History(ctx context.Context, claims *models.JWTClaims, req service.HistoryRequest) (*service.HistoryResult, error)
	Mark(ctx context.Context, req service.MarkRequest, marker *models.JWTClaims, method models.AttendanceMethod) (*models.Attendance, bool, error)
	TodayPercentage(ctx context.Context, claims *models.JWTClaims) (*models.TodayPercentage, error)
	Students(ctx context.Context, claims *models.JWTClaims, req service.StudentListRequest) (*service.StudentListResult, error)
}

type exportService interface {
	ExportHistory(ctx context.Context, claims *models.JWTClaims, req service.HistoryRequest, format service.ExportFormat) (*service.ExportFile, error)
}

// AttendanceHandler wires the attendance service to HTTP endpoints.
type AttendanceHandler struct {
	service attendanceService
	export  exportService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceService, export exportService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, export: export}
}

// Stats godoc
// @Summary Attendance statistics for one day plus trailing daily series
// @Tags Attendance
// @Produce json
// @Param class query int false "Class filter (1-10)"
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	var req service.StatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stats query"))
		return
	}

	result, cacheHit, err := h.service.Stats(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSONWithMeta(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// History godoc
// @Summary Deduplicated attendance history (latest record per student)
// @Tags Attendance
// @Produce json
// @Param startDate query string false "Window start (YYYY-MM-DD)"
// @Param endDate query string false "Window end (YYYY-MM-DD), defaults to startDate"
// @Param class query int false "Class filter (1-10)"
// @Param search query string false "Student name/roll search"
// @Param self query bool false "Only records the caller marked (teachers)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	var req service.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid history query"))
		return
	}

	result, err := h.service.History(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Attendance, result.Pagination)
}

// ExportHistory godoc
// @Summary Export the attendance history page as CSV, PDF or XLSX
// @Tags Attendance
// @Produce octet-stream
// @Param format query string true "csv, pdf or xlsx"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /attendance/history/export [get]
func (h *AttendanceHandler) ExportHistory(c *gin.Context) {
	var req service.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid history query"))
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.export.ExportHistory(c.Request.Context(), claimsFromContext(c), req, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// TodayPercentage godoc
// @Summary School-wide present percentage for today
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/percentage/today [get]
func (h *AttendanceHandler) TodayPercentage(c *gin.Context) {
	result, err := h.service.TodayPercentage(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MarkManual godoc
// @Summary Record one attendance mark for a student today
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkRequest true "Attendance mark"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/manual [post]
func (h *AttendanceHandler) MarkManual(c *gin.Context) {
	var req service.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload"))
		return
	}

	record, created, err := h.service.Mark(c.Request.Context(), req, claimsFromContext(c), models.AttendanceMethodManual)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, record)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// MarkViaURL godoc
// @Summary Record a present mark for a student via the open URL
// @Description Unauthenticated URL-based marking; records carry no marker identity.
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /attendance/mark/{studentId} [get]
func (h *AttendanceHandler) MarkViaURL(c *gin.Context) {
	req := service.MarkRequest{StudentID: c.Param("studentId")}

	record, created, err := h.service.Mark(c.Request.Context(), req, nil, models.AttendanceMethodURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, record)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Students godoc
// @Summary Student roster page merged with today's attendance status
// @Tags Attendance
// @Produce json
// @Param class query int false "Class filter (1-10)"
// @Param search query string false "Name/roll/contact search"
// @Param sortOrder query string false "asc or desc by class"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *AttendanceHandler) Students(c *gin.Context) {
	var req service.StudentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student query"))
		return
	}

	result, err := h.service.Students(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Students, result.Pagination)
}
