package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusync/school-api/internal/models"
	"github.com/edusync/school-api/internal/repository"
	"github.com/edusync/school-api/pkg/config"
	appErrors "github.com/edusync/school-api/pkg/errors"
)

// AttendanceRepository is the event-store surface the service depends on.
type AttendanceRepository interface {
	FindByStudentOnDay(ctx context.Context, studentID string, start, end time.Time) (*models.Attendance, error)
	Insert(ctx context.Context, record *models.Attendance) error
	UpdateMark(ctx context.Context, record *models.Attendance) error
	ClassCounts(ctx context.Context, schoolID string, class *int, start, end time.Time) ([]models.ClassAttendanceCounts, error)
	DailySeries(ctx context.Context, schoolID string, class *int, start, end time.Time) ([]models.DailyAttendanceStat, error)
	History(ctx context.Context, filter models.AttendanceHistoryFilter) ([]models.AttendanceHistoryRow, int, error)
	CountPresentOnDay(ctx context.Context, schoolID string, start, end time.Time) (int, error)
	TodayStatusByStudent(ctx context.Context, studentIDs []string, start, end time.Time) (map[string]models.TodayStatus, error)
}

// UserRepository is the roster surface the service depends on.
type UserRepository interface {
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.User, int, error)
	CountStudentsByClass(ctx context.Context, schoolID string, class *int) ([]models.ClassStudentCount, error)
	CountStudents(ctx context.Context, schoolID string) (int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// StatsRequest scopes an aggregate statistics query.
type StatsRequest struct {
	Class *int   `form:"class" validate:"omitempty,min=1,max=10"`
	Date  string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// HistoryRequest scopes a deduplicated history query.
type HistoryRequest struct {
	StartDate string `form:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Class     *int   `form:"class" validate:"omitempty,min=1,max=10"`
	Search    string `form:"search"`
	Self      bool   `form:"self"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// HistoryResult is a history page with its pagination metadata.
type HistoryResult struct {
	Attendance []models.AttendanceHistoryRow `json:"attendance"`
	Pagination *models.Pagination            `json:"pagination"`
}

// MarkRequest carries one attendance mark. Status defaults to present.
type MarkRequest struct {
	StudentID string                  `json:"studentId" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"omitempty,oneof=present absent late leave"`
	Subject   string                  `json:"subject" validate:"omitempty,max=100"`
	Notes     string                  `json:"notes" validate:"omitempty,max=500"`
	NFC       bool                    `json:"nfc"`
}

// StudentListRequest scopes a roster page.
type StudentListRequest struct {
	Class     *int   `form:"class" validate:"omitempty,min=1,max=10"`
	Search    string `form:"search"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// StudentListResult is a roster page merged with today's marks.
type StudentListResult struct {
	Students   []models.StudentWithAttendance `json:"students"`
	Pagination *models.Pagination             `json:"pagination"`
}

// AttendanceService implements attendance recording and reporting.
type AttendanceService struct {
	attendance AttendanceRepository
	users      UserRepository
	policy     *AttendancePolicy
	cache      *CacheService
	metrics    *MetricsService
	cfg        config.AttendanceConfig
	logger     *zap.Logger
	validate   *validator.Validate

	// now is injected so day windows are testable.
	now func() time.Time
}

func NewAttendanceService(
	attendance AttendanceRepository,
	users UserRepository,
	policy *AttendancePolicy,
	cache *CacheService,
	metrics *MetricsService,
	cfg config.AttendanceConfig,
	logger *zap.Logger,
) *AttendanceService {
	return &AttendanceService{
		attendance: attendance,
		users:      users,
		policy:     policy,
		cache:      cache,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// WithClock overrides the service clock.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

// startOfDay normalises t to local midnight.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay is the inclusive end bound of t's day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999000000, t.Location())
}

// formatPercentage renders numerator/denominator as "NN.NN%", with a
// zero denominator mapping to "0.00%".
func formatPercentage(numerator, denominator int) string {
	if denominator <= 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(numerator)/float64(denominator)*100)
}

// Stats computes the per-class breakdown for one day plus the trailing
// daily series. The percentage denominator is the roster count per
// class, not the number of records seen; classes with an empty roster
// report "0.00%". Results are cached per school, class filter and day.
func (s *AttendanceService) Stats(ctx context.Context, claims *models.JWTClaims, req StatsRequest) (*models.StatsResult, bool, error) {
	if !s.policy.CanViewSchoolReports(claims) {
		return nil, false, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stats query")
	}

	day := s.now()
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, day.Location())
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date format, expected YYYY-MM-DD")
		}
		day = parsed
	}

	classKey := "all"
	if req.Class != nil {
		classKey = fmt.Sprintf("%d", *req.Class)
	}
	cacheKey := fmt.Sprintf("stats:%s:%s:%s", claims.SchoolID, classKey, day.Format("2006-01-02"))

	var cached models.StatsResult
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	dayStart := startOfDay(day)
	dayEnd := endOfDay(day)

	counts, err := s.attendance.ClassCounts(ctx, claims.SchoolID, req.Class, dayStart, dayEnd)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}

	rosters, err := s.users.CountStudentsByClass(ctx, claims.SchoolID, req.Class)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	windowDays := s.cfg.TrailingWindowDays
	if windowDays <= 0 {
		windowDays = 7
	}
	seriesStart := startOfDay(day.AddDate(0, 0, -(windowDays - 1)))
	daily, err := s.attendance.DailySeries(ctx, claims.SchoolID, req.Class, seriesStart, dayEnd)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build daily series")
	}

	rosterByClass := make(map[int]int, len(rosters))
	for _, r := range rosters {
		rosterByClass[r.Class] = r.TotalStudents
	}

	classWise := make(map[int]models.ClassStats, len(rosterByClass))
	for class, totalStudents := range rosterByClass {
		classWise[class] = models.ClassStats{
			TotalStudents:        totalStudents,
			AttendancePercentage: "0.00%",
		}
	}
	for _, c := range counts {
		stats := classWise[c.Class]
		stats.Present = c.Present
		stats.Absent = c.Absent
		stats.Late = c.Late
		stats.Total = c.Total
		stats.AttendancePercentage = formatPercentage(c.Present, stats.TotalStudents)
		classWise[c.Class] = stats
	}

	overall := models.OverallStats{}
	for _, stats := range classWise {
		overall.TotalStudents += stats.TotalStudents
		overall.TotalPresent += stats.Present
		overall.TotalAbsent += stats.Absent
		overall.TotalLate += stats.Late
	}
	overall.OverallAttendancePercentage = formatPercentage(overall.TotalPresent, overall.TotalStudents)

	result := &models.StatsResult{
		Daily: daily,
		Today: models.TodayStats{
			Date:      day.Format("2006-01-02"),
			ClassWise: classWise,
			Overall:   overall,
		},
	}

	s.cache.Set(ctx, cacheKey, result, s.cfg.StatsCacheTTL)
	return result, false, nil
}

// History returns the deduplicated history page: at most one row per
// student, each student's most recent record within the window.
func (s *AttendanceService) History(ctx context.Context, claims *models.JWTClaims, req HistoryRequest) (*HistoryResult, error) {
	if !s.policy.CanViewSchoolReports(claims) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid history query")
	}

	filter := models.AttendanceHistoryFilter{
		SchoolID: claims.SchoolID,
		Class:    req.Class,
		Search:   req.Search,
		Page:     req.Page,
		Limit:    req.Limit,
	}
	if filter.Limit <= 0 {
		filter.Limit = s.cfg.DefaultPageSize
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	loc := s.now().Location()
	if req.StartDate != "" {
		start, err := time.ParseInLocation("2006-01-02", req.StartDate, loc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate, expected YYYY-MM-DD")
		}
		from := startOfDay(start)
		filter.DateFrom = &from

		end := start
		if req.EndDate != "" {
			end, err = time.ParseInLocation("2006-01-02", req.EndDate, loc)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate, expected YYYY-MM-DD")
			}
		}
		if end.Before(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
		}
		to := endOfDay(end)
		filter.DateTo = &to
	} else if req.EndDate != "" {
		end, err := time.ParseInLocation("2006-01-02", req.EndDate, loc)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate, expected YYYY-MM-DD")
		}
		to := endOfDay(end)
		filter.DateTo = &to
	}

	if req.Self && models.UserRole(claims.Role) == models.RoleTeacher {
		filter.TeacherID = claims.UserID
	}

	rows, total, err := s.attendance.History(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch attendance history")
	}
	if rows == nil {
		// An empty page serialises as [], never null.
		rows = []models.AttendanceHistoryRow{}
	}

	return &HistoryResult{
		Attendance: rows,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// Mark records one attendance fact for a student today. At most one
// record exists per (student, day): an existing record is updated in
// place, and a concurrent insert losing the unique-constraint race is
// retried once as an update. Returns the record and whether it was
// created rather than updated. The marker is nil for URL marks, which
// carry no teacher identity.
func (s *AttendanceService) Mark(ctx context.Context, req MarkRequest, marker *models.JWTClaims, method models.AttendanceMethod) (*models.Attendance, bool, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !method.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid attendance method")
	}

	status := req.Status
	if status == "" {
		status = models.AttendanceStatusPresent
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student == nil || student.IsDeleted || student.Role != models.RoleStudent {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	if method == models.AttendanceMethodManual {
		if !s.policy.CanMarkAttendance(marker, student) {
			return nil, false, appErrors.ErrForbidden
		}
	}

	now := s.now()
	dayStart := startOfDay(now)
	dayEnd := endOfDay(now)

	existing, err := s.attendance.FindByStudentOnDay(ctx, student.ID, dayStart, dayEnd)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing attendance")
	}
	if existing != nil {
		updated, err := s.applyMark(ctx, existing, req, status, marker, method, now)
		if err != nil {
			return nil, false, err
		}
		s.invalidateStats(ctx, student.SchoolID)
		s.metrics.RecordMark(string(method), "updated")
		return updated, false, nil
	}

	record := &models.Attendance{
		ID:        uuid.New().String(),
		StudentID: student.ID,
		SchoolID:  student.SchoolID,
		Status:    status,
		Method:    method,
		Subject:   req.Subject,
		Notes:     req.Notes,
		NFC:       req.NFC,
		Date:      dayStart,
		MarkedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if student.Class != nil {
		record.Class = *student.Class
	}
	if marker != nil {
		record.TeacherID = &marker.UserID
		record.MarkedBy = marker.Name
	}

	err = s.attendance.Insert(ctx, record)
	if err == nil {
		s.invalidateStats(ctx, student.SchoolID)
		s.metrics.RecordMark(string(method), "created")
		s.logger.Info("attendance recorded",
			zap.String("student_id", student.ID),
			zap.String("method", string(method)),
			zap.String("status", string(status)))
		return record, true, nil
	}
	if !errors.Is(err, repository.ErrDuplicateAttendance) {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	// Lost the unique-constraint race: a concurrent writer created
	// today's record first. Retry once as an update.
	existing, err = s.attendance.FindByStudentOnDay(ctx, student.ID, dayStart, dayEnd)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to re-check attendance")
	}
	if existing == nil {
		return nil, false, appErrors.Clone(appErrors.ErrConflict, "attendance already marked for today")
	}
	updated, err := s.applyMark(ctx, existing, req, status, marker, method, now)
	if err != nil {
		return nil, false, err
	}
	s.invalidateStats(ctx, student.SchoolID)
	s.metrics.RecordMark(string(method), "updated")
	return updated, false, nil
}

func (s *AttendanceService) applyMark(ctx context.Context, existing *models.Attendance, req MarkRequest, status models.AttendanceStatus, marker *models.JWTClaims, method models.AttendanceMethod, now time.Time) (*models.Attendance, error) {
	existing.Status = status
	existing.Method = method
	existing.Subject = req.Subject
	existing.Notes = req.Notes
	existing.NFC = req.NFC
	existing.MarkedAt = now
	existing.UpdatedAt = now
	if marker != nil {
		existing.TeacherID = &marker.UserID
		existing.MarkedBy = marker.Name
	} else {
		existing.TeacherID = nil
		existing.MarkedBy = ""
	}

	if err := s.attendance.UpdateMark(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	return existing, nil
}

func (s *AttendanceService) invalidateStats(ctx context.Context, schoolID string) {
	s.cache.Invalidate(ctx, fmt.Sprintf("stats:%s:*", schoolID))
}

// TodayPercentage reports the school-wide present fraction for today.
func (s *AttendanceService) TodayPercentage(ctx context.Context, claims *models.JWTClaims) (*models.TodayPercentage, error) {
	if !s.policy.CanViewSchoolReports(claims) {
		return nil, appErrors.ErrForbidden
	}

	now := s.now()
	total, err := s.users.CountStudents(ctx, claims.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	present, err := s.attendance.CountPresentOnDay(ctx, claims.SchoolID, startOfDay(now), endOfDay(now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}

	return &models.TodayPercentage{
		Date:                 now.Format("2006-01-02"),
		TotalStudents:        total,
		PresentToday:         present,
		AttendancePercentage: formatPercentage(present, total),
	}, nil
}

// Students returns a roster page merged with today's attendance status.
func (s *AttendanceService) Students(ctx context.Context, claims *models.JWTClaims, req StudentListRequest) (*StudentListResult, error) {
	if !s.policy.CanViewSchoolReports(claims) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student query")
	}

	filter := models.StudentFilter{
		SchoolID:  claims.SchoolID,
		Class:     req.Class,
		Search:    req.Search,
		SortOrder: req.SortOrder,
		Page:      req.Page,
		Limit:     req.Limit,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	students, total, err := s.users.ListStudents(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	now := s.now()
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	statuses, err := s.attendance.TodayStatusByStudent(ctx, ids, startOfDay(now), endOfDay(now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's attendance")
	}

	merged := make([]models.StudentWithAttendance, 0, len(students))
	for _, st := range students {
		row := models.StudentWithAttendance{User: st}
		if ts, ok := statuses[st.ID]; ok {
			status := ts.Status
			row.AttendanceStatus = &status
			row.Remarks = ts.Notes
		}
		merged = append(merged, row)
	}

	return &StudentListResult{
		Students:   merged,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}
