package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edusync/school-api/internal/models"
	"github.com/edusync/school-api/pkg/config"
	appErrors "github.com/edusync/school-api/pkg/errors"
)

// TeacherAttendanceRepository is the staff check-in store.
type TeacherAttendanceRepository interface {
	FindByUserOnDate(ctx context.Context, userID, schoolID, date string) (*models.TeacherAttendance, error)
	Create(ctx context.Context, record *models.TeacherAttendance) error
	SetCheckOut(ctx context.Context, id string, checkOut time.Time) error
	List(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendance, int, error)
}

// ScanResult reports the outcome of one badge scan.
type ScanResult struct {
	Action string                    `json:"action"`
	Record *models.TeacherAttendance `json:"record"`
}

// TeacherListResult is one page of staff check-in records.
type TeacherListResult struct {
	Records    []models.TeacherAttendance `json:"records"`
	Pagination *models.Pagination         `json:"pagination"`
}

// TeacherNotification flags a late check-in or a missing check-out.
type TeacherNotification struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TeacherAttendanceService handles staff check-in and check-out scans.
type TeacherAttendanceService struct {
	repo   TeacherAttendanceRepository
	users  UserRepository
	cfg    config.AttendanceConfig
	logger *zap.Logger
	now    func() time.Time

	idGen func() string
}

func NewTeacherAttendanceService(repo TeacherAttendanceRepository, users UserRepository, cfg config.AttendanceConfig, logger *zap.Logger, idGen func() string) *TeacherAttendanceService {
	return &TeacherAttendanceService{
		repo:   repo,
		users:  users,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		idGen:  idGen,
	}
}

// WithClock overrides the service clock.
func (s *TeacherAttendanceService) WithClock(now func() time.Time) *TeacherAttendanceService {
	s.now = now
	return s
}

// lateCutoff resolves the configured HH:MM cutoff on the given day.
func (s *TeacherAttendanceService) lateCutoff(day time.Time) (time.Time, error) {
	cutoff := s.cfg.LateCheckInCutoff
	if cutoff == "" {
		cutoff = "09:30"
	}
	parsed, err := time.Parse("15:04", cutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid late cutoff %q: %w", cutoff, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}

// Scan processes one badge scan for the given teacher. The first scan of
// the day checks in (late when after the cutoff), the second checks out,
// and any further scan is a conflict.
func (s *TeacherAttendanceService) Scan(ctx context.Context, claims *models.JWTClaims, userID string) (*ScanResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if userID == "" {
		userID = claims.UserID
	}
	// Teachers scan for themselves; admins may scan on behalf of staff.
	if userID != claims.UserID && models.UserRole(claims.Role) != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	teacher, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher == nil || teacher.IsDeleted || teacher.SchoolID != claims.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}

	now := s.now()
	today := now.Format("2006-01-02")

	existing, err := s.repo.FindByUserOnDate(ctx, teacher.ID, teacher.SchoolID, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing scan")
	}

	if existing == nil {
		cutoff, err := s.lateCutoff(now)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "misconfigured check-in cutoff")
		}
		status := models.TeacherAttendancePresent
		if now.After(cutoff) {
			status = models.TeacherAttendanceLate
		}
		record := &models.TeacherAttendance{
			ID:        s.idGen(),
			UserID:    teacher.ID,
			SchoolID:  teacher.SchoolID,
			Name:      teacher.Name,
			Date:      today,
			CheckIn:   now,
			Status:    status,
			CreatedAt: now,
		}
		if err := s.repo.Create(ctx, record); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
		}
		s.logger.Info("teacher checked in",
			zap.String("user_id", teacher.ID),
			zap.String("status", string(status)))
		return &ScanResult{Action: "check-in", Record: record}, nil
	}

	if existing.CheckOut == nil {
		if err := s.repo.SetCheckOut(ctx, existing.ID, now); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-out")
		}
		existing.CheckOut = &now
		return &ScanResult{Action: "check-out", Record: existing}, nil
	}

	return nil, appErrors.Clone(appErrors.ErrConflict, "already checked in and out today")
}

// ListToday returns today's staff check-ins for the admin dashboard.
func (s *TeacherAttendanceService) ListToday(ctx context.Context, claims *models.JWTClaims, name, date string, page, limit int) (*TeacherListResult, error) {
	if claims == nil || models.UserRole(claims.Role) != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	if date == "" {
		date = s.now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	records, total, err := s.repo.List(ctx, models.TeacherAttendanceFilter{
		SchoolID: claims.SchoolID,
		Name:     name,
		Date:     date,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff attendance")
	}

	return &TeacherListResult{
		Records:    records,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

// Notifications flags today's late check-ins and missing check-outs.
func (s *TeacherAttendanceService) Notifications(ctx context.Context, claims *models.JWTClaims) ([]TeacherNotification, error) {
	if claims == nil || models.UserRole(claims.Role) != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	now := s.now()
	records, _, err := s.repo.List(ctx, models.TeacherAttendanceFilter{
		SchoolID: claims.SchoolID,
		Date:     now.Format("2006-01-02"),
		Page:     1,
		Limit:    1000,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff attendance")
	}

	notifications := make([]TeacherNotification, 0)
	for _, rec := range records {
		if rec.Status == models.TeacherAttendanceLate {
			notifications = append(notifications, TeacherNotification{
				UserID:  rec.UserID,
				Name:    rec.Name,
				Type:    "late-check-in",
				Message: fmt.Sprintf("%s checked in late at %s", rec.Name, rec.CheckIn.Format("15:04")),
			})
		}
		if rec.CheckOut == nil {
			notifications = append(notifications, TeacherNotification{
				UserID:  rec.UserID,
				Name:    rec.Name,
				Type:    "missing-check-out",
				Message: fmt.Sprintf("%s has not checked out", rec.Name),
			})
		}
	}
	return notifications, nil
}
