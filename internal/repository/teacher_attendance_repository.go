package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edusync/school-api/internal/models"
)

// TeacherAttendanceRepository handles persistence for teacher
// check-in/check-out records.
type TeacherAttendanceRepository struct {
	db *sqlx.DB
}

// NewTeacherAttendanceRepository constructs the repository.
func NewTeacherAttendanceRepository(db *sqlx.DB) *TeacherAttendanceRepository {
	return &TeacherAttendanceRepository{db: db}
}

const teacherAttendanceColumns = `ta.id, ta.user_id, ta.school_id, ta.name, ta.date, ta.check_in, ta.check_out, ta.status, ta.created_at`

// FindByUserOnDate returns the user's record for the given day, or nil.
func (r *TeacherAttendanceRepository) FindByUserOnDate(ctx context.Context, userID, schoolID, date string) (*models.TeacherAttendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM teacher_attendance ta WHERE ta.user_id = $1 AND ta.school_id = $2 AND ta.date = $3`, teacherAttendanceColumns)
	var record models.TeacherAttendance
	if err := r.db.GetContext(ctx, &record, query, userID, schoolID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find teacher attendance: %w", err)
	}
	return &record, nil
}

// Create stores a new check-in record.
func (r *TeacherAttendanceRepository) Create(ctx context.Context, record *models.TeacherAttendance) error {
	const query = `INSERT INTO teacher_attendance (id, user_id, school_id, name, date, check_in, check_out, status, created_at)
VALUES (:id, :user_id, :school_id, :name, :date, :check_in, :check_out, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create teacher attendance: %w", err)
	}
	return nil
}

// SetCheckOut records the check-out time on an existing record.
func (r *TeacherAttendanceRepository) SetCheckOut(ctx context.Context, id string, checkOut time.Time) error {
	const query = `UPDATE teacher_attendance SET check_out = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, checkOut); err != nil {
		return fmt.Errorf("set teacher check-out: %w", err)
	}
	return nil
}

// List returns paginated check-in records for a school, optionally
// filtered by name search and date.
func (r *TeacherAttendanceRepository) List(ctx context.Context, filter models.TeacherAttendanceFilter) ([]models.TeacherAttendance, int, error) {
	base := "FROM teacher_attendance ta"
	where := []string{"ta.school_id = $1"}
	args := []interface{}{filter.SchoolID}
	if filter.Name != "" {
		where = append(where, fmt.Sprintf("LOWER(ta.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Date != "" {
		where = append(where, fmt.Sprintf("ta.date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY ta.created_at DESC LIMIT %d OFFSET %d`,
		teacherAttendanceColumns, base, whereClause, limit, offset)

	var records []models.TeacherAttendance
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teacher attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teacher attendance: %w", err)
	}
	return records, total, nil
}
