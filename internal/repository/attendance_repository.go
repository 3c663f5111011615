package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edusync/school-api/internal/models"
)

// ErrDuplicateAttendance is returned when an insert loses the upsert race
// against the (student_id, date) uniqueness constraint.
var ErrDuplicateAttendance = errors.New("attendance record already exists for student and day")

const pqUniqueViolation = "23505"

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `a.id, a.student_id, a.teacher_id, a.school_id, a.class, a.subject, a.status,
        a.method, a.date, a.notes, a.marked_by, a.marked_at, a.nfc, a.created_at, a.updated_at`

// FindByStudentOnDay returns the student's record within the day window,
// or nil when none exists.
func (r *AttendanceRepository) FindByStudentOnDay(ctx context.Context, studentID string, start, end time.Time) (*models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance a WHERE a.student_id = $1 AND a.date >= $2 AND a.date <= $3`, attendanceColumns)
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, studentID, start, end); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find attendance for day: %w", err)
	}
	return &record, nil
}

// Insert stores a new attendance record. A unique violation on
// (student_id, date) is surfaced as ErrDuplicateAttendance so callers can
// retry as an update.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.Attendance) error {
	const query = `INSERT INTO attendance (id, student_id, teacher_id, school_id, class, subject, status, method, date, notes, marked_by, marked_at, nfc, created_at, updated_at)
VALUES (:id, :student_id, :teacher_id, :school_id, :class, :subject, :status, :method, :date, :notes, :marked_by, :marked_at, :nfc, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("insert attendance: %w", ErrDuplicateAttendance)
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// UpdateMark rewrites the mutable fields of an existing record in place;
// the record identity and (student, day) key never change.
func (r *AttendanceRepository) UpdateMark(ctx context.Context, record *models.Attendance) error {
	const query = `UPDATE attendance SET status = :status, subject = :subject, notes = :notes, teacher_id = :teacher_id,
        method = :method, marked_by = :marked_by, marked_at = :marked_at, nfc = :nfc, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// ClassCounts groups the window's records by the student's roster class,
// joined to the roster so soft-deleted and cross-school students are
// excluded. Classes with no events do not appear.
func (r *AttendanceRepository) ClassCounts(ctx context.Context, schoolID string, class *int, start, end time.Time) ([]models.ClassAttendanceCounts, error) {
	where := []string{"s.school_id = $1", "s.is_deleted = FALSE", "a.date >= $2", "a.date <= $3"}
	args := []interface{}{schoolID, start, end}
	if class != nil {
		where = append(where, fmt.Sprintf("s.class = $%d", len(args)+1))
		args = append(args, *class)
	}
	query := fmt.Sprintf(`SELECT COALESCE(s.class, 0) AS class,
        COUNT(*) FILTER (WHERE a.status = 'present') AS present,
        COUNT(*) FILTER (WHERE a.status = 'absent') AS absent,
        COUNT(*) FILTER (WHERE a.status = 'late') AS late,
        COUNT(*) AS total
FROM attendance a
JOIN users s ON s.id = a.student_id
WHERE %s
GROUP BY s.class
ORDER BY class`, strings.Join(where, " AND "))

	var counts []models.ClassAttendanceCounts
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("class attendance counts: %w", err)
	}
	return counts, nil
}

// DailySeries returns per-day totals over the window, ascending by date.
// Only days carrying at least one record appear.
func (r *AttendanceRepository) DailySeries(ctx context.Context, schoolID string, class *int, start, end time.Time) ([]models.DailyAttendanceStat, error) {
	where := []string{"s.school_id = $1", "s.is_deleted = FALSE", "a.date >= $2", "a.date <= $3"}
	args := []interface{}{schoolID, start, end}
	if class != nil {
		where = append(where, fmt.Sprintf("s.class = $%d", len(args)+1))
		args = append(args, *class)
	}
	query := fmt.Sprintf(`SELECT to_char(a.date, 'YYYY-MM-DD') AS date,
        COUNT(*) FILTER (WHERE a.status = 'present') AS total_present,
        COUNT(*) FILTER (WHERE a.status = 'absent') AS total_absent,
        COUNT(*) FILTER (WHERE a.status = 'late') AS total_late
FROM attendance a
JOIN users s ON s.id = a.student_id
WHERE %s
GROUP BY 1
ORDER BY 1 ASC`, strings.Join(where, " AND "))

	var series []models.DailyAttendanceStat
	if err := r.db.SelectContext(ctx, &series, query, args...); err != nil {
		return nil, fmt.Errorf("daily attendance series: %w", err)
	}
	return series, nil
}

// History returns one row per student: the student's most recent record
// matching the filter, joined to the roster, ordered by date descending
// with record identity as a stable tiebreak. The inner reduction sorts by
// date before picking, so the retained record is always the latest one
// regardless of storage iteration order.
func (r *AttendanceRepository) History(ctx context.Context, filter models.AttendanceHistoryFilter) ([]models.AttendanceHistoryRow, int, error) {
	inner := []string{"a.school_id = $1"}
	args := []interface{}{filter.SchoolID}
	if filter.TeacherID != "" {
		inner = append(inner, fmt.Sprintf("a.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DateFrom != nil {
		inner = append(inner, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		inner = append(inner, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	// Cross-tenant defence: the roster join re-checks school scope.
	outer := []string{"s.school_id = $1", "s.is_deleted = FALSE"}
	if filter.Class != nil {
		outer = append(outer, fmt.Sprintf("s.class = $%d", len(args)+1))
		args = append(args, *filter.Class)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		outer = append(outer, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(COALESCE(s.roll_number, '')) LIKE $%d)", idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base := fmt.Sprintf(`FROM (
    SELECT DISTINCT ON (a.student_id) %s
    FROM attendance a
    WHERE %s
    ORDER BY a.student_id, a.date DESC, a.id ASC
) a
JOIN users s ON s.id = a.student_id
LEFT JOIN users t ON t.id = a.teacher_id
WHERE %s`, attendanceColumns, strings.Join(inner, " AND "), strings.Join(outer, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.teacher_id, a.school_id, a.class, a.subject, a.status,
        a.method, a.date, a.notes, a.marked_by, a.marked_at, a.nfc, a.created_at, a.updated_at,
        s.name AS student_name, s.roll_number, t.name AS teacher_name
        %s
        ORDER BY a.date DESC, a.id ASC
        LIMIT %d OFFSET %d`, base, limit, offset)

	var rows []models.AttendanceHistoryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("attendance history: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance history: %w", err)
	}
	return rows, total, nil
}

// CountPresentOnDay counts present marks within the day window for the
// school's non-deleted students.
func (r *AttendanceRepository) CountPresentOnDay(ctx context.Context, schoolID string, start, end time.Time) (int, error) {
	const query = `SELECT COUNT(*)
FROM attendance a
JOIN users s ON s.id = a.student_id
WHERE a.status = 'present' AND a.date >= $2 AND a.date <= $3 AND s.school_id = $1 AND s.is_deleted = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolID, start, end); err != nil {
		return 0, fmt.Errorf("count present on day: %w", err)
	}
	return count, nil
}

// TodayStatusByStudent fetches the day's marks for a set of students,
// keyed by student, for merging into a roster page.
func (r *AttendanceRepository) TodayStatusByStudent(ctx context.Context, studentIDs []string, start, end time.Time) (map[string]models.TodayStatus, error) {
	if len(studentIDs) == 0 {
		return map[string]models.TodayStatus{}, nil
	}
	query, args, err := sqlx.In(`SELECT a.student_id, a.status, a.notes FROM attendance a WHERE a.student_id IN (?) AND a.date >= ? AND a.date <= ?`,
		studentIDs, start, end)
	if err != nil {
		return nil, fmt.Errorf("build today status query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.TodayStatus
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("today status by student: %w", err)
	}
	result := make(map[string]models.TodayStatus, len(rows))
	for _, row := range rows {
		result[row.StudentID] = row
	}
	return result, nil
}
