package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusync/school-api/internal/models"
)

func newAttendanceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "student_id", "teacher_id", "school_id", "class", "subject", "status", "method", "date", "notes", "marked_by", "marked_at", "nfc", "created_at", "updated_at"}).
		AddRow("att-1", "stu-1", "teacher-1", "school-1", 5, "Math", "present", "manual", now, "", "Ms. Rivera", now, false, now, now)
}

func TestAttendanceRepositoryFindByStudentOnDay(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	end := time.Date(2026, 3, 10, 23, 59, 59, 999000000, time.Local)

	mock.ExpectQuery(`(?s)SELECT .+ FROM attendance a WHERE a\.student_id = \$1 AND a\.date >= \$2 AND a\.date <= \$3`).
		WithArgs("stu-1", start, end).
		WillReturnRows(attendanceRows())

	record, err := repo.FindByStudentOnDay(context.Background(), "stu-1", start, end)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "att-1", record.ID)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryFindByStudentOnDayAbsent(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(`(?s)SELECT .+ FROM attendance a WHERE a\.student_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	record, err := repo.FindByStudentOnDay(context.Background(), "stu-1", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), &models.Attendance{ID: "att-1", StudentID: "stu-1", SchoolID: "school-1", Status: models.AttendanceStatusPresent, Method: models.AttendanceMethodManual})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsertDuplicate(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "attendance_student_id_date_key"})

	err := repo.Insert(context.Background(), &models.Attendance{ID: "att-1", StudentID: "stu-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateAttendance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpdateMark(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("UPDATE attendance SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateMark(context.Background(), &models.Attendance{ID: "att-1", Status: models.AttendanceStatusLate})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryClassCounts(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	end := time.Date(2026, 3, 10, 23, 59, 59, 999000000, time.Local)
	class := 5

	rows := sqlmock.NewRows([]string{"class", "present", "absent", "late", "total"}).
		AddRow(5, 2, 1, 0, 3)
	mock.ExpectQuery(`SELECT COALESCE\(s\.class, 0\) AS class`).
		WithArgs("school-1", start, end, class).
		WillReturnRows(rows)

	counts, err := repo.ClassCounts(context.Background(), "school-1", &class, start, end)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 2, counts[0].Present)
	assert.Equal(t, 3, counts[0].Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDailySeries(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"date", "total_present", "total_absent", "total_late"}).
		AddRow("2026-03-09", 3, 0, 0).
		AddRow("2026-03-10", 2, 1, 0)
	mock.ExpectQuery(`SELECT to_char\(a\.date, 'YYYY-MM-DD'\) AS date`).
		WithArgs("school-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	series, err := repo.DailySeries(context.Background(), "school-1", nil, time.Now().AddDate(0, 0, -6), time.Now())
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2026-03-09", series[0].Date)
	assert.Equal(t, "2026-03-10", series[1].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryHistory(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "teacher_id", "school_id", "class", "subject", "status", "method", "date", "notes", "marked_by", "marked_at", "nfc", "created_at", "updated_at", "student_name", "roll_number", "teacher_name"}).
		AddRow("att-2", "stu-2", nil, "school-1", 5, "", "absent", "manual", now, "", "", now, false, now, now, "Ben Okafor", "13", nil).
		AddRow("att-1", "stu-1", "teacher-1", "school-1", 5, "Math", "present", "manual", now.AddDate(0, 0, -1), "", "Ms. Rivera", now, false, now, now, "Asha Patel", "12", "Ms. Rivera")

	// The inner reduction keeps one row per student, picked by recency.
	mock.ExpectQuery(`SELECT DISTINCT ON \(a\.student_id\)`).
		WithArgs("school-1").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM \(`).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	history, total, err := repo.History(context.Background(), models.AttendanceHistoryFilter{SchoolID: "school-1"})
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Ben Okafor", history[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryHistoryFilters(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2026, 3, 10, 23, 59, 59, 999000000, time.Local)
	class := 5

	mock.ExpectQuery(`SELECT DISTINCT ON \(a\.student_id\)`).
		WithArgs("school-1", "teacher-1", from, to, class, "%asha%").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM \(`).
		WithArgs("school-1", "teacher-1", from, to, class, "%asha%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.History(context.Background(), models.AttendanceHistoryFilter{
		SchoolID:  "school-1",
		TeacherID: "teacher-1",
		DateFrom:  &from,
		DateTo:    &to,
		Class:     &class,
		Search:    "Asha",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountPresentOnDay(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("school-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountPresentOnDay(context.Background(), "school-1", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryTodayStatusByStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "status", "notes"}).
		AddRow("stu-1", "present", "on time")
	mock.ExpectQuery(`SELECT a\.student_id, a\.status, a\.notes FROM attendance a WHERE a\.student_id IN`).
		WillReturnRows(rows)

	statuses, err := repo.TodayStatusByStudent(context.Background(), []string{"stu-1", "stu-2"}, time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, models.AttendanceStatusPresent, statuses["stu-1"].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryTodayStatusEmptyInput(t *testing.T) {
	db, _, cleanup := newAttendanceMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	statuses, err := repo.TodayStatusByStudent(context.Background(), nil, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
