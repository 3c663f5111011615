package models

import "time"

// AttendanceStatus is the status vocabulary for attendance records. It is
// an extensible string enum; Valid covers the values accepted on write.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusLeave   AttendanceStatus = "leave"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusLeave:
		return true
	default:
		return false
	}
}

// AttendanceMethod records how an attendance mark was produced.
type AttendanceMethod string

const (
	AttendanceMethodManual AttendanceMethod = "manual"
	AttendanceMethodURL    AttendanceMethod = "url"
)

// Valid returns true when the method is a supported value.
func (m AttendanceMethod) Valid() bool {
	return m == AttendanceMethodManual || m == AttendanceMethodURL
}

// Attendance is one attendance fact: at most one record exists per
// (student, day); the date column is normalised to local midnight and the
// pair carries a unique constraint.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	TeacherID *string          `db:"teacher_id" json:"teacher_id,omitempty"`
	SchoolID  string           `db:"school_id" json:"school_id"`
	Class     int              `db:"class" json:"class"`
	Subject   string           `db:"subject" json:"subject,omitempty"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Method    AttendanceMethod `db:"method" json:"method"`
	Date      time.Time        `db:"date" json:"date"`
	Notes     string           `db:"notes" json:"notes,omitempty"`
	MarkedBy  string           `db:"marked_by" json:"marked_by,omitempty"`
	MarkedAt  time.Time        `db:"marked_at" json:"marked_at"`
	NFC       bool             `db:"nfc" json:"nfc"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceHistoryFilter scopes deduplicated history queries. The school
// scope is always applied; TeacherID restricts to records the given actor
// marked (self mode).
type AttendanceHistoryFilter struct {
	SchoolID  string
	TeacherID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Class     *int
	Search    string
	Page      int
	Limit     int
}

// AttendanceHistoryRow is one history row: a student's single most recent
// matching record joined with roster display fields.
type AttendanceHistoryRow struct {
	Attendance
	StudentName string  `db:"student_name" json:"student_name"`
	RollNumber  *string `db:"roll_number" json:"roll_number,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// ClassAttendanceCounts is the event-side grouping for one class and day
// window: only classes with at least one record appear.
type ClassAttendanceCounts struct {
	Class   int `db:"class" json:"class"`
	Present int `db:"present" json:"present"`
	Absent  int `db:"absent" json:"absent"`
	Late    int `db:"late" json:"late"`
	Total   int `db:"total" json:"total"`
}

// ClassStudentCount is the roster-side grouping: students per class.
type ClassStudentCount struct {
	Class         int `db:"class" json:"class"`
	TotalStudents int `db:"total_students" json:"totalStudents"`
}

// DailyAttendanceStat is one entry of the trailing-window time series.
type DailyAttendanceStat struct {
	Date         string `db:"date" json:"date"`
	TotalPresent int    `db:"total_present" json:"totalPresent"`
	TotalAbsent  int    `db:"total_absent" json:"totalAbsent"`
	TotalLate    int    `db:"total_late" json:"totalLate"`
}

// ClassStats is the per-class slice of a StatsResult.
type ClassStats struct {
	Present              int    `json:"present"`
	Absent               int    `json:"absent"`
	Late                 int    `json:"late"`
	Total                int    `json:"total"`
	TotalStudents        int    `json:"totalStudents"`
	AttendancePercentage string `json:"attendancePercentage"`
}

// OverallStats sums the per-class counts; the percentage denominator is
// the roster's total student count, not the count of records seen.
type OverallStats struct {
	TotalStudents               int    `json:"totalStudents"`
	TotalPresent                int    `json:"totalPresent"`
	TotalAbsent                 int    `json:"totalAbsent"`
	TotalLate                   int    `json:"totalLate"`
	OverallAttendancePercentage string `json:"overallAttendancePercentage"`
}

// TodayStats carries the single-day portion of a StatsResult.
type TodayStats struct {
	Date      string             `json:"date"`
	ClassWise map[int]ClassStats `json:"classWise"`
	Overall   OverallStats       `json:"overall"`
}

// StatsResult is the full statistics payload: single-day class breakdown
// plus the trailing daily series, ascending by date.
type StatsResult struct {
	Daily []DailyAttendanceStat `json:"daily"`
	Today TodayStats            `json:"today"`
}

// TodayPercentage is the simple today-only presence summary.
type TodayPercentage struct {
	Date                 string `json:"date"`
	TotalStudents        int    `json:"totalStudents"`
	PresentToday         int    `json:"presentToday"`
	AttendancePercentage string `json:"attendancePercentage"`
}

// StudentWithAttendance decorates a roster entry with today's mark.
type StudentWithAttendance struct {
	User
	AttendanceStatus *AttendanceStatus `json:"attendanceStatus"`
	Remarks          string            `json:"remarks"`
}

// TodayStatus is the per-student projection used to merge today's marks
// into a roster page.
type TodayStatus struct {
	StudentID string           `db:"student_id"`
	Status    AttendanceStatus `db:"status"`
	Notes     string           `db:"notes"`
}
