package models

import "time"

// TeacherAttendanceStatus is derived from the check-in time relative to
// the configured late cutoff.
type TeacherAttendanceStatus string

const (
	TeacherAttendancePresent TeacherAttendanceStatus = "present"
	TeacherAttendanceLate    TeacherAttendanceStatus = "late"
)

// TeacherAttendance is one check-in/check-out record per (user, day).
// Date is stored as a YYYY-MM-DD string, matching the scan contract.
type TeacherAttendance struct {
	ID        string                  `db:"id" json:"id"`
	UserID    string                  `db:"user_id" json:"user_id"`
	SchoolID  string                  `db:"school_id" json:"school_id"`
	Name      string                  `db:"name" json:"name"`
	Date      string                  `db:"date" json:"date"`
	CheckIn   time.Time               `db:"check_in" json:"check_in"`
	CheckOut  *time.Time              `db:"check_out" json:"check_out,omitempty"`
	Status    TeacherAttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time               `db:"created_at" json:"created_at"`
}

// TeacherAttendanceFilter scopes check-in listing queries.
type TeacherAttendanceFilter struct {
	SchoolID string
	Name     string
	Date     string
	Page     int
	Limit    int
}
