package service

import (
	"github.com/edusync/school-api/internal/models"
)

// AttendancePolicy centralizes who may read and write attendance data.
type AttendancePolicy struct{}

func NewAttendancePolicy() *AttendancePolicy {
	return &AttendancePolicy{}
}

// CanViewAttendance reports whether the actor may read attendance data
// belonging to the target student. Admins and teachers may read any
// student in their school; students may only read themselves; parents
// may only read their linked child.
func (p *AttendancePolicy) CanViewAttendance(actor *models.JWTClaims, target *models.User) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.SchoolID != target.SchoolID {
		return false
	}

	switch models.UserRole(actor.Role) {
	case models.RoleAdmin, models.RoleTeacher:
		return true
	case models.RoleStudent:
		return actor.UserID == target.ID
	case models.RoleParent:
		return target.ParentID != nil && *target.ParentID == actor.UserID
	default:
		return false
	}
}

// CanViewSchoolReports reports whether the actor may read aggregate
// attendance reports for the school.
func (p *AttendancePolicy) CanViewSchoolReports(actor *models.JWTClaims) bool {
	if actor == nil {
		return false
	}
	switch models.UserRole(actor.Role) {
	case models.RoleAdmin, models.RoleTeacher:
		return true
	default:
		return false
	}
}

// CanMarkAttendance reports whether the actor may write an attendance
// record for the target student.
func (p *AttendancePolicy) CanMarkAttendance(actor *models.JWTClaims, target *models.User) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.SchoolID != target.SchoolID {
		return false
	}
	switch models.UserRole(actor.Role) {
	case models.RoleAdmin, models.RoleTeacher:
		return true
	default:
		return false
	}
}
