package models

import (
	"math"
	"time"
)

// UserRole represents the available roles.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
	RoleParent  UserRole = "parent"
)

// Valid reports whether the role is one of the supported values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	default:
		return false
	}
}

// User represents a roster entry stored in the users table. Class and
// roll number are populated for students only.
type User struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	Name         string    `db:"name" json:"name"`
	Role         UserRole  `db:"role" json:"role"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	Phone        string    `db:"phone" json:"phone"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Class        *int      `db:"class" json:"class,omitempty"`
	RollNumber   *string   `db:"roll_number" json:"roll_number,omitempty"`
	ParentID     *string   `db:"parent_id" json:"parent_id,omitempty"`
	Status       string    `db:"status" json:"status"`
	Photo        string    `db:"photo" json:"photo,omitempty"`
	IsDeleted    bool      `db:"is_deleted" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures roster listing criteria. Search matches name,
// roll number, username, email and phone case-insensitively.
type StudentFilter struct {
	SchoolID  string
	Class     *int
	Search    string
	SortOrder string
	Page      int
	Limit     int
}

// Pagination is the page metadata contract: pages = ceil(total/limit).
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes page metadata for a total row count.
func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
