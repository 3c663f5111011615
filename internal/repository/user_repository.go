package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/edusync/school-api/internal/models"
)

// UserRepository handles persistence for roster entries.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.school_id, u.name, u.role, u.email, u.username, u.phone, u.password_hash,
        u.class, u.roll_number, u.parent_id, u.status, u.photo, u.is_deleted, u.created_at, u.updated_at`

// ListStudents returns a roster page of non-deleted students scoped to one
// school, optionally filtered by class and free-text search.
func (r *UserRepository) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.User, int, error) {
	base := "FROM users u"
	where := []string{"u.role = $1", "u.is_deleted = FALSE", "u.school_id = $2"}
	args := []interface{}{models.RoleStudent, filter.SchoolID}

	if filter.Class != nil {
		where = append(where, fmt.Sprintf("u.class = $%d", len(args)+1))
		args = append(args, *filter.Class)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		where = append(where, fmt.Sprintf(
			"(LOWER(u.name) LIKE $%d OR LOWER(COALESCE(u.roll_number, '')) LIKE $%d OR LOWER(u.username) LIKE $%d OR LOWER(u.email) LIKE $%d OR u.phone LIKE $%d)",
			idx, idx, idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	whereClause := strings.Join(where, " AND ")

	order := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY u.class %s, u.name ASC LIMIT %d OFFSET %d`,
		userColumns, base, whereClause, order, limit, offset)

	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// CountStudentsByClass groups the school's non-deleted students by class.
// Every roster class appears, regardless of attendance events.
func (r *UserRepository) CountStudentsByClass(ctx context.Context, schoolID string, class *int) ([]models.ClassStudentCount, error) {
	where := []string{"u.role = $1", "u.is_deleted = FALSE", "u.school_id = $2"}
	args := []interface{}{models.RoleStudent, schoolID}
	if class != nil {
		where = append(where, fmt.Sprintf("u.class = $%d", len(args)+1))
		args = append(args, *class)
	}
	query := fmt.Sprintf(`SELECT COALESCE(u.class, 0) AS class, COUNT(*) AS total_students
FROM users u WHERE %s GROUP BY u.class ORDER BY class`, strings.Join(where, " AND "))

	var counts []models.ClassStudentCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count students by class: %w", err)
	}
	return counts, nil
}

// CountStudents returns the school's total non-deleted student count.
func (r *UserRepository) CountStudents(ctx context.Context, schoolID string) (int, error) {
	const query = `SELECT COUNT(*) FROM users u WHERE u.role = $1 AND u.is_deleted = FALSE AND u.school_id = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, models.RoleStudent, schoolID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// FindByID fetches a roster entry by ID. Soft-deleted entries are not
// returned.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u WHERE u.id = $1 AND u.is_deleted = FALSE`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByEmail fetches a roster entry by email for authentication.
// Unknown emails are not an error.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u WHERE LOWER(u.email) = LOWER($1) AND u.is_deleted = FALSE`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}
