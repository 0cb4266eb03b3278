package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/civoranexus/eduvillage-api/internal/models"
)

// EnrollmentRepository maintains the course roster. Each row is the single
// source of truth for both the course's roster and the student's enrolled
// list, and the composite primary key makes concurrent duplicate enrolls
// impossible.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll inserts a roster row. It returns false when the student was
// already enrolled: the conditional insert is a single atomic statement,
// not a read-modify-write.
func (r *EnrollmentRepository) Enroll(ctx context.Context, courseID, userID string) (bool, error) {
	const query = `INSERT INTO enrollments (course_id, user_id, enrolled_at)
        VALUES ($1, $2, $3) ON CONFLICT (course_id, user_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, courseID, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("enroll: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll rows affected: %w", err)
	}
	return affected == 1, nil
}

// Unenroll deletes a roster row, returning false when the student was not
// enrolled.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, courseID, userID string) (bool, error) {
	const query = `DELETE FROM enrollments WHERE course_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, courseID, userID)
	if err != nil {
		return false, fmt.Errorf("unenroll: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unenroll rows affected: %w", err)
	}
	return affected == 1, nil
}

// IsEnrolled reports whether the user is on the course roster.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE course_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// MarkCompleted stamps the enrollment as completed, returning false when
// the user is not enrolled.
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, courseID, userID string) (bool, error) {
	const query = `UPDATE enrollments SET completed_at = $3 WHERE course_id = $1 AND user_id = $2 AND completed_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, courseID, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark completed rows affected: %w", err)
	}
	return affected == 1, nil
}

// Roster returns the course roster with student display info, ordered by
// enrollment time.
func (r *EnrollmentRepository) Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.course_id, e.user_id, e.enrolled_at, e.completed_at,
        u.name AS student_name, u.email AS student_email
        FROM enrollments e JOIN users u ON u.id = e.user_id
        WHERE e.course_id = $1 ORDER BY e.enrolled_at ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return roster, nil
}

// CountByCourse returns the roster size.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count roster: %w", err)
	}
	return count, nil
}
