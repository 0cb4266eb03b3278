package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civoranexus/eduvillage-api/internal/models"
)

// ErrLectureNotInCourse signals a reorder pair referencing a lecture that
// does not belong to the target course.
var ErrLectureNotInCourse = errors.New("lecture does not belong to course")

// LectureRepository handles persistence of lectures.
type LectureRepository struct {
	db *sqlx.DB
}

// NewLectureRepository constructs the repository.
func NewLectureRepository(db *sqlx.DB) *LectureRepository {
	return &LectureRepository{db: db}
}

// Create persists a new lecture record.
func (r *LectureRepository) Create(ctx context.Context, lecture *models.Lecture) error {
	if lecture.ID == "" {
		lecture.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lecture.CreatedAt.IsZero() {
		lecture.CreatedAt = now
	}
	lecture.UpdatedAt = now
	const query = `INSERT INTO lectures (id, title, video_url, course_id, instructor_id, position, created_at, updated_at)
        VALUES (:id, :title, :video_url, :course_id, :instructor_id, :position, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lecture); err != nil {
		return fmt.Errorf("create lecture: %w", err)
	}
	return nil
}

// FindByID returns a lecture by its id.
func (r *LectureRepository) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	const query = `SELECT id, title, video_url, course_id, instructor_id, position, created_at, updated_at
        FROM lectures WHERE id = $1`
	var lecture models.Lecture
	if err := r.db.GetContext(ctx, &lecture, query, id); err != nil {
		return nil, err
	}
	return &lecture, nil
}

// ListByCourse returns a course's lectures in stable display order:
// position ascending with creation time, then id, breaking ties.
func (r *LectureRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Lecture, error) {
	const query = `SELECT id, title, video_url, course_id, instructor_id, position, created_at, updated_at
        FROM lectures WHERE course_id = $1 ORDER BY position ASC, created_at ASC, id ASC`
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, query, courseID); err != nil {
		return nil, fmt.Errorf("list lectures: %w", err)
	}
	return lectures, nil
}

// ListByInstructor returns every lecture the instructor owns across all of
// their courses, most recent first.
func (r *LectureRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.Lecture, error) {
	const query = `SELECT id, title, video_url, course_id, instructor_id, position, created_at, updated_at
        FROM lectures WHERE instructor_id = $1 ORDER BY created_at DESC, id DESC`
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, query, instructorID); err != nil {
		return nil, fmt.Errorf("list instructor lectures: %w", err)
	}
	return lectures, nil
}

// Update persists mutable lecture fields. Course and instructor references
// are immutable.
func (r *LectureRepository) Update(ctx context.Context, lecture *models.Lecture) error {
	lecture.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lectures SET title = :title, video_url = :video_url, position = :position, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lecture); err != nil {
		return fmt.Errorf("update lecture: %w", err)
	}
	return nil
}

// Delete removes a lecture.
func (r *LectureRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lectures WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lecture: %w", err)
	}
	return nil
}

// Reorder applies a batch of position changes inside one transaction. Every
// update is scoped to the course; if any pair references a lecture outside
// the course the whole batch rolls back untouched.
func (r *LectureRepository) Reorder(ctx context.Context, courseID string, orders []models.LectureOrder) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const query = `UPDATE lectures SET position = $3, updated_at = $4 WHERE id = $1 AND course_id = $2`
	for _, order := range orders {
		res, err := tx.ExecContext(ctx, query, order.LectureID, courseID, order.Order, now)
		if err != nil {
			return fmt.Errorf("reorder lecture %s: %w", order.LectureID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reorder rows affected: %w", err)
		}
		if affected != 1 {
			return fmt.Errorf("lecture %s: %w", order.LectureID, ErrLectureNotInCourse)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}
