package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/civoranexus/eduvillage-api/internal/models"
)

// courseColumns selects a course row with the derived roster count. The
// count is computed from the enrollments table on every read so it can
// never drift from the roster itself.
const courseColumns = `c.id, c.title, c.description, c.instructor_id, c.category, c.level, c.status,
        c.thumbnail_url, c.price, c.duration_hours, c.rating, c.created_at, c.updated_at,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS total_students`

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, title, description, instructor_id, category, level, status, thumbnail_url, price, duration_hours, rating, created_at, updated_at)
        VALUES (:id, :title, :description, :instructor_id, :category, :level, :status, :thumbnail_url, :price, :duration_hours, :rating, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns a course by its id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c WHERE c.id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetailByID returns a course with instructor display info.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.name AS instructor_name, u.avatar_url AS instructor_avatar
        FROM courses c JOIN users u ON u.id = c.instructor_id WHERE c.id = $1`, courseColumns)
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns published courses matching the filter, plus the total count
// for pagination. Filters combine with AND; drafts are never eligible here.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	conditions := []string{"c.status = $1"}
	args := []interface{}{models.CourseStatusPublished}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("c.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("c.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(c.title ILIKE $%d OR c.description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	orderBy := "c.created_at DESC"
	switch filter.Sort {
	case models.SortOldest:
		orderBy = "c.created_at ASC"
	case models.SortPopular:
		orderBy = "total_students DESC, c.created_at DESC"
	case models.SortRating:
		orderBy = "c.rating DESC, c.created_at DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 12
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s, u.name AS instructor_name, u.avatar_url AS instructor_avatar
        FROM courses c JOIN users u ON u.id = c.instructor_id%s ORDER BY %s LIMIT %d OFFSET %d`,
		courseColumns, clause, orderBy, limit, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM courses c%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ListByInstructor returns an instructor's courses, optionally including
// drafts when the instructor themselves (or an admin) is asking.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID string, includeDrafts bool) ([]models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.name AS instructor_name, u.avatar_url AS instructor_avatar
        FROM courses c JOIN users u ON u.id = c.instructor_id WHERE c.instructor_id = $1`, courseColumns)
	args := []interface{}{instructorID}
	if !includeDrafts {
		query += " AND c.status = $2"
		args = append(args, models.CourseStatusPublished)
	}
	query += " ORDER BY c.created_at DESC"

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	return courses, nil
}

// ListEnrolledByUser returns the courses a user is enrolled in.
func (r *CourseRepository) ListEnrolledByUser(ctx context.Context, userID string) ([]models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.name AS instructor_name, u.avatar_url AS instructor_avatar
        FROM courses c
        JOIN users u ON u.id = c.instructor_id
        JOIN enrollments en ON en.course_id = c.id
        WHERE en.user_id = $1 ORDER BY en.enrolled_at DESC`, courseColumns)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	return courses, nil
}

// Update persists mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, description = :description, category = :category,
        level = :level, status = :status, thumbnail_url = :thumbnail_url, price = :price,
        duration_hours = :duration_hours, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course. Enrollments and lectures are removed by the
// database through ON DELETE CASCADE, so roster and creator cleanup happen
// atomically with the course row.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM courses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
