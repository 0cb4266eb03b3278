package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/civoranexus/eduvillage-api/internal/models"
)

var courseRows = []string{
	"id", "title", "description", "instructor_id", "category", "level", "status",
	"thumbnail_url", "price", "duration_hours", "rating", "created_at", "updated_at",
	"total_students", "instructor_name", "instructor_avatar",
}

func addCourseRow(rows *sqlmock.Rows, id, title string, students int) *sqlmock.Rows {
	return rows.AddRow(id, title, "desc", "inst-1", "web-development", "beginner", "published",
		"", 0.0, 0.0, 4.5, time.Now(), time.Now(), students, "Grace", "")
}

func TestCourseRepositoryListPublishedOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := addCourseRow(sqlmock.NewRows(courseRows), "course-1", "Go Basics", 3)
	mock.ExpectQuery(`WHERE c\.status = \$1 ORDER BY c\.created_at DESC LIMIT 12 OFFSET 0`).
		WithArgs(models.CourseStatusPublished).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM courses c WHERE c\.status = \$1`).
		WithArgs(models.CourseStatusPublished).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, 1, total)
	require.Equal(t, 3, courses[0].TotalStudents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListFiltersCombine(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows(courseRows)
	mock.ExpectQuery(`c\.status = \$1 AND c\.category = \$2 AND c\.level = \$3 AND \(c\.title ILIKE \$4 OR c\.description ILIKE \$4\)`).
		WithArgs(models.CourseStatusPublished, models.CategoryWebDevelopment, models.LevelBeginner, "%go%").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM courses c`).
		WithArgs(models.CourseStatusPublished, models.CategoryWebDevelopment, models.LevelBeginner, "%go%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{
		Category: models.CategoryWebDevelopment,
		Level:    models.LevelBeginner,
		Search:   "go",
	})
	require.NoError(t, err)
	require.Empty(t, courses)
	require.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListPopularSort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := addCourseRow(sqlmock.NewRows(courseRows), "course-2", "Crowded", 40)
	mock.ExpectQuery(`ORDER BY total_students DESC, c\.created_at DESC LIMIT 5 OFFSET 5`).
		WithArgs(models.CourseStatusPublished).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM courses c`).
		WithArgs(models.CourseStatusPublished).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Sort: models.SortPopular, Page: 2, Limit: 5})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, 6, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByInstructorHidesDrafts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows(courseRows)
	mock.ExpectQuery(`WHERE c\.instructor_id = \$1 AND c\.status = \$2 ORDER BY c\.created_at DESC`).
		WithArgs("inst-1", models.CourseStatusPublished).
		WillReturnRows(rows)

	_, err := repo.ListByInstructor(context.Background(), "inst-1", false)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListEnrolledByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := addCourseRow(sqlmock.NewRows(courseRows), "course-1", "Go Basics", 3)
	mock.ExpectQuery(`JOIN enrollments en ON en\.course_id = c\.id\s+WHERE en\.user_id = \$1 ORDER BY en\.enrolled_at DESC`).
		WithArgs("user-1").
		WillReturnRows(rows)

	courses, err := repo.ListEnrolledByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(`DELETE FROM courses WHERE id = \$1`).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
