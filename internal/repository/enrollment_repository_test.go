package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryEnroll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`INSERT INTO enrollments`).
		WithArgs("course-1", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.Enroll(context.Background(), "course-1", "user-1")
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	// ON CONFLICT DO NOTHING reports zero affected rows for a duplicate.
	mock.ExpectExec(`INSERT INTO enrollments`).
		WithArgs("course-1", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Enroll(context.Background(), "course-1", "user-1")
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUnenroll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`DELETE FROM enrollments WHERE course_id = \$1 AND user_id = \$2`).
		WithArgs("course-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Unenroll(context.Background(), "course-1", "user-1")
	require.NoError(t, err)
	require.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryIsEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM enrollments`).
		WithArgs("course-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	enrolled, err := repo.IsEnrolled(context.Background(), "course-1", "user-1")
	require.NoError(t, err)
	require.True(t, enrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryIsEnrolledMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM enrollments`).
		WithArgs("course-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	enrolled, err := repo.IsEnrolled(context.Background(), "course-1", "user-2")
	require.NoError(t, err)
	require.False(t, enrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkCompletedNotEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`UPDATE enrollments SET completed_at`).
		WithArgs("course-1", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	stamped, err := repo.MarkCompleted(context.Background(), "course-1", "user-1")
	require.NoError(t, err)
	require.False(t, stamped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"course_id", "user_id", "enrolled_at", "completed_at", "student_name", "student_email"}).
		AddRow("course-1", "user-1", time.Now(), nil, "Ada", "ada@example.com").
		AddRow("course-1", "user-2", time.Now(), nil, "Linus", "linus@example.com")
	mock.ExpectQuery(`FROM enrollments e JOIN users u ON u.id = e.user_id`).
		WithArgs("course-1").
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, "Ada", roster[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}
