package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civoranexus/eduvillage-api/internal/models"
	"github.com/civoranexus/eduvillage-api/internal/repository"
	appErrors "github.com/civoranexus/eduvillage-api/pkg/errors"
)

type mockLectureRepo struct {
	lecture     *models.Lecture
	listed      []models.Lecture
	created     *models.Lecture
	updated     *models.Lecture
	deletedID   string
	reorderErr  error
	reorderedIn string
	lastOrders  []models.LectureOrder
}

func (m *mockLectureRepo) Create(ctx context.Context, lecture *models.Lecture) error {
	lecture.ID = "lec-new"
	m.created = lecture
	return nil
}

func (m *mockLectureRepo) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	if m.lecture == nil || m.lecture.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *m.lecture
	return &copied, nil
}

func (m *mockLectureRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Lecture, error) {
	return m.listed, nil
}

func (m *mockLectureRepo) ListByInstructor(ctx context.Context, instructorID string) ([]models.Lecture, error) {
	return m.listed, nil
}

func (m *mockLectureRepo) Update(ctx context.Context, lecture *models.Lecture) error {
	m.updated = lecture
	return nil
}

func (m *mockLectureRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *mockLectureRepo) Reorder(ctx context.Context, courseID string, orders []models.LectureOrder) error {
	if m.reorderErr != nil {
		return m.reorderErr
	}
	m.reorderedIn = courseID
	m.lastOrders = orders
	return nil
}

func newLectureService(repo *mockLectureRepo, courses *mockCourseRepo, enrollments *mockEnrollmentRepo) *LectureService {
	return NewLectureService(repo, courses, enrollments, nil, nil)
}

func TestLectureServiceListRequiresAuth(t *testing.T) {
	svc := newLectureService(&mockLectureRepo{}, &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}, &mockEnrollmentRepo{})

	_, err := svc.ListByCourse(context.Background(), "course-1", nil)
	require.Error(t, err)
	assert.Equal(t, 401, appErrors.FromError(err).Status)
}

func TestLectureServiceListStudentGating(t *testing.T) {
	courses := &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}
	listed := []models.Lecture{{ID: "lec-1", CourseID: "course-1", Position: 0}}

	// Not enrolled: the lectures stay hidden.
	svc := newLectureService(&mockLectureRepo{listed: listed}, courses, &mockEnrollmentRepo{enrolled: false})
	_, err := svc.ListByCourse(context.Background(), "course-1", studentClaims("user-1"))
	require.Error(t, err)
	assert.Equal(t, 403, appErrors.FromError(err).Status)

	// Enrolled: full access.
	svc = newLectureService(&mockLectureRepo{listed: listed}, courses, &mockEnrollmentRepo{enrolled: true})
	lectures, err := svc.ListByCourse(context.Background(), "course-1", studentClaims("user-1"))
	require.NoError(t, err)
	require.Len(t, lectures, 1)
}

func TestLectureServiceListOwnerAndAdminBypassEnrollment(t *testing.T) {
	courses := &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}
	listed := []models.Lecture{{ID: "lec-1", CourseID: "course-1"}}
	svc := newLectureService(&mockLectureRepo{listed: listed}, courses, &mockEnrollmentRepo{enrolled: false})

	for name, claims := range map[string]*models.JWTClaims{
		"owner": instructorClaims("inst-1"),
		"admin": adminClaims("admin-1"),
	} {
		lectures, err := svc.ListByCourse(context.Background(), "course-1", claims)
		require.NoError(t, err, name)
		require.Len(t, lectures, 1, name)
	}
}

func TestLectureServiceListForeignInstructorForbidden(t *testing.T) {
	courses := &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}
	svc := newLectureService(&mockLectureRepo{}, courses, &mockEnrollmentRepo{})

	_, err := svc.ListByCourse(context.Background(), "course-1", instructorClaims("inst-2"))
	require.Error(t, err)
	assert.Equal(t, 403, appErrors.FromError(err).Status)
}

func TestLectureServiceListByInstructorSelfOrAdmin(t *testing.T) {
	repo := &mockLectureRepo{listed: []models.Lecture{
		{ID: "lec-2", CourseID: "course-2", InstructorID: "inst-1"},
		{ID: "lec-1", CourseID: "course-1", InstructorID: "inst-1"},
	}}
	svc := newLectureService(repo, &mockCourseRepo{}, &mockEnrollmentRepo{})

	for name, claims := range map[string]*models.JWTClaims{
		"self":  instructorClaims("inst-1"),
		"admin": adminClaims("admin-1"),
	} {
		lectures, err := svc.ListByInstructor(context.Background(), "inst-1", claims)
		require.NoError(t, err, name)
		require.Len(t, lectures, 2, name)
	}
}

func TestLectureServiceListByInstructorForbiddenForOthers(t *testing.T) {
	svc := newLectureService(&mockLectureRepo{}, &mockCourseRepo{}, &mockEnrollmentRepo{})

	_, err := svc.ListByInstructor(context.Background(), "inst-1", instructorClaims("inst-2"))
	require.Error(t, err)
	assert.Equal(t, 403, appErrors.FromError(err).Status)

	_, err = svc.ListByInstructor(context.Background(), "inst-1", nil)
	require.Error(t, err)
	assert.Equal(t, 401, appErrors.FromError(err).Status)
}

func TestLectureServiceCreateInheritsCourseInstructor(t *testing.T) {
	repo := &mockLectureRepo{}
	courses := &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}
	svc := newLectureService(repo, courses, &mockEnrollmentRepo{})

	lecture, err := svc.Create(context.Background(), "course-1", CreateLectureRequest{
		Title: "Intro", VideoURL: "https://cdn.example.com/v1", Order: 2,
	}, instructorClaims("inst-1"))
	require.NoError(t, err)
	assert.Equal(t, "inst-1", lecture.InstructorID)
	assert.Equal(t, "course-1", lecture.CourseID)
	assert.Equal(t, 2, lecture.Position)
}

func TestLectureServiceCreateForbiddenForNonOwner(t *testing.T) {
	courses := &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}
	svc := newLectureService(&mockLectureRepo{}, courses, &mockEnrollmentRepo{})

	_, err := svc.Create(context.Background(), "course-1", CreateLectureRequest{
		Title: "Intro", VideoURL: "https://cdn.example.com/v1",
	}, instructorClaims("inst-2"))
	require.Error(t, err)
	assert.Equal(t, 403, appErrors.FromError(err).Status)
}

func TestLectureServiceUpdateKeepsCourseBinding(t *testing.T) {
	repo := &mockLectureRepo{lecture: &models.Lecture{ID: "lec-1", CourseID: "course-1", InstructorID: "inst-1", Title: "Old"}}
	courses := &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}
	svc := newLectureService(repo, courses, &mockEnrollmentRepo{})

	title := "New"
	lecture, err := svc.Update(context.Background(), "lec-1", UpdateLectureRequest{Title: &title}, instructorClaims("inst-1"))
	require.NoError(t, err)
	assert.Equal(t, "New", lecture.Title)
	assert.Equal(t, "course-1", lecture.CourseID)
}

func TestLectureServiceReorderForeignLectureRejected(t *testing.T) {
	repo := &mockLectureRepo{reorderErr: fmt.Errorf("lecture lec-x: %w", repository.ErrLectureNotInCourse)}
	courses := &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}
	svc := newLectureService(repo, courses, &mockEnrollmentRepo{})

	_, err := svc.Reorder(context.Background(), "course-1", ReorderLecturesRequest{
		LectureOrders: []models.LectureOrder{{LectureID: "lec-x", Order: 0}},
	}, instructorClaims("inst-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLectureServiceReorderReturnsNewOrder(t *testing.T) {
	repo := &mockLectureRepo{listed: []models.Lecture{
		{ID: "lec-2", CourseID: "course-1", Position: 0},
		{ID: "lec-1", CourseID: "course-1", Position: 1},
	}}
	courses := &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}
	svc := newLectureService(repo, courses, &mockEnrollmentRepo{})

	lectures, err := svc.Reorder(context.Background(), "course-1", ReorderLecturesRequest{
		LectureOrders: []models.LectureOrder{{LectureID: "lec-2", Order: 0}, {LectureID: "lec-1", Order: 1}},
	}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Len(t, lectures, 2)
	assert.Equal(t, "lec-2", lectures[0].ID)
	assert.Equal(t, "course-1", repo.reorderedIn)
	require.Len(t, repo.lastOrders, 2)
}

func TestLectureServiceReorderRejectsEmptyBatch(t *testing.T) {
	courses := &mockCourseRepo{course: publishedCourse("course-1", "inst-1")}
	svc := newLectureService(&mockLectureRepo{}, courses, &mockEnrollmentRepo{})

	_, err := svc.Reorder(context.Background(), "course-1", ReorderLecturesRequest{}, instructorClaims("inst-1"))
	require.Error(t, err)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
}
