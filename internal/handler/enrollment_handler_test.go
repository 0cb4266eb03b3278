package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civoranexus/eduvillage-api/internal/middleware"
	"github.com/civoranexus/eduvillage-api/internal/models"
	"github.com/civoranexus/eduvillage-api/internal/service"
	"github.com/civoranexus/eduvillage-api/pkg/export"
)

type fakeEnrollRepo struct {
	inserted bool
	removed  bool
	enrolled bool
	marked   bool
	roster   []models.RosterEntry
}

func (f *fakeEnrollRepo) Enroll(ctx context.Context, courseID, userID string) (bool, error) {
	return f.inserted, nil
}

func (f *fakeEnrollRepo) Unenroll(ctx context.Context, courseID, userID string) (bool, error) {
	return f.removed, nil
}

func (f *fakeEnrollRepo) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	return f.enrolled, nil
}

func (f *fakeEnrollRepo) MarkCompleted(ctx context.Context, courseID, userID string) (bool, error) {
	return f.marked, nil
}

func (f *fakeEnrollRepo) Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	return f.roster, nil
}

func newEnrollmentHandler(repo *fakeEnrollRepo, courses *fakeCourseRepo) *EnrollmentHandler {
	svc := service.NewEnrollmentService(repo, courses, nil, export.NewCSVExporter(), export.NewPDFExporter(), nil)
	return NewEnrollmentHandler(svc)
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandler(&fakeEnrollRepo{inserted: true}, publishedCourseRepo())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/courses/course-1/enroll", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Enroll(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnrollmentHandlerEnrollDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandler(&fakeEnrollRepo{inserted: false}, publishedCourseRepo())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/courses/course-1/enroll", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Enroll(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeEnvelope(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "ALREADY_ENROLLED", body.Error.Code)
}

func TestEnrollmentHandlerEnrollUnpublishedCourse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	courses := &fakeCourseRepo{course: &models.Course{
		ID: "course-1", InstructorID: "inst-1", Status: models.CourseStatusDraft,
	}}
	handler := newEnrollmentHandler(&fakeEnrollRepo{}, courses)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/courses/course-1/enroll", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Enroll(c)

	// The draft is invisible to the student, not merely closed.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnrollmentHandlerUnenrollNotEnrolled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandler(&fakeEnrollRepo{removed: false}, publishedCourseRepo())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/api/courses/course-1/enroll", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Unenroll(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeEnvelope(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_ENROLLED", body.Error.Code)
}

func TestEnrollmentHandlerRosterForbiddenForStudents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandler(&fakeEnrollRepo{}, publishedCourseRepo())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/courses/course-1/roster", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Roster(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEnrollmentHandlerExportRosterCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeEnrollRepo{roster: []models.RosterEntry{
		{Enrollment: models.Enrollment{CourseID: "course-1", UserID: "user-1", EnrolledAt: time.Now()}, StudentName: "Ada", StudentEmail: "ada@example.com"},
	}}
	handler := newEnrollmentHandler(repo, publishedCourseRepo())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/courses/course-1/roster/export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor})

	handler.ExportRoster(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "roster-course-1.csv")
	assert.Contains(t, rec.Body.String(), "ada@example.com")
}
