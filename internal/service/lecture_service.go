package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civoranexus/eduvillage-api/internal/models"
	"github.com/civoranexus/eduvillage-api/internal/policy"
	"github.com/civoranexus/eduvillage-api/internal/repository"
	appErrors "github.com/civoranexus/eduvillage-api/pkg/errors"
)

type lectureRepository interface {
	Create(ctx context.Context, lecture *models.Lecture) error
	FindByID(ctx context.Context, id string) (*models.Lecture, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Lecture, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Lecture, error)
	Update(ctx context.Context, lecture *models.Lecture) error
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, courseID string, orders []models.LectureOrder) error
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, courseID, userID string) (bool, error)
}

// CreateLectureRequest describes lecture creation.
type CreateLectureRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	VideoURL string `json:"video_url" validate:"required,url"`
	Order    int    `json:"order" validate:"gte=0"`
}

// UpdateLectureRequest describes a partial lecture update.
type UpdateLectureRequest struct {
	Title    *string `json:"title" validate:"omitempty,max=200"`
	VideoURL *string `json:"video_url" validate:"omitempty,url"`
	Order    *int    `json:"order" validate:"omitempty,gte=0"`
}

// ReorderLecturesRequest carries a reorder batch scoped to one course.
type ReorderLecturesRequest struct {
	LectureOrders []models.LectureOrder `json:"lecture_orders" validate:"required,min=1,dive"`
}

// LectureService orchestrates lecture workflows behind the access policy.
type LectureService struct {
	repo        lectureRepository
	courses     courseReader
	enrollments enrollmentChecker
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewLectureService constructs LectureService.
func NewLectureService(repo lectureRepository, courses courseReader, enrollments enrollmentChecker, validate *validator.Validate, logger *zap.Logger) *LectureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LectureService{repo: repo, courses: courses, enrollments: enrollments, validator: validate, logger: logger}
}

// ListByCourse returns a course's lectures in display order, gated on the
// lecture visibility rule: admins, the owning instructor, or enrolled
// students only. Anonymous callers are rejected before the course lookup
// so the endpoint behaves uniformly.
func (s *LectureService) ListByCourse(ctx context.Context, courseID string, claims *models.JWTClaims) ([]models.Lecture, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enrolled := false
	if claims.Role == models.RoleStudent {
		enrolled, err = s.enrollments.IsEnrolled(ctx, courseID, claims.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
	}
	if d := policy.ViewLectures(actorFor(claims), course, enrolled); d != policy.Allow {
		return nil, d.Err()
	}

	lectures, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lectures")
	}
	return lectures, nil
}

// ListByInstructor returns the lectures an instructor owns across all of
// their courses. Instructors may list only their own; admins may list any.
func (s *LectureService) ListByInstructor(ctx context.Context, instructorID string, claims *models.JWTClaims) ([]models.Lecture, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.UserID != instructorID && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another instructor's lectures")
	}
	lectures, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor lectures")
	}
	return lectures, nil
}

// Get returns a single lecture under the same access rule as the course's
// lecture list.
func (s *LectureService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Lecture, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	lecture, err := s.loadLecture(ctx, id)
	if err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, lecture.CourseID)
	if err != nil {
		return nil, err
	}

	enrolled := false
	if claims.Role == models.RoleStudent {
		enrolled, err = s.enrollments.IsEnrolled(ctx, lecture.CourseID, claims.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
	}
	if d := policy.ViewLectures(actorFor(claims), course, enrolled); d != policy.Allow {
		return nil, d.Err()
	}
	return lecture, nil
}

// Create adds a lecture to a course owned by the caller.
func (s *LectureService) Create(ctx context.Context, courseID string, req CreateLectureRequest, claims *models.JWTClaims) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if d := policy.ManageCourseLectures(actorFor(claims), course); d != policy.Allow {
		return nil, d.Err()
	}

	lecture := &models.Lecture{
		Title:        req.Title,
		VideoURL:     req.VideoURL,
		CourseID:     courseID,
		InstructorID: course.InstructorID,
		Position:     req.Order,
	}
	if err := s.repo.Create(ctx, lecture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lecture")
	}
	s.logger.Info("lecture created", zap.String("lecture_id", lecture.ID), zap.String("course_id", courseID))
	return lecture, nil
}

// Update applies a partial update after the lecture mutation policy check.
func (s *LectureService) Update(ctx context.Context, id string, req UpdateLectureRequest, claims *models.JWTClaims) (*models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecture payload")
	}
	lecture, _, err := s.loadForMutation(ctx, id, claims)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		lecture.Title = *req.Title
	}
	if req.VideoURL != nil {
		lecture.VideoURL = *req.VideoURL
	}
	if req.Order != nil {
		lecture.Position = *req.Order
	}

	if err := s.repo.Update(ctx, lecture); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lecture")
	}
	return lecture, nil
}

// Delete removes a lecture after the mutation policy check.
func (s *LectureService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	lecture, _, err := s.loadForMutation(ctx, id, claims)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, lecture.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lecture")
	}
	s.logger.Info("lecture deleted", zap.String("lecture_id", id))
	return nil
}

// Reorder applies a batch of position changes for one course. The batch is
// fail-atomic: a pair referencing a lecture outside the course rejects the
// whole request and nothing is applied.
func (s *LectureService) Reorder(ctx context.Context, courseID string, req ReorderLecturesRequest, claims *models.JWTClaims) ([]models.Lecture, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reorder payload")
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if d := policy.ManageCourseLectures(actorFor(claims), course); d != policy.Allow {
		return nil, d.Err()
	}

	if err := s.repo.Reorder(ctx, courseID, req.LectureOrders); err != nil {
		if errors.Is(err, repository.ErrLectureNotInCourse) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "batch references a lecture outside this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reorder lectures")
	}

	lectures, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lectures")
	}
	return lectures, nil
}

func (s *LectureService) loadCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *LectureService) loadLecture(ctx context.Context, id string) (*models.Lecture, error) {
	lecture, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	return lecture, nil
}

func (s *LectureService) loadForMutation(ctx context.Context, id string, claims *models.JWTClaims) (*models.Lecture, *models.Course, error) {
	lecture, err := s.loadLecture(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	course, err := s.loadCourse(ctx, lecture.CourseID)
	if err != nil {
		return nil, nil, err
	}
	if d := policy.MutateLecture(actorFor(claims), lecture, course); d != policy.Allow {
		return nil, nil, d.Err()
	}
	return lecture, course, nil
}
