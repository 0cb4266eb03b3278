package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civoranexus/eduvillage-api/internal/models"
	"github.com/civoranexus/eduvillage-api/internal/policy"
	appErrors "github.com/civoranexus/eduvillage-api/pkg/errors"
)

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	ListByInstructor(ctx context.Context, instructorID string, includeDrafts bool) ([]models.CourseDetail, error)
	ListEnrolledByUser(ctx context.Context, userID string) ([]models.CourseDetail, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateCourseRequest describes course creation.
type CreateCourseRequest struct {
	Title         string                `json:"title" validate:"required,max=100"`
	Description   string                `json:"description" validate:"required,max=2000"`
	Category      models.CourseCategory `json:"category" validate:"required"`
	Level         models.CourseLevel    `json:"level" validate:"omitempty"`
	ThumbnailURL  string                `json:"thumbnail_url" validate:"omitempty,url"`
	Price         float64               `json:"price" validate:"gte=0"`
	DurationHours float64               `json:"duration_hours" validate:"gte=0"`
}

// UpdateCourseRequest describes a partial course update. The owning
// instructor is immutable and not accepted here.
type UpdateCourseRequest struct {
	Title         *string                `json:"title" validate:"omitempty,max=100"`
	Description   *string                `json:"description" validate:"omitempty,max=2000"`
	Category      *models.CourseCategory `json:"category"`
	Level         *models.CourseLevel    `json:"level"`
	Status        *models.CourseStatus   `json:"status"`
	ThumbnailURL  *string                `json:"thumbnail_url" validate:"omitempty,url"`
	Price         *float64               `json:"price" validate:"omitempty,gte=0"`
	DurationHours *float64               `json:"duration_hours" validate:"omitempty,gte=0"`
}

// CatalogPage is the cached listing payload.
type CatalogPage struct {
	Courses    []models.CourseDetail `json:"courses"`
	Pagination *models.Pagination    `json:"pagination"`
}

// CourseService orchestrates course workflows and consults the access
// policy for every read and mutation.
type CourseService struct {
	repo      courseRepository
	cache     catalogCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewCourseService constructs CourseService. Cache may be nil.
func NewCourseService(repo courseRepository, cache catalogCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// List returns the public catalog of published courses. Results are cached
// per filter tuple and invalidated on any course or roster mutation.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	if filter.Level != "" && !filter.Level.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown level")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 12
	}

	key := catalogCacheKey(filter)
	if s.cache != nil {
		var cached CatalogPage
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return cached.Courses, cached.Pagination, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	queryStart := time.Now()
	courses, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("catalog_list", time.Since(queryStart))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	pagination := models.NewPagination(filter.Page, filter.Limit, total)

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, key, CatalogPage{Courses: courses, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
		s.metrics.ObserveCacheWrite(time.Since(start))
	}

	return courses, pagination, nil
}

// Get returns a single course subject to the visibility policy: drafts are
// indistinguishable from absent courses for anyone but the owner or admins.
func (s *CourseService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.CourseDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if d := policy.ViewCourse(actorFor(claims), &detail.Course); d != policy.Allow {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return detail, nil
}

// Create stores a new draft course owned by the calling instructor.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, claims *models.JWTClaims) (*models.CourseDetail, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.Role != models.RoleInstructor && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors may create courses")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !req.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	level := req.Level
	if level == "" {
		level = models.LevelBeginner
	}
	if !level.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown level")
	}

	course := &models.Course{
		Title:         req.Title,
		Description:   req.Description,
		InstructorID:  claims.UserID,
		Category:      req.Category,
		Level:         level,
		Status:        models.CourseStatusDraft,
		ThumbnailURL:  req.ThumbnailURL,
		Price:         req.Price,
		DurationHours: req.DurationHours,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("instructor_id", course.InstructorID))
	return s.repo.FindDetailByID(ctx, course.ID)
}

// Update applies a partial update after the mutation policy check. Status
// transitions (draft↔published) go through here as well.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest, claims *models.JWTClaims) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.loadForMutation(ctx, id, claims)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
		}
		course.Category = *req.Category
	}
	if req.Level != nil {
		if !req.Level.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown level")
		}
		course.Level = *req.Level
	}
	if req.Status != nil {
		if *req.Status != models.CourseStatusDraft && *req.Status != models.CourseStatusPublished {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
		}
		course.Status = *req.Status
	}
	if req.ThumbnailURL != nil {
		course.ThumbnailURL = *req.ThumbnailURL
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.DurationHours != nil {
		course.DurationHours = *req.DurationHours
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateCatalog(ctx)
	return s.repo.FindDetailByID(ctx, id)
}

// Delete removes a course. The roster and lectures go with it atomically.
func (s *CourseService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	course, err := s.loadForMutation(ctx, id, claims)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, course.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateCatalog(ctx)
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

// ListByInstructor returns an instructor's courses. Drafts are included
// only for the instructor themselves or an admin.
func (s *CourseService) ListByInstructor(ctx context.Context, instructorID string, claims *models.JWTClaims) ([]models.CourseDetail, error) {
	includeDrafts := claims != nil && (claims.UserID == instructorID || claims.Role == models.RoleAdmin)
	courses, err := s.repo.ListByInstructor(ctx, instructorID, includeDrafts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor courses")
	}
	return courses, nil
}

// ListEnrolled returns the courses the caller is enrolled in.
func (s *CourseService) ListEnrolled(ctx context.Context, claims *models.JWTClaims) ([]models.CourseDetail, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	courses, err := s.repo.ListEnrolledByUser(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled courses")
	}
	return courses, nil
}

func (s *CourseService) loadForMutation(ctx context.Context, id string, claims *models.JWTClaims) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if d := policy.MutateCourse(actorFor(claims), course); d != policy.Allow {
		return nil, d.Err()
	}
	return course, nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func catalogCacheKey(filter models.CourseFilter) string {
	return fmt.Sprintf("catalog:%s:%s:%s:%s:%s:%d:%d",
		filter.Category, filter.Level, filter.InstructorID, filter.Search, filter.Sort, filter.Page, filter.Limit)
}
