package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/civoranexus/eduvillage-api/internal/models"
	"github.com/civoranexus/eduvillage-api/internal/policy"
	appErrors "github.com/civoranexus/eduvillage-api/pkg/errors"
	"github.com/civoranexus/eduvillage-api/pkg/export"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, courseID, userID string) (bool, error)
	Unenroll(ctx context.Context, courseID, userID string) (bool, error)
	IsEnrolled(ctx context.Context, courseID, userID string) (bool, error)
	MarkCompleted(ctx context.Context, courseID, userID string) (bool, error)
	Roster(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type rosterExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

type rosterPDFExporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// Roster export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// RosterExport carries rendered roster bytes and HTTP metadata.
type RosterExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// EnrollmentService maintains the course roster. Enroll and unenroll are
// single-statement conditional writes, so the no-op errors are detected
// atomically and the derived student count can never drift.
type EnrollmentService struct {
	repo    enrollmentRepository
	courses courseReader
	cache   catalogCache
	csv     rosterExporter
	pdf     rosterPDFExporter
	logger  *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, cache catalogCache, csv rosterExporter, pdf rosterPDFExporter, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, cache: cache, csv: csv, pdf: pdf, logger: logger}
}

// Enroll adds the calling student to the course roster.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID string, claims *models.JWTClaims) error {
	course, err := s.loadCourse(ctx, courseID, claims)
	if err != nil {
		return err
	}
	if d := policy.EnrollInCourse(actorFor(claims), course); d != policy.Allow {
		return d.Err()
	}
	if course.Status != models.CourseStatusPublished {
		return appErrors.ErrCourseNotPublished
	}

	inserted, err := s.repo.Enroll(ctx, courseID, claims.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}
	if !inserted {
		return appErrors.ErrAlreadyEnrolled
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("student enrolled", zap.String("course_id", courseID), zap.String("user_id", claims.UserID))
	return nil
}

// Unenroll removes the caller from the course roster. Only bare course
// existence is checked: an enrollment must stay leavable after the
// instructor reverts the course to draft, so membership is the only gate.
func (s *EnrollmentService) Unenroll(ctx context.Context, courseID string, claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.ensureCourseExists(ctx, courseID); err != nil {
		return err
	}

	removed, err := s.repo.Unenroll(ctx, courseID, claims.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll")
	}
	if !removed {
		return appErrors.ErrNotEnrolled
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("student unenrolled", zap.String("course_id", courseID), zap.String("user_id", claims.UserID))
	return nil
}

// Complete marks the caller's enrollment as completed. Like Unenroll this
// acts on the enrollment row, so course status does not matter.
func (s *EnrollmentService) Complete(ctx context.Context, courseID string, claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.ensureCourseExists(ctx, courseID); err != nil {
		return err
	}

	marked, err := s.repo.MarkCompleted(ctx, courseID, claims.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark completion")
	}
	if !marked {
		return appErrors.ErrNotEnrolled
	}
	return nil
}

// IsEnrolled reports roster membership for the given user.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	enrolled, err := s.repo.IsEnrolled(ctx, courseID, userID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	return enrolled, nil
}

// Roster returns the course roster for the owning instructor or an admin.
func (s *EnrollmentService) Roster(ctx context.Context, courseID string, claims *models.JWTClaims) ([]models.RosterEntry, error) {
	course, err := s.loadCourse(ctx, courseID, claims)
	if err != nil {
		return nil, err
	}
	if d := policy.MutateCourse(actorFor(claims), course); d != policy.Allow {
		return nil, d.Err()
	}
	roster, err := s.repo.Roster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// ExportRoster renders the roster as CSV or PDF for download.
func (s *EnrollmentService) ExportRoster(ctx context.Context, courseID, format string, claims *models.JWTClaims) (*RosterExport, error) {
	course, err := s.loadCourse(ctx, courseID, claims)
	if err != nil {
		return nil, err
	}
	if d := policy.MutateCourse(actorFor(claims), course); d != policy.Allow {
		return nil, d.Err()
	}

	roster, err := s.repo.Roster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Name", "Email", "Enrolled At", "Completed"},
		Rows:    make([]map[string]string, 0, len(roster)),
	}
	for _, entry := range roster {
		completed := ""
		if entry.CompletedAt != nil {
			completed = entry.CompletedAt.Format(time.RFC3339)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Name":        entry.StudentName,
			"Email":       entry.StudentEmail,
			"Enrolled At": entry.EnrolledAt.Format(time.RFC3339),
			"Completed":   completed,
		})
	}

	switch format {
	case "", ExportFormatCSV:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &RosterExport{
			Filename:    fmt.Sprintf("roster-%s.csv", courseID),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	case ExportFormatPDF:
		body, err := s.pdf.Render(dataset, fmt.Sprintf("Roster - %s", course.Title))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &RosterExport{
			Filename:    fmt.Sprintf("roster-%s.pdf", courseID),
			ContentType: "application/pdf",
			Body:        body,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export format")
	}
}

// loadCourse fetches the course and applies the visibility policy so that
// draft courses stay hidden from callers who may not see them.
func (s *EnrollmentService) loadCourse(ctx context.Context, courseID string, claims *models.JWTClaims) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if d := policy.ViewCourse(actorFor(claims), course); d != policy.Allow {
		return nil, d.Err()
	}
	return course, nil
}

// ensureCourseExists checks that the course row is present without applying
// the visibility policy.
func (s *EnrollmentService) ensureCourseExists(ctx context.Context, courseID string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return nil
}

func (s *EnrollmentService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	// Roster size feeds the "popular" sort, so listing pages go stale on
	// every roster change.
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
