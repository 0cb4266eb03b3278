// Package policy centralises every visibility and mutation decision for
// courses and lectures. Decisions are pure functions of the actor and the
// resource state; handlers map them to HTTP errors through Decision.Err.
package policy

import (
	"github.com/civoranexus/eduvillage-api/internal/models"
	appErrors "github.com/civoranexus/eduvillage-api/pkg/errors"
)

// Actor identifies the caller. A nil *Actor means an unauthenticated request.
type Actor struct {
	ID   string
	Role models.UserRole
}

// Decision is the outcome of an access check.
type Decision int

const (
	Allow Decision = iota
	// Unauthorized means the check requires authentication and none was
	// supplied.
	Unauthorized
	// Forbidden means the actor is authenticated but not permitted.
	Forbidden
	// NotFound means the resource must be treated as absent for this actor,
	// so that the existence of draft courses is never revealed.
	NotFound
)

// Err maps a decision to the corresponding domain error, or nil for Allow.
func (d Decision) Err() error {
	switch d {
	case Allow:
		return nil
	case Unauthorized:
		return appErrors.ErrUnauthorized
	case Forbidden:
		return appErrors.ErrForbidden
	default:
		return appErrors.ErrNotFound
	}
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	default:
		return "not_found"
	}
}

func isAdmin(actor *Actor) bool {
	return actor != nil && actor.Role == models.RoleAdmin
}

func ownsCourse(actor *Actor, course *models.Course) bool {
	return actor != nil && actor.ID == course.InstructorID
}

// ViewCourse decides whether the actor may see the course at all. Draft
// courses are visible only to their owning instructor and admins; everyone
// else gets NotFound, never Forbidden.
func ViewCourse(actor *Actor, course *models.Course) Decision {
	if course.Status == models.CourseStatusPublished {
		return Allow
	}
	if isAdmin(actor) || ownsCourse(actor, course) {
		return Allow
	}
	return NotFound
}

// MutateCourse decides update/delete/publish/unpublish rights. Unlike the
// visibility check this returns Forbidden for known-but-denied callers:
// existence is already implied once an id reaches a mutation endpoint.
func MutateCourse(actor *Actor, course *models.Course) Decision {
	if actor == nil {
		return Unauthorized
	}
	if isAdmin(actor) || ownsCourse(actor, course) {
		return Allow
	}
	return Forbidden
}

// EnrollInCourse decides whether the actor may enroll. Only students enroll,
// and only in published courses. Draft courses stay hidden from would-be
// enrollees.
func EnrollInCourse(actor *Actor, course *models.Course) Decision {
	if actor == nil {
		return Unauthorized
	}
	if view := ViewCourse(actor, course); view != Allow {
		return view
	}
	if actor.Role != models.RoleStudent {
		return Forbidden
	}
	return Allow
}

// ViewLectures decides access to a course's lecture list. Lectures always
// require authentication; beyond course visibility the caller must be an
// admin, the owning instructor, or an enrolled student.
func ViewLectures(actor *Actor, course *models.Course, enrolled bool) Decision {
	if actor == nil {
		return Unauthorized
	}
	if view := ViewCourse(actor, course); view != Allow {
		return view
	}
	if isAdmin(actor) || ownsCourse(actor, course) {
		return Allow
	}
	if actor.Role == models.RoleStudent && enrolled {
		return Allow
	}
	return Forbidden
}

// MutateLecture decides create/update/delete/reorder rights on a lecture.
// The actor must own both the lecture and its parent course, or be an admin.
func MutateLecture(actor *Actor, lecture *models.Lecture, course *models.Course) Decision {
	if actor == nil {
		return Unauthorized
	}
	if isAdmin(actor) {
		return Allow
	}
	if lecture.InstructorID != course.InstructorID {
		// Mismatched ownership is a data integrity problem; nobody but an
		// admin may touch such a lecture.
		return Forbidden
	}
	if actor.ID == lecture.InstructorID && actor.ID == course.InstructorID {
		return Allow
	}
	return Forbidden
}

// ManageCourseLectures decides whether the actor may add or reorder lectures
// under a course they are targeting directly.
func ManageCourseLectures(actor *Actor, course *models.Course) Decision {
	if actor == nil {
		return Unauthorized
	}
	if isAdmin(actor) || ownsCourse(actor, course) {
		return Allow
	}
	return Forbidden
}
