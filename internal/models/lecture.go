package models

import "time"

// Lecture is an ordered video entry belonging to a course. CourseID and
// InstructorID are immutable after creation and the instructor must match
// the course's instructor.
type Lecture struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	VideoURL     string    `db:"video_url" json:"video_url"`
	CourseID     string    `db:"course_id" json:"course_id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Position     int       `db:"position" json:"order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LectureOrder pairs a lecture with its new position in a reorder batch.
type LectureOrder struct {
	LectureID string `json:"lecture_id" validate:"required"`
	Order     int    `json:"order" validate:"gte=0"`
}
