package models

import "time"

// Enrollment is one row of the course roster. A single row represents both
// sides of the student/course relationship, so the roster and the student's
// enrolled list can never disagree.
type Enrollment struct {
	CourseID    string     `db:"course_id" json:"course_id"`
	UserID      string     `db:"user_id" json:"user_id"`
	EnrolledAt  time.Time  `db:"enrolled_at" json:"enrolled_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// RosterEntry enriches an enrollment with student display info.
type RosterEntry struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}
