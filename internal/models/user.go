package models

import "time"

// UserRole represents the available roles.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	Bio          string    `db:"bio" json:"bio"`
	AvatarURL    string    `db:"avatar_url" json:"avatar_url"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserProfile is the public view of a user with derived course counts.
type UserProfile struct {
	User
	EnrolledCount  int `db:"enrolled_count" json:"enrolled_courses_count"`
	CompletedCount int `db:"completed_count" json:"completed_courses_count"`
	CreatedCount   int `db:"created_count" json:"created_courses_count"`
}
