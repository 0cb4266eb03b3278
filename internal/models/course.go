package models

import "time"

// CourseStatus controls course visibility.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
)

// CourseCategory enumerates catalog categories.
type CourseCategory string

const (
	CategoryWebDevelopment    CourseCategory = "web-development"
	CategoryDataScience       CourseCategory = "data-science"
	CategoryMobileDevelopment CourseCategory = "mobile-development"
	CategoryDesign            CourseCategory = "design"
	CategoryMarketing         CourseCategory = "marketing"
	CategoryBusiness          CourseCategory = "business"
	CategoryOther             CourseCategory = "other"
)

// Categories lists every valid category in display order.
func Categories() []CourseCategory {
	return []CourseCategory{
		CategoryWebDevelopment,
		CategoryDataScience,
		CategoryMobileDevelopment,
		CategoryDesign,
		CategoryMarketing,
		CategoryBusiness,
		CategoryOther,
	}
}

// Valid reports whether the category is a known value.
func (c CourseCategory) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// CourseLevel describes the intended audience.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
)

// Valid reports whether the level is a known value.
func (l CourseLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Course represents a course row. TotalStudents is never stored; it is
// computed from the enrollments table on every read so it cannot drift
// from the roster.
type Course struct {
	ID            string         `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Description   string         `db:"description" json:"description"`
	InstructorID  string         `db:"instructor_id" json:"instructor_id"`
	Category      CourseCategory `db:"category" json:"category"`
	Level         CourseLevel    `db:"level" json:"level"`
	Status        CourseStatus   `db:"status" json:"status"`
	ThumbnailURL  string         `db:"thumbnail_url" json:"thumbnail_url"`
	Price         float64        `db:"price" json:"price"`
	DurationHours float64        `db:"duration_hours" json:"duration_hours"`
	Rating        float64        `db:"rating" json:"rating"`
	TotalStudents int            `db:"total_students" json:"total_students"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with instructor display info.
type CourseDetail struct {
	Course
	InstructorName   string `db:"instructor_name" json:"instructor_name"`
	InstructorAvatar string `db:"instructor_avatar" json:"instructor_avatar"`
}

// CourseFilter captures the catalog listing criteria. All filters combine
// with AND; only published courses are ever eligible.
type CourseFilter struct {
	Category     CourseCategory
	Level        CourseLevel
	InstructorID string
	Search       string
	Sort         string
	Page         int
	Limit        int
}

// Catalog sort keys.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
	SortRating  = "rating"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	TotalCount int  `json:"total_count"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, limit, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	totalPages := (total + limit - 1) / limit
	return &Pagination{
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		TotalCount: total,
		HasNext:    page*limit < total,
		HasPrev:    page > 1,
	}
}
