package models

import "time"

// CourseStatus represents the lifecycle state of a course.
type CourseStatus string

// Course lifecycle states. DRAFT is the initial state; only APPROVED courses
// are publicly visible and enrollable.
const (
	CourseStatusDraft    CourseStatus = "DRAFT"
	CourseStatusPending  CourseStatus = "PENDING"
	CourseStatusApproved CourseStatus = "APPROVED"
	CourseStatusRejected CourseStatus = "REJECTED"
)

// Valid reports whether the status is one of the four defined states.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusDraft, CourseStatusPending, CourseStatusApproved, CourseStatusRejected:
		return true
	}
	return false
}

// Editable reports whether course content may be mutated in this state.
// Content is frozen while a course is PENDING review or APPROVED.
func (s CourseStatus) Editable() bool {
	return s == CourseStatusDraft || s == CourseStatusRejected
}

// Course represents a marketplace course owned by an instructor.
type Course struct {
	ID           string       `db:"id" json:"id"`
	InstructorID string       `db:"instructor_id" json:"instructor_id"`
	CategoryID   *string      `db:"category_id" json:"category_id,omitempty"`
	Title        string       `db:"title" json:"title"`
	Description  string       `db:"description" json:"description"`
	Syllabus     string       `db:"syllabus" json:"syllabus"`
	Price        float64      `db:"price" json:"price"`
	ThumbnailURL string       `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Status       CourseStatus `db:"status" json:"status"`
	AdminComment string       `db:"admin_comment" json:"admin_comment,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// IsFree reports whether the course costs nothing.
func (c Course) IsFree() bool {
	return c.Price == 0
}

// CourseDetail enriches Course with instructor and category info.
type CourseDetail struct {
	Course
	InstructorName  string  `db:"instructor_name" json:"instructor_name"`
	CategoryName    *string `db:"category_name" json:"category_name,omitempty"`
	LessonCount     int     `db:"lesson_count" json:"lesson_count"`
	EnrollmentCount int     `db:"enrollment_count" json:"enrollment_count"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	InstructorID string
	CategoryIDs  []string
	Statuses     []CourseStatus
	Search       string
	IsFree       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// CourseStatusCounts groups an instructor's courses by lifecycle state.
// Draft+Pending+Approved+Rejected always equals Total.
type CourseStatusCounts struct {
	Total    int `db:"total" json:"total"`
	Draft    int `db:"draft" json:"draft"`
	Pending  int `db:"pending" json:"pending"`
	Approved int `db:"approved" json:"approved"`
	Rejected int `db:"rejected" json:"rejected"`
}

// StatusTransition is an append-only audit record of a lifecycle transition.
type StatusTransition struct {
	ID         string       `db:"id" json:"id"`
	CourseID   string       `db:"course_id" json:"course_id"`
	ActorID    string       `db:"actor_id" json:"actor_id"`
	FromStatus CourseStatus `db:"from_status" json:"from_status"`
	ToStatus   CourseStatus `db:"to_status" json:"to_status"`
	Comment    string       `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}
