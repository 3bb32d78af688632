package models

import "time"

// Enrollment captures a learner's registration to a course. At most one
// enrollment exists per (learner, course) pair, enforced by a unique
// constraint in the backing store.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	LearnerID  string    `db:"learner_id" json:"learner_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	Progress   int       `db:"progress" json:"progress"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Completed reports whether the learner finished the course.
func (e Enrollment) Completed() bool {
	return e.Progress == 100
}

// EnrollmentDetail enriches Enrollment with course info for listings.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle    string       `db:"course_title" json:"course_title"`
	CourseStatus   CourseStatus `db:"course_status" json:"course_status"`
	InstructorName string       `db:"instructor_name" json:"instructor_name"`
	ThumbnailURL   string       `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Price          float64      `db:"price" json:"price"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	LearnerID string
	CourseID  string
	Completed *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// LearnerStats aggregates a learner's enrollments for the dashboard.
type LearnerStats struct {
	TotalEnrolled    int `json:"total_enrolled"`
	CompletedCourses int `json:"completed_courses"`
	TotalHoursSpent  int `json:"total_hours_spent"`
}
