package dto

import (
	"time"

	"github.com/skillsphere/skillsphere-api/internal/models"
)

// Badge values surface whether a further action is pending on an item.
const (
	BadgeNotStarted       = "NOT_STARTED"
	BadgeInProgress       = "IN_PROGRESS"
	BadgeCompleted        = "COMPLETED"
	BadgeDraft            = "DRAFT"
	BadgeInReview         = "IN_REVIEW"
	BadgeChangesRequested = "CHANGES_REQUESTED"
	BadgeLive             = "LIVE"
	BadgeAwaitingReview   = "AWAITING_REVIEW"
)

// LearnerDashboardResponse is the learner dashboard payload.
type LearnerDashboardResponse struct {
	Stats            models.LearnerStats    `json:"stats"`
	ContinueLearning []ContinueLearningItem `json:"continue_learning"`
}

// ContinueLearningItem is one in-progress enrollment on the learner dashboard.
type ContinueLearningItem struct {
	EnrollmentID string `json:"enrollment_id"`
	CourseID     string `json:"course_id"`
	CourseTitle  string `json:"course_title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Progress     int    `json:"progress"`
	Badge        string `json:"badge"`
}

// InstructorDashboardResponse is the instructor dashboard payload.
type InstructorDashboardResponse struct {
	Stats   models.CourseStatusCounts `json:"stats"`
	Courses []InstructorCourseItem    `json:"courses"`
}

// InstructorCourseItem is one owned course with its review badge.
type InstructorCourseItem struct {
	CourseID        string              `json:"course_id"`
	Title           string              `json:"title"`
	Status          models.CourseStatus `json:"status"`
	Badge           string              `json:"badge"`
	Price           float64             `json:"price"`
	EnrollmentCount int                 `json:"enrollment_count"`
	AdminComment    string              `json:"admin_comment,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// AdminStats summarises the platform for the admin dashboard.
type AdminStats struct {
	TotalCourses     int `json:"total_courses"`
	PendingCourses   int `json:"pending_courses"`
	ApprovedCourses  int `json:"approved_courses"`
	RejectedCourses  int `json:"rejected_courses"`
	TotalInstructors int `json:"total_instructors"`
}

// AdminDashboardResponse is the admin dashboard payload.
type AdminDashboardResponse struct {
	Stats       AdminStats        `json:"stats"`
	ReviewQueue []ReviewQueueItem `json:"review_queue"`
}

// ReviewQueueItem is one pending course awaiting an admin decision.
type ReviewQueueItem struct {
	CourseID       string    `json:"course_id"`
	Title          string    `json:"title"`
	InstructorName string    `json:"instructor_name"`
	Price          float64   `json:"price"`
	SubmittedAt    time.Time `json:"submitted_at"`
	Badge          string    `json:"badge"`
}
