package models

import "time"

// LessonMediaType distinguishes how lesson content is delivered.
type LessonMediaType string

const (
	LessonMediaVideo    LessonMediaType = "VIDEO"
	LessonMediaExternal LessonMediaType = "EXTERNAL"
	LessonMediaDocument LessonMediaType = "DOCUMENT"
)

// Lesson is a unit of course content. Lessons follow the owning course's
// lifecycle: editable only while the course is DRAFT or REJECTED.
type Lesson struct {
	ID           string          `db:"id" json:"id"`
	CourseID     string          `db:"course_id" json:"course_id"`
	Title        string          `db:"title" json:"title"`
	Description  string          `db:"description" json:"description,omitempty"`
	Position     int             `db:"position" json:"position"`
	Duration     int             `db:"duration" json:"duration"`
	MediaType    LessonMediaType `db:"media_type" json:"media_type"`
	VideoURL     string          `db:"video_url" json:"video_url,omitempty"`
	ExternalLink string          `db:"external_link" json:"external_link,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
