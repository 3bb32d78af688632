package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillsphere/skillsphere-api/internal/models"
	"github.com/skillsphere/skillsphere-api/internal/repository"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type lessonRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

type lessonCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// LessonRequest captures fields for creating or updating a lesson.
type LessonRequest struct {
	Title        string                 `json:"title" validate:"required"`
	Description  string                 `json:"description"`
	Position     int                    `json:"position" validate:"gte=1"`
	Duration     int                    `json:"duration" validate:"gte=0"`
	MediaType    models.LessonMediaType `json:"media_type" validate:"required,oneof=VIDEO EXTERNAL DOCUMENT"`
	VideoURL     string                 `json:"video_url"`
	ExternalLink string                 `json:"external_link"`
}

// LessonService manages course content. Lessons may only change while the
// owning course is editable, so published content stays frozen.
type LessonService struct {
	repo      lessonRepository
	courses   lessonCourseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService creates a new lesson service.
func NewLessonService(repo lessonRepository, courses lessonCourseReader, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// ListByCourse returns the course's lessons ordered by position.
func (s *LessonService) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	lessons, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list lessons")
	}
	return lessons, nil
}

// Create adds a lesson to a course owned by the actor.
func (s *LessonService) Create(ctx context.Context, actor models.Actor, courseID string, req LessonRequest) (*models.Lesson, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.editableCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		ID:           uuid.NewString(),
		CourseID:     courseID,
		Title:        req.Title,
		Description:  req.Description,
		Position:     req.Position,
		Duration:     req.Duration,
		MediaType:    req.MediaType,
		VideoURL:     req.VideoURL,
		ExternalLink: req.ExternalLink,
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		if errors.Is(err, repository.ErrDuplicateLessonPosition) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a lesson already occupies this position")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create lesson")
	}

	s.logger.Info("lesson created",
		zap.String("lesson_id", lesson.ID),
		zap.String("course_id", courseID))
	return lesson, nil
}

// Update modifies an existing lesson of a course owned by the actor.
func (s *LessonService) Update(ctx context.Context, actor models.Actor, lessonID string, req LessonRequest) (*models.Lesson, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	lesson, err := s.loadLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableCourse(ctx, actor, lesson.CourseID); err != nil {
		return nil, err
	}

	lesson.Title = req.Title
	lesson.Description = req.Description
	lesson.Position = req.Position
	lesson.Duration = req.Duration
	lesson.MediaType = req.MediaType
	lesson.VideoURL = req.VideoURL
	lesson.ExternalLink = req.ExternalLink

	if err := s.repo.Update(ctx, lesson); err != nil {
		if errors.Is(err, repository.ErrDuplicateLessonPosition) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a lesson already occupies this position")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update lesson")
	}
	return lesson, nil
}

// Delete removes a lesson from a course owned by the actor.
func (s *LessonService) Delete(ctx context.Context, actor models.Actor, lessonID string) error {
	lesson, err := s.loadLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if _, err := s.editableCourse(ctx, actor, lesson.CourseID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, lesson.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to delete lesson")
	}
	s.logger.Info("lesson deleted",
		zap.String("lesson_id", lesson.ID),
		zap.String("course_id", lesson.CourseID))
	return nil
}

func (s *LessonService) validateRequest(req LessonRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	switch req.MediaType {
	case models.LessonMediaVideo:
		if req.VideoURL == "" {
			return appErrors.Clone(appErrors.ErrValidation, "video lessons require video_url")
		}
	case models.LessonMediaExternal:
		if req.ExternalLink == "" {
			return appErrors.Clone(appErrors.ErrValidation, "external lessons require external_link")
		}
	}
	return nil
}

func (s *LessonService) loadLesson(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load lesson")
	}
	return lesson, nil
}

func (s *LessonService) editableCourse(ctx context.Context, actor models.Actor, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course")
	}
	if course.InstructorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another instructor")
	}
	if !course.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "course content is frozen in its current status")
	}
	return course, nil
}
