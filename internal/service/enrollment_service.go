package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skillsphere/skillsphere-api/internal/models"
	"github.com/skillsphere/skillsphere-api/internal/repository"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	CountForLearner(ctx context.Context, learnerID string) (total, completed int, err error)
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type instructorCourseCounter interface {
	CountByStatusForInstructor(ctx context.Context, instructorID string) (models.CourseStatusCounts, error)
}

type timeEventReader interface {
	SumMinutesForLearner(ctx context.Context, learnerID string) (int, error)
}

// EnrollRequest describes enrollment creation.
type EnrollRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// UpdateProgressRequest carries a new progress value.
type UpdateProgressRequest struct {
	Progress *int `json:"progress" validate:"required"`
}

// EnrollmentService owns the learner/course relationship and the derived
// progress statistics.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   enrollmentCourseReader
	ownership instructorCourseCounter
	timeTrack timeEventReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses enrollmentCourseReader, ownership instructorCourseCounter, timeTrack timeEventReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		ownership: ownership,
		timeTrack: timeTrack,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Enroll registers a learner to an APPROVED course. The unique constraint on
// (learner, course) makes the second of two concurrent enrolls fail with
// ALREADY_ENROLLED.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, req EnrollRequest) (*models.Enrollment, error) {
	if actor.Role != models.RoleLearner {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only learners may enroll")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrNotEnrollable, "course is not open for enrollment")
	}

	enrollment := &models.Enrollment{LearnerID: actor.ID, CourseID: course.ID, Progress: 0}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateEnrollment) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "already enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create enrollment")
	}

	if s.metrics != nil {
		s.metrics.RecordEnrollment()
	}
	s.logger.Info("learner enrolled",
		zap.String("learner_id", actor.ID),
		zap.String("course_id", course.ID))
	return enrollment, nil
}

// UpdateProgress stores a new progress value for the learner's own
// enrollment. Values outside [0,100] are rejected; decreases are accepted.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor models.Actor, enrollmentID string, req UpdateProgressRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}
	progress := *req.Progress
	if progress < 0 || progress > 100 {
		return nil, appErrors.Clone(appErrors.ErrInvalidProgress, "")
	}

	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load enrollment")
	}
	if enrollment.LearnerID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another learner")
	}

	if err := s.repo.UpdateProgress(ctx, enrollment.ID, progress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update progress")
	}
	enrollment.Progress = progress
	return enrollment, nil
}

// ListForLearner returns the learner's enrollments with course context.
func (s *EnrollmentService) ListForLearner(ctx context.Context, actor models.Actor, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	filter.LearnerID = actor.ID
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// AggregateForLearner derives the learner's dashboard statistics. Hours spent
// are summed from time-tracking events supplied by the learning player.
func (s *EnrollmentService) AggregateForLearner(ctx context.Context, learnerID string) (models.LearnerStats, error) {
	total, completed, err := s.repo.CountForLearner(ctx, learnerID)
	if err != nil {
		return models.LearnerStats{}, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to aggregate enrollments")
	}
	minutes := 0
	if s.timeTrack != nil {
		minutes, err = s.timeTrack.SumMinutesForLearner(ctx, learnerID)
		if err != nil {
			return models.LearnerStats{}, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to sum time events")
		}
	}
	return models.LearnerStats{
		TotalEnrolled:    total,
		CompletedCourses: completed,
		TotalHoursSpent:  minutes / 60,
	}, nil
}

// AggregateForInstructor groups the instructor's courses by lifecycle state.
// The per-status counts always sum to the total.
func (s *EnrollmentService) AggregateForInstructor(ctx context.Context, instructorID string) (models.CourseStatusCounts, error) {
	counts, err := s.ownership.CountByStatusForInstructor(ctx, instructorID)
	if err != nil {
		return models.CourseStatusCounts{}, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to aggregate courses")
	}
	return counts, nil
}
