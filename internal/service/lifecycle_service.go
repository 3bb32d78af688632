package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skillsphere/skillsphere-api/internal/models"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type lifecycleCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
	UpdateContent(ctx context.Context, course *models.Course) error
	UpdateStatus(ctx context.Context, id string, from, to models.CourseStatus, adminComment string) (bool, error)
	DeleteDraft(ctx context.Context, id string) (bool, error)
	CreateTransition(ctx context.Context, transition *models.StatusTransition) error
	ListTransitions(ctx context.Context, courseID string) ([]models.StatusTransition, error)
}

type categoryReader interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ReviewNotifier delivers review-decision notifications to instructors.
// Delivery failures are logged, never surfaced to the admin request.
type ReviewNotifier interface {
	SendReviewDecision(ctx context.Context, email, fullName, courseTitle string, approved bool, comment string) error
}

// instructorTransitions and adminTransitions together define every legal
// lifecycle edge. Anything absent is an invalid transition; unknown statuses
// fail closed.
var (
	instructorTransitions = map[models.CourseStatus]models.CourseStatus{
		models.CourseStatusDraft:    models.CourseStatusPending,
		models.CourseStatusRejected: models.CourseStatusPending,
	}
	adminDecisions = map[models.CourseStatus]struct{}{
		models.CourseStatusApproved: {},
		models.CourseStatusRejected: {},
	}
)

// CourseFieldsRequest carries the editable content fields of a course.
type CourseFieldsRequest struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	Syllabus     string  `json:"syllabus"`
	CategoryID   *string `json:"category_id,omitempty"`
	Price        float64 `json:"price" validate:"gte=0"`
	ThumbnailURL string  `json:"thumbnail_url"`
}

// ReviewDecisionRequest carries the optional admin comment on a decision.
type ReviewDecisionRequest struct {
	Comment string `json:"comment"`
}

// LifecycleService owns the course status field and every legal transition
// between statuses, keyed by actor role.
type LifecycleService struct {
	courses    lifecycleCourseRepository
	categories categoryReader
	users      userReader
	notifier   ReviewNotifier
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewLifecycleService constructs LifecycleService.
func NewLifecycleService(courses lifecycleCourseRepository, categories categoryReader, users userReader, notifier ReviewNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LifecycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		courses:    courses,
		categories: categories,
		users:      users,
		notifier:   notifier,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Create starts a new course in DRAFT for the acting instructor.
func (s *LifecycleService) Create(ctx context.Context, actor models.Actor, req CourseFieldsRequest) (*models.CourseDetail, error) {
	if actor.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors may create courses")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	course := &models.Course{
		InstructorID: actor.ID,
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Description:  req.Description,
		Syllabus:     req.Syllabus,
		Price:        req.Price,
		ThumbnailURL: req.ThumbnailURL,
		Status:       models.CourseStatusDraft,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create course")
	}
	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("instructor_id", actor.ID))
	return s.loadDetail(ctx, course.ID)
}

// SaveDraft applies content edits while the course is DRAFT or REJECTED.
// The status is never changed here; a REJECTED course stays REJECTED until
// the instructor explicitly resubmits.
func (s *LifecycleService) SaveDraft(ctx context.Context, courseID string, actor models.Actor, req CourseFieldsRequest) (*models.CourseDetail, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(course, actor); err != nil {
		return nil, err
	}
	if !course.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "course content is frozen while in "+string(course.Status))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	course.CategoryID = req.CategoryID
	course.Title = req.Title
	course.Description = req.Description
	course.Syllabus = req.Syllabus
	course.Price = req.Price
	course.ThumbnailURL = req.ThumbnailURL
	if err := s.courses.UpdateContent(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to save course")
	}
	return s.loadDetail(ctx, course.ID)
}

// SubmitForReview moves a DRAFT or REJECTED course to PENDING. Resubmission
// after rejection reuses this operation and records its own audit entry.
func (s *LifecycleService) SubmitForReview(ctx context.Context, courseID string, actor models.Actor) (*models.CourseDetail, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(course, actor); err != nil {
		return nil, err
	}
	target, ok := instructorTransitions[course.Status]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "course cannot be submitted from "+string(course.Status))
	}

	// Submitting clears any stored review comment; the rejection feedback
	// remains in the status history.
	applied, err := s.courses.UpdateStatus(ctx, course.ID, course.Status, target, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update course status")
	}
	if !applied {
		// Status moved underneath us; the loser of the race reports it the
		// same way as any other illegal transition.
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "course status changed concurrently")
	}

	s.recordTransition(ctx, course.ID, actor.ID, course.Status, target, "")
	s.logger.Info("course submitted for review",
		zap.String("course_id", course.ID),
		zap.String("from", string(course.Status)))
	return s.loadDetail(ctx, course.ID)
}

// Approve publishes a PENDING course to the catalog.
func (s *LifecycleService) Approve(ctx context.Context, courseID string, actor models.Actor, req ReviewDecisionRequest) (*models.CourseDetail, error) {
	return s.decide(ctx, courseID, actor, models.CourseStatusApproved, req.Comment)
}

// Reject returns a PENDING course to its instructor for changes.
func (s *LifecycleService) Reject(ctx context.Context, courseID string, actor models.Actor, req ReviewDecisionRequest) (*models.CourseDetail, error) {
	return s.decide(ctx, courseID, actor, models.CourseStatusRejected, req.Comment)
}

func (s *LifecycleService) decide(ctx context.Context, courseID string, actor models.Actor, target models.CourseStatus, comment string) (*models.CourseDetail, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may review courses")
	}
	if _, ok := adminDecisions[target]; !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "unsupported review decision")
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != models.CourseStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "course is not pending review")
	}

	applied, err := s.courses.UpdateStatus(ctx, course.ID, models.CourseStatusPending, target, comment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update course status")
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "course status changed concurrently")
	}

	s.recordTransition(ctx, course.ID, actor.ID, models.CourseStatusPending, target, comment)
	s.notifyDecision(ctx, course, target, comment)
	s.logger.Info("course reviewed",
		zap.String("course_id", course.ID),
		zap.String("decision", string(target)))
	return s.loadDetail(ctx, course.ID)
}

// DeleteDraft removes a course that never left DRAFT.
func (s *LifecycleService) DeleteDraft(ctx context.Context, courseID string, actor models.Actor) error {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(course, actor); err != nil {
		return err
	}
	if course.Status != models.CourseStatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "only draft courses can be deleted")
	}
	deleted, err := s.courses.DeleteDraft(ctx, course.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to delete course")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "course status changed concurrently")
	}
	return nil
}

// History returns the lifecycle audit trail. Visible to the owner and admins.
func (s *LifecycleService) History(ctx context.Context, courseID string, actor models.Actor) ([]models.StatusTransition, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		if err := s.requireOwner(course, actor); err != nil {
			return nil, err
		}
	}
	transitions, err := s.courses.ListTransitions(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course history")
	}
	return transitions, nil
}

func (s *LifecycleService) loadCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course")
	}
	return course, nil
}

func (s *LifecycleService) loadDetail(ctx context.Context, id string) (*models.CourseDetail, error) {
	detail, err := s.courses.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course detail")
	}
	return detail, nil
}

func (s *LifecycleService) requireOwner(course *models.Course, actor models.Actor) error {
	if actor.Role != models.RoleInstructor || course.InstructorID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owning instructor may modify this course")
	}
	return nil
}

func (s *LifecycleService) checkCategory(ctx context.Context, categoryID *string) error {
	if categoryID == nil || *categoryID == "" {
		return nil
	}
	if _, err := s.categories.FindByID(ctx, *categoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load category")
	}
	return nil
}

func (s *LifecycleService) recordTransition(ctx context.Context, courseID, actorID string, from, to models.CourseStatus, comment string) {
	transition := &models.StatusTransition{
		CourseID:   courseID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
		Comment:    comment,
	}
	if err := s.courses.CreateTransition(ctx, transition); err != nil {
		s.logger.Warn("failed to record status transition",
			zap.Error(err),
			zap.String("course_id", courseID),
			zap.String("to", string(to)))
	}
	if s.metrics != nil {
		s.metrics.RecordCourseTransition(string(to))
	}
}

func (s *LifecycleService) notifyDecision(ctx context.Context, course *models.Course, target models.CourseStatus, comment string) {
	if s.notifier == nil || s.users == nil {
		return
	}
	instructor, err := s.users.FindByID(ctx, course.InstructorID)
	if err != nil {
		s.logger.Warn("failed to load instructor for notification", zap.Error(err), zap.String("course_id", course.ID))
		return
	}
	approved := target == models.CourseStatusApproved
	if err := s.notifier.SendReviewDecision(ctx, instructor.Email, instructor.FullName, course.Title, approved, comment); err != nil {
		s.logger.Warn("failed to send review decision email", zap.Error(err), zap.String("course_id", course.ID))
	}
}
