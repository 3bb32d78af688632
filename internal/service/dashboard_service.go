package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skillsphere/skillsphere-api/internal/dto"
	"github.com/skillsphere/skillsphere-api/internal/models"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type learnerStatsProvider interface {
	AggregateForLearner(ctx context.Context, learnerID string) (models.LearnerStats, error)
}

type instructorStatsProvider interface {
	AggregateForInstructor(ctx context.Context, instructorID string) (models.CourseStatusCounts, error)
}

type dashboardEnrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type dashboardCourseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	CountByStatus(ctx context.Context) (models.CourseStatusCounts, error)
	CountDistinctInstructors(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL              time.Duration
	ContinueLearningLimit int
	InstructorCoursesMax  int
	ReviewQueueMax        int
}

// DashboardService composes the role-specific dashboard payloads. Each
// dashboard is cached per identity; failures from the underlying services
// pass through unchanged.
type DashboardService struct {
	learnerStats    learnerStatsProvider
	instructorStats instructorStatsProvider
	enrollments     dashboardEnrollmentLister
	courses         dashboardCourseRepository
	cache           *CacheService
	logger          *zap.Logger
	cfg             DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	LearnerStats    learnerStatsProvider
	InstructorStats instructorStatsProvider
	Enrollments     dashboardEnrollmentLister
	Courses         dashboardCourseRepository
	Cache           *CacheService
	Logger          *zap.Logger
	Config          DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ContinueLearningLimit <= 0 {
		cfg.ContinueLearningLimit = 5
	}
	if cfg.InstructorCoursesMax <= 0 {
		cfg.InstructorCoursesMax = 20
	}
	if cfg.ReviewQueueMax <= 0 {
		cfg.ReviewQueueMax = 20
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		learnerStats:    params.LearnerStats,
		instructorStats: params.InstructorStats,
		enrollments:     params.Enrollments,
		courses:         params.Courses,
		cache:           params.Cache,
		logger:          logger,
		cfg:             cfg,
	}
}

// Learner returns the learner dashboard and indicates cache utilisation.
func (s *DashboardService) Learner(ctx context.Context, actor models.Actor) (*dto.LearnerDashboardResponse, bool, error) {
	if actor.Role != models.RoleLearner {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "learner dashboard requires the LEARNER role")
	}
	cacheKey := fmt.Sprintf("dash:learner:%s", actor.ID)
	var cached dto.LearnerDashboardResponse
	if hit := s.tryCache(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	summary, err := s.composeLearner(ctx, actor.ID)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Instructor returns the instructor dashboard and indicates cache utilisation.
func (s *DashboardService) Instructor(ctx context.Context, actor models.Actor) (*dto.InstructorDashboardResponse, bool, error) {
	if actor.Role != models.RoleInstructor {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "instructor dashboard requires the INSTRUCTOR role")
	}
	cacheKey := fmt.Sprintf("dash:instructor:%s", actor.ID)
	var cached dto.InstructorDashboardResponse
	if hit := s.tryCache(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	summary, err := s.composeInstructor(ctx, actor.ID)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Admin returns the admin dashboard and indicates cache utilisation.
func (s *DashboardService) Admin(ctx context.Context, actor models.Actor) (*dto.AdminDashboardResponse, bool, error) {
	if actor.Role != models.RoleAdmin {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "admin dashboard requires the ADMIN role")
	}
	const cacheKey = "dash:admin"
	var cached dto.AdminDashboardResponse
	if hit := s.tryCache(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	summary, err := s.composeAdmin(ctx)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

func (s *DashboardService) tryCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the cached dashboard for one identity, or the shared
// admin payload when identity is empty.
func (s *DashboardService) Invalidate(ctx context.Context, role models.UserRole, identity string) {
	if s.cache == nil {
		return
	}
	pattern := "dash:admin"
	switch role {
	case models.RoleLearner:
		pattern = fmt.Sprintf("dash:learner:%s", identity)
	case models.RoleInstructor:
		pattern = fmt.Sprintf("dash:instructor:%s", identity)
	}
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

func (s *DashboardService) composeLearner(ctx context.Context, learnerID string) (*dto.LearnerDashboardResponse, error) {
	stats, err := s.learnerStats.AggregateForLearner(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	notCompleted := false
	inProgress, _, err := s.enrollments.List(ctx, models.EnrollmentFilter{
		LearnerID: learnerID,
		Completed: &notCompleted,
		Page:      1,
		PageSize:  s.cfg.ContinueLearningLimit,
		SortBy:    "updated_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load in-progress enrollments")
	}

	items := make([]dto.ContinueLearningItem, 0, len(inProgress))
	for _, enrollment := range inProgress {
		items = append(items, dto.ContinueLearningItem{
			EnrollmentID: enrollment.ID,
			CourseID:     enrollment.CourseID,
			CourseTitle:  enrollment.CourseTitle,
			ThumbnailURL: enrollment.ThumbnailURL,
			Progress:     enrollment.Progress,
			Badge:        progressBadge(enrollment.Progress),
		})
	}

	return &dto.LearnerDashboardResponse{Stats: stats, ContinueLearning: items}, nil
}

func (s *DashboardService) composeInstructor(ctx context.Context, instructorID string) (*dto.InstructorDashboardResponse, error) {
	stats, err := s.instructorStats.AggregateForInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	courses, _, err := s.courses.List(ctx, models.CourseFilter{
		InstructorID: instructorID,
		Statuses: []models.CourseStatus{
			models.CourseStatusDraft,
			models.CourseStatusPending,
			models.CourseStatusApproved,
			models.CourseStatusRejected,
		},
		Page:      1,
		PageSize:  s.cfg.InstructorCoursesMax,
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load instructor courses")
	}

	items := make([]dto.InstructorCourseItem, 0, len(courses))
	for _, course := range courses {
		items = append(items, dto.InstructorCourseItem{
			CourseID:        course.ID,
			Title:           course.Title,
			Status:          course.Status,
			Badge:           statusBadge(course.Status),
			Price:           course.Price,
			EnrollmentCount: course.EnrollmentCount,
			AdminComment:    course.AdminComment,
			CreatedAt:       course.CreatedAt,
		})
	}

	return &dto.InstructorDashboardResponse{Stats: stats, Courses: items}, nil
}

func (s *DashboardService) composeAdmin(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	counts, err := s.courses.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to count courses")
	}
	instructors, err := s.courses.CountDistinctInstructors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to count instructors")
	}

	pending, _, err := s.courses.List(ctx, models.CourseFilter{
		Statuses:  []models.CourseStatus{models.CourseStatusPending},
		Page:      1,
		PageSize:  s.cfg.ReviewQueueMax,
		SortBy:    "created_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load review queue")
	}

	queue := make([]dto.ReviewQueueItem, 0, len(pending))
	for _, course := range pending {
		queue = append(queue, dto.ReviewQueueItem{
			CourseID:       course.ID,
			Title:          course.Title,
			InstructorName: course.InstructorName,
			Price:          course.Price,
			SubmittedAt:    course.UpdatedAt,
			Badge:          dto.BadgeAwaitingReview,
		})
	}

	return &dto.AdminDashboardResponse{
		Stats: dto.AdminStats{
			TotalCourses:     counts.Total,
			PendingCourses:   counts.Pending,
			ApprovedCourses:  counts.Approved,
			RejectedCourses:  counts.Rejected,
			TotalInstructors: instructors,
		},
		ReviewQueue: queue,
	}, nil
}

func progressBadge(progress int) string {
	switch {
	case progress <= 0:
		return dto.BadgeNotStarted
	case progress >= 100:
		return dto.BadgeCompleted
	default:
		return dto.BadgeInProgress
	}
}

func statusBadge(status models.CourseStatus) string {
	switch status {
	case models.CourseStatusDraft:
		return dto.BadgeDraft
	case models.CourseStatusPending:
		return dto.BadgeInReview
	case models.CourseStatusRejected:
		return dto.BadgeChangesRequested
	case models.CourseStatusApproved:
		return dto.BadgeLive
	default:
		return ""
	}
}
