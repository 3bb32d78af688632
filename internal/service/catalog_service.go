package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/skillsphere/skillsphere-api/internal/models"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type catalogCourseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

type lessonLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
}

type enrollmentChecker interface {
	Exists(ctx context.Context, learnerID, courseID string) (bool, error)
}

// Capabilities is the action set an actor holds on a single course. It is
// computed by a pure function of (actor, course); unrecognized roles or
// statuses yield the zero value, denying everything. The one carve-out is
// the anonymous visitor, who may view APPROVED courses.
type Capabilities struct {
	CanView    bool `json:"can_view"`
	CanEdit    bool `json:"can_edit"`
	CanSubmit  bool `json:"can_submit"`
	CanApprove bool `json:"can_approve"`
	CanReject  bool `json:"can_reject"`
	CanEnroll  bool `json:"can_enroll"`
	CanDelete  bool `json:"can_delete"`
}

// capabilityTable maps each role to its capability resolver. A single lookup
// replaces role conditionals scattered through handlers.
var capabilityTable = map[models.UserRole]func(actor models.Actor, course models.Course) Capabilities{
	models.RoleLearner: func(_ models.Actor, course models.Course) Capabilities {
		if course.Status != models.CourseStatusApproved {
			return Capabilities{}
		}
		return Capabilities{CanView: true, CanEnroll: true}
	},
	models.RoleInstructor: func(actor models.Actor, course models.Course) Capabilities {
		if course.InstructorID != actor.ID {
			if course.Status == models.CourseStatusApproved {
				return Capabilities{CanView: true}
			}
			return Capabilities{}
		}
		caps := Capabilities{CanView: course.Status.Valid()}
		if course.Status.Editable() {
			caps.CanEdit = true
			caps.CanSubmit = true
		}
		if course.Status == models.CourseStatusDraft {
			caps.CanDelete = true
		}
		return caps
	},
	models.RoleAdmin: func(_ models.Actor, course models.Course) Capabilities {
		caps := Capabilities{CanView: course.Status.Valid()}
		if course.Status == models.CourseStatusPending {
			caps.CanApprove = true
			caps.CanReject = true
		}
		return caps
	},
}

// Capabilities resolves the permitted action set for an actor on a course.
// Anonymous visitors get a read-only view of the public catalog; enrolling
// still requires a learner account.
func (s *CatalogService) Capabilities(actor models.Actor, course models.Course) Capabilities {
	resolve, ok := capabilityTable[actor.Role]
	if !ok {
		if actor.ID == "" && course.Status == models.CourseStatusApproved {
			return Capabilities{CanView: true}
		}
		return Capabilities{}
	}
	return resolve(actor, course)
}

// CourseListItem pairs a course with the actor's capabilities on it.
type CourseListItem struct {
	models.CourseDetail
	Capabilities Capabilities `json:"capabilities"`
}

// CourseView is the detail payload for a single course.
type CourseView struct {
	models.CourseDetail
	Lessons      []models.Lesson `json:"lessons"`
	Capabilities Capabilities    `json:"capabilities"`
	Enrolled     bool            `json:"enrolled"`
}

// CatalogService decides which courses an actor may see and what it may do
// with each of them.
type CatalogService struct {
	courses     catalogCourseRepository
	lessons     lessonLister
	enrollments enrollmentChecker
	logger      *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(courses catalogCourseRepository, lessons lessonLister, enrollments enrollmentChecker, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{courses: courses, lessons: lessons, enrollments: enrollments, logger: logger}
}

// VisibleCourses returns the subset of courses the actor is authorized to
// see. Learners and anonymous actors see the APPROVED catalog, instructors
// their own courses in any state, admins the review queue plus the catalog.
func (s *CatalogService) VisibleCourses(ctx context.Context, actor models.Actor, filter models.CourseFilter) ([]CourseListItem, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleInstructor:
		filter.InstructorID = actor.ID
		filter.Statuses = filterStatuses(filter.Statuses, models.CourseStatusDraft, models.CourseStatusPending, models.CourseStatusApproved, models.CourseStatusRejected)
	case models.RoleAdmin:
		filter.Statuses = filterStatuses(filter.Statuses, models.CourseStatusPending, models.CourseStatusApproved)
	default:
		// Learners and unknown roles fall back to the public catalog.
		filter.Statuses = []models.CourseStatus{models.CourseStatusApproved}
	}

	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list courses")
	}

	items := make([]CourseListItem, 0, len(courses))
	for _, course := range courses {
		items = append(items, CourseListItem{
			CourseDetail: course,
			Capabilities: s.Capabilities(actor, course.Course),
		})
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
	return items, pagination, nil
}

// GetCourse returns a single course with lessons, enforcing visibility.
// Courses the actor may not see are reported as not found.
func (s *CatalogService) GetCourse(ctx context.Context, actor models.Actor, courseID string) (*CourseView, error) {
	detail, err := s.courses.FindDetailByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course")
	}

	caps := s.Capabilities(actor, detail.Course)
	if !caps.CanView {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load lessons")
	}

	view := &CourseView{CourseDetail: *detail, Lessons: lessons, Capabilities: caps}
	if actor.Role == models.RoleLearner && s.enrollments != nil {
		enrolled, err := s.enrollments.Exists(ctx, actor.ID, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check enrollment")
		}
		view.Enrolled = enrolled
		if enrolled {
			view.Capabilities.CanEnroll = false
		}
	}
	return view, nil
}

// filterStatuses intersects the requested statuses with the allowed set,
// falling back to the full allowed set when the request names none.
func filterStatuses(requested []models.CourseStatus, allowed ...models.CourseStatus) []models.CourseStatus {
	if len(requested) == 0 {
		return allowed
	}
	allowedSet := make(map[models.CourseStatus]struct{}, len(allowed))
	for _, status := range allowed {
		allowedSet[status] = struct{}{}
	}
	var out []models.CourseStatus
	for _, status := range requested {
		if _, ok := allowedSet[status]; ok {
			out = append(out, status)
		}
	}
	if len(out) == 0 {
		return allowed
	}
	return out
}
