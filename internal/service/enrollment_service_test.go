package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/skillsphere-api/internal/models"
	"github.com/skillsphere/skillsphere-api/internal/repository"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments    map[string]*models.Enrollment
	createErr      error
	created        *models.Enrollment
	updatedID      string
	updatedValue   int
	updateErr      error
	listResult     []models.EnrollmentDetail
	listTotal      int
	lastFilter     models.EnrollmentFilter
	countTotal     int
	countCompleted int
	countErr       error
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.lastFilter = filter
	return m.listResult, m.listTotal, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *enrollment
	return &copied, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateProgress(ctx context.Context, id string, progress int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedID = id
	m.updatedValue = progress
	return nil
}

func (m *mockEnrollmentRepo) CountForLearner(ctx context.Context, learnerID string) (int, int, error) {
	return m.countTotal, m.countCompleted, m.countErr
}

type mockEnrollmentCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockEnrollmentCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type mockCourseCounter struct {
	counts models.CourseStatusCounts
	err    error
}

func (m *mockCourseCounter) CountByStatusForInstructor(ctx context.Context, instructorID string) (models.CourseStatusCounts, error) {
	return m.counts, m.err
}

type mockTimeEvents struct {
	minutes int
	err     error
}

func (m *mockTimeEvents) SumMinutesForLearner(ctx context.Context, learnerID string) (int, error) {
	return m.minutes, m.err
}

func newEnrollmentService(repo *mockEnrollmentRepo, courses map[string]*models.Course) *EnrollmentService {
	return NewEnrollmentService(repo, &mockEnrollmentCourseReader{courses: courses}, &mockCourseCounter{}, &mockTimeEvents{}, nil, nil, nil)
}

func learnerActor(id string) models.Actor {
	return models.Actor{ID: id, Role: models.RoleLearner}
}

func TestEnrollSuccess(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	courses := map[string]*models.Course{"c1": {ID: "c1", Status: models.CourseStatusApproved}}
	svc := newEnrollmentService(repo, courses)

	enrollment, err := svc.Enroll(context.Background(), learnerActor("l1"), EnrollRequest{CourseID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "l1", enrollment.LearnerID)
	assert.Equal(t, "c1", enrollment.CourseID)
	assert.Equal(t, 0, enrollment.Progress)
	require.NotNil(t, repo.created)
}

func TestEnrollRequiresLearnerRole(t *testing.T) {
	svc := newEnrollmentService(&mockEnrollmentRepo{}, nil)

	for _, role := range []models.UserRole{models.RoleInstructor, models.RoleAdmin, models.UserRole("")} {
		_, err := svc.Enroll(context.Background(), models.Actor{ID: "x", Role: role}, EnrollRequest{CourseID: "c1"})
		require.Error(t, err, "role %s", role)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	}
}

func TestEnrollRejectsUnapprovedCourse(t *testing.T) {
	for _, status := range []models.CourseStatus{models.CourseStatusDraft, models.CourseStatusPending, models.CourseStatusRejected} {
		courses := map[string]*models.Course{"c1": {ID: "c1", Status: status}}
		svc := newEnrollmentService(&mockEnrollmentRepo{}, courses)

		_, err := svc.Enroll(context.Background(), learnerActor("l1"), EnrollRequest{CourseID: "c1"})
		require.Error(t, err, "status %s", status)
		assert.Equal(t, appErrors.ErrNotEnrollable.Code, appErrors.FromError(err).Code)
	}
}

func TestEnrollUnknownCourse(t *testing.T) {
	svc := newEnrollmentService(&mockEnrollmentRepo{}, nil)

	_, err := svc.Enroll(context.Background(), learnerActor("l1"), EnrollRequest{CourseID: "ghost"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollDuplicateMapsToAlreadyEnrolled(t *testing.T) {
	repo := &mockEnrollmentRepo{createErr: repository.ErrDuplicateEnrollment}
	courses := map[string]*models.Course{"c1": {ID: "c1", Status: models.CourseStatusApproved}}
	svc := newEnrollmentService(repo, courses)

	_, err := svc.Enroll(context.Background(), learnerActor("l1"), EnrollRequest{CourseID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErrors.FromError(err).Code)
	assert.False(t, appErrors.Retryable(err))
}

func TestUpdateProgressBounds(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{"e1": {ID: "e1", LearnerID: "l1", Progress: 40}}}
	svc := newEnrollmentService(repo, nil)

	for _, progress := range []int{-1, 101, 1000} {
		value := progress
		_, err := svc.UpdateProgress(context.Background(), learnerActor("l1"), "e1", UpdateProgressRequest{Progress: &value})
		require.Error(t, err, "progress %d", progress)
		assert.Equal(t, appErrors.ErrInvalidProgress.Code, appErrors.FromError(err).Code)
	}
	assert.Empty(t, repo.updatedID)
}

func TestUpdateProgressAllowsDecrease(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{"e1": {ID: "e1", LearnerID: "l1", Progress: 80}}}
	svc := newEnrollmentService(repo, nil)

	value := 30
	enrollment, err := svc.UpdateProgress(context.Background(), learnerActor("l1"), "e1", UpdateProgressRequest{Progress: &value})
	require.NoError(t, err)
	assert.Equal(t, 30, enrollment.Progress)
	assert.Equal(t, "e1", repo.updatedID)
	assert.Equal(t, 30, repo.updatedValue)
}

func TestUpdateProgressBoundaryValues(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{"e1": {ID: "e1", LearnerID: "l1", Progress: 50}}}
	svc := newEnrollmentService(repo, nil)

	for _, value := range []int{0, 100} {
		v := value
		enrollment, err := svc.UpdateProgress(context.Background(), learnerActor("l1"), "e1", UpdateProgressRequest{Progress: &v})
		require.NoError(t, err, "progress %d", value)
		assert.Equal(t, value, enrollment.Progress)
	}
}

func TestUpdateProgressForeignEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{"e1": {ID: "e1", LearnerID: "l1"}}}
	svc := newEnrollmentService(repo, nil)

	value := 10
	_, err := svc.UpdateProgress(context.Background(), learnerActor("l2"), "e1", UpdateProgressRequest{Progress: &value})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updatedID)
}

func TestUpdateProgressMissingEnrollment(t *testing.T) {
	svc := newEnrollmentService(&mockEnrollmentRepo{}, nil)

	value := 10
	_, err := svc.UpdateProgress(context.Background(), learnerActor("l1"), "ghost", UpdateProgressRequest{Progress: &value})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListForLearnerScopesToActor(t *testing.T) {
	repo := &mockEnrollmentRepo{listResult: []models.EnrollmentDetail{}, listTotal: 3}
	svc := newEnrollmentService(repo, nil)

	_, pagination, err := svc.ListForLearner(context.Background(), learnerActor("l1"), models.EnrollmentFilter{LearnerID: "someone-else"})
	require.NoError(t, err)
	assert.Equal(t, "l1", repo.lastFilter.LearnerID)
	assert.Equal(t, 3, pagination.TotalCount)
	assert.Equal(t, 20, pagination.PageSize)
}

func TestAggregateForLearner(t *testing.T) {
	repo := &mockEnrollmentRepo{countTotal: 7, countCompleted: 2}
	svc := NewEnrollmentService(repo, nil, nil, &mockTimeEvents{minutes: 150}, nil, nil, nil)

	stats, err := svc.AggregateForLearner(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalEnrolled)
	assert.Equal(t, 2, stats.CompletedCourses)
	assert.Equal(t, 2, stats.TotalHoursSpent)
}

func TestAggregateForLearnerStoreFailure(t *testing.T) {
	repo := &mockEnrollmentRepo{countErr: assert.AnError}
	svc := newEnrollmentService(repo, nil)

	_, err := svc.AggregateForLearner(context.Background(), "l1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
	assert.True(t, appErrors.Retryable(err))
}

func TestAggregateForInstructor(t *testing.T) {
	counter := &mockCourseCounter{counts: models.CourseStatusCounts{Total: 5, Draft: 1, Pending: 1, Approved: 2, Rejected: 1}}
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, nil, counter, nil, nil, nil, nil)

	counts, err := svc.AggregateForInstructor(context.Background(), "ins1")
	require.NoError(t, err)
	assert.Equal(t, counts.Total, counts.Draft+counts.Pending+counts.Approved+counts.Rejected)
}
