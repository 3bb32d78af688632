package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skillsphere/skillsphere-api/internal/models"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type mockCourseRepo struct {
	courses         map[string]*models.Course
	createErr       error
	updateErr       error
	updateStatusErr error
	statusApplied   bool
	transitions     []*models.StatusTransition
	deleted         []string
}

func newMockCourseRepo(courses ...*models.Course) *mockCourseRepo {
	repo := &mockCourseRepo{courses: map[string]*models.Course{}, statusApplied: true}
	for _, course := range courses {
		repo.courses[course.ID] = course
	}
	return repo
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *course
	return &copied, nil
}

func (m *mockCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.CourseDetail{Course: *course}, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.createErr != nil {
		return m.createErr
	}
	if course.ID == "" {
		course.ID = "generated"
	}
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) UpdateContent(ctx context.Context, course *models.Course) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) UpdateStatus(ctx context.Context, id string, from, to models.CourseStatus, adminComment string) (bool, error) {
	if m.updateStatusErr != nil {
		return false, m.updateStatusErr
	}
	if !m.statusApplied {
		return false, nil
	}
	course, ok := m.courses[id]
	if !ok || course.Status != from {
		return false, nil
	}
	course.Status = to
	course.AdminComment = adminComment
	return true, nil
}

func (m *mockCourseRepo) DeleteDraft(ctx context.Context, id string) (bool, error) {
	course, ok := m.courses[id]
	if !ok || course.Status != models.CourseStatusDraft {
		return false, nil
	}
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return true, nil
}

func (m *mockCourseRepo) CreateTransition(ctx context.Context, transition *models.StatusTransition) error {
	m.transitions = append(m.transitions, transition)
	return nil
}

func (m *mockCourseRepo) ListTransitions(ctx context.Context, courseID string) ([]models.StatusTransition, error) {
	var out []models.StatusTransition
	for _, transition := range m.transitions {
		if transition.CourseID == courseID {
			out = append(out, *transition)
		}
	}
	return out, nil
}

type mockCategoryReader struct {
	categories map[string]*models.Category
}

func (m *mockCategoryReader) FindByID(ctx context.Context, id string) (*models.Category, error) {
	category, ok := m.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return category, nil
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type mockNotifier struct {
	decisions []bool
	comments  []string
	err       error
}

func (m *mockNotifier) SendReviewDecision(ctx context.Context, email, fullName, courseTitle string, approved bool, comment string) error {
	m.decisions = append(m.decisions, approved)
	m.comments = append(m.comments, comment)
	return m.err
}

func newLifecycleService(repo *mockCourseRepo, notifier *mockNotifier, users map[string]*models.User) *LifecycleService {
	var notifierIface ReviewNotifier
	if notifier != nil {
		notifierIface = notifier
	}
	return NewLifecycleService(repo,
		&mockCategoryReader{categories: map[string]*models.Category{"cat1": {ID: "cat1", Name: "Programming"}}},
		&mockUserReader{users: users},
		notifierIface, nil, validator.New(), zap.NewNop())
}

func instructorActor(id string) models.Actor {
	return models.Actor{ID: id, Role: models.RoleInstructor}
}

func adminActor() models.Actor {
	return models.Actor{ID: "admin1", Role: models.RoleAdmin}
}

func TestLifecycleCreateStartsInDraft(t *testing.T) {
	repo := newMockCourseRepo()
	svc := newLifecycleService(repo, nil, nil)

	detail, err := svc.Create(context.Background(), instructorActor("ins1"), CourseFieldsRequest{Title: "Go Basics", Price: 49.99})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusDraft, detail.Status)
	assert.Equal(t, "ins1", detail.InstructorID)
}

func TestLifecycleCreateRequiresInstructor(t *testing.T) {
	repo := newMockCourseRepo()
	svc := newLifecycleService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.Actor{ID: "l1", Role: models.RoleLearner}, CourseFieldsRequest{Title: "Nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLifecycleCreateUnknownCategory(t *testing.T) {
	repo := newMockCourseRepo()
	svc := newLifecycleService(repo, nil, nil)

	missing := "cat-missing"
	_, err := svc.Create(context.Background(), instructorActor("ins1"), CourseFieldsRequest{Title: "Go", CategoryID: &missing})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLifecycleSaveDraftFrozenWhilePending(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusPending})
	svc := newLifecycleService(repo, nil, nil)

	_, err := svc.SaveDraft(context.Background(), "c1", instructorActor("ins1"), CourseFieldsRequest{Title: "Go v2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestLifecycleSaveDraftKeepsRejectedStatus(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusRejected})
	svc := newLifecycleService(repo, nil, nil)

	detail, err := svc.SaveDraft(context.Background(), "c1", instructorActor("ins1"), CourseFieldsRequest{Title: "Go v2"})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusRejected, detail.Status)
	assert.Equal(t, "Go v2", detail.Title)
}

func TestLifecycleSaveDraftOwnershipBeforeStatus(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusPending})
	svc := newLifecycleService(repo, nil, nil)

	// A non-owner gets FORBIDDEN even though the course is also frozen.
	_, err := svc.SaveDraft(context.Background(), "c1", instructorActor("ins2"), CourseFieldsRequest{Title: "Hijack"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLifecycleSubmitFromDraft(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusDraft})
	svc := newLifecycleService(repo, nil, nil)

	detail, err := svc.SubmitForReview(context.Background(), "c1", instructorActor("ins1"))
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusPending, detail.Status)
	require.Len(t, repo.transitions, 1)
	assert.Equal(t, models.CourseStatusDraft, repo.transitions[0].FromStatus)
	assert.Equal(t, models.CourseStatusPending, repo.transitions[0].ToStatus)
}

func TestLifecycleResubmitAfterRejection(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusRejected})
	svc := newLifecycleService(repo, nil, nil)

	detail, err := svc.SubmitForReview(context.Background(), "c1", instructorActor("ins1"))
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusPending, detail.Status)
	require.Len(t, repo.transitions, 1)
	assert.Equal(t, models.CourseStatusRejected, repo.transitions[0].FromStatus)
}

func TestLifecycleResubmitClearsReviewComment(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusRejected, AdminComment: "needs a syllabus"})
	svc := newLifecycleService(repo, nil, nil)

	detail, err := svc.SubmitForReview(context.Background(), "c1", instructorActor("ins1"))
	require.NoError(t, err)
	// The stored comment resets while awaiting the next decision; the
	// rejection feedback stays in the transition history.
	assert.Empty(t, detail.AdminComment)
	assert.Empty(t, repo.courses["c1"].AdminComment)
}

func TestLifecycleSubmitInvalidFromApproved(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusApproved})
	svc := newLifecycleService(repo, nil, nil)

	_, err := svc.SubmitForReview(context.Background(), "c1", instructorActor("ins1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestLifecycleSubmitLosesRace(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusDraft})
	repo.statusApplied = false
	svc := newLifecycleService(repo, nil, nil)

	_, err := svc.SubmitForReview(context.Background(), "c1", instructorActor("ins1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.transitions)
}

func TestLifecycleApproveNotifiesInstructor(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusPending})
	notifier := &mockNotifier{}
	users := map[string]*models.User{"ins1": {ID: "ins1", Email: "ins@example.com", FullName: "Ina"}}
	svc := newLifecycleService(repo, notifier, users)

	detail, err := svc.Approve(context.Background(), "c1", adminActor(), ReviewDecisionRequest{Comment: "solid"})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusApproved, detail.Status)
	require.Len(t, notifier.decisions, 1)
	assert.True(t, notifier.decisions[0])
	assert.Equal(t, "solid", notifier.comments[0])
}

func TestLifecycleRejectStoresComment(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusPending})
	notifier := &mockNotifier{}
	users := map[string]*models.User{"ins1": {ID: "ins1", Email: "ins@example.com", FullName: "Ina"}}
	svc := newLifecycleService(repo, notifier, users)

	detail, err := svc.Reject(context.Background(), "c1", adminActor(), ReviewDecisionRequest{Comment: "needs work"})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusRejected, detail.Status)
	assert.Equal(t, "needs work", detail.AdminComment)
	require.Len(t, notifier.decisions, 1)
	assert.False(t, notifier.decisions[0])
}

func TestLifecycleDecisionRequiresAdmin(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusPending})
	svc := newLifecycleService(repo, nil, nil)

	_, err := svc.Approve(context.Background(), "c1", instructorActor("ins1"), ReviewDecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLifecycleDecisionOnNonPending(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusDraft})
	svc := newLifecycleService(repo, nil, nil)

	_, err := svc.Approve(context.Background(), "c1", adminActor(), ReviewDecisionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestLifecycleNotifierFailureDoesNotBlockDecision(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusPending})
	notifier := &mockNotifier{err: assert.AnError}
	users := map[string]*models.User{"ins1": {ID: "ins1", Email: "ins@example.com", FullName: "Ina"}}
	svc := newLifecycleService(repo, notifier, users)

	detail, err := svc.Approve(context.Background(), "c1", adminActor(), ReviewDecisionRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusApproved, detail.Status)
}

func TestLifecycleDeleteDraftOnly(t *testing.T) {
	repo := newMockCourseRepo(
		&models.Course{ID: "c1", InstructorID: "ins1", Status: models.CourseStatusDraft},
		&models.Course{ID: "c2", InstructorID: "ins1", Status: models.CourseStatusApproved},
	)
	svc := newLifecycleService(repo, nil, nil)

	require.NoError(t, svc.DeleteDraft(context.Background(), "c1", instructorActor("ins1")))
	assert.Contains(t, repo.deleted, "c1")

	err := svc.DeleteDraft(context.Background(), "c2", instructorActor("ins1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestLifecycleHistoryVisibleToOwnerAndAdmin(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Status: models.CourseStatusDraft})
	svc := newLifecycleService(repo, nil, nil)

	_, err := svc.SubmitForReview(context.Background(), "c1", instructorActor("ins1"))
	require.NoError(t, err)

	transitions, err := svc.History(context.Background(), "c1", instructorActor("ins1"))
	require.NoError(t, err)
	assert.Len(t, transitions, 1)

	transitions, err = svc.History(context.Background(), "c1", adminActor())
	require.NoError(t, err)
	assert.Len(t, transitions, 1)

	_, err = svc.History(context.Background(), "c1", instructorActor("ins2"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLifecycleStoreUnavailableIsRetryable(t *testing.T) {
	repo := newMockCourseRepo(&models.Course{ID: "c1", InstructorID: "ins1", Status: models.CourseStatusDraft})
	repo.updateStatusErr = assert.AnError
	svc := newLifecycleService(repo, nil, nil)

	_, err := svc.SubmitForReview(context.Background(), "c1", instructorActor("ins1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
	assert.True(t, appErrors.Retryable(err))
}
