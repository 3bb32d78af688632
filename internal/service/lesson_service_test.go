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

type mockLessonRepo struct {
	lessons   map[string]*models.Lesson
	created   *models.Lesson
	createErr error
	updated   *models.Lesson
	deleted   []string
}

func (m *mockLessonRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, lesson := range m.lessons {
		if lesson.CourseID == courseID {
			out = append(out, *lesson)
		}
	}
	return out, nil
}

func (m *mockLessonRepo) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, ok := m.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *lesson
	return &copied, nil
}

func (m *mockLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = lesson
	return nil
}

func (m *mockLessonRepo) Update(ctx context.Context, lesson *models.Lesson) error {
	m.updated = lesson
	return nil
}

func (m *mockLessonRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockLessonCourses struct {
	courses map[string]*models.Course
}

func (m *mockLessonCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *course
	return &copied, nil
}

func newLessonFixture(status models.CourseStatus) (*mockLessonRepo, *mockLessonCourses, *LessonService) {
	repo := &mockLessonRepo{lessons: map[string]*models.Lesson{
		"les1": {ID: "les1", CourseID: "c1", Title: "Intro", Position: 1, MediaType: models.LessonMediaDocument},
	}}
	courses := &mockLessonCourses{courses: map[string]*models.Course{
		"c1": {ID: "c1", InstructorID: "ins1", Status: status},
	}}
	return repo, courses, NewLessonService(repo, courses, nil, nil)
}

func videoLesson(title string, position int) LessonRequest {
	return LessonRequest{
		Title:     title,
		Position:  position,
		Duration:  12,
		MediaType: models.LessonMediaVideo,
		VideoURL:  "https://cdn.example.com/v1.mp4",
	}
}

func TestLessonCreateOnDraftCourse(t *testing.T) {
	repo, _, svc := newLessonFixture(models.CourseStatusDraft)

	lesson, err := svc.Create(context.Background(), instructorActor("ins1"), "c1", videoLesson("Variables", 2))
	require.NoError(t, err)
	assert.NotEmpty(t, lesson.ID)
	assert.Equal(t, "c1", lesson.CourseID)
	require.NotNil(t, repo.created)
}

func TestLessonCreateFrozenWhilePending(t *testing.T) {
	repo, _, svc := newLessonFixture(models.CourseStatusPending)

	_, err := svc.Create(context.Background(), instructorActor("ins1"), "c1", videoLesson("Variables", 2))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestLessonCreateAllowedAfterRejection(t *testing.T) {
	_, _, svc := newLessonFixture(models.CourseStatusRejected)

	_, err := svc.Create(context.Background(), instructorActor("ins1"), "c1", videoLesson("Variables", 2))
	require.NoError(t, err)
}

func TestLessonCreateForeignCourse(t *testing.T) {
	_, _, svc := newLessonFixture(models.CourseStatusDraft)

	_, err := svc.Create(context.Background(), instructorActor("ins2"), "c1", videoLesson("Variables", 2))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLessonRequestMediaValidation(t *testing.T) {
	_, _, svc := newLessonFixture(models.CourseStatusDraft)

	cases := map[string]LessonRequest{
		"video without url": {Title: "A", Position: 1, MediaType: models.LessonMediaVideo},
		"external without link": {Title: "B", Position: 1, MediaType: models.LessonMediaExternal},
		"unknown media type": {Title: "C", Position: 1, MediaType: models.LessonMediaType("STREAM")},
		"position below one": {Title: "D", Position: 0, MediaType: models.LessonMediaDocument},
	}
	for name, req := range cases {
		_, err := svc.Create(context.Background(), instructorActor("ins1"), "c1", req)
		require.Error(t, err, name)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, name)
	}
}

func TestLessonCreatePositionConflict(t *testing.T) {
	repo, _, svc := newLessonFixture(models.CourseStatusDraft)
	repo.createErr = repository.ErrDuplicateLessonPosition

	_, err := svc.Create(context.Background(), instructorActor("ins1"), "c1", videoLesson("Variables", 1))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLessonUpdateAppliesFields(t *testing.T) {
	repo, _, svc := newLessonFixture(models.CourseStatusDraft)

	lesson, err := svc.Update(context.Background(), instructorActor("ins1"), "les1", videoLesson("Intro v2", 3))
	require.NoError(t, err)
	assert.Equal(t, "Intro v2", lesson.Title)
	assert.Equal(t, 3, lesson.Position)
	assert.Equal(t, models.LessonMediaVideo, lesson.MediaType)
	require.NotNil(t, repo.updated)
}

func TestLessonUpdateMissingLesson(t *testing.T) {
	_, _, svc := newLessonFixture(models.CourseStatusDraft)

	_, err := svc.Update(context.Background(), instructorActor("ins1"), "ghost", videoLesson("X", 1))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLessonDeleteFrozenWhileApproved(t *testing.T) {
	repo, _, svc := newLessonFixture(models.CourseStatusApproved)

	err := svc.Delete(context.Background(), instructorActor("ins1"), "les1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestLessonDeleteOnDraftCourse(t *testing.T) {
	repo, _, svc := newLessonFixture(models.CourseStatusDraft)

	err := svc.Delete(context.Background(), instructorActor("ins1"), "les1")
	require.NoError(t, err)
	assert.Equal(t, []string{"les1"}, repo.deleted)
}
