package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/skillsphere-api/internal/middleware"
	"github.com/skillsphere/skillsphere-api/internal/models"
	"github.com/skillsphere/skillsphere-api/internal/service"
)

type courseRepoStub struct {
	courses       map[string]*models.Course
	statusApplied bool
	transitions   []*models.StatusTransition
}

func newCourseRepoStub(courses ...*models.Course) *courseRepoStub {
	stub := &courseRepoStub{courses: map[string]*models.Course{}, statusApplied: true}
	for _, course := range courses {
		stub.courses[course.ID] = course
	}
	return stub
}

func (s *courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *course
	return &copied, nil
}

func (s *courseRepoStub) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.CourseDetail{Course: *course}, nil
}

func (s *courseRepoStub) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "course-new"
	}
	s.courses[course.ID] = course
	return nil
}

func (s *courseRepoStub) UpdateContent(ctx context.Context, course *models.Course) error {
	s.courses[course.ID] = course
	return nil
}

func (s *courseRepoStub) UpdateStatus(ctx context.Context, id string, from, to models.CourseStatus, adminComment string) (bool, error) {
	course, ok := s.courses[id]
	if !ok || !s.statusApplied || course.Status != from {
		return false, nil
	}
	course.Status = to
	course.AdminComment = adminComment
	return true, nil
}

func (s *courseRepoStub) DeleteDraft(ctx context.Context, id string) (bool, error) {
	course, ok := s.courses[id]
	if !ok || course.Status != models.CourseStatusDraft {
		return false, nil
	}
	delete(s.courses, id)
	return true, nil
}

func (s *courseRepoStub) CreateTransition(ctx context.Context, transition *models.StatusTransition) error {
	s.transitions = append(s.transitions, transition)
	return nil
}

func (s *courseRepoStub) ListTransitions(ctx context.Context, courseID string) ([]models.StatusTransition, error) {
	var out []models.StatusTransition
	for _, transition := range s.transitions {
		if transition.CourseID == courseID {
			out = append(out, *transition)
		}
	}
	return out, nil
}

type categoryReaderStub struct{}

func (categoryReaderStub) FindByID(ctx context.Context, id string) (*models.Category, error) {
	return &models.Category{ID: id, Name: "Programming"}, nil
}

type userReaderStub struct{}

func (userReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Email: "user@example.com", FullName: "User"}, nil
}

func newCourseHandler(repo *courseRepoStub) *CourseHandler {
	lifecycle := service.NewLifecycleService(repo, categoryReaderStub{}, userReaderStub{}, nil, nil, nil, nil)
	return NewCourseHandler(lifecycle)
}

func courseTestContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestCourseHandlerCreate(t *testing.T) {
	repo := newCourseRepoStub()
	handler := newCourseHandler(repo)

	payload, _ := json.Marshal(service.CourseFieldsRequest{Title: "Go Basics", Price: 19.99})
	c, w := courseTestContext(t, http.MethodPost, "/courses", payload, &models.JWTClaims{UserID: "ins1", Role: models.RoleInstructor})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.CourseDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.CourseStatusDraft, envelope.Data.Status)
	assert.Equal(t, "ins1", envelope.Data.InstructorID)
}

func TestCourseHandlerCreateRejectsLearner(t *testing.T) {
	handler := newCourseHandler(newCourseRepoStub())

	payload, _ := json.Marshal(service.CourseFieldsRequest{Title: "Go Basics"})
	c, w := courseTestContext(t, http.MethodPost, "/courses", payload, &models.JWTClaims{UserID: "l1", Role: models.RoleLearner})

	handler.Create(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestCourseHandlerCreateInvalidBody(t *testing.T) {
	handler := newCourseHandler(newCourseRepoStub())

	c, w := courseTestContext(t, http.MethodPost, "/courses", []byte(`{"title":`), &models.JWTClaims{UserID: "ins1", Role: models.RoleInstructor})

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseHandlerCreateUnauthenticated(t *testing.T) {
	handler := newCourseHandler(newCourseRepoStub())

	payload, _ := json.Marshal(service.CourseFieldsRequest{Title: "Go Basics"})
	c, w := courseTestContext(t, http.MethodPost, "/courses", payload, nil)

	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCourseHandlerSubmit(t *testing.T) {
	repo := newCourseRepoStub(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusDraft})
	handler := newCourseHandler(repo)

	c, w := courseTestContext(t, http.MethodPost, "/courses/c1/submit", nil, &models.JWTClaims{UserID: "ins1", Role: models.RoleInstructor})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CourseStatusPending, repo.courses["c1"].Status)
}

func TestCourseHandlerApproveWithoutBody(t *testing.T) {
	repo := newCourseRepoStub(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusPending})
	handler := newCourseHandler(repo)

	// Decisions accept an empty request body.
	c, w := courseTestContext(t, http.MethodPost, "/courses/c1/approve", nil, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CourseStatusApproved, repo.courses["c1"].Status)
}

func TestCourseHandlerRejectWithComment(t *testing.T) {
	repo := newCourseRepoStub(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusPending})
	handler := newCourseHandler(repo)

	payload, _ := json.Marshal(service.ReviewDecisionRequest{Comment: "needs examples"})
	c, w := courseTestContext(t, http.MethodPost, "/courses/c1/reject", payload, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CourseStatusRejected, repo.courses["c1"].Status)
	assert.Equal(t, "needs examples", repo.courses["c1"].AdminComment)
}

func TestCourseHandlerApproveConflict(t *testing.T) {
	repo := newCourseRepoStub(&models.Course{ID: "c1", InstructorID: "ins1", Title: "Go", Status: models.CourseStatusDraft})
	handler := newCourseHandler(repo)

	c, w := courseTestContext(t, http.MethodPost, "/courses/c1/approve", nil, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Approve(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestCourseHandlerDelete(t *testing.T) {
	repo := newCourseRepoStub(&models.Course{ID: "c1", InstructorID: "ins1", Status: models.CourseStatusDraft})
	handler := newCourseHandler(repo)

	c, w := courseTestContext(t, http.MethodDelete, "/courses/c1", nil, &models.JWTClaims{UserID: "ins1", Role: models.RoleInstructor})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.Delete(c)
	// Status-only responses are not flushed until the writer commits.
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, repo.courses, "c1")
}

func TestCourseHandlerHistoryForbiddenForStranger(t *testing.T) {
	repo := newCourseRepoStub(&models.Course{ID: "c1", InstructorID: "ins1", Status: models.CourseStatusDraft})
	handler := newCourseHandler(repo)

	c, w := courseTestContext(t, http.MethodGet, "/courses/c1/history", nil, &models.JWTClaims{UserID: "ins2", Role: models.RoleInstructor})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.History(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
