package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/skillsphere-api/internal/dto"
	"github.com/skillsphere/skillsphere-api/internal/models"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type dashboardServiceMock struct {
	learnerResp    *dto.LearnerDashboardResponse
	instructorResp *dto.InstructorDashboardResponse
	adminResp      *dto.AdminDashboardResponse
	cacheHit       bool
	err            error
	lastActor      models.Actor
}

func (m *dashboardServiceMock) Learner(ctx context.Context, actor models.Actor) (*dto.LearnerDashboardResponse, bool, error) {
	m.lastActor = actor
	return m.learnerResp, m.cacheHit, m.err
}

func (m *dashboardServiceMock) Instructor(ctx context.Context, actor models.Actor) (*dto.InstructorDashboardResponse, bool, error) {
	m.lastActor = actor
	return m.instructorResp, m.cacheHit, m.err
}

func (m *dashboardServiceMock) Admin(ctx context.Context, actor models.Actor) (*dto.AdminDashboardResponse, bool, error) {
	m.lastActor = actor
	return m.adminResp, m.cacheHit, m.err
}

func TestDashboardHandlerLearner(t *testing.T) {
	mockSvc := &dashboardServiceMock{
		learnerResp: &dto.LearnerDashboardResponse{Stats: models.LearnerStats{TotalEnrolled: 4}},
	}
	handler := NewDashboardHandler(mockSvc)

	c, w := courseTestContext(t, http.MethodGet, "/dashboard/learner", nil, &models.JWTClaims{UserID: "l1", Role: models.RoleLearner})

	handler.Learner(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "l1", mockSvc.lastActor.ID)

	var envelope struct {
		Data dto.LearnerDashboardResponse `json:"data"`
		Meta map[string]interface{}       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 4, envelope.Data.Stats.TotalEnrolled)
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestDashboardHandlerCacheHitSurfacedInMeta(t *testing.T) {
	mockSvc := &dashboardServiceMock{
		adminResp: &dto.AdminDashboardResponse{Stats: dto.AdminStats{TotalCourses: 9}},
		cacheHit:  true,
	}
	handler := NewDashboardHandler(mockSvc)

	c, w := courseTestContext(t, http.MethodGet, "/dashboard/admin", nil, &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})

	handler.Admin(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestDashboardHandlerForbiddenRole(t *testing.T) {
	mockSvc := &dashboardServiceMock{err: appErrors.ErrForbidden}
	handler := NewDashboardHandler(mockSvc)

	c, w := courseTestContext(t, http.MethodGet, "/dashboard/instructor", nil, &models.JWTClaims{UserID: "l1", Role: models.RoleLearner})

	handler.Instructor(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDashboardHandlerUnauthenticated(t *testing.T) {
	handler := NewDashboardHandler(&dashboardServiceMock{})

	c, w := courseTestContext(t, http.MethodGet, "/dashboard/learner", nil, nil)

	handler.Learner(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
