package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsphere/skillsphere-api/internal/dto"
	"github.com/skillsphere/skillsphere-api/internal/middleware"
	"github.com/skillsphere/skillsphere-api/internal/models"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
	"github.com/skillsphere/skillsphere-api/pkg/response"
)

type dashboardService interface {
	Learner(ctx context.Context, actor models.Actor) (*dto.LearnerDashboardResponse, bool, error)
	Instructor(ctx context.Context, actor models.Actor) (*dto.InstructorDashboardResponse, bool, error)
	Admin(ctx context.Context, actor models.Actor) (*dto.AdminDashboardResponse, bool, error)
}

// DashboardHandler wires the dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Learner godoc
// @Summary Learner dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/learner [get]
func (h *DashboardHandler) Learner(c *gin.Context) {
	serveDashboard(c, h.service, func(ctx context.Context, actor models.Actor) (interface{}, bool, error) {
		summary, hit, err := h.service.Learner(ctx, actor)
		return summary, hit, err
	})
}

// Instructor godoc
// @Summary Instructor dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/instructor [get]
func (h *DashboardHandler) Instructor(c *gin.Context) {
	serveDashboard(c, h.service, func(ctx context.Context, actor models.Actor) (interface{}, bool, error) {
		summary, hit, err := h.service.Instructor(ctx, actor)
		return summary, hit, err
	})
}

// Admin godoc
// @Summary Admin dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	serveDashboard(c, h.service, func(ctx context.Context, actor models.Actor) (interface{}, bool, error) {
		summary, hit, err := h.service.Admin(ctx, actor)
		return summary, hit, err
	})
}

func serveDashboard(c *gin.Context, svc dashboardService, load func(ctx context.Context, actor models.Actor) (interface{}, bool, error)) {
	if svc == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	start := time.Now()
	summary, cacheHit, err := load(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
