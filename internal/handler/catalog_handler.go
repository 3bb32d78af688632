package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skillsphere/skillsphere-api/internal/models"
	"github.com/skillsphere/skillsphere-api/internal/service"
	"github.com/skillsphere/skillsphere-api/pkg/config"
	"github.com/skillsphere/skillsphere-api/pkg/response"
)

// CatalogHandler serves the course catalog. Routes are mounted behind the
// optional JWT middleware so anonymous visitors get the public view.
type CatalogHandler struct {
	catalog *service.CatalogService
	paging  config.CatalogConfig
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, paging config.CatalogConfig) *CatalogHandler {
	if paging.DefaultPageSize <= 0 {
		paging.DefaultPageSize = 20
	}
	if paging.MaxPageSize <= 0 {
		paging.MaxPageSize = 100
	}
	return &CatalogHandler{catalog: catalog, paging: paging}
}

// List godoc
// @Summary Browse courses
// @Description Lists the courses visible to the caller with per-course capabilities
// @Tags Catalog
// @Produce json
// @Param categoryId query string false "Filter by category (repeatable)"
// @Param search query string false "Search in title and description"
// @Param free query bool false "Only free (true) or only paid (false) courses"
// @Param sort query string false "Sort field: created_at, price, title"
// @Param order query string false "Sort order: asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	filter.CategoryIDs = c.QueryArray("categoryId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if free := c.Query("free"); free != "" {
		if value, err := strconv.ParseBool(free); err == nil {
			filter.IsFree = &value
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	filter.PageSize = h.paging.DefaultPageSize
	if size, err := strconv.Atoi(c.Query("limit")); err == nil && size > 0 {
		filter.PageSize = size
	}
	if filter.PageSize > h.paging.MaxPageSize {
		filter.PageSize = h.paging.MaxPageSize
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	actor := claimsFromContext(c).Actor()
	courses, pagination, err := h.catalog.VisibleCourses(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Course detail
// @Description Returns a course with lessons and the caller's capabilities
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	actor := claimsFromContext(c).Actor()
	course, err := h.catalog.GetCourse(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}
