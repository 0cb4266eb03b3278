package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/civoranexus/eduvillage-api/internal/models"
	"github.com/civoranexus/eduvillage-api/internal/service"
	appErrors "github.com/civoranexus/eduvillage-api/pkg/errors"
	"github.com/civoranexus/eduvillage-api/pkg/response"
)

// CourseHandler exposes course catalog and lifecycle endpoints.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List published courses
// @Tags Courses
// @Produce json
// @Param category query string false "Filter by category"
// @Param level query string false "Filter by level"
// @Param instructor query string false "Filter by instructor id"
// @Param search query string false "Free-text search over title and description"
// @Param sort query string false "Sort key: newest|oldest|popular|rating"
// @Param page query int false "Page (1-indexed)"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	if category := c.Query("category"); category != "" && category != "all" {
		filter.Category = models.CourseCategory(category)
	}
	if level := c.Query("level"); level != "" && level != "all" {
		filter.Level = models.CourseLevel(level)
	}
	filter.InstructorID = c.Query("instructor")
	filter.Search = c.Query("search")
	filter.Sort = c.DefaultQuery("sort", models.SortNewest)
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "12")); err == nil {
		filter.Limit = limit
	}

	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Categories godoc
// @Summary List course categories
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/categories [get]
func (h *CourseHandler) Categories(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.Categories(), nil)
}

// Get godoc
// @Summary Get a single course
// @Description Draft courses are visible only to their owner and admins
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update a course
// @Description Owner or admin only; status transitions included
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete a course
// @Description Owner or admin only; roster and lectures are removed with it
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByInstructor godoc
// @Summary List an instructor's courses
// @Description Drafts included only for the instructor themselves or admins
// @Tags Courses
// @Produce json
// @Param instructorId path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /courses/instructor/{instructorId} [get]
func (h *CourseHandler) ListByInstructor(c *gin.Context) {
	courses, err := h.courses.ListByInstructor(c.Request.Context(), c.Param("instructorId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// ListEnrolled godoc
// @Summary List the caller's enrolled courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses/user/enrolled [get]
func (h *CourseHandler) ListEnrolled(c *gin.Context) {
	courses, err := h.courses.ListEnrolled(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}
