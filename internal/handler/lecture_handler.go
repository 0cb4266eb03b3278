package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civoranexus/eduvillage-api/internal/service"
	appErrors "github.com/civoranexus/eduvillage-api/pkg/errors"
	"github.com/civoranexus/eduvillage-api/pkg/response"
)

// LectureHandler exposes lecture CRUD and ordering endpoints.
type LectureHandler struct {
	lectures *service.LectureService
}

// NewLectureHandler constructs LectureHandler.
func NewLectureHandler(lectures *service.LectureService) *LectureHandler {
	return &LectureHandler{lectures: lectures}
}

// ListByCourse godoc
// @Summary List a course's lectures in playback order
// @Description Enrolled students, the course owner and admins only
// @Tags Lectures
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lectures/course/{courseId} [get]
func (h *LectureHandler) ListByCourse(c *gin.Context) {
	lectures, err := h.lectures.ListByCourse(c.Request.Context(), c.Param("courseId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lectures, nil)
}

// ListByInstructor godoc
// @Summary List an instructor's lectures across all of their courses
// @Description Instructors see only their own lectures; admins may list any instructor's
// @Tags Lectures
// @Produce json
// @Param instructorId path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lectures/instructor/{instructorId} [get]
func (h *LectureHandler) ListByInstructor(c *gin.Context) {
	lectures, err := h.lectures.ListByInstructor(c.Request.Context(), c.Param("instructorId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lectures, nil)
}

// Get godoc
// @Summary Get a single lecture
// @Tags Lectures
// @Produce json
// @Param id path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lectures/{id} [get]
func (h *LectureHandler) Get(c *gin.Context) {
	lecture, err := h.lectures.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// Create godoc
// @Summary Add a lecture to a course
// @Description Course owner or admin only
// @Tags Lectures
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body service.CreateLectureRequest true "Lecture payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lectures/course/{courseId} [post]
func (h *LectureHandler) Create(c *gin.Context) {
	var req service.CreateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lecture payload"))
		return
	}
	lecture, err := h.lectures.Create(c.Request.Context(), c.Param("courseId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lecture)
}

// Update godoc
// @Summary Update a lecture
// @Description Course owner or admin only; a lecture cannot change course
// @Tags Lectures
// @Accept json
// @Produce json
// @Param id path string true "Lecture ID"
// @Param payload body service.UpdateLectureRequest true "Lecture payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lectures/{id} [put]
func (h *LectureHandler) Update(c *gin.Context) {
	var req service.UpdateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lecture payload"))
		return
	}
	lecture, err := h.lectures.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecture, nil)
}

// Delete godoc
// @Summary Delete a lecture
// @Description Course owner or admin only
// @Tags Lectures
// @Produce json
// @Param id path string true "Lecture ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lectures/{id} [delete]
func (h *LectureHandler) Delete(c *gin.Context) {
	if err := h.lectures.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reorder godoc
// @Summary Reorder a course's lectures
// @Description Applies the whole batch in one transaction and returns the new order
// @Tags Lectures
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body service.ReorderLecturesRequest true "Lecture order batch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lectures/course/{courseId}/order [put]
func (h *LectureHandler) Reorder(c *gin.Context) {
	var req service.ReorderLecturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reorder payload"))
		return
	}
	lectures, err := h.lectures.Reorder(c.Request.Context(), c.Param("courseId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lectures, nil)
}
