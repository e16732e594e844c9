package handler

import (
	"strings"

	"course-admin-gateway/internal/adapter/http/dto"
	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/pkg/apperror"
	"course-admin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// CourseHandler serves the API-key protected course API.
type CourseHandler struct {
	courseSvc ports.CourseService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courseSvc ports.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// List handles GET /api-courses.
func (h *CourseHandler) List(c *gin.Context) {
	page, limit, ok := bindPage(c)
	if !ok {
		return
	}

	courses, total, err := h.courseSvc.List(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewPage(courses, total, page, limit))
}

// Get handles GET /api-courses/:id.
func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	course, err := h.courseSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Create handles POST /api-courses.
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		response.Error(c, apperror.Validation("title is required"))
		return
	}

	course := &domain.Course{}
	coursePatch(req).Apply(course)

	created, err := h.courseSvc.Create(c.Request.Context(), course)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update handles PUT /api-courses/:id.
func (h *CourseHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	course, err := h.courseSvc.Update(c.Request.Context(), id, coursePatch(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete handles DELETE /api-courses/:id.
func (h *CourseHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.courseSvc.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListEnrollments handles GET /api-courses/:id/enrollments.
func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	page, limit, ok := bindPage(c)
	if !ok {
		return
	}

	enrollments, total, err := h.courseSvc.ListEnrollments(c.Request.Context(), id, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewPage(enrollments, total, page, limit))
}

func coursePatch(req dto.CourseRequest) domain.CoursePatch {
	return domain.CoursePatch{Title: req.Title, Description: req.Description, Published: req.Published}
}

// bindPage reads page/limit, writing a 400 on bad input.
func bindPage(c *gin.Context) (int, int, bool) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return 0, 0, false
	}
	if q.Page == 0 {
		q.Page = defaultPage
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	return q.Page, q.Limit, true
}

// pathUUID parses a path parameter, writing a 400 on bad input.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}
