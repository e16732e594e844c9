package handler

import (
	"errors"
	"io"

	"course-admin-gateway/internal/adapter/http/dto"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/pkg/apperror"
	"course-admin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TopicHandler serves the topic tree of one course.
type TopicHandler struct {
	topicSvc ports.TopicService
}

// NewTopicHandler creates a new TopicHandler.
func NewTopicHandler(topicSvc ports.TopicService) *TopicHandler {
	return &TopicHandler{topicSvc: topicSvc}
}

// List handles GET /api-courses/:id/topics.
func (h *TopicHandler) List(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	topics, err := h.topicSvc.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, topics)
}

// Get handles GET /api-courses/:id/topics/:topicId.
func (h *TopicHandler) Get(c *gin.Context) {
	courseID, topicID, ok := topicPath(c)
	if !ok {
		return
	}
	topic, err := h.topicSvc.Get(c.Request.Context(), courseID, topicID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, topic)
}

// Create handles POST /api-courses/:id/topics.
func (h *TopicHandler) Create(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	topic, err := h.topicSvc.Create(c.Request.Context(), ports.CreateTopicRequest{
		CourseID: courseID,
		ParentID: req.ParentID,
		Title:    req.Title,
		Content:  req.Content,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, topic)
}

// Update handles PUT /api-courses/:id/topics/:topicId.
func (h *TopicHandler) Update(c *gin.Context) {
	courseID, topicID, ok := topicPath(c)
	if !ok {
		return
	}
	var req dto.UpdateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	topic, err := h.topicSvc.Update(c.Request.Context(), courseID, topicID, req.Title, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, topic)
}

// Reparent handles PUT /api-courses/:id/topics/:topicId/parent.
func (h *TopicHandler) Reparent(c *gin.Context) {
	courseID, topicID, ok := topicPath(c)
	if !ok {
		return
	}
	var req dto.ReparentTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	topic, err := h.topicSvc.Reparent(c.Request.Context(), courseID, topicID, req.ParentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, topic)
}

// Reorder handles PUT /api-courses/:id/topics/order.
func (h *TopicHandler) Reorder(c *gin.Context) {
	courseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ReorderTopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.topicSvc.Reorder(c.Request.Context(), courseID, req.ParentID, req.TopicIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Duplicate handles POST /api-courses/:id/topics/:topicId/duplicate.
func (h *TopicHandler) Duplicate(c *gin.Context) {
	courseID, topicID, ok := topicPath(c)
	if !ok {
		return
	}
	// An empty body duplicates under the same parent.
	var req dto.DuplicateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	topic, err := h.topicSvc.Duplicate(c.Request.Context(), ports.DuplicateTopicRequest{
		CourseID:   courseID,
		TopicID:    topicID,
		MoveParent: req.ParentID.Set,
		ParentID:   req.ParentID.Value,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, topic)
}

// Delete handles DELETE /api-courses/:id/topics/:topicId.
func (h *TopicHandler) Delete(c *gin.Context) {
	courseID, topicID, ok := topicPath(c)
	if !ok {
		return
	}
	if err := h.topicSvc.Delete(c.Request.Context(), courseID, topicID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func topicPath(c *gin.Context) (courseID, topicID uuid.UUID, ok bool) {
	if courseID, ok = pathUUID(c, "id"); !ok {
		return
	}
	topicID, ok = pathUUID(c, "topicId")
	return
}
