package handler

import (
	"course-admin-gateway/internal/adapter/http/dto"
	"course-admin-gateway/internal/adapter/http/middleware"
	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/pkg/apperror"
	"course-admin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler handles user provisioning and session endpoints.
type UserHandler struct {
	userSvc ports.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userSvc ports.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// CreateUser handles POST /create-user.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	profile, err := h.userSvc.CreateUser(c.Request.Context(), ports.CreateUserRequest{
		Email: req.Email,
		Name:  req.Name,
		Role:  domain.Role(req.Role),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// Login handles POST /auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.userSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:              result.Token,
		Expiry:             result.ExpiresAt.Unix(),
		MustChangePassword: result.MustChangePassword,
		UserID:             result.Profile.ID.String(),
		IsAdmin:            result.Profile.IsAdmin,
	})
}

// ChangePassword handles POST /auth/change-password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.userSvc.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
