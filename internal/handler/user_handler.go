package handler

import (
	"net/http"
	"strconv"

	"careteam-chat-backend/internal/middleware"
	"careteam-chat-backend/internal/service"
	"careteam-chat-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUserRequest represents the create user payload
type CreateUserRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role" binding:"required"`
	HospitalID *uint  `json:"hospital_id"`
}

// CreateUser creates a new user (admin-scoped per the role matrix)
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	principal, _ := middleware.Principal(c)

	user, err := h.userService.Create(c.Request.Context(), principal, service.CreateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		HospitalID: req.HospitalID,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// GetUser retrieves a single user within the caller's visibility scope
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
		return
	}
	principal, _ := middleware.Principal(c)

	user, findErr := h.userService.FindByID(c.Request.Context(), principal, uint(userID))
	if findErr != nil {
		utils.AppErrorResponse(c, findErr)
		return
	}

	utils.SuccessResponse(c, user)
}

// GetUsersByHospital retrieves all users of a hospital
func (h *UserHandler) GetUsersByHospital(c *gin.Context) {
	hospitalID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid hospital ID")
		return
	}
	principal, _ := middleware.Principal(c)

	users, err := h.userService.ListByHospital(c.Request.Context(), principal, uint(hospitalID))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"users": users,
		"count": len(users),
	})
}
