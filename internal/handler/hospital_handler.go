package handler

import (
	"net/http"
	"strconv"

	"careteam-chat-backend/internal/middleware"
	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/internal/service"
	"careteam-chat-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type HospitalHandler struct {
	hospitalService *service.HospitalService
}

func NewHospitalHandler(hospitalService *service.HospitalService) *HospitalHandler {
	return &HospitalHandler{
		hospitalService: hospitalService,
	}
}

// HospitalRequest represents the create/update hospital payload
type HospitalRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// GetHospitals retrieves all hospitals (global admin only)
func (h *HospitalHandler) GetHospitals(c *gin.Context) {
	principal, _ := middleware.Principal(c)

	hospitals, err := h.hospitalService.GetAll(c.Request.Context(), principal)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"hospitals": hospitals,
		"count":     len(hospitals),
	})
}

// GetHospital retrieves a specific hospital by ID
func (h *HospitalHandler) GetHospital(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid hospital ID")
		return
	}
	principal, _ := middleware.Principal(c)

	hospital, err := h.hospitalService.GetByID(c.Request.Context(), principal, uint(id))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, hospital)
}

// CreateHospital creates a new hospital (global admin only)
func (h *HospitalHandler) CreateHospital(c *gin.Context) {
	var req HospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	principal, _ := middleware.Principal(c)

	hospital := &models.Hospital{
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		IsActive: true,
	}
	if err := h.hospitalService.Create(c.Request.Context(), principal, hospital); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, hospital)
}

// UpdateHospital updates an existing hospital (global admin only)
func (h *HospitalHandler) UpdateHospital(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid hospital ID")
		return
	}

	var req HospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	principal, _ := middleware.Principal(c)

	hospital := &models.Hospital{
		ID:       uint(id),
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		IsActive: true,
	}
	if err := h.hospitalService.Update(c.Request.Context(), principal, hospital); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, hospital)
}

// DeleteHospital soft deletes a hospital (global admin only)
func (h *HospitalHandler) DeleteHospital(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid hospital ID")
		return
	}
	principal, _ := middleware.Principal(c)

	if err := h.hospitalService.Delete(c.Request.Context(), principal, uint(id)); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.MessageResponse(c, "Hospital deleted successfully")
}
