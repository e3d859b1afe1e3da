package handler

import (
	"net/http"
	"strconv"

	"careteam-chat-backend/internal/middleware"
	"careteam-chat-backend/internal/service"
	"careteam-chat-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
	}
}

// RoomRequest represents the create/update room payload
type RoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// JoinRoomRequest represents the add members payload
type JoinRoomRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required,min=1"`
}

// GetMyRooms retrieves every room the authenticated user belongs to
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	principal, _ := middleware.Principal(c)

	rooms, err := h.roomService.ListRoomsByUser(c.Request.Context(), principal)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// GetHospitalRooms lists every room of a hospital; hospital-admin view
func (h *RoomHandler) GetHospitalRooms(c *gin.Context) {
	hospitalID, ok := parseID(c, "id", "Invalid hospital ID")
	if !ok {
		return
	}
	principal, _ := middleware.Principal(c)

	rooms, err := h.roomService.ListRoomsByHospital(c.Request.Context(), principal, hospitalID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// GetRoom retrieves a specific room; membership required
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}
	principal, _ := middleware.Principal(c)

	room, err := h.roomService.GetRoom(c.Request.Context(), principal, roomID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, room)
}

// CreateRoom creates a room in the caller's hospital
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	principal, _ := middleware.Principal(c)

	room, err := h.roomService.CreateRoom(c.Request.Context(), principal, req.Name, req.Description)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, room)
}

// UpdateRoom renames or re-describes a room; admin only
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}

	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	principal, _ := middleware.Principal(c)

	room, err := h.roomService.UpdateRoom(c.Request.Context(), principal, roomID, req.Name, req.Description)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, room)
}

// DeleteRoom deletes a room with all its data; admin only
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}
	principal, _ := middleware.Principal(c)

	if err := h.roomService.DeleteRoom(c.Request.Context(), principal, roomID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.MessageResponse(c, "Room deleted successfully")
}

// GetMembers retrieves a room's membership list; membership required
func (h *RoomHandler) GetMembers(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}
	principal, _ := middleware.Principal(c)

	members, err := h.roomService.ListMembers(c.Request.Context(), principal, roomID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"members": members,
		"count":   len(members),
	})
}

// AddMembers adds users to a room in one all-or-nothing batch; admin only
func (h *RoomHandler) AddMembers(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	principal, _ := middleware.Principal(c)

	members, err := h.roomService.Join(c.Request.Context(), principal, roomID, req.UserIDs)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"members": members,
		"count":   len(members),
	})
}

// LeaveRoom removes the caller from a room, transferring admin or
// deleting the room as needed.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}
	principal, _ := middleware.Principal(c)

	result, err := h.roomService.Leave(c.Request.Context(), principal, roomID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"room_deleted": result.RoomDeleted,
		"new_admin_id": result.NewAdminID,
	})
}

// RemoveMember evicts a member from a room; admin only
func (h *RoomHandler) RemoveMember(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id", "Invalid user ID")
	if !ok {
		return
	}
	principal, _ := middleware.Principal(c)

	members, err := h.roomService.RemoveMember(c.Request.Context(), principal, roomID, userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"members": members,
		"count":   len(members),
	})
}

// parseID parses a uint path parameter, reporting a bad request on
// failure.
func parseID(c *gin.Context, param, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, message)
		return 0, false
	}
	return uint(id), true
}
