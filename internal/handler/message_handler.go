package handler

import (
	"net/http"

	"careteam-chat-backend/internal/middleware"
	"careteam-chat-backend/internal/service"
	"careteam-chat-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// CreateMessageRequest represents the send message payload. Content may
// be empty for attachment-only messages; the service rejects a message
// carrying neither.
type CreateMessageRequest struct {
	Content      string  `json:"content"`
	AttachmentID *string `json:"attachment_id"`
}

// UpdateMessageRequest represents the edit message payload
type UpdateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// GetMessages retrieves a room's messages in insertion order
func (h *MessageHandler) GetMessages(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}
	principal, _ := middleware.Principal(c)

	messages, err := h.messageService.ListByRoom(c.Request.Context(), principal, roomID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

// CreateMessage sends a message into a room
func (h *MessageHandler) CreateMessage(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	principal, _ := middleware.Principal(c)

	message, err := h.messageService.Create(c.Request.Context(), principal, roomID, req.Content, req.AttachmentID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, message)
}

// MarkRead marks every unread message in the room as viewed by the
// caller. Nothing unread is a no-op, not an error.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	roomID, ok := parseID(c, "id", "Invalid room ID")
	if !ok {
		return
	}
	principal, _ := middleware.Principal(c)

	affected, err := h.messageService.MarkRead(c.Request.Context(), principal, roomID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"marked": len(affected)})
}

// UpdateMessage edits a message; sender only, while still a member
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	messageID, ok := parseID(c, "id", "Invalid message ID")
	if !ok {
		return
	}

	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	principal, _ := middleware.Principal(c)

	message, err := h.messageService.Update(c.Request.Context(), principal, messageID, req.Content)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, message)
}

// DeleteMessage deletes a message; sender only, while still a member
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := parseID(c, "id", "Invalid message ID")
	if !ok {
		return
	}
	principal, _ := middleware.Principal(c)

	if _, err := h.messageService.Remove(c.Request.Context(), principal, messageID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.MessageResponse(c, "Message deleted successfully")
}
