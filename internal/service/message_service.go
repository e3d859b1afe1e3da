package service

import (
	"context"

	"careteam-chat-backend/internal/authz"
	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/internal/repository"
	"careteam-chat-backend/pkg/apperr"
)

type MessageService struct {
	messageRepo    *repository.MessageRepository
	membershipRepo *repository.MembershipRepository
	roomRepo       *repository.RoomRepository
}

func NewMessageService(
	messageRepo *repository.MessageRepository,
	membershipRepo *repository.MembershipRepository,
	roomRepo *repository.RoomRepository,
) *MessageService {
	return &MessageService{
		messageRepo:    messageRepo,
		membershipRepo: membershipRepo,
		roomRepo:       roomRepo,
	}
}

// Create persists a message; the sender must be a current member of a
// room in their own hospital. AttachmentID is an opaque reference into
// the external archive service.
func (s *MessageService) Create(ctx context.Context, p authz.Principal, roomID uint, content string, attachmentID *string) (*models.MessageWithSender, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if content == "" && attachmentID == nil {
		return nil, apperr.InvalidInput("message content is required")
	}
	if err := s.requireMembership(ctx, p, roomID); err != nil {
		return nil, err
	}

	message := &models.Message{
		RoomID:       roomID,
		SenderID:     p.UserID,
		Content:      content,
		AttachmentID: attachmentID,
	}
	if err := s.messageRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	// Reload with the sender projection for immediate broadcast
	stored, err := s.messageRepo.GetMessageByID(ctx, message.ID)
	if err != nil {
		return nil, err
	}
	seen, err := s.SeenByAll(ctx, stored.ID, roomID)
	if err != nil {
		return nil, err
	}
	return &models.MessageWithSender{
		Message:    *stored,
		SenderName: stored.Sender.Name,
		SeenByAll:  seen,
	}, nil
}

// ListByRoom retrieves the room's messages in insertion order with their
// current seen-by-all state; the actor must be a member.
func (s *MessageService) ListByRoom(ctx context.Context, p authz.Principal, roomID uint) ([]models.MessageWithSender, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := s.requireMembership(ctx, p, roomID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	projected := make([]models.MessageWithSender, 0, len(messages))
	for _, m := range messages {
		seen, err := s.seenByAllOf(ctx, &m, roomID)
		if err != nil {
			return nil, err
		}
		projected = append(projected, models.MessageWithSender{
			Message:    m,
			SenderName: m.Sender.Name,
			SeenByAll:  seen,
		})
	}
	return projected, nil
}

// MarkRead inserts a view receipt for every message in the room authored
// by someone else that the actor has not viewed yet. Duplicates are
// skipped; an empty backlog is a no-op, not an error. The affected
// messages are returned so the caller can broadcast their new seen state.
func (s *MessageService) MarkRead(ctx context.Context, p authz.Principal, roomID uint) ([]models.Message, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := s.requireMembership(ctx, p, roomID); err != nil {
		return nil, err
	}

	unread, err := s.messageRepo.ListUnread(ctx, roomID, p.UserID)
	if err != nil {
		return nil, err
	}
	if len(unread) == 0 {
		return nil, nil
	}

	views := make([]models.MessageView, 0, len(unread))
	for _, m := range unread {
		views = append(views, models.MessageView{MessageID: m.ID, UserID: p.UserID})
	}
	if err := s.messageRepo.CreateViews(ctx, views); err != nil {
		return nil, err
	}
	return unread, nil
}

// SeenByAll reports whether every current room member other than the
// sender has viewed the message. It is recomputed on every call because
// membership can change after a message was sent.
func (s *MessageService) SeenByAll(ctx context.Context, messageID, roomID uint) (bool, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	message, err := s.messageRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	return s.seenByAllOf(ctx, message, roomID)
}

// Update edits a message; only the original sender may, and only while
// still a member of the room.
func (s *MessageService) Update(ctx context.Context, p authz.Principal, messageID uint, content string) (*models.MessageWithSender, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if content == "" {
		return nil, apperr.InvalidInput("message content is required")
	}
	message, err := s.requireOwnMessage(ctx, p, messageID)
	if err != nil {
		return nil, err
	}

	message.Content = content
	if err := s.messageRepo.UpdateMessage(ctx, message); err != nil {
		return nil, err
	}
	seen, err := s.seenByAllOf(ctx, message, message.RoomID)
	if err != nil {
		return nil, err
	}
	return &models.MessageWithSender{
		Message:    *message,
		SenderName: message.Sender.Name,
		SeenByAll:  seen,
	}, nil
}

// Remove deletes a message; same ownership and membership rules as Update
func (s *MessageService) Remove(ctx context.Context, p authz.Principal, messageID uint) (*models.Message, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	message, err := s.requireOwnMessage(ctx, p, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.messageRepo.DeleteMessage(ctx, messageID); err != nil {
		return nil, err
	}
	return message, nil
}

// seenByAllOf computes seen-by-all for an already loaded message
func (s *MessageService) seenByAllOf(ctx context.Context, message *models.Message, roomID uint) (bool, error) {
	others, err := s.membershipRepo.MembersExcluding(ctx, roomID, message.SenderID)
	if err != nil {
		return false, err
	}
	if len(others) == 0 {
		return true, nil
	}
	count, err := s.messageRepo.CountViews(ctx, message.ID, others)
	if err != nil {
		return false, err
	}
	return count == int64(len(others)), nil
}

// requireMembership checks hospital scope and current membership for the
// given room.
func (s *MessageService) requireMembership(ctx context.Context, p authz.Principal, roomID uint) error {
	room, err := s.roomRepo.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if err := authz.CanActInRoomScope(p, room.HospitalID); err != nil {
		return err
	}
	isMember, err := s.membershipRepo.IsMember(ctx, roomID, p.UserID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.Forbidden("user is not a member of this room")
	}
	return nil
}

// requireOwnMessage loads a message and checks the actor owns it and is
// still a member of its room. A sender who has left the room can no
// longer edit or delete their old messages.
func (s *MessageService) requireOwnMessage(ctx context.Context, p authz.Principal, messageID uint) (*models.Message, error) {
	message, err := s.messageRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != p.UserID {
		return nil, apperr.Forbidden("message does not belong to this user")
	}
	if err := s.requireMembership(ctx, p, message.RoomID); err != nil {
		return nil, err
	}
	return message, nil
}
