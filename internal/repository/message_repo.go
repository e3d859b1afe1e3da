package repository

import (
	"context"
	"errors"

	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{db: tx}
}

// CreateMessage persists a new message
func (r *MessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	return wrapDBError("create message", r.db.WithContext(ctx).Create(message).Error)
}

// GetMessageByID retrieves a message with its sender preloaded
func (r *MessageRepository) GetMessageByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).
		Preload("Sender").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("message not found")
		}
		return nil, wrapDBError("get message", err)
	}
	return &message, nil
}

// UpdateMessage updates an existing message
func (r *MessageRepository) UpdateMessage(ctx context.Context, message *models.Message) error {
	return wrapDBError("update message", r.db.WithContext(ctx).Save(message).Error)
}

// DeleteMessage deletes a message and its view receipts in one
// transaction, so a failure never strands a message without receipts.
func (r *MessageRepository) DeleteMessage(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.MessageView{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, id).Error
	})
	return wrapDBError("delete message", err)
}

// ListByRoom retrieves all messages of a room in insertion order
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Preload("Sender").
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, wrapDBError("list room messages", err)
	}
	return messages, nil
}

// ListUnread retrieves the room's messages authored by other users that
// the given user has not viewed yet.
func (r *MessageRepository) ListUnread(ctx context.Context, roomID, userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND sender_id <> ?", roomID, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_views WHERE message_views.message_id = messages.id AND message_views.user_id = ?)", userID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, wrapDBError("list unread messages", err)
	}
	return messages, nil
}

// CreateViews inserts view receipts in one batch, skipping duplicates so
// repeated read-marks stay idempotent.
func (r *MessageRepository) CreateViews(ctx context.Context, views []models.MessageView) error {
	if len(views) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&views).Error
	return wrapDBError("create message views", err)
}

// CountViews counts how many of the given users have viewed the message
func (r *MessageRepository) CountViews(ctx context.Context, messageID uint, userIDs []uint) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MessageView{}).
		Where("message_id = ? AND user_id IN ?", messageID, userIDs).
		Count(&count).Error
	if err != nil {
		return 0, wrapDBError("count message views", err)
	}
	return count, nil
}

// DeleteByRoom removes every message of a room along with its view
// receipts (room deletion path).
func (r *MessageRepository) DeleteByRoom(ctx context.Context, roomID uint) error {
	err := r.db.WithContext(ctx).
		Where("message_id IN (SELECT id FROM messages WHERE room_id = ?)", roomID).
		Delete(&models.MessageView{}).Error
	if err != nil {
		return wrapDBError("delete room message views", err)
	}
	err = r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&models.Message{}).Error
	return wrapDBError("delete room messages", err)
}
