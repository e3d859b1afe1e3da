package models

import "time"

// Message represents a chat message. AttachmentID is an opaque reference
// into the external archive service; the backend never reads the bytes.
type Message struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RoomID       uint      `gorm:"not null;index" json:"room_id"`
	SenderID     uint      `gorm:"not null;index" json:"sender_id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	AttachmentID *string   `gorm:"size:64" json:"attachment_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Room   Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// TableName specifies the table name for Message model
func (Message) TableName() string {
	return "messages"
}

// MessageView marks that a user has seen a message. The (message, user)
// pair is unique; rows are inserted idempotently and never deleted.
type MessageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_message_user" json:"message_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_message_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for MessageView model
func (MessageView) TableName() string {
	return "message_views"
}

// MessageWithSender is the message projection returned to clients and
// broadcast to rooms.
type MessageWithSender struct {
	Message
	SenderName string `json:"sender_name"`
	SeenByAll  bool   `json:"seen_by_all"`
}
