package models

import "time"

// Room represents a hospital-scoped chat room. AdminID always refers to
// a current member; a room with zero members is deleted, never kept.
type Room struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	HospitalID  uint      `gorm:"not null;index" json:"hospital_id"`
	AdminID     uint      `gorm:"not null" json:"admin_id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Hospital Hospital `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
}

// TableName specifies the table name for Room model
func (Room) TableName() string {
	return "rooms"
}

// RoomMember links a user to a room. The (room, user) pair is unique and
// JoinedAt ordering determines admin succession when the admin leaves.
type RoomMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	RoomID   uint      `gorm:"not null;uniqueIndex:idx_room_user" json:"room_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_room_user" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	Room Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for RoomMember model
func (RoomMember) TableName() string {
	return "room_members"
}

// RoomWithHospital includes hospital information for room listings
type RoomWithHospital struct {
	Room
	HospitalName string `json:"hospital_name"`
}

// MemberWithUser is the membership projection broadcast to a room when
// its participant list changes.
type MemberWithUser struct {
	RoomID   uint      `json:"room_id"`
	UserID   uint      `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	IsAdmin  bool      `json:"is_admin"`
}
