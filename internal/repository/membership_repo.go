package repository

import (
	"context"

	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/pkg/apperr"

	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepo(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *MembershipRepository) WithTx(tx *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: tx}
}

// Add inserts membership rows for every user. Pairs that already exist
// are skipped silently, so the call is idempotent per (room, user).
func (r *MembershipRepository) Add(ctx context.Context, roomID uint, userIDs ...uint) error {
	for _, userID := range userIDs {
		member := &models.RoomMember{RoomID: roomID, UserID: userID}
		err := r.db.WithContext(ctx).
			Where("room_id = ? AND user_id = ?", roomID, userID).
			FirstOrCreate(member).Error
		if err != nil {
			return wrapDBError("add room member", err)
		}
	}
	return nil
}

// Remove deletes a membership row, failing if the pair does not exist
func (r *MembershipRepository) Remove(ctx context.Context, roomID, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.RoomMember{})
	if result.Error != nil {
		return wrapDBError("remove room member", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("user is not a member of this room")
	}
	return nil
}

// ListByRoom retrieves all members of a room ordered by join time, which
// is also the admin succession order.
func (r *MembershipRepository) ListByRoom(ctx context.Context, roomID uint) ([]models.RoomMember, error) {
	var members []models.RoomMember
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Preload("User").
		Order("joined_at ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, wrapDBError("list room members", err)
	}
	return members, nil
}

// ListRoomsByUser retrieves all rooms the user belongs to
func (r *MembershipRepository) ListRoomsByUser(ctx context.Context, userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Joins("INNER JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ?", userID).
		Preload("Hospital").
		Order("rooms.created_at ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, wrapDBError("list rooms by user", err)
	}
	return rooms, nil
}

// IsMember checks whether the user currently belongs to the room
func (r *MembershipRepository) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, wrapDBError("check room membership", err)
	}
	return count > 0, nil
}

// MembersExcluding returns the ids of every member except the given user
func (r *MembershipRepository) MembersExcluding(ctx context.Context, roomID, userID uint) ([]uint, error) {
	var userIDs []uint
	err := r.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id <> ?", roomID, userID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, wrapDBError("list other room members", err)
	}
	return userIDs, nil
}

// RemoveByRoom deletes every membership row of a room (room deletion path)
func (r *MembershipRepository) RemoveByRoom(ctx context.Context, roomID uint) error {
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&models.RoomMember{}).Error
	return wrapDBError("remove room members", err)
}
