package repository

import (
	"context"
	"errors"

	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepo(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *RoomRepository) WithTx(tx *gorm.DB) *RoomRepository {
	return &RoomRepository{db: tx}
}

// CreateRoom creates a new room
func (r *RoomRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	return wrapDBError("create room", r.db.WithContext(ctx).Create(room).Error)
}

// GetRoomByID retrieves a room by ID
func (r *RoomRepository) GetRoomByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("room not found")
		}
		return nil, wrapDBError("get room", err)
	}
	return &room, nil
}

// GetRoomForUpdate retrieves a room holding its row lock until the
// caller's transaction ends, serializing concurrent membership changes
// on the same room. SQLite has no FOR UPDATE syntax; its single-writer
// transaction lock already covers the same window.
func (r *RoomRepository) GetRoomForUpdate(ctx context.Context, id uint) (*models.Room, error) {
	tx := r.db.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var room models.Room
	err := tx.Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("room not found")
		}
		return nil, wrapDBError("get room", err)
	}
	return &room, nil
}

// GetRoomWithHospital retrieves a room with hospital information preloaded
func (r *RoomRepository) GetRoomWithHospital(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).
		Preload("Hospital").
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("room not found")
		}
		return nil, wrapDBError("get room", err)
	}
	return &room, nil
}

// UpdateRoom updates an existing room
func (r *RoomRepository) UpdateRoom(ctx context.Context, room *models.Room) error {
	return wrapDBError("update room", r.db.WithContext(ctx).Save(room).Error)
}

// SetAdmin reassigns the room's admin (succession on leave)
func (r *RoomRepository) SetAdmin(ctx context.Context, roomID, adminID uint) error {
	err := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("admin_id", adminID).Error
	return wrapDBError("transfer room admin", err)
}

// DeleteRoom hard deletes a room. Memberships, messages and views are
// removed by the service inside the same transaction.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id uint) error {
	return wrapDBError("delete room", r.db.WithContext(ctx).Delete(&models.Room{}, id).Error)
}

// GetRoomsByHospitalID retrieves all rooms of a hospital
func (r *RoomRepository) GetRoomsByHospitalID(ctx context.Context, hospitalID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Where("hospital_id = ?", hospitalID).
		Preload("Hospital").
		Order("created_at ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, wrapDBError("list hospital rooms", err)
	}
	return rooms, nil
}
