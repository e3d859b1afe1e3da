package service

import (
	"context"
	"fmt"

	"careteam-chat-backend/internal/authz"
	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/internal/repository"
	"careteam-chat-backend/pkg/apperr"

	"gorm.io/gorm"
)

type RoomService struct {
	db             *gorm.DB
	roomRepo       *repository.RoomRepository
	membershipRepo *repository.MembershipRepository
	messageRepo    *repository.MessageRepository
	userRepo       *repository.UserRepository
	auditRepo      *repository.AuditRepository
}

func NewRoomService(
	db *gorm.DB,
	roomRepo *repository.RoomRepository,
	membershipRepo *repository.MembershipRepository,
	messageRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	auditRepo *repository.AuditRepository,
) *RoomService {
	return &RoomService{
		db:             db,
		roomRepo:       roomRepo,
		membershipRepo: membershipRepo,
		messageRepo:    messageRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
	}
}

// LeaveResult reports what a leave did to the room, so the gateway can
// broadcast the right events without re-reading state.
type LeaveResult struct {
	RoomDeleted bool
	NewAdminID  *uint
	Members     []models.MemberWithUser
}

// CreateRoom creates a room in the actor's hospital. The actor becomes
// the room admin and its first member in the same transaction.
func (s *RoomService) CreateRoom(ctx context.Context, p authz.Principal, name, description string) (*models.Room, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if p.HospitalID == nil {
		return nil, apperr.Forbidden("role is not allowed to participate in rooms")
	}
	if err := authz.CanActInRoomScope(p, *p.HospitalID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperr.InvalidInput("room name is required")
	}

	room := &models.Room{
		HospitalID:  *p.HospitalID,
		AdminID:     p.UserID,
		Name:        name,
		Description: description,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.roomRepo.WithTx(tx).CreateRoom(ctx, room); err != nil {
			return err
		}
		return s.membershipRepo.WithTx(tx).Add(ctx, room.ID, p.UserID)
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "room_create",
		fmt.Sprintf("Created room %q (id: %d, hospital: %d)", room.Name, room.ID, room.HospitalID))

	return room, nil
}

// GetRoom retrieves a room; the actor must be a member
func (s *RoomService) GetRoom(ctx context.Context, p authz.Principal, roomID uint) (*models.Room, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	room, err := s.roomRepo.GetRoomWithHospital(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, p, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ListRoomsByUser retrieves every room the actor belongs to
func (s *RoomService) ListRoomsByUser(ctx context.Context, p authz.Principal) ([]models.Room, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	return s.membershipRepo.ListRoomsByUser(ctx, p.UserID)
}

// ListRoomsByHospital retrieves every room of a hospital with its
// hospital name, membership not required; hospital-admin view only.
func (s *RoomService) ListRoomsByHospital(ctx context.Context, p authz.Principal, hospitalID uint) ([]models.RoomWithHospital, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := authz.CanListHospitalRooms(p, hospitalID); err != nil {
		return nil, err
	}

	rooms, err := s.roomRepo.GetRoomsByHospitalID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	projected := make([]models.RoomWithHospital, 0, len(rooms))
	for _, room := range rooms {
		projected = append(projected, models.RoomWithHospital{
			Room:         room,
			HospitalName: room.Hospital.Name,
		})
	}
	return projected, nil
}

// ListMembers retrieves the room's membership list; the actor must be a
// member. The result is join-ordered, which is also succession order.
func (s *RoomService) ListMembers(ctx context.Context, p authz.Principal, roomID uint) ([]models.MemberWithUser, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	room, err := s.roomRepo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, p, room); err != nil {
		return nil, err
	}
	return s.memberProjection(ctx, room)
}

// UpdateRoom renames or re-describes a room; only the current admin may.
// The room's hospital can never change.
func (s *RoomService) UpdateRoom(ctx context.Context, p authz.Principal, roomID uint, name, description string) (*models.Room, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	room, err := s.requireRoomAdmin(ctx, p, roomID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		room.Name = name
	}
	room.Description = description

	if err := s.roomRepo.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "room_update",
		fmt.Sprintf("Updated room %q (id: %d)", room.Name, room.ID))

	return room, nil
}

// DeleteRoom deletes a room with its memberships, messages and view
// receipts in one transaction; only the current admin may.
func (s *RoomService) DeleteRoom(ctx context.Context, p authz.Principal, roomID uint) error {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	room, err := s.requireRoomAdmin(ctx, p, roomID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.deleteRoomTx(ctx, tx, room.ID)
	})
	if err != nil {
		return err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "room_delete",
		fmt.Sprintf("Deleted room %q (id: %d)", room.Name, room.ID))

	return nil
}

// Join adds users to a room in one all-or-nothing transaction. Only the
// current admin may add; every user must share the room's hospital and
// must not already be a member. A failed check names the offending user
// and leaves nobody added.
func (s *RoomService) Join(ctx context.Context, p authz.Principal, roomID uint, userIDs []uint) ([]models.MemberWithUser, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if len(userIDs) == 0 {
		return nil, apperr.InvalidInput("no users to add")
	}

	var room *models.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		memberRepo := s.membershipRepo.WithTx(tx)
		userRepo := repository.NewUserRepo(tx)

		// Row lock so a concurrent leave cannot change the admin or the
		// member set under this batch.
		var err error
		room, err = s.roomRepo.WithTx(tx).GetRoomForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if err := authz.CanActInRoomScope(p, room.HospitalID); err != nil {
			return err
		}
		if room.AdminID != p.UserID {
			return apperr.Forbidden("only the room admin can do this")
		}

		for _, userID := range userIDs {
			user, err := userRepo.FindUserByID(ctx, userID)
			if err != nil {
				return err
			}
			if user.Role == string(authz.RoleGlobalAdmin) {
				return apperr.Forbidden(fmt.Sprintf("user %d is a global administrator and cannot join rooms", userID))
			}
			if user.HospitalID == nil || *user.HospitalID != room.HospitalID {
				return apperr.Forbidden(fmt.Sprintf("user %d does not belong to this room's hospital", userID))
			}
			isMember, err := memberRepo.IsMember(ctx, roomID, userID)
			if err != nil {
				return err
			}
			if isMember {
				return apperr.Conflict(fmt.Sprintf("user %d is already a member of this room", userID))
			}
		}
		return memberRepo.Add(ctx, roomID, userIDs...)
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "room_join",
		fmt.Sprintf("Added users %v to room %d", userIDs, roomID))

	return s.memberProjection(ctx, room)
}

// Leave removes the actor from a room. The whole path runs as a single
// transaction so a room is never observable with zero members or with an
// admin who is not a member:
//   - sole remaining member: the room and its data are deleted
//   - admin with others remaining: admin transfers to the member with the
//     earliest join time, then the membership row is removed
//   - non-admin: the membership row is removed
func (s *RoomService) Leave(ctx context.Context, p authz.Principal, roomID uint) (*LeaveResult, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	result := &LeaveResult{}
	var room *models.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		memberRepo := s.membershipRepo.WithTx(tx)
		roomRepo := s.roomRepo.WithTx(tx)

		// Row lock before reading the member list: two concurrent
		// leaves must not both decide on the same snapshot, or the room
		// can survive with zero members or a departed admin.
		var err error
		room, err = roomRepo.GetRoomForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if err := authz.CanActInRoomScope(p, room.HospitalID); err != nil {
			return err
		}

		members, err := memberRepo.ListByRoom(ctx, roomID)
		if err != nil {
			return err
		}

		isMember := false
		for _, m := range members {
			if m.UserID == p.UserID {
				isMember = true
				break
			}
		}
		if !isMember {
			return apperr.NotFound("user is not a member of this room")
		}

		if len(members) == 1 {
			// Sole member leaving: room goes away with its last
			// membership row, so empty rooms never persist.
			result.RoomDeleted = true
			return s.deleteRoomTx(ctx, tx, roomID)
		}

		if room.AdminID == p.UserID {
			// Deterministic succession: earliest remaining join time.
			var successor *models.RoomMember
			for i := range members {
				if members[i].UserID != p.UserID {
					successor = &members[i]
					break
				}
			}
			if err := roomRepo.SetAdmin(ctx, roomID, successor.UserID); err != nil {
				return err
			}
			result.NewAdminID = &successor.UserID
		}

		return memberRepo.Remove(ctx, roomID, p.UserID)
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "room_leave",
		fmt.Sprintf("Left room %d (deleted: %t)", roomID, result.RoomDeleted))
	if result.NewAdminID != nil {
		_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "room_admin_transfer",
			fmt.Sprintf("Room %d admin transferred to user %d", roomID, *result.NewAdminID))
	}

	if !result.RoomDeleted {
		room.AdminID = valueOr(result.NewAdminID, room.AdminID)
		members, err := s.memberProjection(ctx, room)
		if err != nil {
			return nil, err
		}
		result.Members = members
	}
	return result, nil
}

// RemoveMember evicts a member from a room; only the current admin may,
// and the admin cannot evict themselves (they leave or delete instead).
func (s *RoomService) RemoveMember(ctx context.Context, p authz.Principal, roomID, targetUserID uint) ([]models.MemberWithUser, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	room, err := s.requireRoomAdmin(ctx, p, roomID)
	if err != nil {
		return nil, err
	}
	if targetUserID == room.AdminID {
		return nil, apperr.Forbidden("the room admin cannot be removed; leave or delete the room instead")
	}

	if err := s.membershipRepo.Remove(ctx, roomID, targetUserID); err != nil {
		return nil, err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "room_remove_user",
		fmt.Sprintf("Removed user %d from room %d", targetUserID, roomID))

	return s.memberProjection(ctx, room)
}

// IsMember reports whether the actor currently belongs to the room
func (s *RoomService) IsMember(ctx context.Context, roomID, userID uint) (bool, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	return s.membershipRepo.IsMember(ctx, roomID, userID)
}

// requireMembership checks room scope plus current membership
func (s *RoomService) requireMembership(ctx context.Context, p authz.Principal, room *models.Room) error {
	if err := authz.CanActInRoomScope(p, room.HospitalID); err != nil {
		return err
	}
	isMember, err := s.membershipRepo.IsMember(ctx, room.ID, p.UserID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperr.Forbidden("user is not a member of this room")
	}
	return nil
}

// requireRoomAdmin checks room scope plus that the actor is the current
// room admin.
func (s *RoomService) requireRoomAdmin(ctx context.Context, p authz.Principal, roomID uint) (*models.Room, error) {
	room, err := s.roomRepo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanActInRoomScope(p, room.HospitalID); err != nil {
		return nil, err
	}
	if room.AdminID != p.UserID {
		return nil, apperr.Forbidden("only the room admin can do this")
	}
	return room, nil
}

// deleteRoomTx removes a room and everything hanging off it inside the
// caller's transaction.
func (s *RoomService) deleteRoomTx(ctx context.Context, tx *gorm.DB, roomID uint) error {
	if err := s.messageRepo.WithTx(tx).DeleteByRoom(ctx, roomID); err != nil {
		return err
	}
	if err := s.membershipRepo.WithTx(tx).RemoveByRoom(ctx, roomID); err != nil {
		return err
	}
	return s.roomRepo.WithTx(tx).DeleteRoom(ctx, roomID)
}

// memberProjection builds the membership list broadcast to clients
func (s *RoomService) memberProjection(ctx context.Context, room *models.Room) ([]models.MemberWithUser, error) {
	members, err := s.membershipRepo.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	projected := make([]models.MemberWithUser, 0, len(members))
	for _, m := range members {
		projected = append(projected, models.MemberWithUser{
			RoomID:   m.RoomID,
			UserID:   m.UserID,
			Name:     m.User.Name,
			Email:    m.User.Email,
			Role:     m.User.Role,
			JoinedAt: m.JoinedAt,
			IsAdmin:  m.UserID == room.AdminID,
		})
	}
	return projected, nil
}

func valueOr(v *uint, fallback uint) uint {
	if v != nil {
		return *v
	}
	return fallback
}
