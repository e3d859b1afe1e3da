package service

import (
	"fmt"
	"testing"

	"careteam-chat-backend/internal/authz"
	"careteam-chat-backend/internal/database"
	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database per test. The connection
// pool is capped at one because every sqlite :memory: connection is a
// separate database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	database.Migrate(db)
	return db
}

type fixture struct {
	db       *gorm.DB
	hospital *models.Hospital

	rooms    *RoomService
	messages *MessageService
	users    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	hospital := &models.Hospital{Name: "General Hospital", City: "Springfield", IsActive: true}
	if err := db.Create(hospital).Error; err != nil {
		t.Fatalf("failed to create hospital: %v", err)
	}

	userRepo := repository.NewUserRepo(db)
	hospitalRepo := repository.NewHospitalRepo(db)
	roomRepo := repository.NewRoomRepo(db)
	membershipRepo := repository.NewMembershipRepo(db)
	messageRepo := repository.NewMessageRepo(db)
	auditRepo := repository.NewAuditRepo(db)

	return &fixture{
		db:       db,
		hospital: hospital,
		rooms:    NewRoomService(db, roomRepo, membershipRepo, messageRepo, userRepo, auditRepo),
		messages: NewMessageService(messageRepo, membershipRepo, roomRepo),
		users:    NewUserService(userRepo, hospitalRepo, auditRepo),
	}
}

// user inserts a user bound to the fixture hospital and returns its
// principal.
func (f *fixture) user(t *testing.T, name string, role authz.Role) authz.Principal {
	t.Helper()
	return f.userAt(t, name, role, &f.hospital.ID)
}

func (f *fixture) userAt(t *testing.T, name string, role authz.Role, hospitalID *uint) authz.Principal {
	t.Helper()
	u := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Role:         string(role),
		HospitalID:   hospitalID,
	}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return authz.Principal{UserID: u.ID, HospitalID: hospitalID, Role: role}
}

// otherHospital inserts a second hospital for cross-tenant cases
func (f *fixture) otherHospital(t *testing.T) *models.Hospital {
	t.Helper()
	h := &models.Hospital{Name: "County Hospital", City: "Shelbyville", IsActive: true}
	if err := f.db.Create(h).Error; err != nil {
		t.Fatalf("failed to create hospital: %v", err)
	}
	return h
}

func (f *fixture) memberCount(t *testing.T, roomID uint) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.RoomMember{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count members: %v", err)
	}
	return count
}

func (f *fixture) roomExists(t *testing.T, roomID uint) bool {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.Room{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rooms: %v", err)
	}
	return count > 0
}
