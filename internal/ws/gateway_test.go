package ws

import (
	"encoding/json"
	"fmt"
	"testing"

	"careteam-chat-backend/internal/authz"
	"careteam-chat-backend/internal/database"
	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/internal/repository"
	"careteam-chat-backend/internal/service"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gatewayFixture struct {
	db       *gorm.DB
	gateway  *Gateway
	hospital *models.Hospital
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
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

	hospital := &models.Hospital{Name: "General Hospital", IsActive: true}
	if err := db.Create(hospital).Error; err != nil {
		t.Fatalf("failed to create hospital: %v", err)
	}

	userRepo := repository.NewUserRepo(db)
	roomRepo := repository.NewRoomRepo(db)
	membershipRepo := repository.NewMembershipRepo(db)
	messageRepo := repository.NewMessageRepo(db)
	auditRepo := repository.NewAuditRepo(db)

	rooms := service.NewRoomService(db, roomRepo, membershipRepo, messageRepo, userRepo, auditRepo)
	messages := service.NewMessageService(messageRepo, membershipRepo, roomRepo)

	return &gatewayFixture{
		db:       db,
		gateway:  NewGateway(NewHub(), rooms, messages),
		hospital: hospital,
	}
}

// connect creates a user, wires a connectionless client and runs the
// open handshake. The initial rooms frame is drained away.
func (f *gatewayFixture) connect(t *testing.T, name string) *Client {
	t.Helper()
	u := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Role:         string(authz.RoleClinician),
		HospitalID:   &f.hospital.ID,
	}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}

	c := NewClient(f.gateway.Hub(), nil, authz.Principal{
		UserID:     u.ID,
		HospitalID: &f.hospital.ID,
		Role:       authz.RoleClinician,
	})
	f.gateway.HandleOpen(c)
	drain(c)
	return c
}

// dispatch routes one inbound frame built from an event name and payload
func (f *gatewayFixture) dispatch(t *testing.T, c *Client, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	raw, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}
	f.gateway.Dispatch(c, raw)
}

func drain(c *Client) []Event {
	var events []Event
	for {
		select {
		case payload := <-c.send:
			var evt Event
			if json.Unmarshal(payload, &evt) == nil {
				events = append(events, evt)
			}
		default:
			return events
		}
	}
}

// expect drains the client's queue and returns the first event with the
// given name.
func expect(t *testing.T, c *Client, name string) Event {
	t.Helper()
	events := drain(c)
	for _, evt := range events {
		if evt.Event == name {
			return evt
		}
	}
	names := make([]string, 0, len(events))
	for _, evt := range events {
		names = append(names, evt.Event)
	}
	t.Fatalf("no %s event queued, got %v", name, names)
	return Event{}
}

func TestHandleOpenSendsRoomList(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.connect(t, "alice")

	f.dispatch(t, alice, "create-room", createRoomPayload{Name: "Ward 3"})
	drain(alice)

	// A second device opening gets the sidebar state immediately.
	second := NewClient(f.gateway.Hub(), nil, alice.Principal())
	f.gateway.HandleOpen(second)

	evt := expect(t, second, "rooms")
	var rooms []models.Room
	if err := json.Unmarshal(evt.Data, &rooms); err != nil {
		t.Fatalf("failed to decode rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "Ward 3" {
		t.Errorf("rooms = %v, want the created room", rooms)
	}
}

func TestDispatchRejectsMalformedAndUnknownEvents(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.connect(t, "alice")

	f.gateway.Dispatch(alice, []byte("not json"))
	evt := expect(t, alice, "error")
	var payload errorPayload
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if payload.Code != "invalid_input" {
		t.Errorf("code = %q, want invalid_input", payload.Code)
	}

	f.dispatch(t, alice, "self-destruct", nil)
	evt = expect(t, alice, "error")
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if payload.Event != "self-destruct" || payload.Code != "invalid_input" {
		t.Errorf("error payload = %+v", payload)
	}
}

func TestCreateRoomNotifiesEveryDeviceOfCreator(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.connect(t, "alice")
	second := NewClient(f.gateway.Hub(), nil, alice.Principal())
	f.gateway.HandleOpen(second)
	drain(second)

	f.dispatch(t, alice, "create-room", createRoomPayload{Name: "Ward 3", Description: "nights"})

	for _, c := range []*Client{alice, second} {
		evt := expect(t, c, "room-created")
		var room models.Room
		if err := json.Unmarshal(evt.Data, &room); err != nil {
			t.Fatalf("failed to decode room: %v", err)
		}
		if room.Name != "Ward 3" || room.AdminID != alice.Principal().UserID {
			t.Errorf("room = %+v", room)
		}
	}
}

func TestConnectRoomSyncsMembersAndBacklog(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.dispatch(t, alice, "create-room", createRoomPayload{Name: "Ward 3"})
	evt := expect(t, alice, "room-created")
	var room models.Room
	if err := json.Unmarshal(evt.Data, &room); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}

	f.dispatch(t, alice, "connect-room", connectRoomPayload{RoomID: room.ID})
	expect(t, alice, "room-messages")

	f.dispatch(t, alice, "join-room", joinRoomPayload{RoomID: room.ID, UserIDs: []uint{bob.Principal().UserID}})
	expect(t, bob, "room-joined")

	f.dispatch(t, alice, "send-message", sendMessagePayload{RoomID: room.ID, Content: "welcome"})
	drain(alice)

	f.dispatch(t, bob, "connect-room", connectRoomPayload{RoomID: room.ID})

	evt = expect(t, bob, "room-messages")
	var backlog []models.MessageWithSender
	if err := json.Unmarshal(evt.Data, &backlog); err != nil {
		t.Fatalf("failed to decode backlog: %v", err)
	}
	if len(backlog) != 1 || backlog[0].Content != "welcome" {
		t.Errorf("backlog = %v", backlog)
	}

	// Connecting also republishes the participant list to the room.
	evt = expect(t, alice, "users-in-room")
	var members []models.MemberWithUser
	if err := json.Unmarshal(evt.Data, &members); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("members = %v, want 2", members)
	}
}

func TestConnectRoomDeniedForNonMember(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.connect(t, "alice")
	mallory := f.connect(t, "mallory")

	f.dispatch(t, alice, "create-room", createRoomPayload{Name: "Ward 3"})
	evt := expect(t, alice, "room-created")
	var room models.Room
	if err := json.Unmarshal(evt.Data, &room); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}

	f.dispatch(t, mallory, "connect-room", connectRoomPayload{RoomID: room.ID})
	evt = expect(t, mallory, "error")
	var payload errorPayload
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if payload.Code != "forbidden" {
		t.Errorf("code = %q, want forbidden", payload.Code)
	}
	if f.gateway.Hub().GroupSize(RoomGroup(room.ID)) != 1 {
		t.Error("denied client must not join the room group")
	}
	// The denial stays scoped to the caller.
	if len(drain(alice)) != 0 {
		t.Error("other participants must not see the failed request")
	}
}

func TestLeaveRoomEvents(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.dispatch(t, alice, "create-room", createRoomPayload{Name: "Ward 3"})
	evt := expect(t, alice, "room-created")
	var room models.Room
	if err := json.Unmarshal(evt.Data, &room); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}
	f.dispatch(t, alice, "connect-room", connectRoomPayload{RoomID: room.ID})
	f.dispatch(t, alice, "join-room", joinRoomPayload{RoomID: room.ID, UserIDs: []uint{bob.Principal().UserID}})
	f.dispatch(t, bob, "connect-room", connectRoomPayload{RoomID: room.ID})
	drain(alice)
	drain(bob)

	// Bob leaves: the remaining room sees the new list, bob gets the ack
	// and his connection is out of the room group.
	f.dispatch(t, bob, "leave-room", leaveRoomPayload{RoomID: room.ID})
	expect(t, bob, "room-left")
	evt = expect(t, alice, "users-in-room")
	var members []models.MemberWithUser
	if err := json.Unmarshal(evt.Data, &members); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}
	if len(members) != 1 || members[0].UserID != alice.Principal().UserID {
		t.Errorf("members = %v, want only alice", members)
	}
	if f.gateway.Hub().GroupSize(RoomGroup(room.ID)) != 1 {
		t.Error("leaver should be out of the room group")
	}

	// Alice is the last member: leaving deletes the room.
	f.dispatch(t, alice, "leave-room", leaveRoomPayload{RoomID: room.ID})
	evt = expect(t, alice, "room-deleted")
	var deleted leaveRoomPayload
	if err := json.Unmarshal(evt.Data, &deleted); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if deleted.RoomID != room.ID {
		t.Errorf("deleted room = %d, want %d", deleted.RoomID, room.ID)
	}
}

func TestRemoveUserEvents(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.dispatch(t, alice, "create-room", createRoomPayload{Name: "Ward 3"})
	evt := expect(t, alice, "room-created")
	var room models.Room
	if err := json.Unmarshal(evt.Data, &room); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}
	f.dispatch(t, alice, "connect-room", connectRoomPayload{RoomID: room.ID})
	f.dispatch(t, alice, "join-room", joinRoomPayload{RoomID: room.ID, UserIDs: []uint{bob.Principal().UserID}})
	f.dispatch(t, bob, "connect-room", connectRoomPayload{RoomID: room.ID})
	drain(alice)
	drain(bob)

	f.dispatch(t, alice, "remove-user", removeUserPayload{RoomID: room.ID, UserID: bob.Principal().UserID})

	expect(t, bob, "removed-from-room")
	evt = expect(t, alice, "users-in-room")
	var members []models.MemberWithUser
	if err := json.Unmarshal(evt.Data, &members); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("members = %v, want only alice", members)
	}
	if f.gateway.Hub().GroupSize(RoomGroup(room.ID)) != 1 {
		t.Error("evicted user should be out of the room group")
	}
}

func TestSendAndReadMessageEvents(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	f.dispatch(t, alice, "create-room", createRoomPayload{Name: "Ward 3"})
	evt := expect(t, alice, "room-created")
	var room models.Room
	if err := json.Unmarshal(evt.Data, &room); err != nil {
		t.Fatalf("failed to decode room: %v", err)
	}
	f.dispatch(t, alice, "connect-room", connectRoomPayload{RoomID: room.ID})
	f.dispatch(t, alice, "join-room", joinRoomPayload{RoomID: room.ID, UserIDs: []uint{bob.Principal().UserID}})
	f.dispatch(t, bob, "connect-room", connectRoomPayload{RoomID: room.ID})
	drain(alice)
	drain(bob)

	f.dispatch(t, alice, "send-message", sendMessagePayload{RoomID: room.ID, Content: "vitals posted"})

	evt = expect(t, bob, "new-message")
	var message models.MessageWithSender
	if err := json.Unmarshal(evt.Data, &message); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if message.Content != "vitals posted" || message.SenderName != "alice" {
		t.Errorf("message = %+v", message)
	}
	if message.SeenByAll {
		t.Error("fresh message must not be seen by all")
	}
	drain(alice)

	f.dispatch(t, bob, "read-messages", readMessagesPayload{RoomID: room.ID})

	evt = expect(t, bob, "messages-read")
	var ack messagesReadPayload
	if err := json.Unmarshal(evt.Data, &ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if ack.RoomID != room.ID || ack.Count != 1 {
		t.Errorf("ack = %+v", ack)
	}

	// Bob was the only recipient, so the receipt flips seen-by-all.
	evt = expect(t, alice, "message-seen")
	var seen messageSeenPayload
	if err := json.Unmarshal(evt.Data, &seen); err != nil {
		t.Fatalf("failed to decode seen payload: %v", err)
	}
	if seen.MessageID != message.ID || !seen.SeenByAll {
		t.Errorf("seen = %+v", seen)
	}

	// Nothing unread left: the repeat is an ack with zero count.
	f.dispatch(t, bob, "read-messages", readMessagesPayload{RoomID: room.ID})
	evt = expect(t, bob, "messages-read")
	if err := json.Unmarshal(evt.Data, &ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if ack.Count != 0 {
		t.Errorf("repeat read count = %d, want 0", ack.Count)
	}
}
