package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"careteam-chat-backend/internal/service"
	"careteam-chat-backend/pkg/apperr"
)

// Gateway routes inbound named events to the room and message services
// and emits the resulting broadcasts. It holds no state of its own; all
// business state lives behind the services.
type Gateway struct {
	hub      *Hub
	rooms    *service.RoomService
	messages *service.MessageService
}

func NewGateway(hub *Hub, rooms *service.RoomService, messages *service.MessageService) *Gateway {
	return &Gateway{
		hub:      hub,
		rooms:    rooms,
		messages: messages,
	}
}

// Hub exposes the broadcast registry (used by the session handler)
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// HandleOpen runs once per authenticated connection: it subscribes the
// personal group used for cross-device sync and pushes the user's room
// list, mirroring what a client needs to render its sidebar.
func (g *Gateway) HandleOpen(c *Client) {
	g.hub.Subscribe(UserGroup(c.principal.UserID), c)

	rooms, err := g.rooms.ListRoomsByUser(context.Background(), c.principal)
	if err != nil {
		c.SendError("connect", err)
		return
	}
	c.Send("rooms", rooms)
}

// HandleClose tears the session down: the connection leaves every
// broadcast group. Persistent membership is not touched.
func (g *Gateway) HandleClose(c *Client) {
	g.hub.UnsubscribeAll(c)
}

// Dispatch decodes one inbound frame and routes it. Failures are
// reported only to the originating connection as a scoped error event;
// nothing is partially broadcast.
func (g *Gateway) Dispatch(c *Client, raw []byte) {
	var env Event
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		c.SendError("", apperr.InvalidInput("malformed event envelope"))
		return
	}

	ctx := context.Background()
	var err error
	switch env.Event {
	case "connect-room":
		err = g.connectRoom(ctx, c, env.Data)
	case "create-room":
		err = g.createRoom(ctx, c, env.Data)
	case "join-room":
		err = g.joinRoom(ctx, c, env.Data)
	case "leave-room":
		err = g.leaveRoom(ctx, c, env.Data)
	case "remove-user":
		err = g.removeUser(ctx, c, env.Data)
	case "send-message":
		err = g.sendMessage(ctx, c, env.Data)
	case "read-messages":
		err = g.readMessages(ctx, c, env.Data)
	default:
		err = apperr.InvalidInput("unknown event " + env.Event)
	}

	if err != nil {
		// Store outages are logged for operational visibility; policy
		// and validation denials are normal traffic.
		if errors.Is(err, apperr.Unavailable("", nil)) {
			log.Printf("ws: %s failed for user %d: %v", env.Event, c.principal.UserID, err)
		}
		c.SendError(env.Event, err)
	}
}

type connectRoomPayload struct {
	RoomID uint `json:"room_id"`
}

// connectRoom joins the room's broadcast group after re-checking
// membership, then syncs the participant list to the room and the
// message backlog to the caller.
func (g *Gateway) connectRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var payload connectRoomPayload
	if err := decode(data, &payload); err != nil {
		return err
	}

	members, err := g.rooms.ListMembers(ctx, c.principal, payload.RoomID)
	if err != nil {
		return err
	}
	messages, err := g.messages.ListByRoom(ctx, c.principal, payload.RoomID)
	if err != nil {
		return err
	}

	g.hub.Subscribe(RoomGroup(payload.RoomID), c)
	g.hub.Publish(RoomGroup(payload.RoomID), "users-in-room", members)
	c.Send("room-messages", messages)
	return nil
}

type createRoomPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (g *Gateway) createRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var payload createRoomPayload
	if err := decode(data, &payload); err != nil {
		return err
	}

	room, err := g.rooms.CreateRoom(ctx, c.principal, payload.Name, payload.Description)
	if err != nil {
		return err
	}

	// Personal group so every device of the creator picks the room up
	g.hub.Publish(UserGroup(c.principal.UserID), "room-created", room)
	return nil
}

type joinRoomPayload struct {
	RoomID  uint   `json:"room_id"`
	UserIDs []uint `json:"user_ids"`
}

func (g *Gateway) joinRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var payload joinRoomPayload
	if err := decode(data, &payload); err != nil {
		return err
	}

	members, err := g.rooms.Join(ctx, c.principal, payload.RoomID, payload.UserIDs)
	if err != nil {
		return err
	}
	room, err := g.rooms.GetRoom(ctx, c.principal, payload.RoomID)
	if err != nil {
		return err
	}

	for _, userID := range payload.UserIDs {
		g.hub.Publish(UserGroup(userID), "room-joined", room)
	}
	g.hub.Publish(RoomGroup(payload.RoomID), "users-in-room", members)
	return nil
}

type leaveRoomPayload struct {
	RoomID uint `json:"room_id"`
}

func (g *Gateway) leaveRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var payload leaveRoomPayload
	if err := decode(data, &payload); err != nil {
		return err
	}

	result, err := g.rooms.Leave(ctx, c.principal, payload.RoomID)
	if err != nil {
		return err
	}

	// Every device of the leaver drops out of the room group
	g.hub.UnsubscribeUser(RoomGroup(payload.RoomID), c.principal.UserID)

	if result.RoomDeleted {
		g.hub.Publish(UserGroup(c.principal.UserID), "room-deleted", leaveRoomPayload{RoomID: payload.RoomID})
		return nil
	}
	g.hub.Publish(RoomGroup(payload.RoomID), "users-in-room", result.Members)
	g.hub.Publish(UserGroup(c.principal.UserID), "room-left", leaveRoomPayload{RoomID: payload.RoomID})
	return nil
}

type removeUserPayload struct {
	RoomID uint `json:"room_id"`
	UserID uint `json:"user_id"`
}

func (g *Gateway) removeUser(ctx context.Context, c *Client, data json.RawMessage) error {
	var payload removeUserPayload
	if err := decode(data, &payload); err != nil {
		return err
	}

	members, err := g.rooms.RemoveMember(ctx, c.principal, payload.RoomID, payload.UserID)
	if err != nil {
		return err
	}

	// Eviction notice to the removed user's devices, then the updated
	// participant list to whoever is still in the room.
	g.hub.UnsubscribeUser(RoomGroup(payload.RoomID), payload.UserID)
	g.hub.Publish(UserGroup(payload.UserID), "removed-from-room", leaveRoomPayload{RoomID: payload.RoomID})
	g.hub.Publish(RoomGroup(payload.RoomID), "users-in-room", members)
	return nil
}

type sendMessagePayload struct {
	RoomID       uint    `json:"room_id"`
	Content      string  `json:"content"`
	AttachmentID *string `json:"attachment_id,omitempty"`
}

func (g *Gateway) sendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var payload sendMessagePayload
	if err := decode(data, &payload); err != nil {
		return err
	}

	message, err := g.messages.Create(ctx, c.principal, payload.RoomID, payload.Content, payload.AttachmentID)
	if err != nil {
		return err
	}

	g.hub.Publish(RoomGroup(payload.RoomID), "new-message", message)
	return nil
}

type readMessagesPayload struct {
	RoomID uint `json:"room_id"`
}

type messageSeenPayload struct {
	MessageID uint `json:"message_id"`
	SeenByAll bool `json:"seen_by_all"`
}

type messagesReadPayload struct {
	RoomID uint `json:"room_id"`
	Count  int  `json:"count"`
}

func (g *Gateway) readMessages(ctx context.Context, c *Client, data json.RawMessage) error {
	var payload readMessagesPayload
	if err := decode(data, &payload); err != nil {
		return err
	}

	affected, err := g.messages.MarkRead(ctx, c.principal, payload.RoomID)
	if err != nil {
		return err
	}

	// Seen-by-all is recomputed per message after the new receipts;
	// membership may have changed since any of them was sent.
	for _, m := range affected {
		seen, err := g.messages.SeenByAll(ctx, m.ID, payload.RoomID)
		if err != nil {
			return err
		}
		g.hub.Publish(RoomGroup(payload.RoomID), "message-seen", messageSeenPayload{
			MessageID: m.ID,
			SeenByAll: seen,
		})
	}

	c.Send("messages-read", messagesReadPayload{RoomID: payload.RoomID, Count: len(affected)})
	return nil
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return apperr.InvalidInput("missing event payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.InvalidInput("malformed event payload")
	}
	return nil
}
