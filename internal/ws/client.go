package ws

import (
	"log"
	"sync"
	"time"

	"careteam-chat-backend/internal/authz"
	"careteam-chat-backend/pkg/apperr"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// Client binds one live websocket connection to one authenticated
// principal for the connection's lifetime.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	principal authz.Principal

	// mu guards send and dropped: the queue is only closed while no
	// publisher holds the lock, so a concurrent enqueue can never hit a
	// closed channel.
	mu      sync.Mutex
	send    chan []byte
	dropped bool
}

// NewClient wraps an authenticated connection. The principal was already
// verified by the session handshake; it never changes afterwards.
func NewClient(hub *Hub, conn *websocket.Conn, principal authz.Principal) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		principal: principal,
		send:      make(chan []byte, sendQueueSize),
	}
}

// Principal returns the identity bound to this connection
func (c *Client) Principal() authz.Principal {
	return c.principal
}

// Send queues a named event for this client only
func (c *Client) Send(event string, data interface{}) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("ws: failed to encode %s event: %v", event, err)
		return
	}
	if !c.enqueue(payload) {
		c.hub.UnsubscribeAll(c)
		c.close()
	}
}

// errorPayload is the scoped error event sent only to the originating
// connection; other participants never see failed requests.
type errorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendError reports a failed inbound event back to this client
func (c *Client) SendError(sourceEvent string, err error) {
	c.Send("error", errorPayload{
		Event:   sourceEvent,
		Code:    string(apperr.CodeOf(err)),
		Message: apperr.MessageOf(err),
	})
}

// enqueue places an encoded frame on the send queue without blocking;
// false means the queue is full and the connection should be dropped.
// Frames for an already dropped client are discarded silently.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dropped {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	if c.dropped {
		c.mu.Unlock()
		return
	}
	c.dropped = true
	close(c.send)
	c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
}

// Run services the connection until it drops: the read loop dispatches
// inbound events through the gateway while a writer goroutine drains the
// send queue. Teardown only leaves the broadcast groups; persistent
// membership state is untouched by a disconnect.
func (c *Client) Run(gateway *Gateway) {
	gateway.HandleOpen(c)
	defer func() {
		gateway.HandleClose(c)
		c.close()
	}()

	go c.writePump()
	c.readPump(gateway)
}

// readPump reads and dispatches inbound events until the connection
// closes. Each event is handled independently; a failing event reports
// back to this client and never tears the connection down.
func (c *Client) readPump(gateway *Gateway) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: unexpected close for user %d: %v", c.principal.UserID, err)
			}
			return
		}
		gateway.Dispatch(c, raw)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings (gorilla's standard single-writer discipline).
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
