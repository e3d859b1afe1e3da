package handler

import (
	"log"
	"net/http"

	"careteam-chat-backend/internal/middleware"
	"careteam-chat-backend/internal/ws"
	"careteam-chat-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler owns the websocket session handshake: it verifies the
// credential before the upgrade so unauthenticated connections never
// enter the hub.
type WSHandler struct {
	gateway  *ws.Gateway
	upgrader websocket.Upgrader
}

func NewWSHandler(gateway *ws.Gateway, allowedOrigins []string) *WSHandler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[origin] = struct{}{}
	}

	return &WSHandler{
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients send an Origin header; native and
				// test clients do not.
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := originSet[origin]
				return ok
			},
		},
	}
}

// Connect authenticates and upgrades a websocket connection, then binds
// it to the gateway for the rest of its lifetime. Browsers cannot set
// headers on websocket requests, so the token is also accepted as a
// query parameter.
func (h *WSHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Missing access token")
		return
	}

	principal, err := middleware.PrincipalFromToken(token)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		log.Printf("ws: upgrade failed for user %d: %v", principal.UserID, err)
		return
	}

	client := ws.NewClient(h.gateway.Hub(), conn, principal)
	client.Run(h.gateway)
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	auth := c.GetHeader("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
