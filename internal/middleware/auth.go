package middleware

import (
	"net/http"
	"strings"

	"careteam-chat-backend/internal/authz"
	"careteam-chat-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// AuthMiddleware validates the JWT access token from the Authorization
// header and binds the resulting principal to the request context.
// Authorization decisions themselves happen explicitly inside each
// handler and service, not here.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		// Check Bearer prefix
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <token>")
			c.Abort()
			return
		}

		principal, err := PrincipalFromToken(parts[1])
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFromToken verifies an access token and builds the principal
// carried by the connection or request.
func PrincipalFromToken(token string) (authz.Principal, error) {
	claims, err := utils.ValidateAccessToken(token)
	if err != nil {
		return authz.Principal{}, err
	}
	return authz.Principal{
		UserID:     claims.UserID,
		HospitalID: claims.HospitalID,
		Role:       authz.Role(claims.Role),
	}, nil
}

// Principal retrieves the authenticated principal set by AuthMiddleware
func Principal(c *gin.Context) (authz.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return authz.Principal{}, false
	}
	principal, ok := value.(authz.Principal)
	return principal, ok
}
