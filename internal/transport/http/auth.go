package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainauth "vision-relay-go/internal/domain/auth"
)

// ClientIDKey is the gin context key holding the authenticated client id.
const ClientIDKey = "client_id"

// BearerAuth rejects requests without a valid bearer token.
func BearerAuth(tokens *domainauth.AuthToken) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			RespondError(c, http.StatusUnauthorized, "missing bearer token", ErrorData{Error: "missing bearer token", Kind: "auth"})
			c.Abort()
			return
		}

		clientID, err := tokens.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "invalid bearer token", ErrorData{Error: err.Error(), Kind: "auth"})
			c.Abort()
			return
		}
		c.Set(ClientIDKey, clientID)
		c.Next()
	}
}
