package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"sediment-analysis-backend/internal/identity"
)

const UserIDKey = "user_id"

// AuthMiddleware resolves the bearer credential to a clinician id and stores
// it in the request context. Every failure is reported as the same uniform
// 401 so verification internals are never leaked to the caller; the real
// cause goes to the server log only.
func AuthMiddleware(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c)
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abortUnauthorized(c)
			return
		}

		doctorID, err := verifier.Verify(tokenString)
		if err != nil {
			log.Printf("auth: credential rejected: %v", err)
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, doctorID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
	c.Abort()
}
