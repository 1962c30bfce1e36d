package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"goodfoods/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// IssueGuestToken mints the bearer token handed out when a conversation is
// opened. The token carries the session id, so a caller can only drive the
// session it opened.
func IssueGuestToken(sessionID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sessionId": sessionID,
		"exp":       time.Now().Add(ttl).Unix(),
		"iat":       time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// GuestSessionMiddleware verifies the guest token and pins it to the
// :sessionID route parameter.
func GuestSessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(config.AppConfig.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		sessionID, _ := claims["sessionId"].(string)
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		if param := c.Param("sessionID"); param != "" && param != sessionID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token does not match session"})
			return
		}

		c.Set("sessionID", sessionID)
		c.Next()
	}
}
