package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/webrecap/webrecap/internal/pkg/jwt"
)

const ContextUserIDKey = "user_id"

// OptionalAuth attaches the caller identity when a valid bearer token is
// present. Requests without a token, or with a bad one, proceed anonymously;
// submission never requires an account.
func OptionalAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || len(secret) == 0 {
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Next()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			logutil.GetLogger(c.Request.Context()).Debug("ignoring invalid bearer token", zap.Error(err))
			c.Next()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}
