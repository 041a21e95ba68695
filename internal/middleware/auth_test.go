package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/webrecap/webrecap/internal/pkg/jwt"
)

func authContext(t *testing.T, header string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/v1/summarize", nil)
	if header != "" {
		c.Request.Header.Set("Authorization", header)
	}
	return c
}

func TestOptionalAuth_ValidTokenSetsUserID(t *testing.T) {
	secret := []byte("test-secret")
	token, err := jwt.GenerateToken("user-42", secret, time.Hour)
	require.NoError(t, err)

	c := authContext(t, "Bearer "+token)
	OptionalAuth(secret)(c)

	require.False(t, c.IsAborted())
	uid, ok := c.Get(ContextUserIDKey)
	require.True(t, ok)
	require.Equal(t, "user-42", uid)
}

func TestOptionalAuth_MissingHeaderIsAnonymous(t *testing.T) {
	c := authContext(t, "")
	OptionalAuth([]byte("test-secret"))(c)

	require.False(t, c.IsAborted())
	_, ok := c.Get(ContextUserIDKey)
	require.False(t, ok)
}

func TestOptionalAuth_BadTokenIsAnonymous(t *testing.T) {
	c := authContext(t, "Bearer not-a-token")
	OptionalAuth([]byte("test-secret"))(c)

	require.False(t, c.IsAborted())
	_, ok := c.Get(ContextUserIDKey)
	require.False(t, ok)
}

func TestOptionalAuth_WrongSecretIsAnonymous(t *testing.T) {
	token, err := jwt.GenerateToken("user-42", []byte("other-secret"), time.Hour)
	require.NoError(t, err)

	c := authContext(t, "Bearer "+token)
	OptionalAuth([]byte("test-secret"))(c)

	require.False(t, c.IsAborted())
	_, ok := c.Get(ContextUserIDKey)
	require.False(t, ok)
}

func TestOptionalAuth_NoSecretConfigured(t *testing.T) {
	c := authContext(t, "Bearer whatever")
	OptionalAuth(nil)(c)

	require.False(t, c.IsAborted())
	_, ok := c.Get(ContextUserIDKey)
	require.False(t, ok)
}
