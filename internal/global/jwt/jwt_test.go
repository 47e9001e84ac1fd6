package jwt

import (
	"net/http/httptest"
	"testing"

	"meetup-backend/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestCreateAndParseToken(t *testing.T) {
	token, err := CreateToken(Payload{UserID: 7, Email: "a@example.com"})
	require.NoError(t, err)

	claims, ok := ParseToken(token)
	require.True(t, ok)
	require.Equal(t, uint(7), claims.UserID)
	require.Equal(t, "a@example.com", claims.Email)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	token, err := CreateToken(Payload{UserID: 7})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.JWT.AccessSecret = "another-secret"
	config.Set(cfg)
	defer config.Set(config.Default())

	_, ok := ParseToken(token)
	require.False(t, ok)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.AccessExpire = -60
	config.Set(cfg)
	defer config.Set(config.Default())

	token, err := CreateToken(Payload{UserID: 7})
	require.NoError(t, err)
	_, ok := ParseToken(token)
	require.False(t, ok)
}

func TestUserPayloadContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserPayload(c)
	require.False(t, ok)

	SetUserPayload(c, Payload{UserID: 3})
	p, ok := GetUserPayload(c)
	require.True(t, ok)
	require.Equal(t, uint(3), p.UserID)
}
