package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessTokenClaims(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "STAFF", time.Hour)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "STAFF", claims["role"])
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, time.Minute)
}

func TestNewAccessTokenRejectsBadInput(t *testing.T) {
	_, err := NewAccessToken("", 1, "STAFF", time.Hour)
	assert.Error(t, err)
	_, err = NewAccessToken("s3cret", 0, "STAFF", time.Hour)
	assert.Error(t, err)
}
