package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableTokenRoundTrip(t *testing.T) {
	token, err := GenerateTableToken(7)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ParseTableToken(token)
	assert.NoError(t, err)
	assert.Equal(t, uint(7), claims.TableID)
}

func TestRevokedTokenStopsWorking(t *testing.T) {
	token, err := GenerateTableToken(3)
	assert.NoError(t, err)

	_, err = ParseTableToken(token)
	assert.NoError(t, err)

	RevokeTableToken(token)
	_, err = ParseTableToken(token)
	assert.Error(t, err, "a rotated-out token must be rejected")
}

func TestQRPayloadURL(t *testing.T) {
	url := QRPayloadURL(5, "some token")
	assert.True(t, strings.Contains(url, "/5?token=some+token"))
}
