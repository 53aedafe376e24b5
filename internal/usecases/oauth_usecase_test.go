package usecases

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthStateRoundtrip(t *testing.T) {
	uc := NewOAuthUsecase("app-id", "https://app.example.com")

	token := uc.EncodeState("biz-123")
	state := uc.DecodeState(token)

	require.NotNil(t, state)
	assert.Equal(t, "biz-123", state.BusinessID)
}

func TestOAuthStateExpiry(t *testing.T) {
	uc := NewOAuthUsecase("app-id", "https://app.example.com")

	start := time.Now()
	uc.now = func() time.Time { return start }
	token := uc.EncodeState("biz-123")

	// Nine minutes later: still valid
	uc.now = func() time.Time { return start.Add(9 * time.Minute) }
	assert.NotNil(t, uc.DecodeState(token))

	// Eleven minutes later: expired
	uc.now = func() time.Time { return start.Add(11 * time.Minute) }
	assert.Nil(t, uc.DecodeState(token))
}

func TestOAuthStateRejectsMalformed(t *testing.T) {
	uc := NewOAuthUsecase("app-id", "https://app.example.com")

	assert.Nil(t, uc.DecodeState("not-base64!!!"))
	assert.Nil(t, uc.DecodeState(base64.StdEncoding.EncodeToString([]byte("not json"))))
	assert.Nil(t, uc.DecodeState(base64.StdEncoding.EncodeToString([]byte(`{"timestamp":1}`))), "missing business id")
	assert.Nil(t, uc.DecodeState(""))
}

func TestAuthorizeURL(t *testing.T) {
	uc := NewOAuthUsecase("app-id", "https://app.example.com")

	u, err := uc.AuthorizeURL("instagram", "state-token")
	require.NoError(t, err)
	assert.Contains(t, u, "https://www.instagram.com/oauth/authorize?")
	assert.Contains(t, u, "client_id=app-id")
	assert.Contains(t, u, "state=state-token")
	assert.Contains(t, u, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fapi%2Fconnect%2Finstagram%2Fcallback")

	u, err = uc.AuthorizeURL("facebook", "s")
	require.NoError(t, err)
	assert.Contains(t, u, "facebook.com/v19.0/dialog/oauth")

	_, err = uc.AuthorizeURL("tiktok", "s")
	assert.Error(t, err, "tiktok has no OAuth connect yet")
}
