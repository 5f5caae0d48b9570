package security

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) Keys {
	t.Helper()
	keys, err := DeriveKeys("test-secret")
	require.NoError(t, err)
	return keys
}

func TestDeriveKeys(t *testing.T) {
	keys := testKeys(t)

	assert.Len(t, keys.Cookie, 32)
	assert.NotEqual(t, keys.Cookie, keys.CSRF)
	assert.NotEqual(t, keys.CSRF, keys.Token)

	again := testKeys(t)
	assert.Equal(t, keys, again)

	_, err := DeriveKeys("")
	assert.Error(t, err)
}

func TestSealerRoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKeys(t).Token)
	require.NoError(t, err)

	sealed, err := sealer.Seal("Bearer-less.jwt.token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "jwt")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "Bearer-less.jwt.token", opened)
}

func TestSealerEmptyValue(t *testing.T) {
	sealer, err := NewSealer(testKeys(t).Token)
	require.NoError(t, err)

	sealed, err := sealer.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	opened, err := sealer.Open("")
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestSealerRejectsForeignKeyAndTampering(t *testing.T) {
	sealer, err := NewSealer(testKeys(t).Token)
	require.NoError(t, err)
	other, err := NewSealer(testKeys(t).Cookie)
	require.NoError(t, err)

	sealed, err := sealer.Seal("token")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrUnseal)

	_, err = sealer.Open("not base64 !")
	assert.ErrorIs(t, err, ErrUnseal)

	_, err = sealer.Open("AAAA")
	assert.ErrorIs(t, err, ErrUnseal)
}

func TestCookieCodec(t *testing.T) {
	codec := NewCookieCodec(testKeys(t).Cookie, time.Hour)
	now := time.Now()

	value, err := codec.Encode("session-1", now)
	require.NoError(t, err)

	id, err := codec.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)
}

func TestCookieCodecRejects(t *testing.T) {
	keys := testKeys(t)
	codec := NewCookieCodec(keys.Cookie, time.Hour)

	expired, err := codec.Encode("session-1", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	forged, err := NewCookieCodec(keys.CSRF, time.Hour).Encode("session-1", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
	}{
		{name: "expired", value: expired},
		{name: "wrong key", value: forged},
		{name: "garbage", value: "not-a-jwt"},
		{name: "empty", value: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.value)
			assert.ErrorIs(t, err, ErrInvalidCookie)
		})
	}
}

func TestCSRFSigner(t *testing.T) {
	signer := NewCSRFSigner(testKeys(t).CSRF)

	token, err := signer.Token("session-1")
	require.NoError(t, err)

	assert.True(t, signer.Valid("session-1", token))
	assert.False(t, signer.Valid("session-2", token))
	assert.False(t, signer.Valid("session-1", ""))
	assert.False(t, signer.Valid("", token))
	assert.False(t, signer.Valid("session-1", "not base64!"))
	assert.False(t, signer.Valid("session-1", token[:len(token)-2]))

	other := NewCSRFSigner(testKeys(t).Cookie)
	assert.False(t, other.Valid("session-1", token))

	_, err = signer.Token("")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("10.0.0.1")

	rl.cleanup(time.Now().Add(time.Hour))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.visitors)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", ClientIP(r))

	r.RemoteAddr = "192.0.2.8"
	assert.Equal(t, "192.0.2.8", ClientIP(r))
}

func TestSessionCookies(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	expires := time.Now().Add(time.Hour)

	c := CreateSessionCookie(r, "value", expires)
	assert.Equal(t, SessionCookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)

	r.Header.Set("X-Forwarded-Proto", "https")
	del := CreateDeleteCookie(r)
	assert.Equal(t, -1, del.MaxAge)
	assert.True(t, del.Secure)
	assert.True(t, strings.HasPrefix(del.Path, "/"))
}
