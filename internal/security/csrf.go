package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ErrNoSession is returned when a form token is requested without a session
var ErrNoSession = errors.New("session id is required")

const csrfLabel = "kg-form\x00"

// CSRFSigner signs form tokens for a session. A token is the HMAC of the
// session id, so it changes whenever login issues a new session.
type CSRFSigner struct {
	key []byte
}

// NewCSRFSigner creates a signer keyed with the derived CSRF key
func NewCSRFSigner(key []byte) *CSRFSigner {
	return &CSRFSigner{key: key}
}

func (s *CSRFSigner) sum(sessionID string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(csrfLabel))
	mac.Write([]byte(sessionID))
	return mac.Sum(nil)
}

// Token returns the form token embedded in pages rendered for sessionID
func (s *CSRFSigner) Token(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}
	return base64.RawURLEncoding.EncodeToString(s.sum(sessionID)), nil
}

// Valid reports whether token was issued for sessionID
func (s *CSRFSigner) Valid(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.sum(sessionID))
}
