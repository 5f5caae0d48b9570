package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCookie is returned for session cookies that are malformed, forged or expired
var ErrInvalidCookie = errors.New("invalid or expired session cookie")

const cookieIssuer = "kindergarten"

// CookieCodec signs the session id carried by the session cookie as an HS256 JWT
type CookieCodec struct {
	key    []byte
	maxAge time.Duration
}

// NewCookieCodec creates a codec whose cookies expire after maxAge
func NewCookieCodec(key []byte, maxAge time.Duration) *CookieCodec {
	return &CookieCodec{key: key, maxAge: maxAge}
}

// MaxAge returns the cookie lifetime
func (c *CookieCodec) MaxAge() time.Duration {
	return c.maxAge
}

// Encode returns the signed cookie value for sessionID
func (c *CookieCodec) Encode(sessionID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Issuer:    cookieIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Decode validates value and returns the session id it carries
func (c *CookieCodec) Decode(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCookie
		}
		return c.key, nil
	}, jwt.WithIssuer(cookieIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.ID == "" {
		return "", ErrInvalidCookie
	}
	return claims.ID, nil
}
