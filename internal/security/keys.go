package security

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Keys are the independent keys derived from SESSION_SECRET
type Keys struct {
	Cookie []byte // signs the session cookie
	CSRF   []byte // derives per-session CSRF tokens
	Token  []byte // seals bearer tokens at rest
}

// DeriveKeys expands secret into one key per purpose with HKDF-SHA256
func DeriveKeys(secret string) (Keys, error) {
	if secret == "" {
		return Keys{}, errors.New("session secret is empty")
	}

	derive := func(info string) ([]byte, error) {
		key := make([]byte, chacha20poly1305.KeySize)
		r := hkdf.New(sha256.New, []byte(secret), nil, []byte("kindergarten/"+info))
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
		}
		return key, nil
	}

	var keys Keys
	var err error
	if keys.Cookie, err = derive("cookie"); err != nil {
		return Keys{}, err
	}
	if keys.CSRF, err = derive("csrf"); err != nil {
		return Keys{}, err
	}
	if keys.Token, err = derive("token"); err != nil {
		return Keys{}, err
	}
	return keys, nil
}
