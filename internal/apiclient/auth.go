package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kindergarten/internal/models"
)

// ErrNoToken is returned when a successful login carried no token
var ErrNoToken = errors.New("login response did not contain a token")

// Register creates a staff account
func (c *Client) Register(ctx context.Context, reg models.Registration) error {
	_, err := c.do(ctx, "", http.MethodPost, "/auth/register", reg)
	return err
}

// Login exchanges credentials for a bearer token. The API answers with the
// token as plain text, possibly prefixed with "Bearer ".
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	data, err := c.do(ctx, "", http.MethodPost, "/auth/login", creds)
	if err != nil {
		return "", err
	}
	token := normalizeToken(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	token = strings.Trim(token, `"`)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
