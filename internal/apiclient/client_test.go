package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindergarten/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := New("localhost:8080", time.Second)
	assert.Error(t, err)

	_, err = New("", time.Second)
	assert.Error(t, err)
}

func TestLoginStripsBearerPrefix(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "plain", body: "abc.def.ghi"},
		{name: "prefixed", body: "Bearer abc.def.ghi"},
		{name: "lowercase prefix and newline", body: "bearer abc.def.ghi\n"},
		{name: "quoted", body: `"Bearer abc.def.ghi"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/auth/login", r.URL.Path)
				assert.Empty(t, r.Header.Get("Authorization"))

				var creds models.Credentials
				require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
				assert.Equal(t, "staff@silelis.lt", creds.Email)

				io.WriteString(w, tt.body)
			})

			token, err := c.Login(context.Background(), models.Credentials{Email: "staff@silelis.lt", Password: "pw"})
			require.NoError(t, err)
			assert.Equal(t, "abc.def.ghi", token)
		})
	}
}

func TestLoginFailureCarriesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, "Invalid email or password")
	})

	_, err := c.Login(context.Background(), models.Credentials{Email: "x@y.lt", Password: "bad"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.Equal(t, "Invalid email or password", Message(err))
}

func TestLoginEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Login(context.Background(), models.Credentials{})
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRegisterSendsConfirmPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pw", body["confirmPassword"])
		w.WriteHeader(http.StatusCreated)
	})

	err := c.Register(context.Background(), models.Registration{Email: "a@b.lt", Password: "pw", ConfirmPassword: "pw"})
	assert.NoError(t, err)
}

func TestAuthorizedCallsSendBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/children", r.URL.Path)
		io.WriteString(w, `[{"id":1,"name":"Ana","surname":"Ana","dateOfBirth":"2020-01-01","groupId":3},
			{"id":2,"name":"Jonas","surname":"J","dateOfBirth":"2019-05-05T00:00:00Z","groupId":null}]`)
	})

	children, err := c.ListChildren(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.NotNil(t, children[0].GroupID)
	assert.Equal(t, int64(3), *children[0].GroupID)
	assert.Nil(t, children[1].GroupID)
	assert.Equal(t, "2019-05-05", children[1].DateOfBirth.String())
}

func TestCreateChild(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2020-01-01", body["dateOfBirth"])
		assert.NotContains(t, body, "id")

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":10,"name":"Ana","surname":"Ana","dateOfBirth":"2020-01-01","groupId":null}`)
	})

	saved, err := c.CreateChild(context.Background(), "tok", models.Child{
		Name:        "Ana",
		Surname:     "Ana",
		DateOfBirth: models.NewDate(2020, time.January, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), saved.ID)
}

func TestUpdateGroupWithoutResponseBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/groups/4", r.URL.Path)
		var body models.Group
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotNil(t, body.Children)
		w.WriteHeader(http.StatusNoContent)
	})

	saved, err := c.UpdateGroup(context.Background(), "tok", models.Group{ID: 4, Name: "Bitutės"})
	require.NoError(t, err)
	assert.Equal(t, "Bitutės", saved.Name)
	assert.Equal(t, int64(4), saved.ID)
}

func TestDeleteNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"Child not found"}`)
	})

	err := c.DeleteChild(context.Background(), "tok", 99)

	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Child not found", Message(err))
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "message field", status: 400, body: `{"message":"Bad name"}`, want: "Bad name"},
		{name: "error field", status: 400, body: `{"error":"Bad date"}`, want: "Bad date"},
		{name: "detail field", status: 422, body: `{"detail":"Nope"}`, want: "Nope"},
		{name: "plain text", status: 409, body: "Email already in use\n", want: "Email already in use"},
		{name: "unknown json", status: 500, body: `{"code":1}`, want: "Internal Server Error"},
		{name: "html page", status: 502, body: "<html>bad gateway</html>", want: "Bad Gateway"},
		{name: "empty", status: 403, body: "", want: "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage(tt.status, []byte(tt.body)))
		})
	}
}

func TestExtractMessageCutsOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ė", 250)
	got := extractMessage(400, []byte(long))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ė", maxMessageRunes), got)

	// longer than the cap in bytes but not in runes
	odd := "a" + strings.Repeat("ė", 150)
	got = extractMessage(400, []byte(odd))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, odd, got)
}

func TestTransportFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url, time.Second)
	require.NoError(t, err)

	_, err = c.ListGroups(context.Background(), "tok")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "GET /groups")
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = c.ListGroups(context.Background(), "tok")
	assert.Error(t, err)
}
