// Package session keeps the authenticated flag, identity and bearer token of a
// browser session and persists every change to a Store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"kindergarten/internal/models"
)

// ErrEmptyToken is returned by Login when the API handed out no token
var ErrEmptyToken = errors.New("empty bearer token")

// Store persists session rows. Load returns nil, nil when no row exists.
type Store interface {
	Load(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
}

// Gate is the session state of one browser
type Gate struct {
	mu    sync.RWMutex
	store Store
	s     models.Session
	now   func() time.Time
}

// Open loads the session with the given id. A missing id or row yields a fresh,
// unauthenticated gate with a new id. A store error also yields a fresh gate,
// returned together with the error.
func Open(ctx context.Context, store Store, id string) (*Gate, error) {
	g := &Gate{store: store, now: time.Now}

	if id != "" {
		row, err := store.Load(ctx, id)
		if err != nil {
			g.s = g.fresh()
			return g, fmt.Errorf("failed to load session: %w", err)
		}
		if row != nil {
			g.s = *row
			return g, nil
		}
	}

	g.s = g.fresh()
	return g, nil
}

func (g *Gate) fresh() models.Session {
	now := g.now()
	return models.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ID returns the session id
func (g *Gate) ID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.s.ID
}

// IsAuthenticated reports whether the session has logged in
func (g *Gate) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.s.Authenticated
}

// Identity returns the e-mail the session logged in with
func (g *Gate) Identity() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.s.Identity
}

// Token returns the bearer token for API calls
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.s.Token
}

// Snapshot returns a copy of the session row
func (g *Gate) Snapshot() models.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.s
}

// Login moves the gate to a new authenticated session and persists it.
// The previous row is never authenticated afterwards, so a cookie issued
// before the login cannot open the new session.
func (g *Gate) Login(ctx context.Context, identity, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.s.Authenticated {
		prev := g.s
		prev.Authenticated = false
		prev.Identity = ""
		prev.Token = ""
		prev.UpdatedAt = g.now()
		if err := g.store.Save(ctx, &prev); err != nil {
			return fmt.Errorf("failed to close previous session: %w", err)
		}
		g.s = prev
	}

	next := g.fresh()
	next.Authenticated = true
	next.Identity = identity
	next.Token = token

	if err := g.store.Save(ctx, &next); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	g.s = next
	return nil
}

// Logout clears the session and persists it
func (g *Gate) Logout(ctx context.Context) error {
	return g.update(ctx, func(s *models.Session) {
		s.Authenticated = false
		s.Identity = ""
		s.Token = ""
	})
}

// update applies change and saves the row. The in-memory state is only
// replaced once the store accepted it.
func (g *Gate) update(ctx context.Context, change func(s *models.Session)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.s
	change(&next)
	next.UpdatedAt = g.now()

	if err := g.store.Save(ctx, &next); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	g.s = next
	return nil
}
