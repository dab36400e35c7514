// Package auth keeps the signed-in user of one browser session, mirrored
// into session-scoped storage so it survives page loads but not the session.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

// Session storage entry names.
const (
	TokenKey = "authToken"
	UserKey  = "authUser"
)

var (
	ErrIncompleteAuth   = errors.New("auth requires both a token and a user")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// SessionStorage is the session-scoped storage of a single sid.
type SessionStorage interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
	Remove(ctx context.Context, name string) error
	Touch(ctx context.Context, names ...string) (int, error)
}

// Store holds token, user and the authenticated flag. The three are always
// written together under one lock.
type Store struct {
	mu            sync.RWMutex
	token         string
	user          *domain.User
	authenticated bool
	storage       SessionStorage
}

type Snapshot struct {
	Token           string
	User            *domain.User
	IsAuthenticated bool
}

// New restores the session from storage. A stored user that does not parse
// discards both entries; the failure is logged and the store starts signed out.
func New(ctx context.Context, storage SessionStorage) *Store {
	s := &Store{storage: storage}

	token, okTok, err := storage.Get(ctx, TokenKey)
	if err != nil {
		applog.Error(nil, "auth.init.read", err, map[string]any{"entry": TokenKey})
		return s
	}
	rawUser, okUser, err := storage.Get(ctx, UserKey)
	if err != nil {
		applog.Error(nil, "auth.init.read", err, map[string]any{"entry": UserKey})
		return s
	}
	if !okTok || !okUser || token == "" {
		return s
	}

	var u domain.User
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
		applog.Warn(nil, "auth.init.bad_user", err, nil)
		s.clearStorage(ctx)
		return s
	}
	s.token, s.user, s.authenticated = token, &u, true
	return s
}

// SetAuth stores token and user in session storage, then in memory.
func (s *Store) SetAuth(ctx context.Context, token string, user domain.User) error {
	if token == "" {
		return ErrIncompleteAuth
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, UserKey, string(raw)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user, s.authenticated = token, &user, true
	return nil
}

// Logout clears storage and memory. Storage failures are logged only; the
// in-memory session is always dropped.
func (s *Store) Logout(ctx context.Context) {
	s.clearStorage(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user, s.authenticated = "", nil, false
}

// UpdateUser replaces the user in storage and memory, leaving the token
// and flag untouched. The token entry is written again so both entries
// share one expiry.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return ErrNotAuthenticated
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, TokenKey, s.token); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, UserKey, string(raw)); err != nil {
		return err
	}
	s.user = &user
	return nil
}

// Sync keeps a long-lived store in step with session storage, which expires
// entries on its own. Both entries get a fresh expiry; if either is already
// gone the session is over and the store signs out. Read errors keep the
// current state.
func (s *Store) Sync(ctx context.Context) {
	if !s.IsAuthenticated() {
		return
	}
	n, err := s.storage.Touch(ctx, TokenKey, UserKey)
	if err != nil {
		applog.Error(nil, "auth.sync.touch", err, nil)
		return
	}
	if n == 2 {
		return
	}
	applog.Security(nil, "auth.session.lapsed", map[string]any{"entries_left": n})
	s.Logout(ctx)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user, or nil when signed out.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Token: s.token, IsAuthenticated: s.authenticated}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Store) clearStorage(ctx context.Context) {
	for _, name := range []string{TokenKey, UserKey} {
		if err := s.storage.Remove(ctx, name); err != nil {
			applog.Error(nil, "auth.storage.remove", err, map[string]any{"entry": name})
		}
	}
}
