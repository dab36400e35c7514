package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

type memSession struct {
	mu       sync.Mutex
	entries  map[string]string
	writes   map[string]int
	touched  int
	getErr   error
	setErr   error
	touchErr error
}

func newMemSession() *memSession {
	return &memSession{entries: map[string]string{}, writes: map[string]int{}}
}

func (m *memSession) Get(ctx context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.entries[name]
	return v, ok, nil
}

func (m *memSession) Set(ctx context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[name] = value
	m.writes[name]++
	return nil
}

func (m *memSession) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}

func (m *memSession) Touch(ctx context.Context, names ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return 0, m.touchErr
	}
	m.touched++
	n := 0
	for _, name := range names {
		if _, ok := m.entries[name]; ok {
			n++
		}
	}
	return n, nil
}

// expire drops an entry the way a storage TTL would.
func (m *memSession) expire(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
}

var ana = domain.User{ID: "u1", Email: "ana@x.test", FirstName: "Ana", LastName: "García"}

func TestNew_EmptyStorageIsSignedOut(t *testing.T) {
	s := New(context.Background(), newMemSession())
	snap := s.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
}

func TestSetAuth_PersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	storage := newMemSession()
	s := New(ctx, storage)

	require.NoError(t, s.SetAuth(ctx, "tok-1", ana))
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "tok-1", s.Token())
	assert.Equal(t, "tok-1", storage.entries[TokenKey])
	assert.JSONEq(t, `{"id":"u1","email":"ana@x.test","nombre":"Ana","apellido":"García"}`, storage.entries[UserKey])

	restored := New(ctx, storage)
	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, &ana, restored.User())
}

func TestSetAuth_RequiresToken(t *testing.T) {
	s := New(context.Background(), newMemSession())
	assert.ErrorIs(t, s.SetAuth(context.Background(), "", ana), ErrIncompleteAuth)
	assert.False(t, s.IsAuthenticated())
}

func TestSetAuth_StorageFailureLeavesStateUntouched(t *testing.T) {
	storage := newMemSession()
	storage.setErr = errors.New("quota exceeded")
	s := New(context.Background(), storage)

	require.Error(t, s.SetAuth(context.Background(), "tok", ana))
	snap := s.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
}

func TestNew_CorruptUserDiscardsBothEntries(t *testing.T) {
	storage := newMemSession()
	storage.entries[TokenKey] = "tok"
	storage.entries[UserKey] = "{not json"

	s := New(context.Background(), storage)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, storage.entries)
}

func TestNew_PartialEntriesAreSignedOut(t *testing.T) {
	storage := newMemSession()
	storage.entries[TokenKey] = "tok"

	s := New(context.Background(), storage)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
}

func TestNew_ReadErrorIsSignedOut(t *testing.T) {
	storage := newMemSession()
	storage.getErr = errors.New("redis down")

	s := New(context.Background(), storage)
	assert.False(t, s.IsAuthenticated())
}

func TestLogout_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	storage := newMemSession()
	s := New(ctx, storage)
	require.NoError(t, s.SetAuth(ctx, "tok", ana))

	s.Logout(ctx)
	snap := s.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
	assert.Empty(t, storage.entries)
}

func TestUpdateUser_KeepsTokenAndRewritesBothEntries(t *testing.T) {
	ctx := context.Background()
	storage := newMemSession()
	s := New(ctx, storage)

	assert.ErrorIs(t, s.UpdateUser(ctx, ana), ErrNotAuthenticated)

	require.NoError(t, s.SetAuth(ctx, "tok", ana))
	renamed := ana
	renamed.FirstName = "Anita"
	require.NoError(t, s.UpdateUser(ctx, renamed))

	assert.Equal(t, "Anita", s.User().FirstName)
	assert.Equal(t, "tok", s.Token())
	assert.True(t, s.IsAuthenticated())
	assert.Contains(t, storage.entries[UserKey], "Anita")
	assert.Equal(t, "tok", storage.entries[TokenKey])
	assert.Equal(t, 2, storage.writes[TokenKey], "token written with the user so both expire together")
	assert.Equal(t, 2, storage.writes[UserKey])
}

func TestUpdateUser_StorageFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	storage := newMemSession()
	s := New(ctx, storage)
	require.NoError(t, s.SetAuth(ctx, "tok", ana))

	storage.setErr = errors.New("down")
	renamed := ana
	renamed.FirstName = "Anita"
	assert.Error(t, s.UpdateUser(ctx, renamed))
	assert.Equal(t, "Ana", s.User().FirstName)
}

func TestSync_RefreshesLiveSession(t *testing.T) {
	ctx := context.Background()
	storage := newMemSession()
	s := New(ctx, storage)

	s.Sync(ctx)
	assert.Zero(t, storage.touched, "signed-out stores do not touch storage")

	require.NoError(t, s.SetAuth(ctx, "tok", ana))
	s.Sync(ctx)
	assert.Equal(t, 1, storage.touched)
	assert.True(t, s.IsAuthenticated())
}

func TestSync_ExpiredEntrySignsOut(t *testing.T) {
	for _, gone := range []string{TokenKey, UserKey} {
		t.Run(gone, func(t *testing.T) {
			ctx := context.Background()
			storage := newMemSession()
			s := New(ctx, storage)
			require.NoError(t, s.SetAuth(ctx, "tok", ana))

			storage.expire(gone)
			s.Sync(ctx)

			assert.False(t, s.IsAuthenticated())
			assert.Empty(t, s.Token())
			assert.Empty(t, storage.entries, "the surviving entry is removed too")
			assert.ErrorIs(t, s.UpdateUser(ctx, ana), ErrNotAuthenticated)
			assert.Empty(t, storage.entries)
		})
	}
}

func TestSync_TouchErrorKeepsSession(t *testing.T) {
	ctx := context.Background()
	storage := newMemSession()
	s := New(ctx, storage)
	require.NoError(t, s.SetAuth(ctx, "tok", ana))

	storage.touchErr = errors.New("redis down")
	s.Sync(ctx)
	assert.True(t, s.IsAuthenticated())
}

func TestUserReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMemSession())
	require.NoError(t, s.SetAuth(ctx, "tok", ana))

	u := s.User()
	u.Email = "changed"
	assert.Equal(t, "ana@x.test", s.User().Email)
}

func TestTokenExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sign := func(exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("k"))
		require.NoError(t, err)
		return tok
	}

	s := New(ctx, newMemSession())
	assert.False(t, s.TokenExpired(now), "no token")

	require.NoError(t, s.SetAuth(ctx, "opaque-token", ana))
	assert.False(t, s.TokenExpired(now), "opaque tokens never expire client-side")

	require.NoError(t, s.SetAuth(ctx, sign(now.Add(time.Hour)), ana))
	assert.False(t, s.TokenExpired(now))

	require.NoError(t, s.SetAuth(ctx, sign(now.Add(-time.Minute)), ana))
	assert.True(t, s.TokenExpired(now))
}
