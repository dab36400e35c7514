// Package storage binds the raw durable and session backends to the owner
// they belong to, so stores only ever see their own slice of data.
package storage

import "context"

// DurableBackend keeps values that survive reloads and restarts.
type DurableBackend interface {
	Get(ctx context.Context, partition, owner string) ([]byte, bool, error)
	Put(ctx context.Context, partition, owner string, value []byte) error
	Delete(ctx context.Context, partition, owner string) error
}

// SessionBackend keeps values for the lifetime of a browser session.
type SessionBackend interface {
	Get(ctx context.Context, sid, name string) (string, bool, error)
	Set(ctx context.Context, sid, name, value string) error
	Remove(ctx context.Context, sid, name string) error
	// Touch restarts the expiry of the named live entries and reports how
	// many of them still exist.
	Touch(ctx context.Context, sid string, names ...string) (int, error)
}

// Partition is one named durable slot owned by a single visitor.
type Partition struct {
	Backend DurableBackend
	Name    string
	Owner   string
}

func (p Partition) Load(ctx context.Context) ([]byte, bool, error) {
	return p.Backend.Get(ctx, p.Name, p.Owner)
}

func (p Partition) Save(ctx context.Context, value []byte) error {
	return p.Backend.Put(ctx, p.Name, p.Owner, value)
}

// Session is the session-scoped storage of one sid.
type Session struct {
	Backend SessionBackend
	SID     string
}

func (s Session) Get(ctx context.Context, name string) (string, bool, error) {
	return s.Backend.Get(ctx, s.SID, name)
}

func (s Session) Set(ctx context.Context, name, value string) error {
	return s.Backend.Set(ctx, s.SID, name, value)
}

func (s Session) Remove(ctx context.Context, name string) error {
	return s.Backend.Remove(ctx, s.SID, name)
}

func (s Session) Touch(ctx context.Context, names ...string) (int, error) {
	return s.Backend.Touch(ctx, s.SID, names...)
}
