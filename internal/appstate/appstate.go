// Package appstate owns the per-visitor cart stores and checkout flows and
// the per-session auth stores. Handlers get them from here; nothing else
// holds them.
package appstate

import (
	"context"
	"sync"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	applog "storefront/internal/log"
	"storefront/internal/storage"
)

// Visitor is the cart side of one browser.
type Visitor struct {
	Cart     *cart.Store
	Checkout *checkout.Flow
}

type visitorEntry struct {
	v        *Visitor
	lastSeen time.Time
}

type authEntry struct {
	store    *auth.Store
	lastSeen time.Time
}

type Options struct {
	Durable  storage.DurableBackend
	Sessions storage.SessionBackend
	Orders   checkout.OrderCreator
	// ResetDelay is how long a checkout success stays on screen.
	ResetDelay time.Duration
	// IdleAfter evicts in-memory stores not touched for this long. Their
	// state lives on in storage and is reloaded on the next request.
	IdleAfter time.Duration
	// Scheduler overrides the checkout reset timer (tests).
	Scheduler checkout.Scheduler
}

type State struct {
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitorEntry
	auths    map[string]*authEntry
}

func New(opts Options) *State {
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = checkout.DefaultResetDelay
	}
	if opts.IdleAfter <= 0 {
		opts.IdleAfter = 30 * time.Minute
	}
	return &State{
		opts:     opts,
		now:      time.Now,
		visitors: make(map[string]*visitorEntry),
		auths:    make(map[string]*authEntry),
	}
}

// Visitor returns the cart and checkout flow for vid, restoring the cart
// from durable storage on first use.
func (s *State) Visitor(ctx context.Context, vid string) *Visitor {
	s.mu.Lock()
	if e, ok := s.visitors[vid]; ok {
		e.lastSeen = s.now()
		s.mu.Unlock()
		return e.v
	}
	s.mu.Unlock()

	// Load outside the lock; the first writer wins.
	var p cart.Persister
	if s.opts.Durable != nil {
		p = storage.Partition{Backend: s.opts.Durable, Name: cart.PartitionName, Owner: vid}
	}
	c := cart.New(ctx, vid, p)
	flowOpts := []checkout.Option{checkout.WithResetDelay(s.opts.ResetDelay)}
	if s.opts.Scheduler != nil {
		flowOpts = append(flowOpts, checkout.WithScheduler(s.opts.Scheduler))
	}
	v := &Visitor{Cart: c, Checkout: checkout.New(c, s.opts.Orders, flowOpts...)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.visitors[vid]; ok {
		e.lastSeen = s.now()
		return e.v
	}
	s.visitors[vid] = &visitorEntry{v: v, lastSeen: s.now()}
	return v
}

// Auth returns the auth store for sid, initialised from session storage on
// first use. A cached store is synced with storage on every call.
func (s *State) Auth(ctx context.Context, sid string) *auth.Store {
	s.mu.Lock()
	if e, ok := s.auths[sid]; ok {
		e.lastSeen = s.now()
		s.mu.Unlock()
		e.store.Sync(ctx)
		return e.store
	}
	s.mu.Unlock()

	var st auth.SessionStorage
	if s.opts.Sessions != nil {
		st = storage.Session{Backend: s.opts.Sessions, SID: sid}
	}
	a := auth.New(ctx, st)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.auths[sid]; ok {
		e.lastSeen = s.now()
		return e.store
	}
	s.auths[sid] = &authEntry{store: a, lastSeen: s.now()}
	return a
}

// Cleanup evicts stores idle longer than IdleAfter. A visitor with a
// submission in flight is kept. It returns how many entries were dropped.
func (s *State) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.opts.IdleAfter)
	n := 0
	for vid, e := range s.visitors {
		if e.lastSeen.Before(cutoff) && !e.v.Checkout.View().Submitting {
			delete(s.visitors, vid)
			n++
		}
	}
	for sid, e := range s.auths {
		if e.lastSeen.Before(cutoff) {
			delete(s.auths, sid)
			n++
		}
	}
	return n
}

// Len reports how many visitors and sessions are held in memory.
func (s *State) Len() (visitors, sessions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors), len(s.auths)
}

// Purger drops expired session entries from storage.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunJanitor runs Cleanup, and p.PurgeExpired when p is not nil, every
// interval until ctx is done.
func (s *State) RunJanitor(ctx context.Context, interval time.Duration, p Purger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			evicted := s.Cleanup()
			var purged int64
			if p != nil {
				var err error
				if purged, err = p.PurgeExpired(ctx); err != nil {
					applog.Error(nil, "sessions.purge.fail", err, nil)
				}
			}
			if evicted > 0 || purged > 0 {
				applog.Info(nil, "appstate.cleanup", map[string]any{"evicted": evicted, "purged": purged})
			}
		}
	}
}
