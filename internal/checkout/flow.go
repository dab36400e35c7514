// Package checkout drives an order from the cart drawer to the backend:
// validation, submission, success or failure display, and the delayed reset.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/cart"
	"storefront/internal/domain"
	applog "storefront/internal/log"
)

const (
	EmptyCartMessage       = "Your cart is empty"
	FallbackFailureMessage = "Could not process your purchase. Please try again."

	DefaultResetDelay = 3000 * time.Millisecond
)

// Cart is the part of the cart store the flow drives. *cart.Store satisfies it.
type Cart interface {
	ValidLines() []domain.CartLine
	ClearCart()
	OpenCart()
	CloseCart()
	IsOpen() bool
}

// Gate exposes the session to the flow read-only. *auth.Store satisfies it.
type Gate interface {
	IsAuthenticated() bool
	Token() string
}

// OrderCreator sends a submission to the backend.
type OrderCreator interface {
	CreateOrder(ctx context.Context, token string, sub domain.OrderSubmission) (*domain.OrderReceipt, error)
}

// userMessager is implemented by errors that carry text meant for the shopper.
type userMessager interface {
	UserMessage() string
}

// authRejecter is implemented by errors that can tell a refused token apart.
type authRejecter interface {
	AuthRejected() bool
}

// View is what the drawer renders.
type View struct {
	State      State
	Submitting bool
	Success    bool
	Error      string
	Notice     string
	Receipt    *domain.OrderReceipt
}

type Option func(*Flow)

func WithScheduler(s Scheduler) Option { return func(f *Flow) { f.sched = s } }

func WithResetDelay(d time.Duration) Option { return func(f *Flow) { f.delay = d } }

// Flow is the checkout state machine of one cart. At most one submission is
// in flight at a time.
type Flow struct {
	mu      sync.Mutex
	cart    Cart
	orders  OrderCreator
	sched   Scheduler
	delay   time.Duration
	state   State
	err     string
	notice  string
	receipt *domain.OrderReceipt
	pending Timer
	seq     uint64 // bumped whenever the pending reset is replaced or cancelled
}

func New(c Cart, orders OrderCreator, opts ...Option) *Flow {
	f := &Flow{cart: c, orders: orders, sched: clockScheduler{}, delay: DefaultResetDelay}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Initiate runs one checkout attempt. The submission is detached from ctx
// cancellation: once sent it runs to completion.
func (f *Flow) Initiate(ctx context.Context, gate Gate) Outcome {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return OutcomeBusy
	}
	if gate == nil || !gate.IsAuthenticated() {
		f.mu.Unlock()
		f.cart.CloseCart()
		return OutcomeLoginRequired
	}
	lines := f.cart.ValidLines()
	if len(lines) == 0 {
		f.notice = EmptyCartMessage
		f.mu.Unlock()
		return OutcomeEmptyCart
	}
	f.cancelResetLocked()
	f.state = Submitting
	f.err, f.notice, f.receipt = "", "", nil
	f.mu.Unlock()

	sub := cart.BuildSubmission(lines, cart.Total(lines))
	receipt, err := f.submit(context.WithoutCancel(ctx), gate.Token(), sub)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = Failed
		f.err = failureMessage(err)
		applog.Error(nil, "checkout.fail", err, map[string]any{"lines": len(sub.Products), "total": sub.Total})
		var ar authRejecter
		if errors.As(err, &ar) && ar.AuthRejected() {
			return OutcomeAuthRejected
		}
		return OutcomeFailed
	}

	f.state = Success
	f.receipt = receipt
	f.cart.ClearCart()
	f.scheduleResetLocked()
	fields := map[string]any{"lines": len(sub.Products), "total": sub.Total}
	if receipt != nil {
		fields["order_id"] = receipt.ID
	}
	applog.Audit(nil, "checkout.success", fields)
	return OutcomeSucceeded
}

// Close is the user closing the drawer: error, notice and success display are
// cleared and the pending reset is cancelled. An in-flight submission keeps going.
func (f *Flow) Close() {
	f.mu.Lock()
	f.cancelResetLocked()
	f.err, f.notice = "", ""
	if f.state == Success || f.state == Failed {
		f.state = Idle
		f.receipt = nil
	}
	f.mu.Unlock()
	f.cart.CloseCart()
}

// Open is the user opening the drawer. A success display still waiting for
// its reset is dismissed along with the reset.
func (f *Flow) Open() {
	f.mu.Lock()
	f.cancelResetLocked()
	f.notice = ""
	if f.state == Success {
		f.state = Idle
		f.receipt = nil
	}
	f.mu.Unlock()
	f.cart.OpenCart()
}

// Toggle opens a closed drawer or closes an open one, and reports whether
// it is now open.
func (f *Flow) Toggle() bool {
	if f.cart.IsOpen() {
		f.Close()
		return false
	}
	f.Open()
	return true
}

// DismissError hides the failure message; a failed flow returns to idle.
func (f *Flow) DismissError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err, f.notice = "", ""
	if f.state == Failed {
		f.state = Idle
	}
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		State:      f.state,
		Submitting: f.state == Submitting,
		Success:    f.state == Success,
		Error:      f.err,
		Notice:     f.notice,
		Receipt:    f.receipt,
	}
}

func (f *Flow) submit(ctx context.Context, token string, sub domain.OrderSubmission) (r *domain.OrderReceipt, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("order submission panicked: %v", p)
		}
	}()
	return f.orders.CreateOrder(ctx, token, sub)
}

func (f *Flow) scheduleResetLocked() {
	f.cancelResetLocked()
	seq := f.seq
	f.pending = f.sched.AfterFunc(f.delay, func() { f.reset(seq) })
}

// reset is the delayed success → idle transition. A reset that was
// cancelled or replaced after it started waiting is ignored.
func (f *Flow) reset(seq uint64) {
	f.mu.Lock()
	if seq != f.seq || f.state != Success {
		f.mu.Unlock()
		return
	}
	f.state = Idle
	f.receipt = nil
	f.pending = nil
	f.mu.Unlock()
	f.cart.CloseCart()
}

func (f *Flow) cancelResetLocked() {
	f.seq++
	if f.pending != nil {
		f.pending.Stop()
		f.pending = nil
	}
}

func failureMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return FallbackFailureMessage
}
