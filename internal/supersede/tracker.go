// Package supersede orders requests that share a slot. A newer request in
// the same slot cancels the older one's context, and the older result is
// rejected at commit time even when it finishes first.
package supersede

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrSuperseded is returned by Ticket.Commit when a newer request has been
// issued for the same slot.
var ErrSuperseded = errors.New("superseded by a newer request")

// CodeSuperseded is the error code reported for ErrSuperseded.
const CodeSuperseded = "SUPERSEDED"

type Tracker struct {
	counter Counter
	logger  *zap.Logger
	onDrop  []func(slot string)

	mu       sync.Mutex
	inflight map[string]*Ticket
}

type Option func(*Tracker)

// WithSupersededHook registers fn to be called with the slot of every
// result rejected by Commit.
func WithSupersededHook(fn func(slot string)) Option {
	return func(t *Tracker) { t.onDrop = append(t.onDrop, fn) }
}

func NewTracker(counter Counter, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		counter:  counter,
		logger:   logger,
		inflight: make(map[string]*Ticket),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ticket is one request's claim on a slot.
type Ticket struct {
	tracker *Tracker
	slot    string
	seq     uint64
	ctx     context.Context
	cancel  context.CancelCauseFunc
}

// Begin claims the next sequence for slot and cancels the previous in-flight
// ticket for it in this process. The returned context is cancelled with
// cause ErrSuperseded when a newer ticket arrives. A blank slot is never
// sequenced.
func (t *Tracker) Begin(ctx context.Context, slot string) (*Ticket, context.Context, error) {
	cctx, cancel := context.WithCancelCause(ctx)
	tk := &Ticket{tracker: t, slot: slot, ctx: cctx, cancel: cancel}
	if slot == "" {
		return tk, cctx, nil
	}

	seq, err := t.counter.Next(ctx, slot)
	if err != nil {
		cancel(err)
		return nil, nil, fmt.Errorf("begin %s: %w", slot, err)
	}
	tk.seq = seq

	t.mu.Lock()
	prev := t.inflight[slot]
	if prev != nil && prev.seq > seq {
		// a newer ticket registered before this one did
		t.mu.Unlock()
		cancel(ErrSuperseded)
		return tk, cctx, nil
	}
	t.inflight[slot] = tk
	t.mu.Unlock()

	if prev != nil {
		t.logger.Debug("cancelling superseded request",
			zap.String("slot", slot),
			zap.Uint64("seq", prev.seq),
			zap.Uint64("by", seq),
		)
		prev.cancel(ErrSuperseded)
	}
	return tk, cctx, nil
}

// Seq returns the ticket's sequence number, 0 for unsequenced tickets.
func (tk *Ticket) Seq() uint64 { return tk.seq }

func (t *Tracker) dropped(slot string) {
	for _, fn := range t.onDrop {
		fn(slot)
	}
}

// Commit reports whether the ticket's result may still be delivered. It
// returns ErrSuperseded when a newer ticket exists for the slot, including
// one issued by another replica sharing the counter.
func (tk *Ticket) Commit(ctx context.Context) error {
	if tk.slot == "" {
		return nil
	}
	if errors.Is(context.Cause(tk.ctx), ErrSuperseded) {
		tk.tracker.dropped(tk.slot)
		return ErrSuperseded
	}
	current, err := tk.tracker.counter.Current(ctx, tk.slot)
	if err != nil {
		return fmt.Errorf("commit %s: %w", tk.slot, err)
	}
	if current != tk.seq {
		tk.tracker.dropped(tk.slot)
		return ErrSuperseded
	}
	return nil
}

// Release frees the ticket. It is safe to call more than once.
func (tk *Ticket) Release() {
	tk.cancel(context.Canceled)
	if tk.slot == "" {
		return
	}
	t := tk.tracker
	t.mu.Lock()
	if t.inflight[tk.slot] == tk {
		delete(t.inflight, tk.slot)
	}
	t.mu.Unlock()
}
