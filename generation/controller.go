package generation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fps2me/fpsqr/identifier"
	"github.com/fps2me/fpsqr/internal/logger"
)

// DefaultMerchantName is sent to the encoder when none is configured
const DefaultMerchantName = "NA"

// Listener receives every snapshot change in order. Listeners run one at a
// time, possibly on the goroutine of another caller.
type Listener func(Snapshot)

// Option configures a Controller
type Option func(*Controller)

// WithMerchantName overrides the placeholder merchant name
func WithMerchantName(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.merchantName = name
		}
	}
}

// WithDiscardStale fails a pending generation whose inputs were
// invalidated before it resolved
func WithDiscardStale(discard bool) Option {
	return func(c *Controller) {
		c.discardStale = discard
	}
}

// WithListener registers l before the controller is used
func WithListener(l Listener) Option {
	return func(c *Controller) {
		c.listeners = append(c.listeners, l)
	}
}

// Controller serialises generations for one form. At most one generation
// is pending at a time. Safe for concurrent use.
type Controller struct {
	encoder      Encoder
	merchantName string
	discardStale bool

	mu        sync.Mutex
	state     Snapshot
	seq       uint64
	revision  uint64 // bumped by Invalidate
	startedAt uint64 // revision when the pending generation started
	listeners []Listener

	outbox     []Snapshot // changes not yet delivered, oldest first
	delivering bool
}

// New creates an Idle controller over encoder
func New(encoder Encoder, opts ...Option) *Controller {
	c := &Controller{
		encoder:      encoder,
		merchantName: DefaultMerchantName,
		state:        Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnChange registers a listener for subsequent changes
func (c *Controller) OnChange(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Invalidate records that the form inputs changed. With WithDiscardStale
// a pending generation will resolve to Failed with ErrStale.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	c.revision++
	c.mu.Unlock()
}

// Trigger validates req and starts a generation. It returns ErrBusy while
// another generation is pending and a *ValidationError when req cannot be
// generated; in both cases the encoder is not called and the state is
// unchanged. The returned channel receives the terminal snapshot once.
func (c *Controller) Trigger(ctx context.Context, req Request) (<-chan Snapshot, error) {
	if err := req.Validate(); err != nil {
		logger.ValidationRejects.Add(1)
		logger.Debug("generation rejected", "error", err)
		return nil, err
	}

	c.mu.Lock()
	if c.state.State == StatePending {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.seq++
	seq := c.seq
	next := Transition(c.state, Started{
		Seq:       seq,
		RequestID: uuid.NewString(),
		Kind:      req.Identifier.Kind,
	})
	c.state = next
	c.startedAt = c.revision
	c.publish(next)

	logger.GenerationsStarted.Add(1)
	logger.Info("generation started", "requestId", next.RequestID, "seq", seq, "kind", next.Kind)

	done := make(chan Snapshot, 1)
	go func() {
		defer close(done)
		done <- c.resolve(seq, c.run(ctx, req))
	}()
	return done, nil
}

// Generate triggers a generation and waits for it. A Failed result is
// returned together with an *EncodingError.
func (c *Controller) Generate(ctx context.Context, req Request) (Snapshot, error) {
	done, err := c.Trigger(ctx, req)
	if err != nil {
		return c.Snapshot(), err
	}
	snap := <-done
	return snap, snap.Err()
}

// run calls the encoder, converting panics and cancellation to errors
func (c *Controller) run(ctx context.Context, req Request) EncodeResult {
	if err := ctx.Err(); err != nil {
		return EncodeResult{IsError: true, Message: err.Error()}
	}

	result := make(chan EncodeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- EncodeResult{IsError: true, Message: fmt.Sprintf("encoder panic: %v", r)}
			}
		}()
		result <- c.encode(req)
	}()

	select {
	case res := <-result:
		return res
	case <-ctx.Done():
		return EncodeResult{IsError: true, Message: ctx.Err().Error()}
	}
}

// encode builds the merchant profile for req
func (c *Controller) encode(req Request) EncodeResult {
	p := c.encoder.NewProfile()
	p.SetMerchantName(c.merchantName)

	canonical := req.Identifier.Canonical
	switch req.Identifier.Kind {
	case identifier.KindFPSID:
		p.SetFPSID(canonical)
	case identifier.KindMobile:
		p.SetMobile(canonical)
	case identifier.KindEmail:
		p.SetEmail(canonical)
	}

	p.SetCurrency(req.Meta.CurrencyOrDefault())
	if a := req.Meta.Amount; a != nil && *a > 0 {
		p.SetAmount(*a)
	}
	return p.Generate()
}

func (c *Controller) resolve(seq uint64, res EncodeResult) Snapshot {
	var ev Event
	switch {
	case res.IsError:
		ev = Rejected{Seq: seq, Reason: res.Message}
	default:
		ev = Resolved{Seq: seq, Payload: res.Data}
	}

	c.mu.Lock()
	if c.discardStale && c.revision != c.startedAt {
		ev = Rejected{Seq: seq, Reason: ErrStale.Error()}
	}
	next := Transition(c.state, ev)
	c.state = next
	c.publish(next)

	if next.State == StateSucceeded {
		logger.GenerationsSucceeded.Add(1)
		logger.Info("generation succeeded", "requestId", next.RequestID, "seq", seq)
	} else {
		logger.GenerationsFailed.Add(1)
		logger.Warn("generation failed", "requestId", next.RequestID, "seq", seq, "reason", next.Reason)
	}
	return next
}

// publish queues s for the listeners and releases mu. Must be called with
// mu held. Only one goroutine delivers at a time; a change published while
// another delivery runs is handed to that goroutine.
func (c *Controller) publish(s Snapshot) {
	c.outbox = append(c.outbox, s)
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true

	for len(c.outbox) > 0 {
		batch := c.outbox
		c.outbox = nil
		listeners := c.listeners
		c.mu.Unlock()

		for _, snap := range batch {
			for _, l := range listeners {
				l(snap)
			}
		}

		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}
