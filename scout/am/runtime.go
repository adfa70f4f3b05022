// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package am implements an active-message runtime: ranks exchange
// messages whose payloads name a handler that runs on arrival.
//
// A message is a payload count followed by the payloads. Each payload is
// the id of the handler that decodes it, then the handler's own fields.
// Handler ids are assigned in attach order and must therefore match on
// every rank. Id 0 belongs to the runtime's fence.
package am

import (
	"context"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// HandlerID identifies an attached handler on every rank.
type HandlerID uint32

const fenceID HandlerID = 0

// Handler decodes and runs one kind of payload.
type Handler interface {
	// Name identifies the handler in logs and summaries.
	Name() string

	// Execute consumes one payload from b. from is the sending rank.
	// A handler must read its whole payload even when it fails.
	Execute(from int, b *Buffer) error
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger of a Runtime. The default discards all
// output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) { r.log = l }
}

// Runtime is the active-message endpoint of one rank.
//
// Handlers run synchronously on the goroutine calling Advance or
// AllFence. A Runtime is not safe for concurrent use, except for Summary.
type Runtime struct {
	t   Transport
	log *zap.Logger

	handlers []Handler
	stats    []*atomic.Uint64
	queue    []*Request

	sent     atomic.Uint64
	executed atomic.Uint64
	wave     uint32
	fences   map[uint32]map[int]fenceCounts
}

type fenceCounts struct {
	sent, executed uint64
}

// New returns a Runtime communicating over t.
func New(t Transport, opts ...Option) *Runtime {
	r := &Runtime{
		t:        t,
		log:      zap.NewNop(),
		handlers: []Handler{nil},
		stats:    []*atomic.Uint64{atomic.NewUint64(0)},
		fences:   make(map[uint32]map[int]fenceCounts),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.Int("rank", t.Rank()))
	return r
}

// Rank returns the rank of the local endpoint.
func (r *Runtime) Rank() int { return r.t.Rank() }

// Size returns the number of ranks.
func (r *Runtime) Size() int { return r.t.Size() }

// Attach registers h and returns its id.
func (r *Runtime) Attach(h Handler) HandlerID {
	r.handlers = append(r.handlers, h)
	r.stats = append(r.stats, atomic.NewUint64(0))
	return HandlerID(len(r.handlers) - 1)
}

// Request is one outgoing payload.
type Request struct {
	dest int
	buf  Buffer
}

// NewRequest starts a payload for handler id on rank dest. The caller
// appends the handler's fields to Buffer and passes the request to
// Enqueue.
func (r *Runtime) NewRequest(dest int, id HandlerID) *Request {
	q := &Request{dest: dest}
	q.buf.PutUint32(uint32(id))
	return q
}

// Dest returns the destination rank.
func (q *Request) Dest() int { return q.dest }

// Buffer returns the payload buffer.
func (q *Request) Buffer() *Buffer { return &q.buf }

// Enqueue queues q. It is sent by the next Advance.
func (r *Runtime) Enqueue(q *Request) {
	r.queue = append(r.queue, q)
}

// Pending returns the number of queued requests.
func (r *Runtime) Pending() int { return len(r.queue) }

// Advance sends every queued request, batching the payloads for one
// destination into one message, and then executes every message that has
// already arrived. It returns the number of payloads executed.
func (r *Runtime) Advance(ctx context.Context) (int, error) {
	if err := r.flush(ctx); err != nil {
		return 0, err
	}
	n := 0
	for {
		msg, ok := r.t.TryRecv()
		if !ok {
			return n, nil
		}
		n += r.execute(msg)
	}
}

func (r *Runtime) flush(ctx context.Context) error {
	if len(r.queue) == 0 {
		return nil
	}
	var order []int
	batches := make(map[int][]*Request)
	for _, q := range r.queue {
		if _, ok := batches[q.dest]; !ok {
			order = append(order, q.dest)
		}
		batches[q.dest] = append(batches[q.dest], q)
	}
	r.queue = r.queue[:0]
	for _, dest := range order {
		reqs := batches[dest]
		var b Buffer
		b.PutUint32(uint32(len(reqs)))
		for _, q := range reqs {
			b.b = append(b.b, q.buf.b...)
		}
		if err := r.t.Send(ctx, dest, b.b); err != nil {
			return xerrors.Errorf("am: send to rank %d: %w", dest, err)
		}
		r.sent.Add(uint64(len(reqs)))
	}
	return nil
}

// execute runs the payloads of msg and returns how many ran.
func (r *Runtime) execute(msg Message) int {
	b := NewBuffer(msg.Data)
	count := b.Uint32()
	for i := uint32(0); i < count; i++ {
		id := HandlerID(b.Uint32())
		if b.Err() != nil {
			r.drop(msg.From, count-i, "truncated message")
			return int(i)
		}
		if id == fenceID {
			r.recordFence(msg.From, b)
			continue
		}
		if int(id) >= len(r.handlers) {
			r.log.Warn("unexpected handler id", zap.Uint32("id", uint32(id)), zap.Int("from", msg.From))
			r.drop(msg.From, count-i, "unknown handler")
			return int(i)
		}
		h := r.handlers[id]
		err := h.Execute(msg.From, b)
		r.stats[id].Inc()
		r.executed.Inc()
		if b.Err() != nil {
			r.log.Warn("truncated payload", zap.String("handler", h.Name()), zap.Int("from", msg.From))
			r.drop(msg.From, count-i-1, "short payload for "+h.Name())
			return int(i + 1)
		}
		if err != nil {
			r.log.Warn("dropped transaction", zap.String("handler", h.Name()), zap.Int("from", msg.From), zap.Error(err))
		}
	}
	return int(count)
}

// drop discards the rest of a message. The discarded payloads count as
// executed so that fences still terminate.
func (r *Runtime) drop(from int, n uint32, reason string) {
	if n == 0 {
		return
	}
	r.log.Warn("dropped payloads", zap.String("reason", reason), zap.Int("from", from), zap.Uint32("count", n))
	r.executed.Add(uint64(n))
}

func (r *Runtime) recordFence(from int, b *Buffer) {
	wave := b.Uint32()
	c := fenceCounts{sent: b.Uint64(), executed: b.Uint64()}
	if b.Err() != nil {
		return
	}
	m := r.fences[wave]
	if m == nil {
		m = make(map[int]fenceCounts)
		r.fences[wave] = m
	}
	m[from] = c
}

// AllFence returns once every payload sent by any rank has been
// executed. All ranks must call it.
//
// Each wave, every rank advances and then broadcasts its totals of sent
// and executed payloads. The fence ends after two consecutive waves with
// the same global totals in which both totals agree.
func (r *Runtime) AllFence(ctx context.Context) error {
	var prev fenceCounts
	havePrev := false
	for {
		if _, err := r.Advance(ctx); err != nil {
			return err
		}
		r.wave++
		wave := r.wave
		var own Buffer
		own.PutUint32(1)
		own.PutUint32(uint32(fenceID))
		own.PutUint32(wave)
		own.PutUint64(r.sent.Load())
		own.PutUint64(r.executed.Load())
		for to := 0; to < r.t.Size(); to++ {
			data := append([]byte(nil), own.b...)
			if to == r.t.Rank() {
				r.execute(Message{From: to, Data: data})
				continue
			}
			if err := r.t.Send(ctx, to, data); err != nil {
				return xerrors.Errorf("am: fence: %w", err)
			}
		}
		for len(r.fences[wave]) < r.t.Size() {
			msg, err := r.t.Recv(ctx)
			if err != nil {
				return xerrors.Errorf("am: fence: %w", err)
			}
			r.execute(msg)
		}
		var total fenceCounts
		for _, c := range r.fences[wave] {
			total.sent += c.sent
			total.executed += c.executed
		}
		delete(r.fences, wave)
		if total.sent == total.executed && havePrev && total == prev {
			return nil
		}
		prev, havePrev = total, true
	}
}

// HandlerStat reports how often a handler ran.
type HandlerStat struct {
	ID       HandlerID
	Name     string
	Executed uint64
}

// Summary returns the execution count of every attached handler in id
// order.
func (r *Runtime) Summary() []HandlerStat {
	out := make([]HandlerStat, 0, len(r.handlers)-1)
	for id := 1; id < len(r.handlers); id++ {
		out = append(out, HandlerStat{
			ID:       HandlerID(id),
			Name:     r.handlers[id].Name(),
			Executed: r.stats[id].Load(),
		})
	}
	return out
}

// Shutdown discards queued requests and closes the transport.
func (r *Runtime) Shutdown() error {
	if n := len(r.queue); n > 0 {
		r.log.Warn("shutdown left requests unhandled", zap.Int("requests", n))
		r.queue = nil
	}
	return r.t.Close()
}

// RunLocal runs fn for n ranks connected by a LocalNetwork, each on its
// own goroutine, and shuts every runtime down afterwards. The first
// error cancels the context of the other ranks.
func RunLocal(ctx context.Context, n int, fn func(ctx context.Context, rt *Runtime) error, opts ...Option) error {
	net := NewLocalNetwork(n)
	g, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < n; rank++ {
		rt := New(net.Endpoint(rank), opts...)
		g.Go(func() error {
			err := fn(ctx, rt)
			return multierr.Append(err, rt.Shutdown())
		})
	}
	return g.Wait()
}
