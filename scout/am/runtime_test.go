// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.PutUint8(7)
	b.PutUint32(1 << 20)
	b.PutUint64(1 << 40)
	b.PutID(42)
	b.PutTimestamp(2.5)
	b.PutFloat64(-1)

	r := NewBuffer(b.Bytes())
	got := []interface{}{r.Uint8(), r.Uint32(), r.Uint64(), r.ID(), r.Timestamp(), r.Float64()}
	want := []interface{}{uint8(7), uint32(1 << 20), uint64(1 << 40), uint32(42), 2.5, -1.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded fields (-want +got):\n%s", diff)
	}
	if r.Err() != nil || r.Len() != 0 {
		t.Errorf("after full read: Err() = %v, Len() = %d", r.Err(), r.Len())
	}
	if v := r.Uint32(); v != 0 || !xerrors.Is(r.Err(), ErrShortBuffer) {
		t.Errorf("read past end = %d, %v, want 0, %v", v, r.Err(), ErrShortBuffer)
	}
}

// hop forwards a token to the next rank until its hop count runs out.
type hop struct {
	rt   *Runtime
	id   HandlerID
	hits *atomic.Int64
}

func attachHop(rt *Runtime, hits *atomic.Int64) *hop {
	h := &hop{rt: rt, hits: hits}
	h.id = rt.Attach(h)
	return h
}

func (h *hop) Name() string { return "hop" }

func (h *hop) Execute(from int, b *Buffer) error {
	left := b.Uint32()
	h.hits.Inc()
	if left > 0 {
		h.send(left - 1)
	}
	return nil
}

func (h *hop) send(left uint32) {
	q := h.rt.NewRequest((h.rt.Rank()+1)%h.rt.Size(), h.id)
	q.Buffer().PutUint32(left)
	h.rt.Enqueue(q)
}

func TestAllFence(t *testing.T) {
	const ranks, hops = 4, 25
	var hits atomic.Int64
	summaries := make([][]HandlerStat, ranks)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := RunLocal(ctx, ranks, func(ctx context.Context, rt *Runtime) error {
		h := attachHop(rt, &hits)
		if h.id != 1 {
			t.Errorf("first handler id = %d, want 1", h.id)
		}
		h.send(hops - 1)
		if err := rt.AllFence(ctx); err != nil {
			return err
		}
		if got := hits.Load(); got != ranks*hops {
			t.Errorf("rank %d: %d payloads executed after fence, want %d", rt.Rank(), got, ranks*hops)
		}
		// A second fence with no traffic terminates as well.
		if err := rt.AllFence(ctx); err != nil {
			return err
		}
		summaries[rt.Rank()] = rt.Summary()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	var total uint64
	for rank, s := range summaries {
		if len(s) != 1 || s[0].Name != "hop" {
			t.Fatalf("rank %d summary = %+v", rank, s)
		}
		total += s[0].Executed
	}
	if total != ranks*hops {
		t.Errorf("summaries count %d executions, want %d", total, ranks*hops)
	}
}

// fail consumes a uint32 and fails when it is odd.
type fail struct{ seen []uint32 }

func (f *fail) Name() string { return "fail" }

func (f *fail) Execute(from int, b *Buffer) error {
	v := b.Uint32()
	f.seen = append(f.seen, v)
	if v%2 == 1 {
		return xerrors.Errorf("odd value %d", v)
	}
	return nil
}

func TestExecuteErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := context.Background()
	network := NewLocalNetwork(2)
	rt := New(network.Endpoint(0), WithLogger(zap.New(core)))
	f := &fail{}
	id := rt.Attach(f)

	// A failing payload does not affect the next one in the same message.
	for _, v := range []uint32{1, 2} {
		q := rt.NewRequest(0, id)
		q.Buffer().PutUint32(v)
		rt.Enqueue(q)
	}
	n, err := rt.Advance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Advance executed %d payloads, want 2", n)
	}
	if diff := cmp.Diff([]uint32{1, 2}, f.seen); diff != "" {
		t.Errorf("executed values (-want +got):\n%s", diff)
	}
	if got := logs.FilterMessage("dropped transaction").Len(); got != 1 {
		t.Errorf("%d dropped transaction warnings, want 1", got)
	}

	// An unknown handler id drops the rest of its message.
	var raw Buffer
	raw.PutUint32(2)
	raw.PutUint32(99)
	raw.PutUint32(uint32(id))
	raw.PutUint32(4)
	if err := network.Endpoint(1).Send(ctx, 0, raw.Bytes()); err != nil {
		t.Fatal(err)
	}
	if n, err := rt.Advance(ctx); err != nil || n != 0 {
		t.Errorf("Advance = %d, %v, want 0, nil", n, err)
	}
	if got := logs.FilterMessage("unexpected handler id").Len(); got != 1 {
		t.Errorf("%d unexpected handler warnings, want 1", got)
	}

	// A truncated payload drops the rest of its message.
	raw = Buffer{}
	raw.PutUint32(1)
	raw.PutUint32(uint32(id))
	raw.PutUint8(1)
	if err := network.Endpoint(1).Send(ctx, 0, raw.Bytes()); err != nil {
		t.Fatal(err)
	}
	rt.Advance(ctx)
	if got := logs.FilterMessage("truncated payload").Len(); got != 1 {
		t.Errorf("%d truncated payload warnings, want 1", got)
	}

	q := rt.NewRequest(1, id)
	q.Buffer().PutUint32(8)
	rt.Enqueue(q)
	if rt.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", rt.Pending())
	}
	if err := rt.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if got := logs.FilterMessage("shutdown left requests unhandled").Len(); got != 1 {
		t.Errorf("%d shutdown warnings, want 1", got)
	}
}

func TestWebsocketTransport(t *testing.T) {
	const ranks, hops = 3, 10
	lns := make([]net.Listener, ranks)
	addrs := make([]string, ranks)
	for i := range lns {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Skipf("cannot listen on loopback: %v", err)
		}
		lns[i] = ln
		addrs[i] = ln.Addr().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	var hits atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < ranks; rank++ {
		tr := NewWebsocketTransport(rank, addrs, lns[rank], nil)
		g.Go(func() error {
			rt := New(tr)
			h := attachHop(rt, &hits)
			h.send(hops - 1)
			if err := rt.AllFence(ctx); err != nil {
				return err
			}
			if got := hits.Load(); got != ranks*hops {
				t.Errorf("rank %d: %d payloads executed after fence, want %d", rt.Rank(), got, ranks*hops)
			}
			// Fences can be repeated.
			return rt.AllFence(ctx)
		})
		t.Cleanup(func() { tr.Close() })
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestWebsocketPeerClose(t *testing.T) {
	lns := make([]net.Listener, 2)
	addrs := make([]string, 2)
	for i := range lns {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Skipf("cannot listen on loopback: %v", err)
		}
		lns[i] = ln
		addrs[i] = ln.Addr().String()
	}
	server := NewWebsocketTransport(0, addrs, lns[0], nil)
	defer server.Close()
	peer := NewWebsocketTransport(1, addrs, lns[1], nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := peer.Send(ctx, 0, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	msg, err := server.Recv(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.From != 1 || string(msg.Data) != "hello" {
		t.Fatalf("received %q from %d, want %q from 1", msg.Data, msg.From, "hello")
	}
	if err := peer.Close(); err != nil {
		t.Fatal(err)
	}

	incoming := func() int {
		server.mu.Lock()
		defer server.mu.Unlock()
		return len(server.incoming)
	}
	for incoming() != 0 {
		select {
		case <-ctx.Done():
			t.Fatalf("%d connections still tracked after the peer closed", incoming())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
