// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am

import (
	"context"
	"sync"

	"golang.org/x/xerrors"
)

// ErrClosed is returned by a transport after Close.
var ErrClosed = xerrors.New("am: transport closed")

// Message is one unit of transfer between ranks.
type Message struct {
	From int
	Data []byte
}

// Transport moves messages between the ranks of one analysis. Messages
// between a pair of ranks arrive in the order they were sent.
type Transport interface {
	// Rank returns the rank of the local endpoint.
	Rank() int

	// Size returns the number of ranks.
	Size() int

	// Send delivers data to rank to. The transport owns data afterwards.
	Send(ctx context.Context, to int, data []byte) error

	// TryRecv returns a received message without blocking.
	TryRecv() (Message, bool)

	// Recv blocks until a message arrives or ctx is done.
	Recv(ctx context.Context) (Message, error)

	Close() error
}

// mailbox is an unbounded FIFO of messages. Senders never block.
type mailbox struct {
	mu     sync.Mutex
	queue  []Message
	ready  chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) put(msg Message) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
	return nil
}

func (m *mailbox) tryGet() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return Message{}, false
	}
	msg := m.queue[0]
	m.queue[0] = Message{}
	m.queue = m.queue[1:]
	return msg, true
}

func (m *mailbox) get(ctx context.Context) (Message, error) {
	for {
		if msg, ok := m.tryGet(); ok {
			return msg, nil
		}
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return Message{}, ErrClosed
		}
		select {
		case <-m.ready:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// LocalNetwork connects ranks running in one process.
type LocalNetwork struct {
	boxes []*mailbox
}

// NewLocalNetwork returns a network of n ranks.
func NewLocalNetwork(n int) *LocalNetwork {
	net := &LocalNetwork{boxes: make([]*mailbox, n)}
	for i := range net.boxes {
		net.boxes[i] = newMailbox()
	}
	return net
}

// Size returns the number of ranks.
func (n *LocalNetwork) Size() int { return len(n.boxes) }

// Endpoint returns the transport of rank.
func (n *LocalNetwork) Endpoint(rank int) Transport {
	return &localEndpoint{net: n, rank: rank}
}

type localEndpoint struct {
	net  *LocalNetwork
	rank int
}

func (e *localEndpoint) Rank() int { return e.rank }

func (e *localEndpoint) Size() int { return len(e.net.boxes) }

func (e *localEndpoint) Send(ctx context.Context, to int, data []byte) error {
	if to < 0 || to >= len(e.net.boxes) {
		return xerrors.Errorf("am: send to rank %d of %d", to, len(e.net.boxes))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.net.boxes[to].put(Message{From: e.rank, Data: data})
}

func (e *localEndpoint) TryRecv() (Message, bool) {
	return e.net.boxes[e.rank].tryGet()
}

func (e *localEndpoint) Recv(ctx context.Context) (Message, error) {
	return e.net.boxes[e.rank].get(ctx)
}

func (e *localEndpoint) Close() error {
	e.net.boxes[e.rank].close()
	return nil
}
