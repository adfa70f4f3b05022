// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package am

import (
	"context"
	"encoding/binary"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Path is the HTTP path a WebsocketTransport serves.
const Path = "/am"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebsocketTransport connects ranks in separate processes. Every rank
// serves websocket connections on a listener and dials the other ranks
// on first use. The first message on a connection carries the rank of
// the dialer.
type WebsocketTransport struct {
	rank  int
	addrs []string
	log   *zap.Logger
	box   *mailbox
	srv   *http.Server

	mu       sync.Mutex
	conns    map[int]*wsConn
	incoming map[*websocket.Conn]bool
	closed   bool
	wg       sync.WaitGroup
}

type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

// NewWebsocketTransport serves rank on ln. addrs holds the host:port of
// every rank, indexed by rank.
func NewWebsocketTransport(rank int, addrs []string, ln net.Listener, log *zap.Logger) *WebsocketTransport {
	if log == nil {
		log = zap.NewNop()
	}
	t := &WebsocketTransport{
		rank:     rank,
		addrs:    addrs,
		log:      log.With(zap.Int("rank", rank)),
		box:      newMailbox(),
		conns:    make(map[int]*wsConn),
		incoming: make(map[*websocket.Conn]bool),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, t.serve)
	t.srv = &http.Server{Handler: mux}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.log.Warn("websocket server stopped", zap.Error(err))
		}
	}()
	return t
}

func (t *WebsocketTransport) serve(w http.ResponseWriter, req *http.Request) {
	c, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		t.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	_, hello, err := c.ReadMessage()
	if err != nil || len(hello) != 4 {
		t.log.Warn("bad websocket hello", zap.Error(err))
		c.Close()
		return
	}
	from := int(binary.LittleEndian.Uint32(hello))
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		c.Close()
		return
	}
	t.incoming[c] = true
	t.wg.Add(1)
	t.mu.Unlock()
	go t.readLoop(from, c)
}

func (t *WebsocketTransport) readLoop(from int, c *websocket.Conn) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		delete(t.incoming, c)
		t.mu.Unlock()
		c.Close()
	}()
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.mu.Lock()
				closed := t.closed
				t.mu.Unlock()
				if !closed {
					t.log.Debug("websocket read ended", zap.Int("from", from), zap.Error(err))
				}
			}
			return
		}
		if err := t.box.put(Message{From: from, Data: data}); err != nil {
			return
		}
	}
}

func (t *WebsocketTransport) Rank() int { return t.rank }

func (t *WebsocketTransport) Size() int { return len(t.addrs) }

func (t *WebsocketTransport) dial(ctx context.Context, to int) (*wsConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	if c, ok := t.conns[to]; ok {
		return c, nil
	}
	c, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+t.addrs[to]+Path, nil)
	if err != nil {
		return nil, xerrors.Errorf("am: dial rank %d: %w", to, err)
	}
	hello := binary.LittleEndian.AppendUint32(nil, uint32(t.rank))
	if err := c.WriteMessage(websocket.BinaryMessage, hello); err != nil {
		c.Close()
		return nil, xerrors.Errorf("am: hello to rank %d: %w", to, err)
	}
	wc := &wsConn{c: c}
	t.conns[to] = wc
	return wc, nil
}

func (t *WebsocketTransport) Send(ctx context.Context, to int, data []byte) error {
	if to < 0 || to >= len(t.addrs) {
		return xerrors.Errorf("am: send to rank %d of %d", to, len(t.addrs))
	}
	if to == t.rank {
		return t.box.put(Message{From: to, Data: data})
	}
	c, err := t.dial(ctx, to)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		c.c.SetWriteDeadline(dl)
	}
	if err := c.c.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return xerrors.Errorf("am: send to rank %d: %w", to, err)
	}
	return nil
}

func (t *WebsocketTransport) TryRecv() (Message, bool) { return t.box.tryGet() }

func (t *WebsocketTransport) Recv(ctx context.Context) (Message, error) { return t.box.get(ctx) }

// Close closes the outgoing connections and stops the server. Messages
// already received stay readable.
func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conns := t.conns
	t.conns = nil
	incoming := t.incoming
	t.incoming = nil
	t.mu.Unlock()

	var err error
	for _, c := range conns {
		c.mu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.c.WriteMessage(websocket.CloseMessage, msg)
		err = multierr.Append(err, c.c.Close())
		c.mu.Unlock()
	}
	for c := range incoming {
		c.Close()
	}
	err = multierr.Append(err, t.srv.Close())
	t.wg.Wait()
	t.box.close()
	return err
}
