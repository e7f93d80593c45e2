package client

import (
	"context"
	"errors"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Raj5489/Share-Me/internal/proto"
)

// ErrConnClosed is returned by Send once the connection is gone.
var ErrConnClosed = errors.New("connection closed")

// Conn wraps one WebSocket session to the relay: a read loop feeding a
// handler and a write pump draining an outgoing queue.
type Conn struct {
	ws       *websocket.Conn
	outgoing chan proto.Inbound

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the relay's /ws endpoint.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	// Chunk messages are 64 KiB of payload plus base64 overhead.
	ws.SetReadLimit(256 * 1024)
	return &Conn{
		ws:       ws,
		outgoing: make(chan proto.Inbound, 64),
		done:     make(chan struct{}),
	}, nil
}

// Send queues one message for the write pump. It blocks while the queue
// is full and fails once the connection is closed.
func (c *Conn) Send(msg proto.Inbound) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrConnClosed
	}
}

// ReadLoop reads server messages until the transport fails, invoking
// handle for each one.
func (c *Conn) ReadLoop(ctx context.Context, handle func(proto.Outbound)) error {
	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, c.ws, &out); err != nil {
			return err
		}
		handle(out)
	}
}

// WriteLoop drains the outgoing queue into the socket until the
// connection closes or ctx is canceled.
func (c *Conn) WriteLoop(ctx context.Context) error {
	for {
		select {
		case msg := <-c.outgoing:
			if err := wsjson.Write(ctx, c.ws, msg); err != nil {
				return err
			}
		case <-c.done:
			return ErrConnClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close(websocket.StatusNormalClosure, "closing")
	})
}
