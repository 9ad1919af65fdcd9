// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client speaks the shpool socket protocol from the client side:
// one connect header per socket, one typed reply, and for attaches the
// two-way byte relay between the local terminal and the daemon.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jalberss/shpool/internal/protocol"
)

// Tunables are the buffer and polling knobs the relay runs with.
type Tunables struct {
	// BufSize bounds each stdin read and each output chunk payload.
	BufSize int
	// PipePollDuration is the sleep after a would-block and the timeout
	// for stdout readiness waits. It bounds how stale the stop flag can be.
	PipePollDuration time.Duration
}

const (
	DefaultBufSize          = 4096
	DefaultPipePollDuration = 10 * time.Millisecond
)

func DefaultTunables() Tunables {
	return Tunables{BufSize: DefaultBufSize, PipePollDuration: DefaultPipePollDuration}
}

func (t Tunables) withDefaults() Tunables {
	if t.BufSize <= 0 {
		t.BufSize = DefaultBufSize
	}
	if t.PipePollDuration <= 0 {
		t.PipePollDuration = DefaultPipePollDuration
	}
	return t
}

type Options struct {
	Tunables Tunables
	// Logger receives debug tracing. Nil discards.
	Logger *slog.Logger
}

type state int

const (
	stateFresh state = iota
	stateHeaderSent
	stateAwaitingReply
	stateAttached
	stateRelaying
	stateClosed
)

var stateNames = [...]string{"fresh", "header-sent", "awaiting-reply", "attached", "relaying", "closed"}

func (s state) String() string {
	return stateNames[s]
}

// Client owns one connected socket and walks it through
// fresh -> header sent -> (awaiting reply | relaying) -> closed. Calls made
// out of that order fail with protocol.ErrProtocolViolation. A Client is
// not safe for concurrent use.
type Client struct {
	conn     *net.UnixConn
	state    state
	attach   bool
	tunables Tunables
	logger   *slog.Logger
}

// Dial connects to the daemon socket at path.
func Dial(ctx context.Context, path string, opts Options) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, &protocol.TransportError{Op: "connecting to shpool", Err: err}
	}
	return New(conn.(*net.UnixConn), opts), nil
}

// New wraps an already connected socket.
func New(conn *net.UnixConn, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		conn:     conn,
		tunables: opts.Tunables.withDefaults(),
		logger:   logger,
	}
}

func (c *Client) violation(op string) error {
	return fmt.Errorf("%w: %s in state %s", protocol.ErrProtocolViolation, op, c.state)
}

// WriteConnectHeader sends the header. It may be called exactly once per
// socket and is not retryable; a failed write leaves the client closed.
func (c *Client) WriteConnectHeader(header protocol.ConnectHeader) error {
	if c.state != stateFresh {
		return c.violation("write connect header")
	}
	if err := protocol.WriteConnectHeader(c.conn, header); err != nil {
		c.state = stateClosed
		return err
	}
	_, c.attach = header.(protocol.AttachHeader)
	if c.attach {
		c.state = stateHeaderSent
	} else {
		c.state = stateAwaitingReply
	}
	c.logger.Debug("wrote connect header", "header", fmt.Sprintf("%T", header))
	return nil
}

// ReadReply decodes the reply to the header already sent into reply. For
// an attach, reply must be a *protocol.AttachReplyHeader; an OK status
// readies the socket for PipeBytes and any other status closes it.
func (c *Client) ReadReply(reply protocol.Reply) error {
	switch c.state {
	case stateAwaitingReply:
		err := protocol.ReadReply(c.conn, reply)
		c.state = stateClosed
		return err
	case stateHeaderSent:
		header, ok := reply.(*protocol.AttachReplyHeader)
		if !ok {
			return fmt.Errorf("%w: attach answered with %T", protocol.ErrProtocolViolation, reply)
		}
		if err := protocol.ReadReply(c.conn, header); err != nil {
			c.state = stateClosed
			return err
		}
		if header.Status.OK() {
			c.state = stateAttached
		} else {
			c.state = stateClosed
		}
		c.logger.Debug("attach reply", "status", header.Status.String())
		return nil
	}
	return c.violation("read reply")
}

// Attach sends header and reads the attach reply. A refusal is returned as
// *protocol.RejectedError alongside the status.
func (c *Client) Attach(header protocol.AttachHeader) (protocol.AttachStatus, error) {
	if err := c.WriteConnectHeader(header); err != nil {
		return protocol.AttachStatus{}, err
	}
	var reply protocol.AttachReplyHeader
	if err := c.ReadReply(&reply); err != nil {
		return protocol.AttachStatus{}, fmt.Errorf("reading attach reply: %w", err)
	}
	if !reply.Status.OK() {
		return reply.Status, &protocol.RejectedError{Status: reply.Status}
	}
	return reply.Status, nil
}

// Close releases the socket. It is safe to call more than once.
func (c *Client) Close() error {
	c.state = stateClosed
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
