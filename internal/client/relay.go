// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jalberss/shpool/internal/protocol"
)

// PipeBytes shuffles bytes between the local terminal and the daemon
// until either direction ends: stdin goes to the socket raw, and framed
// output chunks from the socket go to stdout with heartbeats dropped.
// It is the main loop of an attach and consumes the client; the socket is
// closed on return.
//
// The first error from either direction is returned. Cancelling ctx stops
// both directions and returns nil.
func (c *Client) PipeBytes(ctx context.Context, stdin, stdout *os.File) error {
	if c.state != stateAttached {
		return c.violation("pipe bytes")
	}
	c.state = stateRelaying
	defer c.Close()

	r := &relay{
		conn:     c.conn,
		stdin:    stdin,
		stdout:   stdout,
		tunables: c.tunables,
		logger:   c.logger,
	}
	return r.run(ctx)
}

type relay struct {
	conn     *net.UnixConn
	stdin    *os.File
	stdout   *os.File
	tunables Tunables
	logger   *slog.Logger

	// stop only ever goes false -> true.
	stop atomic.Bool
}

func (r *relay) run(ctx context.Context) error {
	return supervise(ctx, &r.stop, r.wake, r.pumpInput, r.pumpOutput)
}

// wake unblocks any socket read or write in flight so the pumps can
// observe stop without waiting for the daemon's next heartbeat.
func (r *relay) wake() {
	_ = r.conn.SetDeadline(time.Now())
}

type workerResult struct {
	err      error
	panicked bool
	panicVal any
}

func runWorker(fn func() error, done chan<- workerResult) {
	defer func() {
		if v := recover(); v != nil {
			done <- workerResult{panicked: true, panicVal: v}
		}
	}()
	done <- workerResult{err: fn()}
}

// supervise runs both workers, raises stop as soon as either finishes (or
// ctx is done), waits for the other, and reports the first error. A panic
// in either worker is re-raised here once both have finished.
func supervise(ctx context.Context, stop *atomic.Bool, wake func(), input, output func() error) error {
	inputDone := make(chan workerResult, 1)
	outputDone := make(chan workerResult, 1)
	go runWorker(input, inputDone)
	go runWorker(output, outputDone)

	raise := func() {
		stop.Store(true)
		if wake != nil {
			wake()
		}
	}

	var first, second workerResult
	select {
	case first = <-inputDone:
		raise()
		second = <-outputDone
	case first = <-outputDone:
		raise()
		second = <-inputDone
	case <-ctx.Done():
		raise()
		first = <-inputDone
		second = <-outputDone
	}

	if first.panicked {
		panic(first.panicVal)
	}
	if second.panicked {
		panic(second.panicVal)
	}
	if first.err != nil {
		return first.err
	}
	return second.err
}

// pumpInput copies stdin to the socket as raw bytes. stdin is switched to
// nonblocking mode so the stop flag is checked at least every
// PipePollDuration even when the user is idle.
//
// On stdin EOF the pump stops reading but keeps the socket open, so the
// session's output keeps flowing until the daemon hangs up.
func (r *relay) pumpInput() error {
	r.logger.Debug("pipe_bytes: stdin->sock started")
	fd := int(r.stdin.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		return &protocol.TransportError{Op: "setting stdin nonblocking", Err: err}
	}
	defer func() {
		_ = unix.SetNonblock(fd, false)
	}()

	poll := r.tunables.PipePollDuration
	buf := make([]byte, r.tunables.BufSize)
	eof := false
	for {
		if r.stop.Load() {
			r.logger.Debug("pipe_bytes: stdin->sock: stop")
			return nil
		}
		if eof {
			time.Sleep(poll)
			continue
		}
		// Read the descriptor directly: os.File would park a pollable
		// pipe in the runtime poller and never surface would-block.
		n, err := unix.Read(fd, buf)
		if err != nil {
			switch {
			case protocol.IsWouldBlock(err):
				time.Sleep(poll)
				continue
			case errors.Is(err, unix.EINTR):
				continue
			}
			return &protocol.TransportError{Op: "reading stdin", Err: err}
		}
		if n == 0 {
			r.logger.Debug("pipe_bytes: stdin->sock: stdin closed")
			eof = true
			continue
		}
		if r.stop.Load() {
			return nil
		}
		if _, err := r.conn.Write(buf[:n]); err != nil {
			if r.stop.Load() {
				return nil
			}
			return &protocol.TransportError{Op: "writing to daemon", Err: err}
		}
		r.logger.Debug("pipe_bytes: stdin->sock", "bytes", n)
	}
}

// pumpOutput reads chunks off the socket and writes Data payloads to
// stdout. Reads block; the supervisor interrupts them by expiring the
// socket deadline. A clean hang-up at a chunk boundary ends the session
// without error.
func (r *relay) pumpOutput() error {
	r.logger.Debug("pipe_bytes: sock->stdout started")
	fd := int(r.stdout.Fd())
	buf := make([]byte, r.tunables.BufSize)
	for {
		if r.stop.Load() {
			r.logger.Debug("pipe_bytes: sock->stdout: stop")
			return nil
		}
		chunk, err := protocol.ReadChunk(r.conn, buf)
		if err != nil {
			if r.stop.Load() {
				return nil
			}
			if err == io.EOF {
				r.logger.Debug("pipe_bytes: sock->stdout: daemon hung up")
				return nil
			}
			return fmt.Errorf("reading output chunk from daemon: %w", err)
		}
		switch chunk.Kind {
		case protocol.ChunkHeartbeat:
			continue
		case protocol.ChunkData:
			if err := r.writeOutput(fd, chunk.Payload); err != nil {
				if r.stop.Load() {
					return nil
				}
				return err
			}
			r.logger.Debug("pipe_bytes: sock->stdout", "bytes", len(chunk.Payload))
		}
	}
}

// writeOutput drains p to stdout, waiting for write readiness in
// PipePollDuration slices so a wedged terminal cannot hold the pump past
// a stop. stdout may share a file description with the nonblocking
// stdin, so would-block here is expected and retried.
func (r *relay) writeOutput(fd int, p []byte) error {
	poll := r.tunables.PipePollDuration
	for len(p) > 0 {
		if r.stop.Load() {
			return nil
		}
		ready, err := waitWritable(fd, poll)
		if err != nil {
			return &protocol.TransportError{Op: "polling stdout", Err: err}
		}
		if !ready {
			continue
		}
		n, err := unix.Write(fd, p)
		if n > 0 {
			p = p[n:]
		}
		if err != nil {
			if protocol.IsWouldBlock(err) || errors.Is(err, unix.EINTR) {
				continue
			}
			return &protocol.TransportError{Op: "writing stdout", Err: err}
		}
	}
	return nil
}

func waitWritable(fd int, timeout time.Duration) (bool, error) {
	ms := int(timeout / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return fds[0].Revents&(unix.POLLOUT|unix.POLLERR|unix.POLLHUP) != 0, nil
}
