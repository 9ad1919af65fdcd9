// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package daemontest runs a scripted stand-in for the shpool daemon on a
// unix socket so client code can be exercised end to end.
package daemontest

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jalberss/shpool/internal/protocol"
)

// Handler answers one connection after its connect header has been read.
// The connection is closed when the handler returns.
type Handler func(conn *net.UnixConn, header protocol.ConnectHeader)

type Daemon struct {
	Path string

	listener *net.UnixListener
	handler  Handler
	wg       sync.WaitGroup

	mu      sync.Mutex
	conns   map[*net.UnixConn]struct{}
	headers []protocol.ConnectHeader
	errs    []error
}

// Start listens on a fresh socket and serves until the test ends.
func Start(t testing.TB, handler Handler) *Daemon {
	t.Helper()
	// t.TempDir paths embed the test name and can overflow sun_path.
	dir, err := os.MkdirTemp("", "shpool-test-")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	path := filepath.Join(dir, "shpool.socket")
	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		_ = os.RemoveAll(dir)
		t.Fatalf("listen: %v", err)
	}
	d := &Daemon{
		Path:     path,
		listener: listener,
		handler:  handler,
		conns:    map[*net.UnixConn]struct{}{},
	}
	d.wg.Add(1)
	go d.serve()
	t.Cleanup(func() {
		d.Close()
		_ = os.RemoveAll(dir)
	})
	return d
}

func (d *Daemon) serve() {
	defer d.wg.Done()
	for {
		conn, err := d.listener.AcceptUnix()
		if err != nil {
			return
		}
		d.mu.Lock()
		d.conns[conn] = struct{}{}
		d.mu.Unlock()
		d.wg.Add(1)
		go d.handle(conn)
	}
}

func (d *Daemon) handle(conn *net.UnixConn) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.conns, conn)
		d.mu.Unlock()
		_ = conn.Close()
	}()
	header, err := protocol.ReadConnectHeader(conn, protocol.DefaultMaxHeaderLength)
	if err != nil {
		d.recordErr(err)
		return
	}
	d.mu.Lock()
	d.headers = append(d.headers, header)
	d.mu.Unlock()
	if d.handler != nil {
		d.handler(conn, header)
	}
}

func (d *Daemon) recordErr(err error) {
	d.mu.Lock()
	d.errs = append(d.errs, err)
	d.mu.Unlock()
}

// Headers returns every connect header received so far, in arrival order.
func (d *Daemon) Headers() []protocol.ConnectHeader {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.ConnectHeader(nil), d.headers...)
}

// Err returns the joined header-decoding errors seen so far.
func (d *Daemon) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return errors.Join(d.errs...)
}

// Close stops accepting, drops open connections, and waits for handlers.
func (d *Daemon) Close() {
	_ = d.listener.Close()
	d.mu.Lock()
	for conn := range d.conns {
		_ = conn.Close()
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Reply answers every connection with the same reply.
func Reply(reply protocol.Reply) Handler {
	return func(conn *net.UnixConn, _ protocol.ConnectHeader) {
		_ = protocol.WriteReply(conn, reply)
	}
}

// Attach answers with status and, if it is OK, streams chunks before
// hanging up.
func Attach(status protocol.AttachStatus, chunks ...protocol.Chunk) Handler {
	return func(conn *net.UnixConn, _ protocol.ConnectHeader) {
		if err := protocol.WriteReply(conn, &protocol.AttachReplyHeader{Status: status}); err != nil {
			return
		}
		if !status.OK() {
			return
		}
		for _, chunk := range chunks {
			if err := protocol.WriteChunk(conn, chunk, nil, 0); err != nil {
				return
			}
		}
	}
}
