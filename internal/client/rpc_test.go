// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jalberss/shpool/internal/daemontest"
	"github.com/jalberss/shpool/internal/protocol"
	"github.com/jalberss/shpool/internal/tty"
)

func TestListReturnsSessionsInOrder(t *testing.T) {
	d := daemontest.Start(t, daemontest.Reply(&protocol.ListReply{Sessions: []protocol.Session{
		{Name: "a", StartedAtUnixMs: 1},
		{Name: "b", StartedAtUnixMs: 2},
	}}))
	reply, err := List(context.Background(), d.Path, Options{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []protocol.Session{{Name: "a", StartedAtUnixMs: 1}, {Name: "b", StartedAtUnixMs: 2}}
	if !reflect.DeepEqual(reply.Sessions, want) {
		t.Fatalf("expected %+v, got %+v", want, reply.Sessions)
	}
	headers := d.Headers()
	if len(headers) != 1 {
		t.Fatalf("expected one header, got %d", len(headers))
	}
	if _, ok := headers[0].(protocol.ListRequest); !ok {
		t.Fatalf("expected ListRequest, got %T", headers[0])
	}
}

func TestResizeOnFreshSocket(t *testing.T) {
	d := daemontest.Start(t, daemontest.Reply(&protocol.SessionMessageReply{Kind: protocol.SessionResized}))
	size := tty.Size{Rows: 40, Cols: 132}
	reply, err := Resize(context.Background(), d.Path, Options{}, "x", size)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if reply.Kind != protocol.SessionResized {
		t.Fatalf("expected Resize(Ok), got %s", reply.Kind)
	}
	want := protocol.SessionMessageRequest{SessionName: "x", Payload: protocol.ResizeRequest{TTYSize: size}}
	if headers := d.Headers(); len(headers) != 1 || !reflect.DeepEqual(headers[0], protocol.ConnectHeader(want)) {
		t.Fatalf("unexpected headers %#v", headers)
	}
}

func TestDetachUnknownSession(t *testing.T) {
	d := daemontest.Start(t, daemontest.Reply(&protocol.DetachReply{NotFoundSessions: []string{"ghost"}}))
	reply, err := Detach(context.Background(), d.Path, Options{}, []string{"ghost"})
	if err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if !reflect.DeepEqual(reply.NotFoundSessions, []string{"ghost"}) {
		t.Fatalf("unexpected not found list %v", reply.NotFoundSessions)
	}
	if len(reply.NotAttachedSessions) != 0 {
		t.Fatalf("unexpected not attached list %v", reply.NotAttachedSessions)
	}
}

func TestKill(t *testing.T) {
	d := daemontest.Start(t, daemontest.Reply(&protocol.KillReply{NotFoundSessions: []string{"b"}}))
	reply, err := Kill(context.Background(), d.Path, Options{}, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if !reflect.DeepEqual(reply.NotFoundSessions, []string{"b"}) {
		t.Fatalf("unexpected reply %+v", reply)
	}
	want := protocol.KillRequest{Sessions: []string{"a", "b"}}
	if headers := d.Headers(); len(headers) != 1 || !reflect.DeepEqual(headers[0], protocol.ConnectHeader(want)) {
		t.Fatalf("unexpected headers %#v", headers)
	}
}

func TestListMalformedReply(t *testing.T) {
	// A SessionMessageReply is too short to be read as a ListReply.
	d := daemontest.Start(t, daemontest.Reply(&protocol.SessionMessageReply{Kind: protocol.SessionNotFound}))
	_, err := List(context.Background(), d.Path, Options{})
	if !errors.Is(err, protocol.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDialMissingSocket(t *testing.T) {
	_, err := Dial(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), Options{})
	var transportErr *protocol.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}
