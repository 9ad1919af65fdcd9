// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daemontest

import (
	"errors"
	"net"
	"reflect"
	"testing"

	"github.com/jalberss/shpool/internal/protocol"
)

func TestDaemonRecordsHeadersAndReplies(t *testing.T) {
	want := &protocol.KillReply{NotFoundSessions: []string{"ghost"}}
	d := Start(t, Reply(want))

	conn, err := net.Dial("unix", d.Path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	header := protocol.KillRequest{Sessions: []string{"ghost"}}
	if err := protocol.WriteConnectHeader(conn, header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	var got protocol.KillReply
	if err := protocol.ReadReply(conn, &got); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if !reflect.DeepEqual(&got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	headers := d.Headers()
	if len(headers) != 1 || !reflect.DeepEqual(headers[0], protocol.ConnectHeader(header)) {
		t.Fatalf("unexpected headers %#v", headers)
	}
}

func TestDaemonRecordsBadHeaders(t *testing.T) {
	d := Start(t, nil)
	conn, err := net.Dial("unix", d.Path)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write([]byte{0xff, 0xff, 0xff, 0x7f}); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 1)
	_, _ = conn.Read(buf)
	conn.Close()
	d.Close()
	if !errors.Is(d.Err(), protocol.ErrOversized) {
		t.Fatalf("expected ErrOversized to be recorded, got %v", d.Err())
	}
}
