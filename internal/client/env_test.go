// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"reflect"
	"testing"

	"github.com/jalberss/shpool/internal/protocol"
)

func TestFilterEnv(t *testing.T) {
	environ := []string{
		"HOME=/home/me",
		"TERM=xterm-256color",
		"SSH_AUTH_SOCK=/tmp/agent",
		"TERM=dumb",
		"EMPTY=",
		"garbage",
	}
	got := FilterEnv([]string{"SSH_AUTH_SOCK", "TERM", "DISPLAY", "EMPTY"}, environ)
	want := []protocol.EnvVar{
		{Key: "SSH_AUTH_SOCK", Value: "/tmp/agent"},
		{Key: "TERM", Value: "xterm-256color"},
		{Key: "EMPTY", Value: ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if got := FilterEnv(nil, environ); got != nil {
		t.Fatalf("expected nil for empty allow-list, got %+v", got)
	}
}

func TestFilterEnvSkipsInvalidUTF8(t *testing.T) {
	environ := []string{"LANG=caf\xe9", "TERM=xterm", "LC_ALL=C.UTF-8"}
	got := FilterEnv([]string{"LANG", "TERM", "LC_ALL"}, environ)
	want := []protocol.EnvVar{
		{Key: "TERM", Value: "xterm"},
		{Key: "LC_ALL", Value: "C.UTF-8"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	header := protocol.AttachHeader{Name: "main", LocalEnv: got}
	if _, err := protocol.EncodeConnectHeader(header); err != nil {
		t.Fatalf("filtered env must encode: %v", err)
	}
}
