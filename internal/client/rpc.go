// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"fmt"

	"github.com/jalberss/shpool/internal/protocol"
	"github.com/jalberss/shpool/internal/tty"
)

// call runs one request/reply exchange on a fresh socket.
func call(ctx context.Context, path string, opts Options, header protocol.ConnectHeader, reply protocol.Reply) error {
	c, err := Dial(ctx, path, opts)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.WriteConnectHeader(header); err != nil {
		return err
	}
	return c.ReadReply(reply)
}

func List(ctx context.Context, path string, opts Options) (protocol.ListReply, error) {
	var reply protocol.ListReply
	if err := call(ctx, path, opts, protocol.ListRequest{}, &reply); err != nil {
		return protocol.ListReply{}, fmt.Errorf("listing sessions: %w", err)
	}
	return reply, nil
}

func Detach(ctx context.Context, path string, opts Options, sessions []string) (protocol.DetachReply, error) {
	var reply protocol.DetachReply
	if err := call(ctx, path, opts, protocol.DetachRequest{Sessions: sessions}, &reply); err != nil {
		return protocol.DetachReply{}, fmt.Errorf("detaching sessions: %w", err)
	}
	return reply, nil
}

func Kill(ctx context.Context, path string, opts Options, sessions []string) (protocol.KillReply, error) {
	var reply protocol.KillReply
	if err := call(ctx, path, opts, protocol.KillRequest{Sessions: sessions}, &reply); err != nil {
		return protocol.KillReply{}, fmt.Errorf("killing sessions: %w", err)
	}
	return reply, nil
}

// Resize asks the daemon to resize a session's pty. It always opens its
// own socket; an attached socket never carries control messages.
func Resize(ctx context.Context, path string, opts Options, session string, size tty.Size) (protocol.SessionMessageReply, error) {
	header := protocol.SessionMessageRequest{
		SessionName: session,
		Payload:     protocol.ResizeRequest{TTYSize: size},
	}
	var reply protocol.SessionMessageReply
	if err := call(ctx, path, opts, header, &reply); err != nil {
		return protocol.SessionMessageReply{}, fmt.Errorf("resizing %s: %w", session, err)
	}
	return reply, nil
}
