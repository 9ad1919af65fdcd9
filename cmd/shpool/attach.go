// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shayne/yargs"

	"github.com/jalberss/shpool/internal/client"
	"github.com/jalberss/shpool/internal/protocol"
	"github.com/jalberss/shpool/internal/tty"
)

type attachFlags struct {
	ForceTTYSize string `flag:"force-tty-size" help:"report this size (<rows>x<cols>) instead of the terminal's"`
	LogFile      string `flag:"log-file" help:"write debug tracing to this file"`
}

type attachArgs struct {
	Name string `pos:"0" help:"session name"`
}

func handleAttachCommand(ctx context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, attachFlags, attachArgs](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	flags := result.SubCommandFlags
	name := strings.TrimSpace(result.Args.Name)
	if name == "" {
		return newUsageError("Usage: shpool attach [--force-tty-size <rows>x<cols>] <name>")
	}
	if current := os.Getenv(sessionNameEnv); current != "" {
		return fmt.Errorf("already inside session %q; detach first", current)
	}

	var forced tty.Size
	if flags.ForceTTYSize != "" {
		forced, err = tty.ParseSize(flags.ForceTTYSize)
		if err != nil {
			return newUsageError(err.Error())
		}
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()
	if flags.LogFile != "" {
		logger, closeLog, err := newLogger(flags.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()
		s.opts.Logger = logger
	}
	return attach(ctx, s, name, forced)
}

func attach(ctx context.Context, s *session, name string, forced tty.Size) error {
	size := forced
	if size.IsZero() {
		measured, err := tty.FromFile(os.Stdin)
		if err != nil {
			s.opts.Logger.Debug("no terminal size, sending zero", "err", err)
		}
		size = measured
	}

	c, err := client.Dial(ctx, s.socket, s.opts)
	if err != nil {
		return err
	}
	defer c.Close()
	header := protocol.AttachHeader{
		Name:         name,
		LocalTTYSize: size,
		LocalEnv:     client.FilterEnv(s.cfg.ForwardEnvKeys(), os.Environ()),
	}
	status, err := c.Attach(header)
	if err != nil {
		return err
	}
	s.opts.Logger.Debug("attached", "session", name, "status", status.String())

	raw, err := tty.MakeRaw(os.Stdin)
	switch {
	case errors.Is(err, tty.ErrNotTerminal):
	case err != nil:
		return fmt.Errorf("entering raw mode: %w", err)
	default:
		defer raw.Restore()
	}

	if forced.IsZero() && tty.IsTerminal(os.Stdin) {
		stopWatch := tty.WatchResize(os.Stdin, func(size tty.Size) {
			forwardResize(ctx, s.socket, s.opts, name, size)
		})
		defer stopWatch()
	}

	return c.PipeBytes(ctx, os.Stdin, os.Stdout)
}

// forwardResize reports a new size on its own socket; the attach socket
// carries only terminal bytes once the relay is running.
func forwardResize(ctx context.Context, socket string, opts client.Options, name string, size tty.Size) {
	reply, err := client.Resize(ctx, socket, opts, name, size)
	if err != nil {
		opts.Logger.Debug("resize failed", "session", name, "size", size.String(), "err", err)
		return
	}
	opts.Logger.Debug("resize", "session", name, "size", size.String(), slog.String("reply", reply.Kind.String()))
}
