// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package tty

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
)

func openPTY(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = tty.Close()
		_ = ptmx.Close()
	})
	return ptmx, tty
}

func TestFromFileReadsWinsize(t *testing.T) {
	ptmx, tty := openPTY(t)
	want := Size{Rows: 40, Cols: 132, PixelRows: 600, PixelCols: 1000}
	if err := pty.Setsize(ptmx, winsize(want)); err != nil {
		t.Fatalf("setsize: %v", err)
	}
	got, err := FromFile(tty)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFromFileRejectsPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()
	if _, err := FromFile(r); err == nil {
		t.Fatal("expected error for non-terminal")
	}
}

func TestMakeRawRestore(t *testing.T) {
	_, tty := openPTY(t)
	mode, err := MakeRaw(tty)
	if err != nil {
		t.Fatalf("MakeRaw: %v", err)
	}
	mode.Restore()
	mode.Restore()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()
	if _, err := MakeRaw(r); err != ErrNotTerminal {
		t.Fatalf("expected ErrNotTerminal, got %v", err)
	}
}

func TestWatchResize(t *testing.T) {
	ptmx, tty := openPTY(t)
	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: 50, Cols: 160}); err != nil {
		t.Fatalf("setsize: %v", err)
	}
	got := make(chan Size, 4)
	stop := WatchResize(tty, func(size Size) {
		got <- size
	})
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGWINCH); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case size := <-got:
		if size.Rows != 50 || size.Cols != 160 {
			t.Fatalf("unexpected size %+v", size)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resize callback")
	}
	stop()
}

func winsize(s Size) *pty.Winsize {
	return &pty.Winsize{Rows: s.Rows, Cols: s.Cols, X: s.PixelCols, Y: s.PixelRows}
}
