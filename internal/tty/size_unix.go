// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package tty

import (
	"os"

	"github.com/creack/pty"
)

// FromFile reads the window size of the terminal behind f.
func FromFile(f *os.File) (Size, error) {
	ws, err := pty.GetsizeFull(f)
	if err != nil {
		return Size{}, err
	}
	return FromWinsize(ws), nil
}

func FromWinsize(ws *pty.Winsize) Size {
	if ws == nil {
		return Size{}
	}
	return Size{Rows: ws.Rows, Cols: ws.Cols, PixelRows: ws.Y, PixelCols: ws.X}
}
