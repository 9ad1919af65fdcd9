// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tty holds the terminal-size value the attach protocol carries
// and the small amount of local terminal plumbing the client needs around
// it: size discovery, raw mode, and SIGWINCH delivery.
package tty

import (
	"fmt"
	"strconv"
	"strings"
)

// Size mirrors the kernel winsize payload. Field order is the wire order.
type Size struct {
	Rows      uint16
	Cols      uint16
	PixelRows uint16
	PixelCols uint16
}

func (s Size) IsZero() bool {
	return s.Rows == 0 && s.Cols == 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

// ParseSize accepts ROWSxCOLS, e.g. "24x80".
func ParseSize(value string) (Size, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	rowsRaw, colsRaw, ok := strings.Cut(value, "x")
	if !ok {
		return Size{}, fmt.Errorf("invalid tty size %q (expected ROWSxCOLS)", value)
	}
	rows, err := strconv.ParseUint(strings.TrimSpace(rowsRaw), 10, 16)
	if err != nil || rows == 0 {
		return Size{}, fmt.Errorf("invalid row count %q", rowsRaw)
	}
	cols, err := strconv.ParseUint(strings.TrimSpace(colsRaw), 10, 16)
	if err != nil || cols == 0 {
		return Size{}, fmt.Errorf("invalid column count %q", colsRaw)
	}
	return Size{Rows: uint16(rows), Cols: uint16(cols)}, nil
}
