// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tty

import (
	"errors"
	"os"
	"sync"

	"golang.org/x/term"
)

var ErrNotTerminal = errors.New("not a terminal")

// RawMode is an active raw-mode session on a terminal. Restore is safe to
// call more than once.
type RawMode struct {
	fd    int
	state *term.State
	once  sync.Once
}

func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// MakeRaw puts the terminal behind f into raw mode.
func MakeRaw(f *os.File) (*RawMode, error) {
	if !IsTerminal(f) {
		return nil, ErrNotTerminal
	}
	fd := int(f.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &RawMode{fd: fd, state: state}, nil
}

func (m *RawMode) Restore() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		if m.state != nil {
			_ = term.Restore(m.fd, m.state)
		}
	})
}
