// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package tty

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// WatchResize calls onResize with the current size of f every time the
// process receives SIGWINCH. Sizes that cannot be read, or that are zero,
// are skipped. The returned func stops the watcher.
func WatchResize(f *os.File, onResize func(Size)) func() {
	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-sigCh:
				size, err := FromFile(f)
				if err != nil || size.IsZero() {
					continue
				}
				onResize(size)
			case <-stop:
				signal.Stop(sigCh)
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}
