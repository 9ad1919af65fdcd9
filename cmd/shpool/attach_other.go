// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package main

import (
	"context"
	"errors"
)

func handleAttachCommand(_ context.Context, _ []string) error {
	return errors.New("attach is not supported on this platform")
}
