// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package protocol

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMalformed reports bytes that do not match the expected grammar:
	// truncated frames, unknown chunk kinds, bad discriminants.
	ErrMalformed = errors.New("malformed message")

	// ErrOversized reports a declared length above the negotiated bound.
	// The stream cannot be resynchronized afterwards.
	ErrOversized = errors.New("oversized frame")

	// ErrProtocolViolation reports a call made out of order for the
	// socket's current state.
	ErrProtocolViolation = errors.New("protocol violation")
)

// TransportError wraps an I/O failure on the socket or local stdio.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectedError is returned when the daemon refuses an attach.
type RejectedError struct {
	Status AttachStatus
}

func (e *RejectedError) Error() string {
	switch e.Status.Code {
	case AttachBusy:
		return "session is busy: another client is attached"
	case AttachForbidden:
		return "forbidden: " + e.Status.Detail
	case AttachUnexpectedError:
		return "unexpected error: " + e.Status.Detail
	}
	return "attach rejected: " + e.Status.String()
}

// readError classifies an error from reading a known-length field. Any
// EOF in the middle of a value is a truncation.
func readError(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, op, io.ErrUnexpectedEOF)
	}
	return &TransportError{Op: op, Err: err}
}
