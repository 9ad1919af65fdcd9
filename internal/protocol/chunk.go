// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"syscall"
	"time"
)

// ChunkKind tags a frame on the daemon-to-client output stream.
type ChunkKind uint8

const (
	// ChunkData carries terminal output.
	ChunkData ChunkKind = 0
	// ChunkHeartbeat proves the daemon is alive. Its payload is discarded
	// and never reaches the terminal.
	ChunkHeartbeat ChunkKind = 1
)

// chunkHeaderLength is 1 byte kind + 4 byte little-endian length.
const chunkHeaderLength = 5

func (k ChunkKind) String() string {
	switch k {
	case ChunkData:
		return "Data"
	case ChunkHeartbeat:
		return "Heartbeat"
	}
	return fmt.Sprintf("ChunkKind(%d)", uint8(k))
}

func (k ChunkKind) valid() bool {
	return k == ChunkData || k == ChunkHeartbeat
}

// Chunk is one framed unit of the output stream:
//
//	1 byte:  kind
//	4 bytes: payload length, little endian
//	N bytes: payload
//
// A decoded chunk's Payload aliases the scratch buffer passed to
// ReadChunk and is only valid until the next read into that buffer.
type Chunk struct {
	Kind    ChunkKind
	Payload []byte
}

// WriteChunk writes c to w. Would-block results from a nonblocking w are
// retried after sleeping poll.
//
// If stop is observed set between steps, WriteChunk returns nil with the
// frame possibly incomplete. Callers must treat that as shutdown and
// discard w; nothing else may be written to it afterwards.
func WriteChunk(w io.Writer, c Chunk, stop *atomic.Bool, poll time.Duration) error {
	var header [chunkHeaderLength]byte
	header[0] = byte(c.Kind)
	binary.LittleEndian.PutUint32(header[1:], uint32(len(c.Payload)))

	if err := writeStep(w, header[:1], stop, poll); err != nil {
		return fmt.Errorf("write chunk kind: %w", err)
	}
	if err := writeStep(w, header[1:], stop, poll); err != nil {
		return fmt.Errorf("write chunk length: %w", err)
	}
	if err := writeStep(w, c.Payload, stop, poll); err != nil {
		return fmt.Errorf("write chunk payload: %w", err)
	}
	return nil
}

// writeStep writes all of p, resuming after short writes and
// would-block. A set stop flag ends the step early without error.
func writeStep(w io.Writer, p []byte, stop *atomic.Bool, poll time.Duration) error {
	for len(p) > 0 {
		if stop != nil && stop.Load() {
			return nil
		}
		n, err := w.Write(p)
		p = p[n:]
		if err != nil {
			if IsWouldBlock(err) {
				time.Sleep(poll)
				continue
			}
			return &TransportError{Op: "write", Err: err}
		}
	}
	return nil
}

// ReadChunk reads one chunk into scratch. A clean end of stream before
// the first byte returns io.EOF; an end anywhere inside the frame is
// ErrMalformed. A declared length larger than scratch returns
// ErrOversized without consuming any payload, and the stream must be
// abandoned.
func ReadChunk(r io.Reader, scratch []byte) (Chunk, error) {
	var header [chunkHeaderLength]byte
	if _, err := io.ReadFull(r, header[:1]); err != nil {
		if errors.Is(err, io.EOF) {
			return Chunk{}, io.EOF
		}
		return Chunk{}, readError("chunk kind", err)
	}
	kind := ChunkKind(header[0])
	if !kind.valid() {
		return Chunk{}, fmt.Errorf("%w: unknown chunk kind %d", ErrMalformed, header[0])
	}
	if _, err := io.ReadFull(r, header[1:]); err != nil {
		return Chunk{}, readError("chunk length", err)
	}
	length := binary.LittleEndian.Uint32(header[1:])
	if uint64(length) > uint64(len(scratch)) {
		return Chunk{}, fmt.Errorf("%w: chunk of %d bytes exceeds limit of %d", ErrOversized, length, len(scratch))
	}
	payload := scratch[:length]
	if _, err := io.ReadFull(r, payload); err != nil {
		return Chunk{}, readError("chunk payload", err)
	}
	return Chunk{Kind: kind, Payload: payload}, nil
}

// IsWouldBlock reports whether err is EAGAIN/EWOULDBLOCK from a
// nonblocking descriptor.
func IsWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
