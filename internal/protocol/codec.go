// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// DefaultMaxHeaderLength is the largest connect header a reader accepts
// unless told otherwise.
const DefaultMaxHeaderLength = 1 << 20

var (
	errNilHeader  = errors.New("nil connect header")
	errNilPayload = errors.New("session message without payload")
)

// EncodeConnectHeader returns the u32 length prefix followed by the
// encoded header.
func EncodeConnectHeader(h ConnectHeader) ([]byte, error) {
	if h == nil {
		return nil, errNilHeader
	}
	e := &encoder{buf: make([]byte, 4, 64)}
	e.variant(h.connectTag())
	h.encodeTo(e)
	if e.err != nil {
		return nil, e.err
	}
	body := len(e.buf) - 4
	if uint64(body) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: connect header of %d bytes", ErrOversized, body)
	}
	binary.LittleEndian.PutUint32(e.buf[:4], uint32(body))
	return e.buf, nil
}

// WriteConnectHeader encodes h and writes it to w in one call.
func WriteConnectHeader(w io.Writer, h ConnectHeader) error {
	frame, err := EncodeConnectHeader(h)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return &TransportError{Op: "write connect header", Err: err}
	}
	return nil
}

// ReadConnectHeader reads a length-prefixed connect header, refusing any
// declared length over maxLength before allocating for it.
func ReadConnectHeader(r io.Reader, maxLength uint32) (ConnectHeader, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, readError("connect header length", err)
	}
	length := binary.LittleEndian.Uint32(prefix[:])
	if length > maxLength {
		return nil, fmt.Errorf("%w: connect header of %d bytes exceeds limit of %d", ErrOversized, length, maxLength)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, readError("connect header", err)
	}
	return DecodeConnectHeader(payload)
}

// DecodeConnectHeader decodes an unprefixed header body. Trailing bytes
// are rejected.
func DecodeConnectHeader(payload []byte) (ConnectHeader, error) {
	reader := bytes.NewReader(payload)
	d := newDecoder(reader)
	var header ConnectHeader
	switch d.variant("ConnectHeader", connectHeaderVariants) {
	case tagAttach:
		header = decodeAttachHeader(d)
	case tagList:
		header = ListRequest{}
	case tagSessionMessage:
		header = decodeSessionMessageRequest(d)
	case tagDetach:
		header = DetachRequest{Sessions: d.strs()}
	case tagKill:
		header = KillRequest{Sessions: d.strs()}
	}
	if d.err != nil {
		return nil, d.err
	}
	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after connect header", ErrMalformed, reader.Len())
	}
	return header, nil
}

func decodeSessionMessageRequest(d *decoder) SessionMessageRequest {
	req := SessionMessageRequest{SessionName: d.str()}
	switch d.variant("SessionMessageRequestPayload", sessionPayloadVariants) {
	case tagPayloadResize:
		req.Payload = ResizeRequest{TTYSize: decodeSize(d)}
	case tagPayloadDetach:
		req.Payload = SessionDetach{}
	}
	return req
}

// EncodeReply returns the bare encoding of reply.
func EncodeReply(reply Reply) ([]byte, error) {
	e := &encoder{}
	reply.encodeTo(e)
	if e.err != nil {
		return nil, e.err
	}
	return e.buf, nil
}

func WriteReply(w io.Writer, reply Reply) error {
	payload, err := EncodeReply(reply)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return &TransportError{Op: "write reply", Err: err}
	}
	return nil
}

// ReadReply decodes the shape of reply from r, reading no further than
// the reply itself.
func ReadReply(r io.Reader, reply Reply) error {
	d := newDecoder(r)
	reply.decodeFrom(d)
	return d.err
}
