// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// maxFieldLength bounds any single string or sequence length read off the
// wire so a corrupt length cannot force a huge allocation.
const maxFieldLength = 1 << 20

// encoder appends values in the compact little-endian layout the daemon
// expects: fixed-width integers, u64 length prefixes for strings and
// sequences, u32 discriminants for tagged unions. Like decoder, the first
// error sticks.
type encoder struct {
	buf []byte
	err error
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *encoder) u8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *encoder) u16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *encoder) u32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) u64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *encoder) i64(v int64) {
	e.u64(uint64(v))
}

func (e *encoder) variant(tag uint32) {
	e.u32(tag)
}

// str refuses what the decoder on the other end would refuse.
func (e *encoder) str(s string) {
	if !utf8.ValidString(s) {
		e.fail(fmt.Errorf("%w: string %q is not valid utf-8", ErrMalformed, s))
		return
	}
	e.u64(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) strs(values []string) {
	e.u64(uint64(len(values)))
	for _, v := range values {
		e.str(v)
	}
}

// decoder reads the same layout from r. The first error sticks; every
// later read is a no-op, so callers check err once at the end.
//
// Reads are exact: nothing past the current value is consumed, which
// matters because an attach reply is followed by the chunk stream on the
// same socket.
type decoder struct {
	r       io.Reader
	err     error
	scratch [8]byte
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: r}
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) read(n int, op string) []byte {
	if d.err != nil {
		return nil
	}
	buf := d.scratch[:n]
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.fail(readError(op, err))
		return nil
	}
	return buf
}

func (d *decoder) u8() uint8 {
	b := d.read(1, "u8")
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.read(2, "u16")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.read(4, "u32")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) u64() uint64 {
	b := d.read(8, "u64")
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) i64() int64 {
	return int64(d.u64())
}

// variant reads a discriminant and checks it against the number of
// variants the union declares.
func (d *decoder) variant(name string, count uint32) uint32 {
	tag := d.u32()
	if d.err == nil && tag >= count {
		d.fail(fmt.Errorf("%w: %s: unknown variant %d", ErrMalformed, name, tag))
	}
	return tag
}

func (d *decoder) length(op string) int {
	n := d.u64()
	if d.err != nil {
		return 0
	}
	if n > maxFieldLength {
		d.fail(fmt.Errorf("%w: %s: length %d exceeds limit %d", ErrMalformed, op, n, maxFieldLength))
		return 0
	}
	return int(n)
}

func (d *decoder) str() string {
	n := d.length("string")
	if d.err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		d.fail(readError("string", err))
		return ""
	}
	if !utf8.Valid(buf) {
		d.fail(fmt.Errorf("%w: string is not valid utf-8", ErrMalformed))
		return ""
	}
	return string(buf)
}

func (d *decoder) strs() []string {
	n := d.length("sequence")
	if d.err != nil || n == 0 {
		return nil
	}
	values := make([]string, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		values = append(values, d.str())
	}
	return values
}
