// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package protocol

import (
	"fmt"
	"time"

	"github.com/jalberss/shpool/internal/tty"
)

// ConnectHeader is the first and only framed message a client sends on a
// socket. Its variant selects the RPC; the reply shape follows from it.
// The implementations are AttachHeader, ListRequest, SessionMessageRequest,
// DetachRequest and KillRequest.
type ConnectHeader interface {
	connectTag() uint32
	encodeTo(e *encoder)
}

// Discriminants follow declaration order and are fixed by deployed daemons.
const (
	tagAttach uint32 = iota
	tagList
	tagSessionMessage
	tagDetach
	tagKill
	connectHeaderVariants
)

// EnvVar is one entry of an attach's forwarded environment.
type EnvVar struct {
	Key   string
	Value string
}

// AttachHeader asks the daemon to attach to, or create, the named session.
// The daemon answers with an AttachReplyHeader and, on success, switches
// the socket to the chunked output stream.
type AttachHeader struct {
	Name string
	// LocalTTYSize lets the daemon size the remote pty to match.
	LocalTTYSize tty.Size
	// LocalEnv is the allow-listed slice of the caller's environment
	// (TERM, SSH_AUTH_SOCK and friends). Duplicate keys are tolerated.
	LocalEnv []EnvVar
}

// LocalEnvGet returns the first value recorded for key.
func (h AttachHeader) LocalEnvGet(key string) (string, bool) {
	for _, kv := range h.LocalEnv {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

func (AttachHeader) connectTag() uint32 { return tagAttach }

func (h AttachHeader) encodeTo(e *encoder) {
	e.str(h.Name)
	encodeSize(e, h.LocalTTYSize)
	e.u64(uint64(len(h.LocalEnv)))
	for _, kv := range h.LocalEnv {
		e.str(kv.Key)
		e.str(kv.Value)
	}
}

func decodeAttachHeader(d *decoder) AttachHeader {
	var h AttachHeader
	h.Name = d.str()
	h.LocalTTYSize = decodeSize(d)
	n := d.length("local_env")
	for i := 0; i < n && d.err == nil; i++ {
		key := d.str()
		value := d.str()
		h.LocalEnv = append(h.LocalEnv, EnvVar{Key: key, Value: value})
	}
	return h
}

// ListRequest asks for every live session. Answered by ListReply.
type ListRequest struct{}

func (ListRequest) connectTag() uint32 { return tagList }
func (ListRequest) encodeTo(*encoder) {}

// SessionMessageRequest routes a one-shot message to a running session.
// It always travels on a fresh socket, never on an attached one.
// Answered by SessionMessageReply.
type SessionMessageRequest struct {
	SessionName string
	Payload     SessionMessagePayload
}

func (SessionMessageRequest) connectTag() uint32 { return tagSessionMessage }

func (r SessionMessageRequest) encodeTo(e *encoder) {
	e.str(r.SessionName)
	if r.Payload == nil {
		e.fail(errNilPayload)
		return
	}
	e.variant(r.Payload.sessionPayloadTag())
	r.Payload.encodeTo(e)
}

// SessionMessagePayload is implemented by ResizeRequest and SessionDetach.
type SessionMessagePayload interface {
	sessionPayloadTag() uint32
	encodeTo(e *encoder)
}

const (
	tagPayloadResize uint32 = iota
	tagPayloadDetach
	sessionPayloadVariants
)

// ResizeRequest resizes a session's pty. Sent out of band so the input
// stream never needs framing.
type ResizeRequest struct {
	TTYSize tty.Size
}

func (ResizeRequest) sessionPayloadTag() uint32 { return tagPayloadResize }
func (r ResizeRequest) encodeTo(e *encoder)    { encodeSize(e, r.TTYSize) }

// SessionDetach detaches whichever client is attached to the session.
type SessionDetach struct{}

func (SessionDetach) sessionPayloadTag() uint32 { return tagPayloadDetach }
func (SessionDetach) encodeTo(*encoder)         {}

// DetachRequest detaches the listed sessions. Answered by DetachReply.
type DetachRequest struct {
	Sessions []string
}

func (DetachRequest) connectTag() uint32    { return tagDetach }
func (r DetachRequest) encodeTo(e *encoder) { e.strs(r.Sessions) }

// KillRequest kills the listed sessions. Answered by KillReply.
type KillRequest struct {
	Sessions []string
}

func (KillRequest) connectTag() uint32    { return tagKill }
func (r KillRequest) encodeTo(e *encoder) { e.strs(r.Sessions) }

func encodeSize(e *encoder, s tty.Size) {
	e.u16(s.Rows)
	e.u16(s.Cols)
	e.u16(s.PixelRows)
	e.u16(s.PixelCols)
}

func decodeSize(d *decoder) tty.Size {
	return tty.Size{
		Rows:      d.u16(),
		Cols:      d.u16(),
		PixelRows: d.u16(),
		PixelCols: d.u16(),
	}
}

// Reply is implemented by pointers to every reply shape. The caller picks
// the shape that matches the header it sent; replies carry no outer
// length prefix.
type Reply interface {
	encodeTo(e *encoder)
	decodeFrom(d *decoder)
}

// AttachCode enumerates the outcomes of an attach attempt.
type AttachCode uint32

const (
	// AttachAttached: an existing session was joined.
	AttachAttached AttachCode = iota
	// AttachCreated: no session had the name, so one was started.
	AttachCreated
	// AttachBusy: another client is already attached.
	AttachBusy
	// AttachForbidden: the daemon refused for security reasons.
	AttachForbidden
	// AttachUnexpectedError: the daemon failed; Detail says how.
	AttachUnexpectedError
	attachCodes
)

var attachCodeNames = [...]string{"Attached", "Created", "Busy", "Forbidden", "UnexpectedError"}

func (c AttachCode) String() string {
	if c < attachCodes {
		return attachCodeNames[c]
	}
	return fmt.Sprintf("AttachCode(%d)", uint32(c))
}

// AttachStatus is the attach outcome. Detail is only carried on the wire
// for Forbidden and UnexpectedError.
type AttachStatus struct {
	Code   AttachCode
	Detail string
}

// OK reports whether the relay should start.
func (s AttachStatus) OK() bool {
	return s.Code == AttachAttached || s.Code == AttachCreated
}

func (s AttachStatus) hasDetail() bool {
	return s.Code == AttachForbidden || s.Code == AttachUnexpectedError
}

func (s AttachStatus) String() string {
	if s.hasDetail() {
		return fmt.Sprintf("%s(%q)", s.Code, s.Detail)
	}
	return s.Code.String()
}

type AttachReplyHeader struct {
	Status AttachStatus
}

func (r *AttachReplyHeader) encodeTo(e *encoder) {
	e.variant(uint32(r.Status.Code))
	if r.Status.hasDetail() {
		e.str(r.Status.Detail)
	}
}

func (r *AttachReplyHeader) decodeFrom(d *decoder) {
	r.Status = AttachStatus{Code: AttachCode(d.variant("AttachStatus", uint32(attachCodes)))}
	if d.err == nil && r.Status.hasDetail() {
		r.Status.Detail = d.str()
	}
}

// Session describes one live session in a ListReply.
type Session struct {
	Name            string
	StartedAtUnixMs int64
}

func (s Session) StartedAt() time.Time {
	return time.UnixMilli(s.StartedAtUnixMs)
}

type ListReply struct {
	Sessions []Session
}

func (r *ListReply) encodeTo(e *encoder) {
	e.u64(uint64(len(r.Sessions)))
	for _, s := range r.Sessions {
		e.str(s.Name)
		e.i64(s.StartedAtUnixMs)
	}
}

func (r *ListReply) decodeFrom(d *decoder) {
	r.Sessions = nil
	n := d.length("sessions")
	for i := 0; i < n && d.err == nil; i++ {
		name := d.str()
		started := d.i64()
		r.Sessions = append(r.Sessions, Session{Name: name, StartedAtUnixMs: started})
	}
}

type DetachReply struct {
	NotFoundSessions    []string
	NotAttachedSessions []string
}

func (r *DetachReply) encodeTo(e *encoder) {
	e.strs(r.NotFoundSessions)
	e.strs(r.NotAttachedSessions)
}

func (r *DetachReply) decodeFrom(d *decoder) {
	r.NotFoundSessions = d.strs()
	r.NotAttachedSessions = d.strs()
}

type KillReply struct {
	NotFoundSessions []string
}

func (r *KillReply) encodeTo(e *encoder)   { e.strs(r.NotFoundSessions) }
func (r *KillReply) decodeFrom(d *decoder) { r.NotFoundSessions = d.strs() }

// SessionMessageReplyKind enumerates SessionMessageReply outcomes.
type SessionMessageReplyKind uint32

const (
	// SessionNotFound: no session with that name.
	SessionNotFound SessionMessageReplyKind = iota
	// SessionNotAttached: the session exists but nothing is attached, so
	// it cannot take messages right now.
	SessionNotAttached
	// SessionResized answers a ResizeRequest.
	SessionResized
	// SessionDetached answers a SessionDetach.
	SessionDetached
	sessionMessageReplyKinds
)

var sessionMessageReplyNames = [...]string{"NotFound", "NotAttached", "Resize(Ok)", "Detach(Ok)"}

func (k SessionMessageReplyKind) String() string {
	if k < sessionMessageReplyKinds {
		return sessionMessageReplyNames[k]
	}
	return fmt.Sprintf("SessionMessageReplyKind(%d)", uint32(k))
}

type SessionMessageReply struct {
	Kind SessionMessageReplyKind
}

func (r *SessionMessageReply) encodeTo(e *encoder) {
	e.variant(uint32(r.Kind))
	if r.Kind == SessionResized || r.Kind == SessionDetached {
		// ResizeReply and SessionMessageDetachReply each have one
		// variant, Ok.
		e.variant(0)
	}
}

func (r *SessionMessageReply) decodeFrom(d *decoder) {
	r.Kind = SessionMessageReplyKind(d.variant("SessionMessageReply", uint32(sessionMessageReplyKinds)))
	if d.err == nil && (r.Kind == SessionResized || r.Kind == SessionDetached) {
		d.variant("SessionMessageReply.Ok", 1)
	}
}
