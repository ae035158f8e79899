package handshake

import (
	stderrors "errors"
)

// ErrKind categorizes handshake errors so callers can decide how to react.
// Parse and unsupported-payload errors are recoverable (the scanner is simply
// re-armed); transport, identity-mismatch and store errors are terminal for
// the session in progress. Decryption errors are scoped to a single exchanged
// item and never abort a session.
type ErrKind uint8

const (
	KindTransport ErrKind = iota + 1
	KindPayloadParse
	KindUnsupportedPayload
	KindIdentityMismatch
	KindDecryption
	KindStore
	KindInvalidState
)

type Error struct {
	Kind  ErrKind
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Inner == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Inner.Error()
}

func (e *Error) Unwrap() error { return e.Inner }

func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind ErrKind, msg string, inner error) *Error {
	return &Error{Kind: kind, Msg: msg, Inner: inner}
}

func IsKind(err error, kind ErrKind) bool {
	var he *Error
	if stderrors.As(err, &he) {
		return he.Kind == kind
	}
	return false
}

// Recoverable reports whether the scanner can simply be re-armed after err,
// leaving the state machine where it was.
func Recoverable(err error) bool {
	return IsKind(err, KindPayloadParse) || IsKind(err, KindUnsupportedPayload)
}
