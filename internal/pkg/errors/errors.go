// Package errors defines the error taxonomy shared by the protocol engine,
// the hash store and the server lifecycle.
//
// Every error carries a Kind (the class of failure, for tests and control
// flow) and a Code (the exact text a client sees on the wire). The two are
// deliberately decoupled: changing a log message must never change what a
// client parses.
package errors

import "errors"

type Kind int

const (
	KindFormat Kind = iota + 1
	KindProtocol
	KindIO
	KindConfig
)

// Wire codes. These strings are the client-visible rendering of a failed
// request and must stay stable across releases.
const (
	CodeInvalidLength        = "ERROR_INVALID_LENGTH"
	CodeInvalidProtoVersion  = "ERROR_INVALID_PROTO_VERSION"
	CodeInvalidCommand       = "ERROR_INVALID_COMMAND"
	CodeReadFail             = "ERROR_READ_FAIL"
	CodeInvalidHashFormat    = "ERROR_INVALID_HASH_FORMAT"
	CodeChangeDirCheckFail   = "ERROR_CHANGE_DIR_CHECK_FAIL"
	CodeChangeFileCreateFail = "ERROR_CHANGE_FILE_CREATE_FAIL"
	CodeChangeFileWriteFail  = "ERROR_CHANGE_FILE_WRITE_FAIL"
	CodeChangeFileRemoveFail = "ERROR_CHANGE_FILE_REMOVE_FAIL"
)

type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string { return e.Code }

func (e *Error) Unwrap() error { return e.Err }

func Format(code string, err error) *Error {
	return &Error{Kind: KindFormat, Code: code, Err: err}
}

func Protocol(code string) *Error { return &Error{Kind: KindProtocol, Code: code} }

func IO(code string, err error) *Error { return &Error{Kind: KindIO, Code: code, Err: err} }

// Config errors never travel over the wire, so the code holds the full
// operator-facing message.
func Config(msg string) *Error { return &Error{Kind: KindConfig, Code: msg} }

// IsKind reports whether err, or anything it wraps, is an Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
