package intake

import (
	"errors"
	"net/http"
)

// Kind classifies an intake failure.
type Kind int

const (
	KindInternal Kind = iota
	KindNoFile
	KindTooLarge
	KindMalformed
	KindUnexpectedField
	KindTypeNotAllowed
)

// Error is an intake failure carrying its Kind and a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrNoFile          = &Error{Kind: KindNoFile, Message: "No file uploaded"}
	ErrFileTooLarge    = &Error{Kind: KindTooLarge, Message: "File too large"}
	ErrUnexpectedField = &Error{Kind: KindUnexpectedField, Message: "Unexpected field"}
	ErrTypeNotAllowed  = &Error{Kind: KindTypeNotAllowed, Message: "File type not allowed"}
)

// malformed wraps a multipart decoding failure.
func malformed(err error) *Error {
	return &Error{Kind: KindMalformed, Message: "Malformed multipart body", Err: err}
}

// rule maps one error kind to a response. An empty message means the
// error's own message is sent.
type rule struct {
	kind    Kind
	status  int
	message string
}

// policy is consulted top to bottom; the first matching kind wins.
var policy = []rule{
	{KindNoFile, http.StatusBadRequest, ""},
	{KindTooLarge, http.StatusBadRequest, ""},
	{KindUnexpectedField, http.StatusBadRequest, ""},
	{KindTypeNotAllowed, http.StatusBadRequest, ""},
	{KindMalformed, http.StatusBadRequest, ""},
	{KindInternal, http.StatusInternalServerError, ""},
}

// Resolve returns the HTTP status and body message for err. Anything that
// is not an *Error is treated as KindInternal, and raw error text never
// reaches the client.
func Resolve(err error) (int, string) {
	var ie *Error
	if !errors.As(err, &ie) {
		ie = &Error{Kind: KindInternal}
	}
	status, msg := http.StatusInternalServerError, ""
	for _, r := range policy {
		if r.kind == ie.Kind {
			status, msg = r.status, r.message
			if msg == "" {
				msg = ie.Message
			}
			break
		}
	}
	if msg == "" {
		msg = "Server error"
	}
	return status, msg
}
