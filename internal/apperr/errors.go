package apperr

import "errors"

const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInvalidState    = "INVALID_STATE"
	CodeConflict        = "CONFLICT"
)

// Error is a typed domain error. The message is part of the observable
// contract of the service layer, so callers compare it verbatim.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func InvalidArgument(message string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: message}
}

func InvalidState(message string) *Error {
	return &Error{Code: CodeInvalidState, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

func code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsInvalidArgument(err error) bool {
	return code(err) == CodeInvalidArgument
}

func IsInvalidState(err error) bool {
	return code(err) == CodeInvalidState
}

func IsConflict(err error) bool {
	return code(err) == CodeConflict
}
