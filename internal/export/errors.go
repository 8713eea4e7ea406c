package export

import (
	"errors"
	"fmt"
)

// Error codes for Error.
const (
	CodeReadFailed   = "READ_FAILED"
	CodeParseFailed  = "PARSE_FAILED"
	CodeExportFailed = "EXPORT_FAILED"
	CodeVerifyFailed = "VERIFY_FAILED"
)

// Error is a tagged failure from an export collaborator.
type Error struct {
	Code    string
	Message string
	Detail  string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsError reports whether err is an export Error with the given code.
func IsError(err error, code string) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

func newError(code, message string, cause error) *Error {
	e := &Error{Code: code, Message: message}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}
