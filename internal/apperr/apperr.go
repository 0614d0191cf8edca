// Package apperr is the closed error taxonomy surfaced by the drive core.
// Every caller-facing failure carries a stable code, a human message, an
// HTTP-equivalent status and optional structured details.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	StorageExceeded   Code = "STORAGE_EXCEEDED"
	BandwidthExceeded Code = "BANDWIDTH_EXCEEDED"
	FileTooLarge      Code = "FILE_TOO_LARGE"
	DriveNotFound     Code = "DRIVE_NOT_FOUND"
	FileNotFound      Code = "FILE_NOT_FOUND"
	FolderNotFound    Code = "FOLDER_NOT_FOUND"
	Unauthorized      Code = "UNAUTHORIZED"
	Forbidden         Code = "FORBIDDEN"
	NotOwner          Code = "NOT_OWNER"
	InvalidInput      Code = "INVALID_INPUT"
	InvalidPath       Code = "INVALID_PATH"
	InvalidName       Code = "INVALID_NAME"
	InvalidFileType   Code = "INVALID_FILE_TYPE"
	DuplicateFound    Code = "DUPLICATE_FOUND"
	OperationFailed   Code = "OPERATION_FAILED"
	RateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
)

var statuses = map[Code]int{
	StorageExceeded:   http.StatusForbidden,
	BandwidthExceeded: http.StatusTooManyRequests,
	FileTooLarge:      http.StatusBadRequest,
	DriveNotFound:     http.StatusNotFound,
	FileNotFound:      http.StatusNotFound,
	FolderNotFound:    http.StatusNotFound,
	Unauthorized:      http.StatusUnauthorized,
	Forbidden:         http.StatusForbidden,
	NotOwner:          http.StatusForbidden,
	InvalidInput:      http.StatusBadRequest,
	InvalidPath:       http.StatusBadRequest,
	InvalidName:       http.StatusBadRequest,
	InvalidFileType:   http.StatusBadRequest,
	DuplicateFound:    http.StatusConflict,
	OperationFailed:   http.StatusInternalServerError,
	RateLimitExceeded: http.StatusTooManyRequests,
}

// Status returns the default HTTP status for a code. Unknown codes map to 500.
func (c Code) Status() int {
	if s, ok := statuses[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is the structured failure returned by every core operation.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"status"`
	Details map[string]any `json:"details,omitempty"`

	// Op names the operation that failed; Err is the internal cause.
	// Neither is serialized.
	Op  string `json:"-"`
	Err error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error with the code's default status.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Status: code.Status()}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of e carrying the given details merged over
// any existing ones.
func (e *Error) WithDetails(details map[string]any) *Error {
	out := *e
	out.Details = make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		out.Details[k] = v
	}
	for k, v := range details {
		out.Details[k] = v
	}
	return &out
}

// Wrap converts err into a taxonomy error. Taxonomy errors pass through
// untouched; anything else becomes OPERATION_FAILED naming op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{
		Code:    OperationFailed,
		Message: fmt.Sprintf("%s failed", op),
		Status:  OperationFailed.Status(),
		Details: map[string]any{"operation": op},
		Op:      op,
		Err:     err,
	}
}

// From extracts the taxonomy error from err, wrapping unknown errors as
// OPERATION_FAILED.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var out *Error
	errors.As(Wrap("request", err), &out)
	return out
}

// CodeOf returns the taxonomy code of err, or "" when err is nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return From(err).Code
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// IsQuota reports whether err is a routine limit rejection (storage,
// bandwidth or rate) rather than a genuine failure.
func IsQuota(err error) bool {
	switch CodeOf(err) {
	case StorageExceeded, BandwidthExceeded, RateLimitExceeded:
		return true
	}
	return false
}

// IsValidation reports whether err is a caller input error that must not be retried.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case InvalidInput, InvalidPath, InvalidName, InvalidFileType, FileTooLarge:
		return true
	}
	return false
}
