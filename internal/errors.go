package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies every failure the capture, interpretation and chat
// flows can surface. A kind is itself an error so callers can match with
// errors.Is(err, KindFileTooLarge).
type ErrorKind string

const (
	KindNoFileSelected     ErrorKind = "NoFileSelected"
	KindFileTooLarge       ErrorKind = "FileTooLarge"
	KindUnsupportedType    ErrorKind = "UnsupportedType"
	KindDeviceUnavailable  ErrorKind = "DeviceUnavailable"
	KindPermissionDenied   ErrorKind = "PermissionDenied"
	KindPreviewStartFailed ErrorKind = "PreviewStartFailed"
	KindSubmitFailed       ErrorKind = "SubmitFailed"
	KindFetchResultFailed  ErrorKind = "FetchResultFailed"
	KindHistoryFetchFailed ErrorKind = "HistoryFetchFailed"
	KindAskFailed          ErrorKind = "AskFailed"
	KindEmptyAnswer        ErrorKind = "EmptyAnswer"
)

func (k ErrorKind) Error() string {
	return string(k)
}

// Retryable reports whether the user can re-attempt the operation without
// changing input.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindSubmitFailed, KindFetchResultFailed, KindAskFailed, KindEmptyAnswer,
		KindPreviewStartFailed, KindPermissionDenied:
		return true
	}
	return false
}

// Error is a classified failure.
type Error struct {
	Kind    ErrorKind
	Op      string // "validate", "submit", "fetch", "history", "ask", "camera"
	Message string // user-facing text
	Err     error
}

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	// the message may already quote the cause
	if e.Err != nil && !strings.Contains(msg, e.Err.Error()) {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Op, e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind, so any *Error with the same Kind compares equal.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorKind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

// KindOf returns the classification of err, or "" if it carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// UserMessage returns the text suitable for showing to a person.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// StorageError represents errors reading or writing local files
type StorageError struct {
	Path string
	Op   string // "open", "read", "write"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Command rejections. These never change state.
var (
	ErrSubmitInFlight     = errors.New("a submission is already in progress")
	ErrSessionComplete    = errors.New("session already has a result; start a new session")
	ErrEmptyQuestion      = errors.New("question is empty")
	ErrQuestionPending    = errors.New("a question is already awaiting an answer")
	ErrHistoryLoading     = errors.New("chat history is still loading")
	ErrNotBound           = errors.New("chat is not bound to a result")
	ErrDuplicateMessageID = errors.New("duplicate message id")
	ErrClosed             = errors.New("closed")
)
