package cerr

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"

	"connectrpc.com/connect"

	"github.com/kazz187/taskboard/pkg/clog"
)

type Error struct {
	Code   Code
	Msg    string            // message shown to the user together with Code
	Err    error             // underlying error, logged only
	Stack  string            // stack trace, captured for error level codes
	Fields map[string]string // per-field validation messages
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if clog.ConnectCodeToLevel(code.ConnectCode()) == clog.LevelError {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

func NewFieldError(msg string, fields map[string]string) *Error {
	err := NewError(InvalidArgument, msg, nil)
	err.Fields = fields
	return err
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Msg)
	if len(e.Fields) > 0 {
		keys := slices.Sorted(maps.Keys(e.Fields))
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + e.Fields[k]
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) ConnectError() *connect.Error {
	connectErr := connect.NewError(e.Code.ConnectCode(), errors.New(e.Msg))
	for k, v := range e.Fields {
		connectErr.Meta().Add(fieldHeader, k+"="+v)
	}
	return connectErr
}

const fieldHeader = "Taskboard-Field-Error"

func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return Unknown
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}

// IsValidation reports whether err rejects the caller's input rather than
// reporting a failure of the system: malformed drags, unknown statuses and
// references to tasks that are not on the board.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case InvalidArgument, OutOfRange, NotFound:
		return true
	}
	return false
}
