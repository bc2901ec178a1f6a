package cerr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
)

// WrapRemoteError converts a failed call to the persistence service into an
// *Error. A context deadline is reported as DeadlineExceeded so that a call
// that never answered is handled exactly like one that answered with an error.
func WrapRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(DeadlineExceeded, fmt.Sprintf("%s timed out", op), err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(Canceled, fmt.Sprintf("%s canceled", op), err)
	}

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return NewError(Unavailable, fmt.Sprintf("failed to %s", op), err)
	}
	msg := connectErr.Message()
	if msg == "" {
		msg = fmt.Sprintf("failed to %s", op)
	}
	wrapped := NewError(NewCodeFromConnectError(err), msg, fmt.Errorf("%s: %w", op, err))
	if values := connectErr.Meta().Values(fieldHeader); len(values) > 0 {
		wrapped.Fields = make(map[string]string, len(values))
		for _, v := range values {
			k, msg, _ := strings.Cut(v, "=")
			wrapped.Fields[k] = msg
		}
	}
	return wrapped
}
