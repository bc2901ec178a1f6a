package panicerr

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/panics"
)

// SafeContext runs fn and turns a panic into an error, so that a misbehaving
// transport is reported like any other failed call instead of killing the
// process.
func SafeContext(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		err = fn(ctx)
	})
	if r := catcher.Recovered(); r != nil {
		return fmt.Errorf("%s: %w", name, r.AsError())
	}
	return err
}
