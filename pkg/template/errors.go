// errors.go — Render failure types.
package template

import (
	"errors"
	"fmt"
)

// ErrNoSource is wrapped by DecodeError when no image was supplied.
var ErrNoSource = errors.New("no source image")

// DecodeError reports an unreadable or missing source image. No output is
// produced and the background cache is left as it was.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("decode source image: %v", e.Err)
	}
	return fmt.Sprintf("decode source image %q: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
