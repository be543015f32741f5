// Package gerrors annotates errors with the source location they were raised
// or wrapped at, so a failure deep in a job run names the call site without a
// full stack dump.
package gerrors

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

type tracedError struct {
	err  error
	file string
	line int
	fn   string
}

func (e *tracedError) Error() string {
	if e.file == "" {
		return e.err.Error()
	}
	loc := fmt.Sprintf("%s:%d", e.file, e.line)
	if e.fn != "" {
		loc += " " + e.fn
	}
	return fmt.Sprintf("[%s] %s", loc, e.err)
}

func (e *tracedError) Unwrap() error {
	return e.err
}

// New returns an error annotated with the caller's location.
func New(s string) error {
	return trace(errors.New(s))
}

// Newf formats an error annotated with the caller's location. The format verbs
// are fmt.Errorf's, so %w wrapping works.
func Newf(format string, a ...interface{}) error {
	return trace(fmt.Errorf(format, a...))
}

// Wrap annotates err with the caller's location. Wrap(nil) is nil, so bare
// returns of wrapped call results stay safe.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return trace(err)
}

func trace(err error) error {
	pc := make([]uintptr, 1)
	if runtime.Callers(3, pc) == 0 {
		return &tracedError{err: err}
	}
	frame, _ := runtime.CallersFrames(pc).Next()
	_, file := filepath.Split(frame.File)
	fn := frame.Function
	if idx := strings.LastIndex(fn, "/"); idx >= 0 {
		fn = fn[idx+1:]
	}
	return &tracedError{err: err, file: file, line: frame.Line, fn: fn}
}
