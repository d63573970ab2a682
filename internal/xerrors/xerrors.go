// Package xerrors adds call-site information to errors so the logger can
// render where an error was created or wrapped.
//
// Errors from New/Newf/WithStack carry a captured stack (StackPCs), Wrap and
// Wrapf carry a single PC for the wrap site. Both unwrap normally and work
// with errors.Is / errors.As.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

const maxStackDepth = 64

// stackErr carries a stack captured when the error was created.
type stackErr struct {
	err error
	pcs []uintptr
}

func (e *stackErr) Error() string       { return e.err.Error() }
func (e *stackErr) Unwrap() error       { return e.err }
func (e *stackErr) StackPCs() []uintptr { return e.pcs }
func (e *stackErr) IsXerrorsWrapper()   {}

// wrapErr prefixes a message and remembers the wrap site.
type wrapErr struct {
	err error
	msg string
	pc  uintptr
}

func (e *wrapErr) Error() string     { return e.msg + ": " + e.err.Error() }
func (e *wrapErr) Unwrap() error     { return e.err }
func (e *wrapErr) PC() uintptr       { return e.pc }
func (e *wrapErr) IsXerrorsWrapper() {}

// skip 0 is the caller of stack
func stack(skip int) []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	// +2 for runtime.Callers and stack itself
	n := runtime.Callers(skip+2, pcs)
	return pcs[:n]
}

func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}

func attachStack(err error, skip int) error {
	if err == nil {
		return nil
	}
	return &stackErr{err: err, pcs: stack(skip + 1)}
}

// New returns an error with msg and the caller's stack.
func New(msg string) error { return attachStack(errors.New(msg), 1) }

// Newf is New with fmt formatting. %w is honored.
func Newf(format string, args ...any) error {
	return attachStack(fmt.Errorf(format, args...), 1)
}

// WithStack attaches the caller's stack to err. nil stays nil.
func WithStack(err error) error { return attachStack(err, 1) }

// EnsureTrace attaches a stack only when no error in the chain has one yet.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	var hs interface{ StackPCs() []uintptr }
	if errors.As(err, &hs) && len(hs.StackPCs()) > 0 {
		return err
	}
	return attachStack(err, 1)
}

// Wrap prefixes err with msg. nil stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrapErr{err: err, msg: msg, pc: callerPC(1)}
}

// Wrapf prefixes err with a formatted message. nil stays nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapErr{err: err, msg: fmt.Sprintf(format, args...), pc: callerPC(1)}
}
