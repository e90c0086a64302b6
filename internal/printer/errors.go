package printer

import (
	"errors"
	"fmt"

	"github.com/mzyy94/niimprint/internal/niim"
)

var (
	// ErrNotImplemented is reported when the device answers CmdNotImplemented.
	ErrNotImplemented = errors.New("command not implemented")
	// ErrValue is reported when the device answers CmdValueError.
	ErrValue = errors.New("value error")
	// ErrUnexpectedResponse is reported for a response code other than the expected one.
	ErrUnexpectedResponse = errors.New("unexpected response")
	// ErrConnectionClosed is reported when no connection is open.
	ErrConnectionClosed = errors.New("connection not open")
	// ErrRejected is reported when a print step returns a falsy result.
	ErrRejected = errors.New("rejected by device")
	// ErrBusy is reported when a print job is already running.
	ErrBusy = errors.New("print job already running")
	// ErrAlreadyConnected is returned by Connect on an open Printer.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrInvalidArgument aliases niim.ErrInvalidArgument for callers of this package.
	ErrInvalidArgument = niim.ErrInvalidArgument
	// ErrInvalidFormat aliases niim.ErrInvalidFormat.
	ErrInvalidFormat = niim.ErrInvalidFormat
	// ErrTimeout aliases niim.ErrTimeout.
	ErrTimeout = niim.ErrTimeout
)

// CommandError reports a failed request/response exchange.
type CommandError struct {
	Code niim.Code // request code
	Err  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// PrintError reports the print job step that failed.
type PrintError struct {
	Step string
	Err  error
}

func (e *PrintError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Step, e.Err)
}

func (e *PrintError) Unwrap() error { return e.Err }
