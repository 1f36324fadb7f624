package bus

import (
	"errors"
	"fmt"

	"github.com/afroash/airquality-monitor/internal/hwerr"
)

var (
	ErrNoAck          = errors.New("no acknowledge")
	ErrInvalidAddress = errors.New("device address out of range")
	ErrInjected       = errors.New("injected fault")
)

// Op identifies the direction of a transaction
type Op string

const (
	OpAny   Op = ""
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// Error describes a failed transaction. It matches hwerr.ErrBus as well as
// the underlying cause.
type Error struct {
	Op   Op
	Addr Address
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("i2c %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{hwerr.ErrBus}
	}
	return []error{hwerr.ErrBus, e.Err}
}
