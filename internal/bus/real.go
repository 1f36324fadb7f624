package bus

import (
	"sync"

	"tinygo.org/x/drivers"
)

// Real drives a hardware bus. Any drivers.I2C works, including a periph.io
// i2c.BusCloser opened through i2creg.
type Real struct {
	mu  sync.Mutex
	i2c drivers.I2C
	w   []byte
}

// NewReal wraps a hardware bus
func NewReal(i2c drivers.I2C) *Real {
	return &Real{i2c: i2c, w: make([]byte, 0, 32)}
}

// Write sends reg followed by data in one transaction
func (r *Real) Write(addr uint16, reg byte, data []byte) error {
	a := Address{Device: addr, Register: reg}
	if !a.Valid() {
		return &Error{Op: OpWrite, Addr: a, Err: ErrInvalidAddress}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.w = append(r.w[:0], reg)
	r.w = append(r.w, data...)
	if err := r.i2c.Tx(addr, r.w, nil); err != nil {
		return &Error{Op: OpWrite, Addr: a, Err: err}
	}
	return nil
}

// Read writes the register pointer and reads n bytes with a repeated start
func (r *Real) Read(addr uint16, reg byte, n int) ([]byte, error) {
	a := Address{Device: addr, Register: reg}
	if !a.Valid() {
		return nil, &Error{Op: OpRead, Addr: a, Err: ErrInvalidAddress}
	}
	if n <= 0 {
		return []byte{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	buf := make([]byte, n)
	r.w = append(r.w[:0], reg)
	if err := r.i2c.Tx(addr, r.w, buf); err != nil {
		return nil, &Error{Op: OpRead, Addr: a, Err: err}
	}
	return buf, nil
}
