// Package bus carries register-level transactions to the devices on the
// board's shared I2C bus. Drivers only see the Transport interface, so the
// same driver code runs against hardware and against the Simulated bus.
package bus

import "fmt"

// MaxAddress is the highest 7-bit device address.
const MaxAddress = 0x7F

// Transport performs register reads and writes on one bus.
// Implementations serialise transactions; callers need no extra locking.
type Transport interface {
	// Write sends data to consecutive registers starting at reg.
	Write(addr uint16, reg byte, data []byte) error
	// Read returns n bytes from consecutive registers starting at reg.
	Read(addr uint16, reg byte, n int) ([]byte, error)
}

// Address names one register on one device
type Address struct {
	Device   uint16
	Register byte
}

// Valid reports whether the device address fits in 7 bits
func (a Address) Valid() bool {
	return a.Device <= MaxAddress
}

func (a Address) String() string {
	return fmt.Sprintf("0x%02X/0x%02X", a.Device, a.Register)
}
