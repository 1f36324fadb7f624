package bus

import (
	"slices"
	"sync"
)

// WriteHook lets a simulated device react to a write after the registers
// have been updated. It runs with the bus lock held and must not call back
// into the bus.
type WriteHook func(regs *[256]byte, reg byte, data []byte)

// ReadHook lets a simulated device refresh its registers before a read is
// served. Same locking rules as WriteHook.
type ReadHook func(regs *[256]byte, reg byte, n int)

// Fault makes matching transactions fail. Count limits how many
// transactions fail; zero keeps failing until ClearFaults.
type Fault struct {
	Addr  uint16
	Op    Op
	Count int
}

func (f Fault) matches(addr uint16, op Op) bool {
	return f.Addr == addr && (f.Op == OpAny || f.Op == op)
}

// Transaction is one entry in the Simulated bus log
type Transaction struct {
	Op   Op
	Addr Address
	Data []byte
	Err  error
}

type simDevice struct {
	regs       [256]byte
	writeHooks []WriteHook
	readHooks  []ReadHook
}

// Simulated is an in-memory bus. Each attached address owns 256 registers
// with auto-increment across block transfers; unattached addresses NACK.
type Simulated struct {
	mu      sync.Mutex
	devices map[uint16]*simDevice
	faults  []Fault
	log     []Transaction
}

// NewSimulated creates an empty simulated bus
func NewSimulated() *Simulated {
	return &Simulated{devices: make(map[uint16]*simDevice)}
}

// Attach makes addr acknowledge. Attaching twice keeps the registers.
func (s *Simulated) Attach(addr uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device(addr)
}

// Detach removes the device at addr
func (s *Simulated) Detach(addr uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, addr)
}

// Seed stores data at consecutive registers without logging a transaction.
// The device is attached if needed.
func (s *Simulated) Seed(addr uint16, reg byte, data ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev := s.device(addr)
	for i, b := range data {
		dev.regs[reg+byte(i)] = b
	}
}

// Register returns the current value of one register
func (s *Simulated) Register(addr uint16, reg byte) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dev, ok := s.devices[addr]; ok {
		return dev.regs[reg]
	}
	return 0
}

// OnWrite registers a hook for writes to addr
func (s *Simulated) OnWrite(addr uint16, hook WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev := s.device(addr)
	dev.writeHooks = append(dev.writeHooks, hook)
}

// OnRead registers a hook for reads from addr
func (s *Simulated) OnRead(addr uint16, hook ReadHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev := s.device(addr)
	dev.readHooks = append(dev.readHooks, hook)
}

// InjectFault adds a fault rule
func (s *Simulated) InjectFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, f)
}

// ClearFaults removes every fault rule
func (s *Simulated) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

// Transactions returns a copy of the transaction log
func (s *Simulated) Transactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.log)
}

// WritesTo returns the logged writes addressed to addr, failed ones included
func (s *Simulated) WritesTo(addr uint16) []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transaction
	for _, tx := range s.log {
		if tx.Op == OpWrite && tx.Addr.Device == addr {
			out = append(out, tx)
		}
	}
	return out
}

// ResetLog discards the transaction log
func (s *Simulated) ResetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}

// Write implements Transport
func (s *Simulated) Write(addr uint16, reg byte, data []byte) error {
	a := Address{Device: addr, Register: reg}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := Transaction{Op: OpWrite, Addr: a, Data: slices.Clone(data)}
	dev, err := s.check(a, OpWrite)
	if err != nil {
		tx.Err = err
		s.log = append(s.log, tx)
		return err
	}

	for i, b := range data {
		dev.regs[reg+byte(i)] = b
	}
	for _, hook := range dev.writeHooks {
		hook(&dev.regs, reg, tx.Data)
	}
	s.log = append(s.log, tx)
	return nil
}

// Read implements Transport
func (s *Simulated) Read(addr uint16, reg byte, n int) ([]byte, error) {
	a := Address{Device: addr, Register: reg}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := Transaction{Op: OpRead, Addr: a}
	dev, err := s.check(a, OpRead)
	if err != nil {
		tx.Err = err
		s.log = append(s.log, tx)
		return nil, err
	}

	for _, hook := range dev.readHooks {
		hook(&dev.regs, reg, n)
	}
	buf := make([]byte, max(n, 0))
	for i := range buf {
		buf[i] = dev.regs[reg+byte(i)]
	}
	tx.Data = slices.Clone(buf)
	s.log = append(s.log, tx)
	return buf, nil
}

// check validates the address, consumes a matching fault and resolves the
// device. Callers hold s.mu.
func (s *Simulated) check(a Address, op Op) (*simDevice, error) {
	if !a.Valid() {
		return nil, &Error{Op: op, Addr: a, Err: ErrInvalidAddress}
	}
	for i, f := range s.faults {
		if !f.matches(a.Device, op) {
			continue
		}
		if f.Count > 0 {
			s.faults[i].Count--
			if s.faults[i].Count == 0 {
				s.faults = slices.Delete(s.faults, i, i+1)
			}
		}
		return nil, &Error{Op: op, Addr: a, Err: ErrInjected}
	}
	dev, ok := s.devices[a.Device]
	if !ok {
		return nil, &Error{Op: op, Addr: a, Err: ErrNoAck}
	}
	return dev, nil
}

func (s *Simulated) device(addr uint16) *simDevice {
	dev, ok := s.devices[addr]
	if !ok {
		dev = &simDevice{}
		s.devices[addr] = dev
	}
	return dev
}
