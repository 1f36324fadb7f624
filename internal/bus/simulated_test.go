package bus

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/afroash/airquality-monitor/internal/hwerr"
)

// Compile-time checks.
var (
	_ Transport = (*Simulated)(nil)
	_ Transport = (*Real)(nil)
)

func TestSimulated_AutoIncrement(t *testing.T) {
	sim := NewSimulated()
	sim.Seed(0x6F, 0x00, 0x80, 0x30, 0x12)

	got, err := sim.Read(0x6F, 0x00, 3)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !slices.Equal(got, []byte{0x80, 0x30, 0x12}) {
		t.Errorf("Read() = % X, want 80 30 12", got)
	}

	if err := sim.Write(0x6F, 0x01, []byte{0x45, 0x23}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if sim.Register(0x6F, 0x01) != 0x45 || sim.Register(0x6F, 0x02) != 0x23 {
		t.Errorf("block write did not land on consecutive registers")
	}
}

func TestSimulated_RegisterWrap(t *testing.T) {
	sim := NewSimulated()
	sim.Seed(0x10, 0xFF, 0xAA, 0xBB)

	if sim.Register(0x10, 0x00) != 0xBB {
		t.Errorf("register pointer should wrap from 0xFF to 0x00")
	}
}

func TestSimulated_UnattachedAddressNACKs(t *testing.T) {
	sim := NewSimulated()

	_, err := sim.Read(0x54, 0x00, 1)
	if !errors.Is(err, ErrNoAck) {
		t.Errorf("Read() error = %v, want ErrNoAck", err)
	}
	if !errors.Is(err, hwerr.ErrBus) {
		t.Errorf("Read() error = %v should match hwerr.ErrBus", err)
	}
}

func TestSimulated_InjectFault(t *testing.T) {
	tests := []struct {
		name      string
		fault     Fault
		readFails []bool
	}{
		{"one shot", Fault{Addr: 0x77, Op: OpRead, Count: 1}, []bool{true, false, false}},
		{"two shots", Fault{Addr: 0x77, Op: OpAny, Count: 2}, []bool{true, true, false}},
		{"persistent", Fault{Addr: 0x77}, []bool{true, true, true}},
		{"other address", Fault{Addr: 0x6F}, []bool{false, false, false}},
		{"writes only", Fault{Addr: 0x77, Op: OpWrite}, []bool{false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulated()
			sim.Attach(0x77)
			sim.Attach(0x6F)
			sim.InjectFault(tt.fault)

			for i, wantFail := range tt.readFails {
				_, err := sim.Read(0x77, 0xD0, 1)
				if gotFail := err != nil; gotFail != wantFail {
					t.Errorf("read %d: failed = %v, want %v (err %v)", i, gotFail, wantFail, err)
				}
				if err != nil && !errors.Is(err, ErrInjected) {
					t.Errorf("read %d: error = %v, want ErrInjected", i, err)
				}
			}
		})
	}
}

func TestSimulated_ClearFaults(t *testing.T) {
	sim := NewSimulated()
	sim.Attach(0x77)
	sim.InjectFault(Fault{Addr: 0x77})

	if _, err := sim.Read(0x77, 0x00, 1); err == nil {
		t.Fatal("expected injected fault")
	}
	sim.ClearFaults()
	if _, err := sim.Read(0x77, 0x00, 1); err != nil {
		t.Errorf("Read() after ClearFaults error: %v", err)
	}
}

func TestSimulated_FailedWriteLeavesRegisters(t *testing.T) {
	sim := NewSimulated()
	sim.Seed(0x6F, 0x00, 0x11)
	sim.InjectFault(Fault{Addr: 0x6F, Op: OpWrite, Count: 1})

	if err := sim.Write(0x6F, 0x00, []byte{0x99}); err == nil {
		t.Fatal("expected injected fault")
	}
	if sim.Register(0x6F, 0x00) != 0x11 {
		t.Errorf("failed write changed register to 0x%02X", sim.Register(0x6F, 0x00))
	}
}

func TestSimulated_TransactionLog(t *testing.T) {
	sim := NewSimulated()
	sim.Attach(0x77)
	sim.Attach(0x6F)

	_ = sim.Write(0x77, 0xE0, []byte{0xB6})
	_, _ = sim.Read(0x77, 0xD0, 1)
	_ = sim.Write(0x6F, 0x00, []byte{0x80})
	_ = sim.Write(0x54, 0x00, []byte{0x01})

	if got := len(sim.Transactions()); got != 4 {
		t.Errorf("Transactions() len = %d, want 4", got)
	}

	writes := sim.WritesTo(0x77)
	if len(writes) != 1 {
		t.Fatalf("WritesTo(0x77) len = %d, want 1", len(writes))
	}
	if writes[0].Addr.Register != 0xE0 || !slices.Equal(writes[0].Data, []byte{0xB6}) {
		t.Errorf("WritesTo(0x77)[0] = %+v", writes[0])
	}

	failed := sim.WritesTo(0x54)
	if len(failed) != 1 || failed[0].Err == nil {
		t.Errorf("NACKed write should be logged with its error: %+v", failed)
	}

	sim.ResetLog()
	if len(sim.Transactions()) != 0 {
		t.Error("ResetLog() should empty the log")
	}
}

func TestSimulated_WriteHook(t *testing.T) {
	sim := NewSimulated()
	sim.OnWrite(0x77, func(regs *[256]byte, reg byte, data []byte) {
		if reg == 0x74 && data[0]&0x03 == 0x01 {
			regs[0x1D] |= 0x80
		}
	})

	_ = sim.Write(0x77, 0x74, []byte{0x55})
	if sim.Register(0x77, 0x1D) != 0 {
		t.Fatal("hook fired for sleep mode write")
	}
	_ = sim.Write(0x77, 0x74, []byte{0x55 | 0x01})
	if sim.Register(0x77, 0x1D)&0x80 == 0 {
		t.Error("hook did not set the status bit")
	}
}

func TestSimulated_ConcurrentAccess(t *testing.T) {
	sim := NewSimulated()
	sim.Attach(0x77)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v byte) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = sim.Write(0x77, v, []byte{v})
				_, _ = sim.Read(0x77, v, 1)
			}
		}(byte(i))
	}
	wg.Wait()

	if got := len(sim.Transactions()); got != 1600 {
		t.Errorf("Transactions() len = %d, want 1600", got)
	}
}

func TestSimulated_ReadHook(t *testing.T) {
	sim := NewSimulated()
	var counter byte
	sim.OnRead(0x6F, func(regs *[256]byte, reg byte, n int) {
		counter++
		regs[0x00] = counter
	})

	for want := byte(1); want <= 3; want++ {
		got, err := sim.Read(0x6F, 0x00, 1)
		if err != nil {
			t.Fatalf("Read() error: %v", err)
		}
		if got[0] != want {
			t.Errorf("Read() = %d, want %d", got[0], want)
		}
	}
}
