package simboard

import (
	"time"

	"github.com/afroash/airquality-monitor/internal/bus"
)

const (
	clockRegs = 7
	stBit     = 0x80
	vbatEn    = 0x08
	oscRun    = 0x20
)

// SeedClock stores t in the clock registers with the oscillator running and
// battery backup enabled. With ticking set the registers follow wall time
// from the last write.
func SeedClock(sim *bus.Simulated, addr uint16, t time.Time, ticking bool) {
	sim.Seed(addr, 0x00, EncodeClock(t)...)
	if !ticking {
		return
	}

	base, at := t, time.Now()
	sim.OnWrite(addr, func(regs *[256]byte, reg byte, data []byte) {
		if reg == 0x00 && len(data) >= clockRegs {
			base, at = decodeClock(regs[:clockRegs]), time.Now()
		}
	})
	sim.OnRead(addr, func(regs *[256]byte, reg byte, n int) {
		copy(regs[:clockRegs], EncodeClock(base.Add(time.Since(at))))
	})
}

// EncodeClock returns the seven timekeeping registers for t
func EncodeClock(t time.Time) []byte {
	return []byte{
		bcd(t.Second()) | stBit,
		bcd(t.Minute()),
		bcd(t.Hour()),
		bcd(int(t.Weekday())+1) | vbatEn | oscRun,
		bcd(t.Day()),
		bcd(int(t.Month())),
		bcd(t.Year() % 100),
	}
}

func decodeClock(b []byte) time.Time {
	return time.Date(2000+unbcd(b[6]), time.Month(unbcd(b[5]&0x1F)), unbcd(b[4]&0x3F),
		unbcd(b[2]&0x3F), unbcd(b[1]&0x7F), unbcd(b[0]&0x7F), 0, time.UTC)
}

func bcd(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

func unbcd(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}
