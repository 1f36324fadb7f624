package simboard

import (
	"github.com/afroash/airquality-monitor/internal/bus"
)

const (
	regField0    = 0x1D
	regCtrlMeas  = 0x74
	regChipID    = 0xD0
	regSoftReset = 0xE0
	regVariantID = 0xF0
	newData      = 0x80
)

// SeedSensor stores the identity, calibration and sample registers and
// makes the device raise new-data when a forced measurement is triggered.
func SeedSensor(sim *bus.Simulated, opts Options) {
	addr := opts.SensorAddress
	sim.Seed(addr, regChipID, opts.ChipID)
	sim.Seed(addr, regVariantID, opts.Variant)
	sim.Seed(addr, 0x8A, CalibrationWindow1...)
	sim.Seed(addr, 0xE1, CalibrationWindow2...)
	sim.Seed(addr, 0x00, CalibrationWindow3...)
	sim.Seed(addr, regField0, EncodeField(opts.Sample, opts.Variant)...)

	neverReady := opts.NeverReady
	sim.OnWrite(addr, func(regs *[256]byte, reg byte, data []byte) {
		for i, v := range data {
			switch reg + byte(i) {
			case regSoftReset:
				if v == 0xB6 {
					regs[regField0] &^= newData
					regs[regCtrlMeas] = 0
				}
			case regCtrlMeas:
				if v&0x03 == 0x01 && !neverReady {
					regs[regField0] |= newData
				} else {
					regs[regField0] &^= newData
				}
			}
		}
	})
}

// SetSample replaces the raw values the sensor reports from the next read
func SetSample(sim *bus.Simulated, addr uint16, variant byte, s Sample) {
	status := sim.Register(addr, regField0)
	field := EncodeField(s, variant)
	field[0] = status
	sim.Seed(addr, regField0, field...)
}

// EncodeField packs a sample into the 17 field-0 registers, status clear
func EncodeField(s Sample, variant byte) []byte {
	b := make([]byte, 17)
	b[2] = byte(s.Pressure >> 12)
	b[3] = byte(s.Pressure >> 4)
	b[4] = byte(s.Pressure << 4)
	b[5] = byte(s.Temperature >> 12)
	b[6] = byte(s.Temperature >> 4)
	b[7] = byte(s.Temperature << 4)
	b[8] = byte(s.Humidity >> 8)
	b[9] = byte(s.Humidity)

	lsb := byte(s.GasADC<<6) | s.GasRange&0x0F
	if s.GasValid {
		lsb |= 0x20
	}
	if s.HeaterStable {
		lsb |= 0x10
	}
	i := 13
	if variant == VariantHigh {
		i = 15
	}
	b[i] = byte(s.GasADC >> 2)
	b[i+1] = lsb
	return b
}
