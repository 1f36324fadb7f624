// Package calibration turns raw BME688 ADC counts into physical values using
// the chip's factory coefficients. Everything here is pure integer math and
// bit-reproducible across platforms.
package calibration

import (
	"fmt"

	"github.com/afroash/airquality-monitor/internal/hwerr"
)

// Calibration windows as read from the chip, in block order.
const (
	Window1Start = 0x8A
	Window1Len   = 23
	Window2Start = 0xE1
	Window2Len   = 14
	Window3Start = 0x00
	Window3Len   = 5
	BlockLen     = Window1Len + Window2Len + Window3Len
)

// Gas sensor variants reported by the variant id register.
const (
	VariantGasLow  uint8 = 0x00
	VariantGasHigh uint8 = 0x01
)

// Coefficients are the factory calibration values of one chip.
type Coefficients struct {
	T1 uint16
	T2 int16
	T3 int8

	P1  uint16
	P2  int16
	P3  int8
	P4  int16
	P5  int16
	P6  int8
	P7  int8
	P8  int16
	P9  int16
	P10 uint8

	H1 uint16
	H2 uint16
	H3 int8
	H4 int8
	H5 int8
	H6 uint8
	H7 int8

	G1 int8
	G2 int16
	G3 int8

	ResHeatRange uint8
	ResHeatVal   int8
	RangeSwErr   int8

	Variant uint8
}

// ParseCoefficients decodes the concatenated calibration windows.
func ParseCoefficients(block []byte, variant uint8) (Coefficients, error) {
	if len(block) != BlockLen {
		return Coefficients{}, fmt.Errorf("calibration block is %d bytes, want %d: %w",
			len(block), BlockLen, hwerr.ErrCalibrationInvalid)
	}

	u16 := func(msb, lsb int) uint16 { return uint16(block[msb])<<8 | uint16(block[lsb]) }
	s16 := func(msb, lsb int) int16 { return int16(u16(msb, lsb)) }
	s8 := func(i int) int8 { return int8(block[i]) }

	return Coefficients{
		T1: u16(32, 31),
		T2: s16(1, 0),
		T3: s8(2),

		P1:  u16(5, 4),
		P2:  s16(7, 6),
		P3:  s8(8),
		P4:  s16(11, 10),
		P5:  s16(13, 12),
		P6:  s8(15),
		P7:  s8(14),
		P8:  s16(19, 18),
		P9:  s16(21, 20),
		P10: block[22],

		// H1 and H2 share the nibbles of byte 24
		H1: uint16(block[25])<<4 | uint16(block[24]&0x0F),
		H2: uint16(block[23])<<4 | uint16(block[24]>>4),
		H3: s8(26),
		H4: s8(27),
		H5: s8(28),
		H6: block[29],
		H7: s8(30),

		G1: s8(35),
		G2: s16(34, 33),
		G3: s8(36),

		ResHeatVal:   s8(37),
		ResHeatRange: (block[39] & 0x30) >> 4,
		RangeSwErr:   int8(block[41]&0xF0) / 16,

		Variant: variant,
	}, nil
}
