package calibration

// MaxHeaterTemp is the highest heater target the chip supports, in °C.
const MaxHeaterTemp = 400

// HeaterResistance returns the res_heat register code for a heater target
// temperature. Targets above MaxHeaterTemp are clamped.
func HeaterResistance(c Coefficients, targetC uint16, ambientC int8) byte {
	if targetC > MaxHeaterTemp {
		targetC = MaxHeaterTemp
	}
	var1 := ((int32(ambientC) * int32(c.G3)) / 1000) * 256
	var2 := (int32(c.G1) + 784) * (((((int32(c.G2) + 154009) * int32(targetC) * 5) / 100) + 3276800) / 10)
	var3 := var1 + (var2 / 2)
	var4 := var3 / (int32(c.ResHeatRange) + 4)
	var5 := (131 * int32(c.ResHeatVal)) + 65536
	x100 := ((var4 / var5) - 250) * 34
	return byte((x100 + 50) / 100)
}

// GasWait encodes a heater duration in milliseconds as a gas_wait register
// value: six bits of mantissa and a two bit multiplier of 1, 4, 16 or 64.
// Durations of 4032 ms or more saturate.
func GasWait(ms uint16) byte {
	if ms >= 0xFC0 {
		return 0xFF
	}
	var factor byte
	for ms > 0x3F {
		ms /= 4
		factor++
	}
	return byte(ms) + factor*64
}
