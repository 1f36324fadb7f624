package calibration

// CompensateTemperature returns the fine temperature used by the pressure and
// humidity stages and the temperature in hundredths of a degree Celsius.
func CompensateTemperature(c Coefficients, adc uint32) (tFine int32, centiC int32) {
	var1 := (int32(adc) >> 3) - (int32(c.T1) << 1)
	var2 := (var1 * int32(c.T2)) >> 11
	var3 := ((var1 >> 1) * (var1 >> 1)) >> 12
	var3 = (var3 * (int32(c.T3) << 4)) >> 14
	tFine = var2 + var3
	centiC = ((tFine * 5) + 128) >> 8
	return tFine, centiC
}

// CompensatePressure returns the pressure in Pa.
func CompensatePressure(c Coefficients, adc uint32, tFine int32) uint32 {
	var1 := (tFine >> 1) - 64000
	var2 := ((((var1 >> 2) * (var1 >> 2)) >> 11) * int32(c.P6)) >> 2
	var2 = var2 + ((var1 * int32(c.P5)) << 1)
	var2 = (var2 >> 2) + (int32(c.P4) << 16)
	var1 = (((((var1 >> 2) * (var1 >> 2)) >> 13) * (int32(c.P3) << 5)) >> 3) +
		((int32(c.P2) * var1) >> 1)
	var1 = var1 >> 18
	var1 = ((32768 + var1) * int32(c.P1)) >> 15
	if var1 == 0 {
		return 0
	}

	comp := int32(1048576) - int32(adc)
	comp = (comp - (var2 >> 12)) * 3125
	if comp >= 1<<30 {
		comp = (comp / var1) << 1
	} else {
		comp = (comp << 1) / var1
	}

	var1 = (int32(c.P9) * (((comp >> 3) * (comp >> 3)) >> 13)) >> 12
	var2 = ((comp >> 2) * int32(c.P8)) >> 13
	var3 := ((comp >> 8) * (comp >> 8) * (comp >> 8) * int32(c.P10)) >> 17
	comp = comp + ((var1 + var2 + var3 + (int32(c.P7) << 7)) >> 4)
	return uint32(comp)
}

// CompensateHumidity returns the relative humidity in thousandths of a
// percent, clamped to 0..100000.
func CompensateHumidity(c Coefficients, adc uint32, tFine int32) uint32 {
	tempScaled := ((tFine * 5) + 128) >> 8
	var1 := int32(adc) - int32(c.H1)*16 - (((tempScaled * int32(c.H3)) / 100) >> 1)
	var2 := (int32(c.H2) * (((tempScaled * int32(c.H4)) / 100) +
		(((tempScaled * ((tempScaled * int32(c.H5)) / 100)) >> 6) / 100) +
		(1 << 14))) >> 10
	var3 := var1 * var2
	var4 := int32(c.H6) << 7
	var4 = (var4 + ((tempScaled * int32(c.H7)) / 100)) >> 4
	var5 := ((var3 >> 14) * (var3 >> 14)) >> 10
	var6 := (var4 * var5) >> 1
	comp := (((var3 + var6) >> 10) * 1000) >> 12

	switch {
	case comp > 100000:
		return 100000
	case comp < 0:
		return 0
	}
	return uint32(comp)
}

var (
	gasLookup1 = [16]uint32{
		2147483647, 2147483647, 2147483647, 2147483647, 2147483647, 2126008810, 2147483647, 2130303777,
		2147483647, 2147483647, 2143188679, 2136746228, 2147483647, 2126008810, 2147483647, 2147483647,
	}
	gasLookup2 = [16]uint32{
		4096000000, 2048000000, 1024000000, 512000000, 255744255, 127110228, 64000000, 32258064,
		16016016, 8000000, 4000000, 2000000, 1000000, 500000, 250000, 125000,
	}
)

// CompensateGasLow returns the gas resistance in Ω for the low-range
// (BME680 compatible) gas variant.
func CompensateGasLow(c Coefficients, adc uint16, gasRange uint8) uint32 {
	rng := gasRange & 0x0F
	var1 := ((1340 + 5*int64(c.RangeSwErr)) * int64(gasLookup1[rng])) >> 16
	var2 := (int64(adc)<<15 - 16777216) + var1
	var3 := (int64(gasLookup2[rng]) * var1) >> 9
	if var2 == 0 {
		return 0
	}
	return uint32((var3 + (var2 >> 1)) / var2)
}

// CompensateGasHigh returns the gas resistance in Ω for the high-range
// BME688 gas variant.
func CompensateGasHigh(adc uint16, gasRange uint8) uint32 {
	var1 := uint32(262144) >> (gasRange & 0x0F)
	var2 := int32(adc&0x3FF) - 512
	var2 *= 3
	var2 = 4096 + var2
	return (10000 * var1 / uint32(var2)) * 100
}
