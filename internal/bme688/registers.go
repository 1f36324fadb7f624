// Package bme688 drives a Bosch BME688 environmental sensor over a bus
// Transport: identity check, soft reset, calibration load, configuration and
// forced-mode raw sampling. Compensation lives in package calibration.
// Datasheet: https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bme688-ds000.pdf
package bme688

// Address is the default I2C address (SDO high).
const Address uint16 = 0x77

const (
	RegField0    byte = 0x1D // status, then 16 bytes of field-0 data
	RegIdacHeat0 byte = 0x50
	RegResHeat0  byte = 0x5A
	RegGasWait0  byte = 0x64
	RegCtrlGas0  byte = 0x70
	RegCtrlGas1  byte = 0x71
	RegCtrlHum   byte = 0x72
	RegCtrlMeas  byte = 0x74
	RegConfig    byte = 0x75
	RegChipID    byte = 0xD0
	RegSoftReset byte = 0xE0
	RegVariantID byte = 0xF0
)

const (
	ChipID       byte = 0x61
	cmdSoftReset byte = 0xB6

	field0Len = 17
)

// Field-0 status and gas bits.
const (
	statusNewData      = 0x80
	statusGasMeasuring = 0x40
	statusMeasuring    = 0x20
	gasValid           = 0x20
	heatStable         = 0x10
	gasRangeMask       = 0x0F
)

// Control bits.
const (
	heatOff         = 0x08
	runGasLow       = 0x10
	runGasHigh      = 0x20
	modeMask        = 0x03
	humOversampMask = 0x07
)

// Mode is the power mode in ctrl_meas.
type Mode byte

const (
	Sleep  Mode = 0x00
	Forced Mode = 0x01
)

// Oversampling selects how many ADC samples are averaged per measurement.
type Oversampling byte

const (
	Skipped Oversampling = iota
	Sampling1X
	Sampling2X
	Sampling4X
	Sampling8X
	Sampling16X
)

// FilterCoefficient is the IIR filter size for temperature and pressure.
type FilterCoefficient byte

const (
	Coeff0 FilterCoefficient = iota
	Coeff1
	Coeff3
	Coeff7
	Coeff15
	Coeff31
	Coeff63
	Coeff127
)
