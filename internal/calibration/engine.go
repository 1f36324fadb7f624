package calibration

import "github.com/afroash/airquality-monitor/internal/models"

// RawSample is one field of uncompensated ADC values.
type RawSample struct {
	Temperature  uint32
	Pressure     uint32
	Humidity     uint32
	GasADC       uint16
	GasRange     uint8
	GasValid     bool
	HeaterStable bool
}

// HasGas reports whether the gas measurement may be compensated
func (r RawSample) HasGas() bool {
	return r.GasValid && r.HeaterStable
}

// Engine compensates raw samples. The zero value is not usable; build one
// with NewEngine or set Scale.
type Engine struct {
	Scale AirQualityScale
}

// NewEngine returns an engine using the default air quality scale
func NewEngine() Engine {
	return Engine{Scale: DefaultScale()}
}

// Compensate converts a raw sample to a Reading. Temperature is computed
// first because pressure and humidity depend on its fine value. Without a
// valid, heater-stable gas measurement the gas fields stay zero and the
// descriptor is Unknown.
func (e Engine) Compensate(c Coefficients, raw RawSample) models.Reading {
	tFine, centiC := CompensateTemperature(c, raw.Temperature)
	pa := CompensatePressure(c, raw.Pressure, tFine)
	milliRH := CompensateHumidity(c, raw.Humidity, tFine)

	reading := models.Reading{
		Temperature: float64(centiC) / 100,
		Pressure:    float64(pa) / 100,
		Humidity:    float64(milliRH) / 1000,
		AirQuality:  models.AirQualityUnknown,
	}
	if !raw.HasGas() {
		return reading
	}

	var ohms uint32
	if c.Variant == VariantGasHigh {
		ohms = CompensateGasHigh(raw.GasADC, raw.GasRange)
	} else {
		ohms = CompensateGasLow(c, raw.GasADC, raw.GasRange)
	}
	reading.GasResistance = float64(ohms)
	reading.IAQ = e.Scale.Index(reading.Humidity, reading.GasResistance)
	reading.AirQuality = e.Scale.Classify(reading.IAQ)
	return reading
}

// Compensate converts a raw sample using the default air quality scale
func Compensate(c Coefficients, raw RawSample) models.Reading {
	return NewEngine().Compensate(c, raw)
}
