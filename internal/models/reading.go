package models

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/physic"
)

// Reading is one compensated environmental sample.
type Reading struct {
	Temperature   float64    `json:"temperature"`    // °C
	Pressure      float64    `json:"pressure"`       // hPa
	Humidity      float64    `json:"humidity"`       // %RH
	GasResistance float64    `json:"gas_resistance"` // Ω, 0 without a valid gas measurement
	IAQ           float64    `json:"iaq"`
	AirQuality    AirQuality `json:"air_quality"`
}

// IsValid checks the values against the sensor's operating range
// BME688: temp -40 to 85°C, pressure 300-1100 hPa, humidity 0-100%
func (r *Reading) IsValid() bool {
	const (
		minTemp     = -40.0
		maxTemp     = 85.0
		minPressure = 300.0
		maxPressure = 1100.0
		minHumidity = 0.0
		maxHumidity = 100.0
	)

	if r.Temperature < minTemp || r.Temperature > maxTemp {
		return false
	}
	if r.Pressure < minPressure || r.Pressure > maxPressure {
		return false
	}
	if r.Humidity < minHumidity || r.Humidity > maxHumidity {
		return false
	}
	return r.GasResistance >= 0
}

// HasGas reports whether the reading carries a usable gas measurement
func (r *Reading) HasGas() bool {
	return r.GasResistance > 0
}

// HeatIndex returns the apparent temperature in °C, rounded to one decimal.
// Below 27°C the air temperature is returned unchanged.
func (r *Reading) HeatIndex() float64 {
	if r.Temperature < 27 {
		return r.Temperature
	}
	tf := r.Temperature*9/5 + 32
	hi := 0.5 * (tf + 61.0 + ((tf - 68.0) * 1.2) + (r.Humidity * 0.094))
	return math.Round((hi-32)*5/9*10) / 10
}

// ApparentTemperature returns HeatIndex in periph units
func (r *Reading) ApparentTemperature() physic.Temperature {
	return celsius(r.HeatIndex())
}

// Env returns the reading in periph physical units
func (r *Reading) Env() physic.Env {
	return physic.Env{
		Temperature: celsius(r.Temperature),
		Pressure:    physic.Pressure(r.Pressure * 100 * float64(physic.Pascal)),
		Humidity:    physic.RelativeHumidity(r.Humidity * float64(physic.PercentRH)),
	}
}

func celsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}

func (r *Reading) String() string {
	if !r.HasGas() {
		return fmt.Sprintf("Temperature: %.2f°C, Pressure: %.2fhPa, Humidity: %.2f%%, Gas: n/a",
			r.Temperature, r.Pressure, r.Humidity)
	}
	return fmt.Sprintf("Temperature: %.2f°C, Pressure: %.2fhPa, Humidity: %.2f%%, Gas: %.0fΩ, IAQ: %.0f (%s)",
		r.Temperature, r.Pressure, r.Humidity, r.GasResistance, r.IAQ, r.AirQuality)
}
