package bme688

import (
	"errors"
	"fmt"
	"time"
)

// MaxHeaterDuration is the longest heater pulse gas_wait can encode.
const MaxHeaterDuration = 4032 * time.Millisecond

// Config is the declarative measurement setup. Start from DefaultConfig and
// override fields; Configure validates it before touching the chip.
type Config struct {
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Filter      FilterCoefficient

	// HeaterTemp is the gas plate target in °C. Zero disables the gas measurement.
	HeaterTemp     uint16
	HeaterDuration time.Duration
	// AmbientTemp seeds the heater resistance calculation, in °C.
	AmbientTemp int8

	// PollInterval is the wait between ready checks after a forced trigger.
	PollInterval time.Duration
	// MaxPolls bounds the ready checks before the sensor counts as not responding.
	MaxPolls int
	// ResetDelay is the wait after a soft reset.
	ResetDelay time.Duration
}

// DefaultConfig returns the board's standard setup
func DefaultConfig() Config {
	return Config{
		Temperature:    Sampling2X,
		Pressure:       Sampling16X,
		Humidity:       Sampling2X,
		Filter:         Coeff3,
		HeaterTemp:     320,
		HeaterDuration: 150 * time.Millisecond,
		AmbientTemp:    25,
		PollInterval:   10 * time.Millisecond,
		MaxPolls:       50,
		ResetDelay:     10 * time.Millisecond,
	}
}

// Validate checks every field is encodable
func (c Config) Validate() error {
	for name, o := range map[string]Oversampling{
		"temperature": c.Temperature,
		"pressure":    c.Pressure,
		"humidity":    c.Humidity,
	} {
		if o > Sampling16X {
			return fmt.Errorf("%s oversampling %d out of range", name, o)
		}
	}
	if c.Temperature == Skipped {
		return errors.New("temperature oversampling cannot be skipped")
	}
	if c.Filter > Coeff127 {
		return fmt.Errorf("filter coefficient %d out of range", c.Filter)
	}
	if c.HeaterTemp > 400 {
		return fmt.Errorf("heater temperature %d°C above 400°C", c.HeaterTemp)
	}
	if c.HeaterTemp > 0 && (c.HeaterDuration < time.Millisecond || c.HeaterDuration > MaxHeaterDuration) {
		return fmt.Errorf("heater duration %v must be between 1ms and %v", c.HeaterDuration, MaxHeaterDuration)
	}
	if c.PollInterval < 0 {
		return errors.New("poll interval cannot be negative")
	}
	if c.MaxPolls <= 0 {
		return errors.New("max polls must be positive")
	}
	if c.ResetDelay < 0 {
		return errors.New("reset delay cannot be negative")
	}
	return nil
}

// GasEnabled reports whether the heater runs during a measurement
func (c Config) GasEnabled() bool {
	return c.HeaterTemp > 0
}

// MeasurementDuration estimates one forced-mode cycle including the heater pulse.
func (c Config) MeasurementDuration() time.Duration {
	cycles := [...]int{0, 1, 2, 4, 8, 16}
	n := 0
	for _, o := range []Oversampling{c.Temperature, c.Pressure, c.Humidity} {
		if int(o) < len(cycles) {
			n += cycles[o]
		}
	}
	us := n*1963 + 477*4 + 477*5 + 1000
	d := time.Duration(us) * time.Microsecond
	if c.GasEnabled() {
		d += c.HeaterDuration
	}
	return d
}

// PollBudget is the longest AcquireRawSample waits for new data
func (c Config) PollBudget() time.Duration {
	return time.Duration(c.MaxPolls-1) * c.PollInterval
}

// OversamplingFromMultiplier maps 0, 1, 2, 4, 8 or 16 to a setting
func OversamplingFromMultiplier(n int) (Oversampling, error) {
	switch n {
	case 0:
		return Skipped, nil
	case 1:
		return Sampling1X, nil
	case 2:
		return Sampling2X, nil
	case 4:
		return Sampling4X, nil
	case 8:
		return Sampling8X, nil
	case 16:
		return Sampling16X, nil
	}
	return Skipped, fmt.Errorf("oversampling x%d not supported", n)
}

// FilterFromSize maps an IIR filter size (0, 1, 3, 7 ... 127) to a coefficient
func FilterFromSize(n int) (FilterCoefficient, error) {
	for c := Coeff0; c <= Coeff127; c++ {
		if n == 1<<c-1 {
			return c, nil
		}
	}
	return Coeff0, fmt.Errorf("filter size %d not supported", n)
}
