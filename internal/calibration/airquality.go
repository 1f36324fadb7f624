package calibration

import (
	"errors"
	"fmt"

	"github.com/afroash/airquality-monitor/internal/models"
)

// AirQualityScale converts humidity and gas resistance into an IAQ index
// (0 best, 500 worst) and buckets it into an AirQuality descriptor.
type AirQualityScale struct {
	GasBaseline      float64    // Ω considered clean air
	HumidityBaseline float64    // %RH considered ideal
	HumidityWeight   float64    // share of the score given to humidity, 0..1
	Thresholds       [5]float64 // upper IAQ bounds for Excellent..HeavilyPolluted
}

// DefaultScale returns the scale used when no configuration overrides it
func DefaultScale() AirQualityScale {
	return AirQualityScale{
		GasBaseline:      50000,
		HumidityBaseline: 40,
		HumidityWeight:   0.25,
		Thresholds:       [5]float64{50, 100, 150, 200, 300},
	}
}

// Validate checks the scale is usable
func (s AirQualityScale) Validate() error {
	if s.GasBaseline <= 0 {
		return errors.New("gas baseline must be positive")
	}
	if s.HumidityBaseline <= 0 || s.HumidityBaseline >= 100 {
		return errors.New("humidity baseline must be between 0 and 100")
	}
	if s.HumidityWeight < 0 || s.HumidityWeight > 1 {
		return errors.New("humidity weight must be between 0 and 1")
	}
	for i := 1; i < len(s.Thresholds); i++ {
		if s.Thresholds[i] <= s.Thresholds[i-1] {
			return fmt.Errorf("thresholds must increase: %v", s.Thresholds)
		}
	}
	return nil
}

// Index returns the IAQ value for a humidity in %RH and a gas resistance in Ω.
func (s AirQualityScale) Index(humidity, gasOhms float64) float64 {
	humidityMax := s.HumidityWeight * 100
	gasMax := 100 - humidityMax

	var humidityScore float64
	if offset := humidity - s.HumidityBaseline; offset > 0 {
		humidityScore = (100 - s.HumidityBaseline - offset) / (100 - s.HumidityBaseline) * humidityMax
	} else {
		humidityScore = (s.HumidityBaseline + offset) / s.HumidityBaseline * humidityMax
	}
	humidityScore = max(humidityScore, 0)

	gasScore := gasMax
	if gasOhms < s.GasBaseline {
		gasScore = max(gasOhms, 0) / s.GasBaseline * gasMax
	}

	return (100 - (humidityScore + gasScore)) * 5
}

// Classify buckets an IAQ value. Each threshold is inclusive.
func (s AirQualityScale) Classify(iaq float64) models.AirQuality {
	for i, limit := range s.Thresholds {
		if iaq <= limit {
			return models.AirQualityExcellent + models.AirQuality(i)
		}
	}
	return models.AirQualitySeverelyPolluted
}
