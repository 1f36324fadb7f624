package models

import "fmt"

// DeviceStatus is the health of one device as seen by collaborators
type DeviceStatus int

const (
	StatusUninitialized DeviceStatus = iota
	StatusReady
	StatusNotResponding
	StatusIdentityMismatch
	StatusCalibrationInvalid
)

var deviceStatusNames = map[DeviceStatus]string{
	StatusUninitialized:      "UNINITIALIZED",
	StatusReady:              "READY",
	StatusNotResponding:      "NOT_RESPONDING",
	StatusIdentityMismatch:   "IDENTITY_MISMATCH",
	StatusCalibrationInvalid: "CALIBRATION_INVALID",
}

// String returns the string representation of the status
func (s DeviceStatus) String() string {
	if name, ok := deviceStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText encodes the status by name so JSON and SQLite rows stay readable
func (s DeviceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name produced by MarshalText
func (s *DeviceStatus) UnmarshalText(text []byte) error {
	v, err := ParseDeviceStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseDeviceStatus returns the status with the given name
func ParseDeviceStatus(name string) (DeviceStatus, error) {
	for s, n := range deviceStatusNames {
		if n == name {
			return s, nil
		}
	}
	return StatusUninitialized, fmt.Errorf("unknown device status %q", name)
}

// AirQuality is the coarse indoor air quality descriptor. Values are ordered:
// a larger value means worse air, except Unknown which sorts first.
type AirQuality int

const (
	AirQualityUnknown AirQuality = iota
	AirQualityExcellent
	AirQualityGood
	AirQualityLightlyPolluted
	AirQualityModeratelyPolluted
	AirQualityHeavilyPolluted
	AirQualitySeverelyPolluted
)

var airQualityNames = map[AirQuality]string{
	AirQualityUnknown:            "Unknown",
	AirQualityExcellent:          "Excellent",
	AirQualityGood:               "Good",
	AirQualityLightlyPolluted:    "Lightly Polluted",
	AirQualityModeratelyPolluted: "Moderately Polluted",
	AirQualityHeavilyPolluted:    "Heavily Polluted",
	AirQualitySeverelyPolluted:   "Severely Polluted",
}

func (q AirQuality) String() string {
	if name, ok := airQualityNames[q]; ok {
		return name
	}
	return "Unknown"
}

func (q AirQuality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *AirQuality) UnmarshalText(text []byte) error {
	v, err := ParseAirQuality(string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// ParseAirQuality returns the descriptor with the given name
func ParseAirQuality(name string) (AirQuality, error) {
	for q, n := range airQualityNames {
		if n == name {
			return q, nil
		}
	}
	return AirQualityUnknown, fmt.Errorf("unknown air quality %q", name)
}
