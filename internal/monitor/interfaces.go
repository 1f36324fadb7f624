package monitor

import (
	"github.com/afroash/airquality-monitor/internal/calibration"
	"github.com/afroash/airquality-monitor/internal/models"
)

// Clock is the battery-backed time source
type Clock interface {
	StartOscillator() error
	ReadTime() (models.RTCTime, error)
	IsTimeValid(models.RTCTime) bool
	SetTime(models.RTCTime) error
	Status() models.DeviceStatus
}

// Sensor is the environmental sensor driver
type Sensor interface {
	Init() error
	Ready() bool
	AcquireRawSample() (calibration.RawSample, error)
	Coefficients() calibration.Coefficients
	Status() models.DeviceStatus
}

// Sink receives a copy of every poll result. Publish runs on the poll
// goroutine, so slow sinks queue the result and return.
type Sink interface {
	Publish(result models.PollResult)
}
