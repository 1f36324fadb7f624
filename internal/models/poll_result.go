package models

import "fmt"

// PollResult is everything one monitor cycle produced. It is the only
// structure the display, logging and history collaborators consume.
type PollResult struct {
	SensorID    string       `json:"sensor_id"`
	Time        RTCTime      `json:"time"`
	Reading     Reading      `json:"reading"`
	Status      DeviceStatus `json:"status"`
	ClockStatus DeviceStatus `json:"clock_status"`
	Err         string       `json:"error,omitempty"`
}

// Healthy reports whether both the sensor and the clock were ready
func (p *PollResult) Healthy() bool {
	return p.Status == StatusReady && p.ClockStatus == StatusReady
}

// HasReading reports whether the sensor produced a sample this cycle
func (p *PollResult) HasReading() bool {
	return p.Status == StatusReady
}

func (p *PollResult) String() string {
	if !p.HasReading() {
		return fmt.Sprintf("SensorID: %s, Time: %s, Status: %s, Clock: %s, Error: %s",
			p.SensorID, p.Time, p.Status, p.ClockStatus, p.Err)
	}
	return fmt.Sprintf("SensorID: %s, Time: %s, Clock: %s, %s",
		p.SensorID, p.Time, p.ClockStatus, p.Reading.String())
}
