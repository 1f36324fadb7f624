package models

import (
	"fmt"
	"time"
)

// SensorInfo identifies the board a poll result came from
type SensorInfo struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"`
	Chip      string    `json:"chip"`
	Version   string    `json:"version"`
	StartTime time.Time `json:"start_time"`
}

// NewSensorInfo stamps the board's start time with the host clock
func NewSensorInfo(id, location, chip, version string) *SensorInfo {
	return &SensorInfo{
		ID:        id,
		Location:  location,
		Chip:      chip,
		Version:   version,
		StartTime: time.Now(),
	}
}

// Uptime returns the duration since the monitor started
func (s *SensorInfo) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

func (s *SensorInfo) String() string {
	where := s.ID
	if s.Location != "" {
		where += " @ " + s.Location
	}
	return fmt.Sprintf("%s %s (%s, up %s)", s.Chip, where, s.Version, s.Uptime().Truncate(time.Second))
}
