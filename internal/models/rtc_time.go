package models

import (
	"fmt"
	"time"
)

// RTCTime is the calendar time held by the battery-backed clock.
// Weekday uses time.Weekday numbering (0 = Sunday).
type RTCTime struct {
	Year    int `json:"year"`
	Month   int `json:"month"`
	Day     int `json:"day"`
	Weekday int `json:"weekday"`
	Hour    int `json:"hour"`
	Minute  int `json:"minute"`
	Second  int `json:"second"`
}

// RTCTimeFrom converts a time.Time to clock fields in its own location
func RTCTimeFrom(t time.Time) RTCTime {
	return RTCTime{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Weekday: int(t.Weekday()),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
	}
}

// Time returns the clock fields as a UTC time.Time. Out-of-range fields are
// normalised by time.Date, so only call it on values that passed validation.
func (t RTCTime) Time() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, 0, time.UTC)
}

// IsZero reports whether no field has been set
func (t RTCTime) IsZero() bool {
	return t == RTCTime{}
}

func (t RTCTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}
