package models

import (
	"testing"
	"time"
)

func TestRTCTimeFrom(t *testing.T) {
	tm := time.Date(2025, time.July, 8, 12, 30, 45, 0, time.UTC)
	got := RTCTimeFrom(tm)
	want := RTCTime{Year: 2025, Month: 7, Day: 8, Weekday: int(time.Tuesday), Hour: 12, Minute: 30, Second: 45}

	if got != want {
		t.Errorf("RTCTimeFrom() = %+v, want %+v", got, want)
	}
	if !got.Time().Equal(tm) {
		t.Errorf("Time() = %v, want %v", got.Time(), tm)
	}
	if got.String() != "2025-07-08 12:30:45" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestRTCTime_IsZero(t *testing.T) {
	if !(RTCTime{}).IsZero() {
		t.Error("zero value should report IsZero")
	}
	if (RTCTime{Year: 2024}).IsZero() {
		t.Error("non-zero value should not report IsZero")
	}
}
