package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/afroash/airquality-monitor/internal/calibration"
	"github.com/afroash/airquality-monitor/internal/hwerr"
	"github.com/afroash/airquality-monitor/internal/models"
	"github.com/rs/zerolog"
)

// MockClock is a mock implementation of Clock for testing
type MockClock struct {
	now        models.RTCTime
	valid      bool
	readErr    error
	setErr     error
	startErr   error
	setCalls   []models.RTCTime
	startCalls int
}

func (c *MockClock) StartOscillator() error {
	c.startCalls++
	return c.startErr
}

func (c *MockClock) ReadTime() (models.RTCTime, error) {
	if c.readErr != nil {
		return models.RTCTime{}, c.readErr
	}
	return c.now, nil
}

func (c *MockClock) IsTimeValid(models.RTCTime) bool { return c.valid }

func (c *MockClock) SetTime(t models.RTCTime) error {
	c.setCalls = append(c.setCalls, t)
	if c.setErr != nil {
		return c.setErr
	}
	c.now, c.valid = t, true
	return nil
}

func (c *MockClock) Status() models.DeviceStatus {
	if c.readErr != nil {
		return models.StatusNotResponding
	}
	return models.StatusReady
}

// MockSensor is a mock implementation of Sensor for testing
type MockSensor struct {
	initErr   error
	sampleErr error
	ready     bool
	initCalls int
	raw       calibration.RawSample
}

func (s *MockSensor) Init() error {
	s.initCalls++
	s.ready = s.initErr == nil
	return s.initErr
}

func (s *MockSensor) Ready() bool { return s.ready }

func (s *MockSensor) AcquireRawSample() (calibration.RawSample, error) {
	if s.sampleErr != nil {
		s.ready = false
		return calibration.RawSample{}, s.sampleErr
	}
	return s.raw, nil
}

func (s *MockSensor) Coefficients() calibration.Coefficients { return calibration.Coefficients{} }

func (s *MockSensor) Status() models.DeviceStatus {
	if s.ready {
		return models.StatusReady
	}
	if s.initErr != nil {
		return hwerr.Status(s.initErr)
	}
	if s.sampleErr != nil {
		return hwerr.Status(s.sampleErr)
	}
	return models.StatusUninitialized
}

// recordingSink collects published results
type recordingSink struct {
	mu      sync.Mutex
	results []models.PollResult
}

func (r *recordingSink) Publish(result models.PollResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingSink) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func newTestMonitor(clock Clock, sensor Sensor) *Monitor {
	info := models.NewSensorInfo("board-01", "Test Lab", "BME688", "v1.0.0")
	return New(clock, sensor, calibration.NewEngine(), info, 50*time.Millisecond, zerolog.Nop())
}

var candidate = models.RTCTime{Year: 2025, Month: 7, Day: 8, Hour: 12, Minute: 30}

func TestStartup_ValidClockIsLeftAlone(t *testing.T) {
	clock := &MockClock{now: candidate, valid: true}
	sensor := &MockSensor{}
	m := newTestMonitor(clock, sensor)

	m.Startup(func() models.RTCTime {
		t.Error("candidate time requested for a valid clock")
		return candidate
	})

	if len(clock.setCalls) != 0 {
		t.Errorf("SetTime called %d times, want 0", len(clock.setCalls))
	}
	if sensor.initCalls != 1 {
		t.Errorf("sensor Init called %d times, want 1", sensor.initCalls)
	}
}

func TestStartup_InvalidClockIsSet(t *testing.T) {
	clock := &MockClock{now: models.RTCTime{Year: 2022, Month: 1, Day: 1}}
	m := newTestMonitor(clock, &MockSensor{})

	m.Startup(func() models.RTCTime { return candidate })

	if len(clock.setCalls) != 1 || clock.setCalls[0] != candidate {
		t.Errorf("SetTime calls = %v, want [%s]", clock.setCalls, candidate)
	}
}

func TestStartup_FailuresAreNotFatal(t *testing.T) {
	clock := &MockClock{readErr: hwerr.ErrBus}
	sensor := &MockSensor{initErr: hwerr.ErrIdentityMismatch}
	m := newTestMonitor(clock, sensor)

	m.Startup(func() models.RTCTime { return candidate })

	if sensor.initCalls != 1 {
		t.Errorf("sensor Init should run even when the clock fails")
	}
	if len(clock.setCalls) != 0 {
		t.Error("unreadable clock should not be set")
	}
}

func TestStartup_OscillatorFailureIsNotFatal(t *testing.T) {
	clock := &MockClock{now: candidate, valid: true, startErr: hwerr.ErrBus}
	sensor := &MockSensor{}
	m := newTestMonitor(clock, sensor)

	m.Startup(func() models.RTCTime { return candidate })

	if clock.startCalls != 1 {
		t.Errorf("StartOscillator called %d times, want 1", clock.startCalls)
	}
	if sensor.initCalls != 1 {
		t.Error("sensor Init should run when the oscillator fails to start")
	}
}

// TestPollOnce_SetsClockAfterFailedStartup tests a clock that was unreadable
// at startup and comes back with a lost time
func TestPollOnce_SetsClockAfterFailedStartup(t *testing.T) {
	clock := &MockClock{readErr: hwerr.ErrBus}
	m := newTestMonitor(clock, &MockSensor{ready: true})
	m.Startup(func() models.RTCTime { return candidate })

	clock.readErr = nil
	clock.now = models.RTCTime{Year: 2000, Month: 1, Day: 1}
	result := m.PollOnce()

	if len(clock.setCalls) != 1 || clock.setCalls[0] != candidate {
		t.Fatalf("SetTime calls = %v, want [%s]", clock.setCalls, candidate)
	}
	if result.Time != candidate {
		t.Errorf("Time = %s, want %s", result.Time, candidate)
	}
	if result.ClockStatus != models.StatusReady || result.Err != "" {
		t.Errorf("result = %s, want a healthy clock", result.String())
	}

	m.PollOnce()
	if len(clock.setCalls) != 1 {
		t.Errorf("SetTime called %d times, a valid clock should be left alone", len(clock.setCalls))
	}
}

func TestPollOnce_RetriesFailedSet(t *testing.T) {
	clock := &MockClock{now: models.RTCTime{Year: 2000, Month: 1, Day: 1}, setErr: hwerr.ErrCalibrationInvalid}
	m := newTestMonitor(clock, &MockSensor{ready: true})
	m.Startup(func() models.RTCTime { return candidate })

	result := m.PollOnce()

	if len(clock.setCalls) != 2 {
		t.Errorf("SetTime called %d times, want once at startup and once per poll", len(clock.setCalls))
	}
	if result.Err == "" {
		t.Error("failed set should be reported in the result")
	}
}

func TestPollOnce_BeforeStartupOnlyReadsClock(t *testing.T) {
	clock := &MockClock{now: models.RTCTime{Year: 2000, Month: 1, Day: 1}}
	m := newTestMonitor(clock, &MockSensor{ready: true})

	m.PollOnce()

	if len(clock.setCalls) != 0 {
		t.Errorf("SetTime called %d times before Startup", len(clock.setCalls))
	}
}

func TestPollOnce(t *testing.T) {
	clock := &MockClock{now: candidate, valid: true}
	sensor := &MockSensor{ready: true}
	m := newTestMonitor(clock, sensor)

	result := m.PollOnce()

	if result.SensorID != "board-01" {
		t.Errorf("SensorID = %q, want board-01", result.SensorID)
	}
	if result.Time != candidate {
		t.Errorf("Time = %s, want %s", result.Time, candidate)
	}
	if !result.Healthy() || result.Err != "" {
		t.Errorf("result should be healthy: %s", result.String())
	}
	if sensor.initCalls != 0 {
		t.Error("ready sensor should not be re-initialised")
	}
}

func TestPollOnce_ReinitialisesSensor(t *testing.T) {
	clock := &MockClock{now: candidate, valid: true}
	sensor := &MockSensor{}
	m := newTestMonitor(clock, sensor)

	result := m.PollOnce()

	if sensor.initCalls != 1 {
		t.Errorf("Init called %d times, want 1", sensor.initCalls)
	}
	if result.Status != models.StatusReady {
		t.Errorf("Status = %v, want READY", result.Status)
	}
}

func TestPollOnce_Degraded(t *testing.T) {
	tests := []struct {
		name       string
		clock      *MockClock
		sensor     *MockSensor
		wantStatus models.DeviceStatus
		wantClock  models.DeviceStatus
	}{
		{
			name:       "sensor not responding",
			clock:      &MockClock{now: candidate, valid: true},
			sensor:     &MockSensor{ready: true, sampleErr: hwerr.ErrNotResponding},
			wantStatus: models.StatusNotResponding,
			wantClock:  models.StatusReady,
		},
		{
			name:       "wrong chip",
			clock:      &MockClock{now: candidate, valid: true},
			sensor:     &MockSensor{initErr: hwerr.ErrIdentityMismatch},
			wantStatus: models.StatusIdentityMismatch,
			wantClock:  models.StatusReady,
		},
		{
			name:       "clock unreadable",
			clock:      &MockClock{readErr: hwerr.ErrBus},
			sensor:     &MockSensor{ready: true},
			wantStatus: models.StatusReady,
			wantClock:  models.StatusNotResponding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMonitor(tt.clock, tt.sensor)
			result := m.PollOnce()

			if result.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", result.Status, tt.wantStatus)
			}
			if result.ClockStatus != tt.wantClock {
				t.Errorf("ClockStatus = %v, want %v", result.ClockStatus, tt.wantClock)
			}
			if result.Err == "" {
				t.Error("degraded result should carry the error")
			}
			if result.Healthy() {
				t.Error("degraded result reported healthy")
			}
		})
	}
}

func TestPollOnce_PublishesToSinks(t *testing.T) {
	m := newTestMonitor(&MockClock{now: candidate, valid: true}, &MockSensor{ready: true})
	first, second := &recordingSink{}, &recordingSink{}
	m.AddSink(first)
	m.AddSink(second)

	m.PollOnce()
	m.PollOnce()

	if first.Len() != 2 || second.Len() != 2 {
		t.Errorf("sinks received %d and %d results, want 2 each", first.Len(), second.Len())
	}
	if len(m.Results()) != 2 {
		t.Errorf("Results() holds %d results, want 2", len(m.Results()))
	}
}

func TestPollOnce_FullChannelDoesNotBlock(t *testing.T) {
	m := newTestMonitor(&MockClock{now: candidate, valid: true}, &MockSensor{ready: true})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 25; i++ {
			m.PollOnce()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PollOnce blocked on a full results channel")
	}
	if len(m.Results()) != cap(m.results) {
		t.Errorf("Results() holds %d, want %d", len(m.Results()), cap(m.results))
	}
}

func TestMonitor_Start(t *testing.T) {
	m := newTestMonitor(&MockClock{now: candidate, valid: true}, &MockSensor{ready: true})
	sink := &recordingSink{}
	m.AddSink(sink)

	ctx, cancel := context.WithTimeout(context.Background(), 275*time.Millisecond)
	defer cancel()

	err := m.Start(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Start() error = %v, want deadline exceeded", err)
	}

	// 50ms interval over 275ms
	if n := sink.Len(); n < 3 || n > 6 {
		t.Errorf("got %d polls, want about 5", n)
	}
}
