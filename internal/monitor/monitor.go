// Package monitor runs the board's measurement cycle: make sure the clock
// holds a real time, bring the sensor up, then poll it at a fixed cadence and
// hand every result to the display, logging and history collaborators.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afroash/airquality-monitor/internal/calibration"
	"github.com/afroash/airquality-monitor/internal/models"
	"github.com/rs/zerolog"
)

// Monitor orchestrates the clock and the sensor
type Monitor struct {
	clock    Clock
	sensor   Sensor
	engine   calibration.Engine
	info     *models.SensorInfo
	interval time.Duration
	logger   zerolog.Logger
	sinks    []Sink
	results  chan models.PollResult

	// now supplies the candidate time when the clock needs setting. Nil
	// until Startup.
	now func() models.RTCTime
}

// New creates a monitor. Nothing touches the bus until Startup.
func New(clock Clock, sensor Sensor, engine calibration.Engine, info *models.SensorInfo, interval time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		clock:    clock,
		sensor:   sensor,
		engine:   engine,
		info:     info,
		interval: interval,
		logger:   logger,
		results:  make(chan models.PollResult, 10),
	}
}

// AddSink registers a collaborator. Call before Start.
func (m *Monitor) AddSink(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Startup starts the clock oscillator, sets the clock from now only when it
// does not hold a valid time, then initialises the sensor. Failures are
// logged and show up in the status of the next poll, which retries the
// clock; the caller carries on either way.
func (m *Monitor) Startup(now func() models.RTCTime) {
	m.now = now

	if err := m.clock.StartOscillator(); err != nil {
		m.logger.Error().Err(err).Msg("failed to start clock oscillator")
	}
	if t, err := m.syncClock(); err != nil {
		m.logger.Error().Err(err).Msg("clock not set")
	} else {
		m.logger.Info().Str("time", t.String()).Msg("clock time")
	}

	if err := m.sensor.Init(); err != nil {
		m.logger.Error().Err(err).Msg("failed to initialise sensor")
	}
}

// syncClock reads the clock and, when it holds no valid time, sets it from
// the candidate source and reads it again. Before Startup the time is only
// read.
func (m *Monitor) syncClock() (models.RTCTime, error) {
	t, err := m.clock.ReadTime()
	if err != nil {
		return t, err
	}
	if m.clock.IsTimeValid(t) || m.now == nil {
		return t, nil
	}

	candidate := m.now()
	m.logger.Warn().Str("clock", t.String()).Str("candidate", candidate.String()).
		Msg("clock time invalid, setting it")
	if err := m.clock.SetTime(candidate); err != nil {
		return t, fmt.Errorf("set clock: %w", err)
	}
	return m.clock.ReadTime()
}

// Start polls at the configured interval until ctx is cancelled
func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.PollOnce()
		}
	}
}

// PollOnce runs one cycle: read the clock and set it if it still holds no
// valid time, re-initialise the sensor if it is not ready, acquire and
// compensate a sample, then publish the result. A failing device degrades
// its status in the result and nothing else.
func (m *Monitor) PollOnce() models.PollResult {
	result := models.PollResult{SensorID: m.info.ID}
	var errs []error

	t, err := m.syncClock()
	if err != nil {
		errs = append(errs, err)
	}
	result.Time = t
	result.ClockStatus = m.clock.Status()

	if err := m.sample(&result); err != nil {
		errs = append(errs, err)
	}
	result.Status = m.sensor.Status()

	if err := errors.Join(errs...); err != nil {
		result.Err = err.Error()
		m.logger.Warn().Err(err).
			Str("sensor", result.Status.String()).
			Str("clock", result.ClockStatus.String()).
			Msg("degraded poll")
	}

	m.publish(result)
	return result
}

func (m *Monitor) sample(result *models.PollResult) error {
	if !m.sensor.Ready() {
		if err := m.sensor.Init(); err != nil {
			return err
		}
		m.logger.Info().Msg("sensor recovered")
	}

	raw, err := m.sensor.AcquireRawSample()
	if err != nil {
		return err
	}
	result.Reading = m.engine.Compensate(m.sensor.Coefficients(), raw)
	return nil
}

// publish fans the result out to the channel and every sink
func (m *Monitor) publish(result models.PollResult) {
	select {
	case m.results <- result:
	default:
		m.logger.Warn().Msg("results channel full, dropping poll result")
	}
	for _, s := range m.sinks {
		s.Publish(result)
	}
	if result.HasReading() {
		m.logger.Info().Msgf("poll: %s", result.String())
	}
}

// Results returns the channel where poll results are published
func (m *Monitor) Results() <-chan models.PollResult {
	return m.results
}
