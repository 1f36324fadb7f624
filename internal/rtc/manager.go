package rtc

import (
	"errors"
	"fmt"
	"time"

	"github.com/afroash/airquality-monitor/internal/bus"
	"github.com/afroash/airquality-monitor/internal/hwerr"
	"github.com/afroash/airquality-monitor/internal/models"
	"github.com/rs/zerolog"
)

// ErrInvalidTime is returned when asked to write a time that fails IsTimeValid.
var ErrInvalidTime = errors.New("rtc: invalid time")

// MaxYear is the last year the two-digit year register can hold.
const MaxYear = 2099

// State tracks what is known about the clock content
type State int

const (
	StateUnchecked State = iota
	StateValid
	StateInvalid
	StateJustSet
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "UNCHECKED"
	case StateValid:
		return "VALID"
	case StateInvalid:
		return "INVALID"
	case StateJustSet:
		return "JUST_SET"
	default:
		return "UNKNOWN"
	}
}

// Config controls the clock manager
type Config struct {
	// Address defaults to 0x6F if zero.
	Address uint16
	// EpochFloor is the earliest year accepted as a real time. A clock that
	// lost power reads as 2000 or whatever it was last set to in the factory.
	EpochFloor int
	// VerifyTolerance is how far the read-back may run ahead of the written
	// time, since the oscillator keeps counting.
	VerifyTolerance time.Duration
}

// DefaultConfig returns the board defaults
func DefaultConfig() Config {
	return Config{
		Address:         Address,
		EpochFloor:      2024,
		VerifyTolerance: 2 * time.Second,
	}
}

// Manager owns the clock. It is not safe for concurrent use.
type Manager struct {
	bus    bus.Transport
	cfg    Config
	logger zerolog.Logger

	state   State
	lastErr error
}

// New creates a clock manager. It does not touch the bus.
func New(t bus.Transport, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.Address == 0 {
		cfg.Address = Address
	}
	return &Manager{
		bus:    t,
		cfg:    cfg,
		logger: logger,
		state:  StateUnchecked,
	}
}

// StartOscillator selects the crystal, enables battery backup and sets the
// start bit, leaving the timekeeping values untouched. A clock that was never
// started or lost all power holds its registers frozen until this runs.
func (m *Manager) StartOscillator() error {
	if err := m.bus.Write(m.cfg.Address, regControl, []byte{0x00}); err != nil {
		m.lastErr = err
		return fmt.Errorf("rtc: write control: %w", err)
	}
	if err := m.setBit(regWeekday, vbatEnBit); err != nil {
		return fmt.Errorf("rtc: enable battery backup: %w", err)
	}
	if err := m.setBit(regSeconds, stBit); err != nil {
		return fmt.Errorf("rtc: start oscillator: %w", err)
	}
	return nil
}

// setBit sets bit in reg with a read-modify-write, skipping the write when
// it is already set
func (m *Manager) setBit(reg, bit byte) error {
	b, err := m.bus.Read(m.cfg.Address, reg, 1)
	if err != nil {
		m.lastErr = err
		return err
	}
	if b[0]&bit != 0 {
		return nil
	}
	if err := m.bus.Write(m.cfg.Address, reg, []byte{b[0] | bit}); err != nil {
		m.lastErr = err
		return err
	}
	m.logger.Debug().Uint8("register", reg).Uint8("bit", bit).Msg("clock control bit set")
	return nil
}

// ReadTime reads all timekeeping registers in one block and decodes them
func (m *Manager) ReadTime() (models.RTCTime, error) {
	b, err := m.bus.Read(m.cfg.Address, regSeconds, timeRegs)
	if err != nil {
		m.lastErr = err
		return models.RTCTime{}, fmt.Errorf("rtc: read time: %w", err)
	}
	m.lastErr = nil

	t := decode(b)
	if m.IsTimeValid(t) {
		m.state = StateValid
	} else {
		m.state = StateInvalid
	}
	return t, nil
}

// IsTimeValid reports whether t is a plausible current time. It never
// touches the bus. The weekday is not checked; SetTime derives it.
func (m *Manager) IsTimeValid(t models.RTCTime) bool {
	switch {
	case t.Year < m.cfg.EpochFloor || t.Year > MaxYear:
		return false
	case t.Month < 1 || t.Month > 12:
		return false
	case t.Day < 1 || t.Day > DaysInMonth(t.Year, t.Month):
		return false
	case t.Hour < 0 || t.Hour > 23:
		return false
	case t.Minute < 0 || t.Minute > 59:
		return false
	case t.Second < 0 || t.Second > 59:
		return false
	}
	return true
}

// SetTime writes candidate in one block with the oscillator and battery
// backup enabled, then reads it back. The weekday is recomputed from the date.
func (m *Manager) SetTime(candidate models.RTCTime) error {
	if !m.IsTimeValid(candidate) {
		return fmt.Errorf("%w: %s", ErrInvalidTime, candidate)
	}
	candidate.Weekday = int(Weekday(candidate.Year, candidate.Month, candidate.Day))

	if err := m.bus.Write(m.cfg.Address, regSeconds, encode(candidate)); err != nil {
		m.lastErr = err
		return fmt.Errorf("rtc: write time: %w", err)
	}

	got, err := m.ReadTime()
	if err != nil {
		return fmt.Errorf("rtc: verify time: %w", err)
	}
	if !m.matches(candidate, got) {
		err := fmt.Errorf("rtc: read back %s after writing %s: %w", got, candidate, hwerr.ErrCalibrationInvalid)
		m.lastErr = err
		m.state = StateInvalid
		return err
	}

	m.state = StateJustSet
	m.logger.Info().Str("time", candidate.String()).Msg("clock set")
	return nil
}

// State returns what is known about the clock content
func (m *Manager) State() State {
	return m.state
}

// Status maps the manager state to the status reported to collaborators
func (m *Manager) Status() models.DeviceStatus {
	if m.lastErr != nil {
		return hwerr.Status(m.lastErr)
	}
	switch m.state {
	case StateValid, StateJustSet:
		return models.StatusReady
	default:
		return models.StatusUninitialized
	}
}

// matches accepts a read-back up to VerifyTolerance ahead of the write. The
// weekday is checked against the read-back date since the chip advances it
// at midnight.
func (m *Manager) matches(want, got models.RTCTime) bool {
	if got.Weekday != int(Weekday(got.Year, got.Month, got.Day)) {
		return false
	}
	drift := got.Time().Sub(want.Time())
	return drift >= 0 && drift <= m.cfg.VerifyTolerance
}

func encode(t models.RTCTime) []byte {
	return []byte{
		EncodeBCD(t.Second) | stBit,
		EncodeBCD(t.Minute),
		EncodeBCD(t.Hour),
		EncodeBCD(t.Weekday+1) | vbatEnBit,
		EncodeBCD(t.Day),
		EncodeBCD(t.Month),
		EncodeBCD(t.Year - 2000),
	}
}

func decode(b []byte) models.RTCTime {
	t := models.RTCTime{
		Second:  DecodeBCD(b[0] & secondMask),
		Minute:  DecodeBCD(b[1] & minuteMask),
		Weekday: DecodeBCD(b[3]&wkdayMask) - 1,
		Day:     DecodeBCD(b[4] & dateMask),
		Month:   DecodeBCD(b[5] & monthMask),
		Year:    2000 + DecodeBCD(b[6]),
	}
	if b[2]&hour12Bit != 0 {
		t.Hour = DecodeBCD(b[2]&hour12Mask) % 12
		if b[2]&pmBit != 0 {
			t.Hour += 12
		}
	} else {
		t.Hour = DecodeBCD(b[2] & hour24Mask)
	}
	return t
}
