package bme688

import (
	"errors"
	"fmt"
	"time"

	"github.com/afroash/airquality-monitor/internal/bus"
	"github.com/afroash/airquality-monitor/internal/calibration"
	"github.com/afroash/airquality-monitor/internal/hwerr"
	"github.com/afroash/airquality-monitor/internal/models"
	"github.com/rs/zerolog"
)

// ErrNotInitialized is returned when sampling a driver that is not Ready.
var ErrNotInitialized = errors.New("bme688: not initialized")

// State is the driver's position in the init sequence
type State int

const (
	StatePowerOn State = iota
	StateIdentityChecked
	StateReset
	StateConfigured
	StateReady
	StateNotResponding
	StateIdentityMismatch
	StateCalibrationInvalid
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StatePowerOn:
		return "POWER_ON"
	case StateIdentityChecked:
		return "IDENTITY_CHECKED"
	case StateReset:
		return "RESET"
	case StateConfigured:
		return "CONFIGURED"
	case StateReady:
		return "READY"
	case StateNotResponding:
		return "NOT_RESPONDING"
	case StateIdentityMismatch:
		return "IDENTITY_MISMATCH"
	case StateCalibrationInvalid:
		return "CALIBRATION_INVALID"
	default:
		return "UNKNOWN"
	}
}

type regWrite struct {
	reg byte
	val byte
}

// Driver talks to one BME688. It is not safe for concurrent use; the
// monitor loop is its only caller.
type Driver struct {
	bus    bus.Transport
	addr   uint16
	cfg    Config
	logger zerolog.Logger

	state      State
	lastErr    error
	variant    uint8
	coeffs     calibration.Coefficients
	calibrated bool
	ctrlMeas   byte
}

// New creates a driver. It does not touch the bus; call Init.
// A zero addr selects the default address.
func New(t bus.Transport, addr uint16, cfg Config, logger zerolog.Logger) *Driver {
	if addr == 0 {
		addr = Address
	}
	return &Driver{
		bus:    t,
		addr:   addr,
		cfg:    cfg,
		logger: logger,
		state:  StatePowerOn,
	}
}

// Init runs the full sequence from power-on: identity, reset, calibration,
// configuration. Calibration is loaded before configuring because the heater
// code depends on it.
func (d *Driver) Init() error {
	d.state = StatePowerOn
	d.lastErr = nil

	if err := d.VerifyIdentity(); err != nil {
		return err
	}
	if err := d.SoftReset(); err != nil {
		return err
	}
	if _, err := d.LoadCalibration(); err != nil {
		return err
	}
	if err := d.Configure(d.cfg); err != nil {
		return err
	}

	d.state = StateReady
	d.logger.Info().
		Str("address", fmt.Sprintf("0x%02X", d.addr)).
		Uint8("variant", d.variant).
		Dur("measurement", d.cfg.MeasurementDuration()).
		Msg("sensor ready")
	return nil
}

// VerifyIdentity checks the chip id and records the gas variant
func (d *Driver) VerifyIdentity() error {
	id, err := d.bus.Read(d.addr, RegChipID, 1)
	if err != nil {
		return d.fail(fmt.Errorf("bme688: read chip id: %w", err))
	}
	if id[0] != ChipID {
		return d.fail(fmt.Errorf("bme688: chip id 0x%02X, want 0x%02X: %w", id[0], ChipID, hwerr.ErrIdentityMismatch))
	}

	variant, err := d.bus.Read(d.addr, RegVariantID, 1)
	if err != nil {
		return d.fail(fmt.Errorf("bme688: read variant id: %w", err))
	}
	d.variant = variant[0]
	d.state = StateIdentityChecked
	return nil
}

// SoftReset restarts the chip. Coefficients must be reloaded afterwards.
func (d *Driver) SoftReset() error {
	if err := d.bus.Write(d.addr, RegSoftReset, []byte{cmdSoftReset}); err != nil {
		return d.fail(fmt.Errorf("bme688: soft reset: %w", err))
	}
	d.calibrated = false
	time.Sleep(d.cfg.ResetDelay)
	d.state = StateReset
	return nil
}

// LoadCalibration reads and parses the factory coefficients
func (d *Driver) LoadCalibration() (calibration.Coefficients, error) {
	windows := []struct {
		reg byte
		n   int
	}{
		{calibration.Window1Start, calibration.Window1Len},
		{calibration.Window2Start, calibration.Window2Len},
		{calibration.Window3Start, calibration.Window3Len},
	}

	block := make([]byte, 0, calibration.BlockLen)
	for _, w := range windows {
		data, err := d.bus.Read(d.addr, w.reg, w.n)
		if err != nil {
			return calibration.Coefficients{}, d.fail(fmt.Errorf("bme688: read calibration at 0x%02X: %w: %w",
				w.reg, hwerr.ErrCalibrationInvalid, err))
		}
		block = append(block, data...)
	}

	if stuck(block) {
		return calibration.Coefficients{}, d.fail(fmt.Errorf("bme688: calibration block stuck at 0x%02X: %w",
			block[0], hwerr.ErrCalibrationInvalid))
	}

	coeffs, err := calibration.ParseCoefficients(block, d.variant)
	if err != nil {
		return calibration.Coefficients{}, d.fail(fmt.Errorf("bme688: %w", err))
	}
	d.coeffs = coeffs
	d.calibrated = true
	return coeffs, nil
}

// Configure applies cfg. The chip is put to sleep first because it ignores
// configuration changes while measuring.
func (d *Driver) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("bme688: invalid config: %w", err)
	}
	if cfg.GasEnabled() && !d.calibrated {
		return d.fail(fmt.Errorf("bme688: heater setup needs coefficients loaded since the last reset: %w",
			hwerr.ErrCalibrationInvalid))
	}

	ctrlMeas := byte(cfg.Temperature)<<5 | byte(cfg.Pressure)<<2 | byte(Sleep)
	writes := []regWrite{
		{RegCtrlMeas, byte(Sleep)},
		{RegCtrlHum, byte(cfg.Humidity) & humOversampMask},
		{RegConfig, byte(cfg.Filter) << 2},
	}
	if cfg.GasEnabled() {
		runGas := byte(runGasLow)
		if d.variant == calibration.VariantGasHigh {
			runGas = runGasHigh
		}
		ms := uint16(cfg.HeaterDuration / time.Millisecond)
		writes = append(writes,
			regWrite{RegResHeat0, calibration.HeaterResistance(d.coeffs, cfg.HeaterTemp, cfg.AmbientTemp)},
			regWrite{RegGasWait0, calibration.GasWait(ms)},
			regWrite{RegCtrlGas0, 0x00},
			regWrite{RegCtrlGas1, runGas},
		)
	} else {
		writes = append(writes,
			regWrite{RegCtrlGas0, heatOff},
			regWrite{RegCtrlGas1, 0x00},
		)
	}
	writes = append(writes, regWrite{RegCtrlMeas, ctrlMeas})

	for _, w := range writes {
		if err := d.bus.Write(d.addr, w.reg, []byte{w.val}); err != nil {
			return d.fail(fmt.Errorf("bme688: configure register 0x%02X: %w", w.reg, err))
		}
	}

	if budget, need := cfg.PollBudget(), cfg.MeasurementDuration(); budget < need {
		d.logger.Warn().Dur("poll_budget", budget).Dur("measurement", need).
			Msg("poll budget shorter than one measurement cycle")
	}

	d.cfg = cfg
	d.ctrlMeas = ctrlMeas
	// reconfiguring keeps identity and coefficients
	if d.state != StateReady {
		d.state = StateConfigured
	}
	return nil
}

// AcquireRawSample triggers one forced-mode measurement and polls until the
// chip flags new data, at most MaxPolls times.
func (d *Driver) AcquireRawSample() (calibration.RawSample, error) {
	if d.state != StateReady {
		return calibration.RawSample{}, fmt.Errorf("%w (state %s)", ErrNotInitialized, d.state)
	}

	if err := d.bus.Write(d.addr, RegCtrlMeas, []byte{d.ctrlMeas | byte(Forced)}); err != nil {
		return calibration.RawSample{}, d.fail(fmt.Errorf("bme688: trigger measurement: %w", err))
	}

	for poll := 1; poll <= d.cfg.MaxPolls; poll++ {
		field, err := d.bus.Read(d.addr, RegField0, field0Len)
		if err != nil {
			return calibration.RawSample{}, d.fail(fmt.Errorf("bme688: read field 0: %w", err))
		}
		if field[0]&statusNewData != 0 {
			return parseField(field, d.variant), nil
		}
		if poll < d.cfg.MaxPolls {
			time.Sleep(d.cfg.PollInterval)
		}
	}

	return calibration.RawSample{}, d.fail(fmt.Errorf("bme688: no new data after %d polls: %w",
		d.cfg.MaxPolls, hwerr.ErrNotResponding))
}

// Ready reports whether samples can be acquired
func (d *Driver) Ready() bool {
	return d.state == StateReady
}

// State returns the current driver state
func (d *Driver) State() State {
	return d.state
}

// Err returns the failure that moved the driver into its current state, if any
func (d *Driver) Err() error {
	return d.lastErr
}

// Variant returns the gas variant read during VerifyIdentity
func (d *Driver) Variant() uint8 {
	return d.variant
}

// Coefficients returns the coefficients from the last successful load
func (d *Driver) Coefficients() calibration.Coefficients {
	return d.coeffs
}

// Status maps the driver state to the status reported to collaborators
func (d *Driver) Status() models.DeviceStatus {
	switch d.state {
	case StateReady:
		return models.StatusReady
	case StateNotResponding:
		return models.StatusNotResponding
	case StateIdentityMismatch:
		return models.StatusIdentityMismatch
	case StateCalibrationInvalid:
		return models.StatusCalibrationInvalid
	default:
		return models.StatusUninitialized
	}
}

// fail records err and moves the driver to the matching failure state
func (d *Driver) fail(err error) error {
	d.lastErr = err
	switch hwerr.Status(err) {
	case models.StatusIdentityMismatch:
		d.state = StateIdentityMismatch
	case models.StatusCalibrationInvalid:
		d.state = StateCalibrationInvalid
	default:
		d.state = StateNotResponding
	}
	d.logger.Warn().Err(err).Str("state", d.state.String()).Msg("sensor fault")
	return err
}

func stuck(block []byte) bool {
	for _, b := range block[1:] {
		if b != block[0] {
			return false
		}
	}
	return block[0] == 0x00 || block[0] == 0xFF
}

// parseField decodes the 17 byte field-0 block. The gas ADC sits in
// different registers for the two variants.
func parseField(b []byte, variant uint8) calibration.RawSample {
	raw := calibration.RawSample{
		Pressure:    uint32(b[2])<<12 | uint32(b[3])<<4 | uint32(b[4])>>4,
		Temperature: uint32(b[5])<<12 | uint32(b[6])<<4 | uint32(b[7])>>4,
		Humidity:    uint32(b[8])<<8 | uint32(b[9]),
	}

	msb, lsb := b[13], b[14]
	if variant == calibration.VariantGasHigh {
		msb, lsb = b[15], b[16]
	}
	raw.GasADC = uint16(msb)<<2 | uint16(lsb)>>6
	raw.GasRange = lsb & gasRangeMask
	raw.GasValid = lsb&gasValid != 0
	raw.HeaterStable = lsb&heatStable != 0
	return raw
}
