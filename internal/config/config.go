package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/afroash/airquality-monitor/internal/bme688"
	"github.com/afroash/airquality-monitor/internal/bus"
	"github.com/afroash/airquality-monitor/internal/calibration"
	"github.com/afroash/airquality-monitor/internal/display"
	"github.com/afroash/airquality-monitor/internal/models"
	"github.com/afroash/airquality-monitor/internal/rtc"
	"github.com/afroash/airquality-monitor/internal/storage"
)

// Config holds all configuration for the monitor process
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Bus        BusConfig        `yaml:"bus"`
	RTC        RTCConfig        `yaml:"rtc"`
	Sensor     SensorConfig     `yaml:"sensor"`
	AirQuality AirQualityConfig `yaml:"air_quality"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DeviceConfig identifies the board
type DeviceConfig struct {
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
}

// Addresses of the board peripherals the monitor only checks for at startup
const (
	DefaultDisplayAddress uint16 = 0x3C
	DefaultEEPROMAddress  uint16 = 0x54
)

// BusConfig selects the I2C bus
type BusConfig struct {
	// Name is passed to i2creg.Open; empty opens the first bus found.
	Name string `yaml:"name"`
	// Simulate runs against an in-memory board instead of hardware.
	Simulate bool `yaml:"simulate"`
	// DisplayAddress and EEPROMAddress are included in the startup scan.
	DisplayAddress uint16 `yaml:"display_address"`
	EEPROMAddress  uint16 `yaml:"eeprom_address"`
}

// RTCConfig contains clock settings
type RTCConfig struct {
	Address         uint16        `yaml:"address"`
	EpochFloor      int           `yaml:"epoch_floor"`
	VerifyTolerance time.Duration `yaml:"verify_tolerance"`
	// SetTime is written to a clock that reads as invalid, as RFC 3339 or
	// "2006-01-02 15:04:05" UTC. Empty uses the host clock.
	SetTime string `yaml:"set_time"`
}

// SensorConfig contains BME688 measurement settings. Oversampling values
// are multipliers (0 skips the channel) and FilterSize is the IIR size.
type SensorConfig struct {
	Address                 uint16        `yaml:"address"`
	TemperatureOversampling int           `yaml:"temperature_oversampling"`
	PressureOversampling    int           `yaml:"pressure_oversampling"`
	HumidityOversampling    int           `yaml:"humidity_oversampling"`
	FilterSize              int           `yaml:"filter_size"`
	HeaterTempC             int           `yaml:"heater_temp_c"`
	HeaterDuration          time.Duration `yaml:"heater_duration"`
	AmbientTempC            int           `yaml:"ambient_temp_c"`
	PollInterval            time.Duration `yaml:"poll_interval"`
	MaxPolls                int           `yaml:"max_polls"`
	ResetDelay              time.Duration `yaml:"reset_delay"`
}

// AirQualityConfig tunes the IAQ scale
type AirQualityConfig struct {
	GasBaseline      float64   `yaml:"gas_baseline"`
	HumidityBaseline float64   `yaml:"humidity_baseline"`
	HumidityWeight   float64   `yaml:"humidity_weight"`
	Thresholds       []float64 `yaml:"thresholds"`
}

// MonitorConfig contains poll loop and presentation settings
type MonitorConfig struct {
	Interval        time.Duration `yaml:"interval"`
	HistorySize     int           `yaml:"history_size"`
	Display         bool          `yaml:"display"`
	DisplayWidth    int           `yaml:"display_width"`
	TemperatureUnit string        `yaml:"temperature_unit"`
}

// DatabaseConfig contains SQLite logging settings
type DatabaseConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	BatchSize     int           `yaml:"batch_size"`
	FlushPeriod   time.Duration `yaml:"flush_period"`
	ChannelSize   int           `yaml:"channel_size"`
	RetentionDays int           `yaml:"retention_days"`
	MaxRows       int64         `yaml:"max_rows"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// DefaultSensorConfig mirrors bme688.DefaultConfig in file units
func DefaultSensorConfig() SensorConfig {
	return SensorConfig{
		Address:                 bme688.Address,
		TemperatureOversampling: 2,
		PressureOversampling:    16,
		HumidityOversampling:    2,
		FilterSize:              3,
		HeaterTempC:             320,
		HeaterDuration:          150 * time.Millisecond,
		AmbientTempC:            25,
		PollInterval:            10 * time.Millisecond,
		MaxPolls:                50,
		ResetDelay:              10 * time.Millisecond,
	}
}

// DefaultAirQualityConfig mirrors calibration.DefaultScale
func DefaultAirQualityConfig() AirQualityConfig {
	s := calibration.DefaultScale()
	return AirQualityConfig{
		GasBaseline:      s.GasBaseline,
		HumidityBaseline: s.HumidityBaseline,
		HumidityWeight:   s.HumidityWeight,
		Thresholds:       s.Thresholds[:],
	}
}

// LoadConfig loads configuration from a YAML file.
// The sensor and air quality sections start from their defaults so a file
// may set any single field, including zeros such as heater_temp_c: 0.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, defaults, overrides and validates a YAML document
func Parse(data []byte) (*Config, error) {
	config := Config{
		Sensor:     DefaultSensorConfig(),
		AirQuality: DefaultAirQualityConfig(),
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyDefaults()
	if err := config.OverrideFromEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for any unset fields
func (c *Config) ApplyDefaults() {
	if c.Device.ID == "" {
		c.Device.ID = "airquality-01"
	}
	if c.Bus.DisplayAddress == 0 {
		c.Bus.DisplayAddress = DefaultDisplayAddress
	}
	if c.Bus.EEPROMAddress == 0 {
		c.Bus.EEPROMAddress = DefaultEEPROMAddress
	}
	if c.RTC.Address == 0 {
		c.RTC.Address = rtc.Address
	}
	if c.RTC.EpochFloor == 0 {
		c.RTC.EpochFloor = rtc.DefaultConfig().EpochFloor
	}
	if c.RTC.VerifyTolerance == 0 {
		c.RTC.VerifyTolerance = rtc.DefaultConfig().VerifyTolerance
	}
	if c.Sensor.Address == 0 {
		c.Sensor.Address = bme688.Address
	}
	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = 30 * time.Second
	}
	if c.Monitor.HistorySize == 0 {
		c.Monitor.HistorySize = 120
	}
	if c.Monitor.DisplayWidth == 0 {
		c.Monitor.DisplayWidth = display.DefaultWidth
	}
	if c.Monitor.TemperatureUnit == "" {
		c.Monitor.TemperatureUnit = string(display.Celsius)
	}

	writer := storage.DefaultDBWriterConfig()
	cleaner := storage.DefaultRetentionCleanerConfig()
	if c.Database.Path == "" {
		c.Database.Path = "airquality.db"
	}
	if c.Database.BatchSize == 0 {
		c.Database.BatchSize = writer.BatchSize
	}
	if c.Database.FlushPeriod == 0 {
		c.Database.FlushPeriod = writer.FlushPeriod
	}
	if c.Database.ChannelSize == 0 {
		c.Database.ChannelSize = writer.ChannelSize
	}
	if c.Database.RetentionDays == 0 {
		c.Database.RetentionDays = cleaner.RetentionDays
	}
	if c.Database.CleanupPeriod == 0 {
		c.Database.CleanupPeriod = cleaner.CleanupPeriod
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// OverrideFromEnv overrides config values from environment variables.
// Unset or empty variables leave the file value alone.
func (c *Config) OverrideFromEnv() error {
	if v := os.Getenv("DEVICE_ID"); v != "" {
		c.Device.ID = v
	}
	if v := os.Getenv("DEVICE_LOCATION"); v != "" {
		c.Device.Location = v
	}
	if v := os.Getenv("I2C_BUS"); v != "" {
		c.Bus.Name = v
	}
	if v := os.Getenv("BUS_SIMULATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BUS_SIMULATE: %w", err)
		}
		c.Bus.Simulate = b
	}
	if v := os.Getenv("MONITOR_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MONITOR_INTERVAL: %w", err)
		}
		c.Monitor.Interval = d
	}
	if v := os.Getenv("RTC_SET_TIME"); v != "" {
		c.RTC.SetTime = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Device.ID == "" {
		errs = append(errs, errors.New("device ID is required"))
	}

	if !validAddress(c.Bus.DisplayAddress) {
		errs = append(errs, fmt.Errorf("display address 0x%02X out of range", c.Bus.DisplayAddress))
	}
	if !validAddress(c.Bus.EEPROMAddress) {
		errs = append(errs, fmt.Errorf("eeprom address 0x%02X out of range", c.Bus.EEPROMAddress))
	}
	if !validAddress(c.RTC.Address) {
		errs = append(errs, fmt.Errorf("rtc address 0x%02X out of range", c.RTC.Address))
	}
	if c.RTC.EpochFloor < 2000 || c.RTC.EpochFloor > rtc.MaxYear {
		errs = append(errs, fmt.Errorf("rtc epoch floor %d must be between 2000 and %d", c.RTC.EpochFloor, rtc.MaxYear))
	}
	if c.RTC.VerifyTolerance < 0 {
		errs = append(errs, errors.New("rtc verify tolerance must not be negative"))
	}
	if _, err := c.RTC.InitialTime(time.Now()); err != nil {
		errs = append(errs, err)
	}

	if !validAddress(c.Sensor.Address) {
		errs = append(errs, fmt.Errorf("sensor address 0x%02X out of range", c.Sensor.Address))
	}
	if c.Sensor.Address == c.RTC.Address {
		errs = append(errs, errors.New("sensor and rtc share an address"))
	}
	if _, err := c.Sensor.DriverConfig(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.AirQuality.Scale(); err != nil {
		errs = append(errs, err)
	}

	if c.Monitor.Interval < time.Second {
		errs = append(errs, errors.New("monitor interval must be at least 1 second"))
	}
	if c.Monitor.HistorySize < 1 || c.Monitor.HistorySize > 100000 {
		errs = append(errs, errors.New("history size must be between 1 and 100000"))
	}
	if c.Monitor.DisplayWidth < 8 {
		errs = append(errs, errors.New("display width must be at least 8"))
	}
	if _, err := display.ParseUnit(c.Monitor.TemperatureUnit); err != nil {
		errs = append(errs, err)
	}

	if c.Database.Enabled {
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database path is required"))
		}
		if c.Database.RetentionDays < 1 {
			errs = append(errs, errors.New("retention days must be at least 1"))
		}
		if c.Database.MaxRows < 0 {
			errs = append(errs, errors.New("max rows must not be negative"))
		}
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be json or console", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// String returns a one-line summary
func (c *Config) String() string {
	return fmt.Sprintf("Config{Device: %s@%s, Bus: %q simulate=%t, RTC: 0x%02X, Sensor: 0x%02X, Interval: %s, DB: %t}",
		c.Device.ID,
		c.Device.Location,
		c.Bus.Name,
		c.Bus.Simulate,
		c.RTC.Address,
		c.Sensor.Address,
		c.Monitor.Interval,
		c.Database.Enabled,
	)
}

// Devices lists every peripheral expected on the bus, in scan order
func (c *Config) Devices() []bus.Device {
	return []bus.Device{
		{Name: "rtc", Addr: c.RTC.Address},
		{Name: "bme688", Addr: c.Sensor.Address},
		{Name: "display", Addr: c.Bus.DisplayAddress},
		{Name: "eeprom", Addr: c.Bus.EEPROMAddress},
	}
}

func validAddress(addr uint16) bool {
	return addr >= 0x08 && addr <= bus.MaxAddress
}

// ManagerConfig converts to the clock manager's settings
func (r RTCConfig) ManagerConfig() rtc.Config {
	return rtc.Config{
		Address:         r.Address,
		EpochFloor:      r.EpochFloor,
		VerifyTolerance: r.VerifyTolerance,
	}
}

// InitialTime is the time written to a clock that lost power
func (r RTCConfig) InitialTime(now time.Time) (models.RTCTime, error) {
	if r.SetTime == "" {
		return models.RTCTimeFrom(now.UTC()), nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, r.SetTime); err == nil {
			return models.RTCTimeFrom(t.UTC()), nil
		}
	}
	return models.RTCTime{}, fmt.Errorf("rtc set_time %q is not RFC 3339 or YYYY-MM-DD HH:MM:SS", r.SetTime)
}

// DriverConfig converts to a validated bme688.Config
func (s SensorConfig) DriverConfig() (bme688.Config, error) {
	cfg := bme688.Config{
		HeaterDuration: s.HeaterDuration,
		PollInterval:   s.PollInterval,
		MaxPolls:       s.MaxPolls,
		ResetDelay:     s.ResetDelay,
	}

	var err error
	if cfg.Temperature, err = bme688.OversamplingFromMultiplier(s.TemperatureOversampling); err != nil {
		return cfg, fmt.Errorf("temperature: %w", err)
	}
	if cfg.Pressure, err = bme688.OversamplingFromMultiplier(s.PressureOversampling); err != nil {
		return cfg, fmt.Errorf("pressure: %w", err)
	}
	if cfg.Humidity, err = bme688.OversamplingFromMultiplier(s.HumidityOversampling); err != nil {
		return cfg, fmt.Errorf("humidity: %w", err)
	}
	if cfg.Filter, err = bme688.FilterFromSize(s.FilterSize); err != nil {
		return cfg, err
	}

	if s.HeaterTempC < 0 || s.HeaterTempC > 0xFFFF {
		return cfg, fmt.Errorf("heater temperature %d°C out of range", s.HeaterTempC)
	}
	cfg.HeaterTemp = uint16(s.HeaterTempC)

	if s.AmbientTempC < -40 || s.AmbientTempC > 85 {
		return cfg, fmt.Errorf("ambient temperature %d°C out of range", s.AmbientTempC)
	}
	cfg.AmbientTemp = int8(s.AmbientTempC)

	return cfg, cfg.Validate()
}

// Scale converts to a validated calibration.AirQualityScale
func (a AirQualityConfig) Scale() (calibration.AirQualityScale, error) {
	s := calibration.AirQualityScale{
		GasBaseline:      a.GasBaseline,
		HumidityBaseline: a.HumidityBaseline,
		HumidityWeight:   a.HumidityWeight,
	}
	if len(a.Thresholds) != len(s.Thresholds) {
		return s, fmt.Errorf("air quality needs %d thresholds, got %d", len(s.Thresholds), len(a.Thresholds))
	}
	copy(s.Thresholds[:], a.Thresholds)

	return s, s.Validate()
}

// Unit returns the display temperature unit
func (m MonitorConfig) Unit() display.Unit {
	u, err := display.ParseUnit(m.TemperatureUnit)
	if err != nil {
		return display.Celsius
	}
	return u
}

// WriterConfig converts to the async writer's settings
func (d DatabaseConfig) WriterConfig() storage.DBWriterConfig {
	return storage.DBWriterConfig{
		BatchSize:   d.BatchSize,
		FlushPeriod: d.FlushPeriod,
		ChannelSize: d.ChannelSize,
	}
}

// CleanerConfig converts to the retention cleaner's settings
func (d DatabaseConfig) CleanerConfig() storage.RetentionCleanerConfig {
	return storage.RetentionCleanerConfig{
		RetentionDays: d.RetentionDays,
		MaxRows:       d.MaxRows,
		CleanupPeriod: d.CleanupPeriod,
	}
}

// NewLogger builds the process logger writing to w
func (l LoggingConfig) NewLogger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}

	if l.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
