package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/afroash/airquality-monitor/internal/bme688"
	"github.com/afroash/airquality-monitor/internal/bus"
	"github.com/afroash/airquality-monitor/internal/calibration"
	"github.com/afroash/airquality-monitor/internal/config"
	"github.com/afroash/airquality-monitor/internal/display"
	"github.com/afroash/airquality-monitor/internal/history"
	"github.com/afroash/airquality-monitor/internal/models"
	"github.com/afroash/airquality-monitor/internal/monitor"
	"github.com/afroash/airquality-monitor/internal/rtc"
	"github.com/afroash/airquality-monitor/internal/simboard"
	"github.com/afroash/airquality-monitor/internal/storage"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "configs/monitor.yaml", "path to config file")
	simulate := flag.Bool("simulate", false, "run against an in-memory board instead of /dev/i2c")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *simulate {
		cfg.Bus.Simulate = true
	}

	logger, err := cfg.Logging.NewLogger(os.Stdout)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info().
		Str("version", version).
		Str("device_id", cfg.Device.ID).
		Bool("simulate", cfg.Bus.Simulate).
		Dur("interval", cfg.Monitor.Interval).
		Msg("Starting air quality monitor")

	transport, closeBus, err := openBus(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open I2C bus")
	}
	defer closeBus()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hist := history.NewBuffer(cfg.Monitor.HistorySize, true)

	if err := run(ctx, cfg, transport, hist, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Monitor stopped with error")
		os.Exit(1)
	}

	stats := hist.Stats()
	logger.Info().
		Str("history", hist.String()).
		Int64("pushed", stats.TotalPushed).
		Int("high_water", stats.HighWaterMark).
		Msg("Monitor stopped")
}

// openBus returns the transport both devices share and a function that
// releases it
func openBus(cfg *config.Config) (bus.Transport, func() error, error) {
	if cfg.Bus.Simulate {
		opts := simboard.DefaultOptions()
		opts.RTCAddress = cfg.RTC.Address
		opts.SensorAddress = cfg.Sensor.Address
		opts.Peripherals = []uint16{cfg.Bus.DisplayAddress, cfg.Bus.EEPROMAddress}
		opts.Ticking = true
		return simboard.New(opts), func() error { return nil }, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("host init: %w", err)
	}
	b, err := i2creg.Open(cfg.Bus.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("open i2c bus %q: %w", cfg.Bus.Name, err)
	}
	return bus.NewReal(b), b.Close, nil
}

// run wires the devices and collaborators onto transport and polls until
// ctx is done
func run(ctx context.Context, cfg *config.Config, transport bus.Transport, hist *history.Buffer, logger zerolog.Logger) error {
	driverCfg, err := cfg.Sensor.DriverConfig()
	if err != nil {
		return err
	}
	scale, err := cfg.AirQuality.Scale()
	if err != nil {
		return err
	}

	clock := rtc.New(transport, cfg.RTC.ManagerConfig(),
		logger.With().Str("component", "rtc").Logger())
	sensor := bme688.New(transport, cfg.Sensor.Address, driverCfg,
		logger.With().Str("component", "bme688").Logger())

	info := models.NewSensorInfo(cfg.Device.ID, cfg.Device.Location, "BME688", version)
	mon := monitor.New(clock, sensor, calibration.Engine{Scale: scale}, info, cfg.Monitor.Interval,
		logger.With().Str("component", "monitor").Logger())

	mon.AddSink(hist)

	if cfg.Monitor.Display {
		mon.AddSink(display.NewSink(os.Stdout, cfg.Monitor.DisplayWidth, cfg.Monitor.Unit(), hist, logger))
	}

	if cfg.Database.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := storage.NewSQLiteStore(cfg.Database.Path, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		logStorage(store, cfg.Device.ID, "Database opened", logger)
		restoreHistory(store, hist, cfg, logger)

		writer := storage.NewDBWriter(store, cfg.Database.WriterConfig(), logger)
		defer writer.Stop()
		cleaner := storage.NewRetentionCleaner(store, cfg.Database.CleanerConfig(), logger)
		defer cleaner.Stop()

		started := time.Now().UTC()
		defer func() {
			writer.Flush()
			logStatusCounts(store, cfg.Device.ID, started, logger)
			logStorage(store, cfg.Device.ID, "Database closed", logger)
		}()

		mon.AddSink(writer)
	}

	logger.Info().Stringer("board", info).Msg("Board wired")

	if scanBus(transport, cfg.Devices(), logger) == 0 {
		logger.Error().Msg("No I2C devices found")
	}

	go watchResults(ctx, mon.Results(), logger)

	mon.Startup(func() models.RTCTime {
		t, err := cfg.RTC.InitialTime(time.Now())
		if err != nil {
			logger.Error().Err(err).Msg("Invalid set_time, using host clock")
			return models.RTCTimeFrom(time.Now().UTC())
		}
		return t
	})

	mon.PollOnce()
	return mon.Start(ctx)
}

// scanBus logs which board devices acknowledge and returns how many did
func scanBus(transport bus.Transport, devices []bus.Device, logger zerolog.Logger) int {
	found := 0
	for _, p := range bus.Scan(transport, devices) {
		if p.Found() {
			found++
			logger.Info().Str("device", p.Name).Str("addr", fmt.Sprintf("0x%02X", p.Addr)).Msg("Found I2C device")
			continue
		}
		logger.Warn().Err(p.Err).Str("device", p.Name).Str("addr", fmt.Sprintf("0x%02X", p.Addr)).Msg("Missing I2C device")
	}
	return found
}

// restoreHistory refills hist with the results stored during the last
// history window, oldest first, so the recent-readings view survives a restart
func restoreHistory(store storage.Store, hist *history.Buffer, cfg *config.Config, logger zerolog.Logger) {
	now := time.Now().UTC()
	window := time.Duration(cfg.Monitor.HistorySize) * cfg.Monitor.Interval

	results, err := store.GetResultsInRange(cfg.Device.ID, now.Add(-window), now, cfg.Monitor.HistorySize)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to restore history")
		return
	}
	for i := len(results) - 1; i >= 0; i-- {
		hist.Push(*results[i])
	}
	if len(results) > 0 {
		logger.Info().Int("restored", hist.Size()).Dur("window", window).Msg("History restored from database")
	}
}

// logStorage reports the database size and the newest result stored for sensorID
func logStorage(store storage.Store, sensorID, msg string, logger zerolog.Logger) {
	stats, err := store.GetStorageStats()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read storage stats")
		return
	}
	latest, err := store.GetLatestResult(sensorID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read latest stored result")
	}

	event := logger.Info().
		Int64("results", stats.TotalResults).
		Int64("failed", stats.FailedResults).
		Int("sensors", stats.UniqueSensors).
		Float64("size_mb", stats.DatabaseSizeMB)
	if latest != nil {
		event = event.Str("latest", latest.Time.String()).Str("latest_status", latest.Status.String())
	}
	event.Msg(msg)
}

// logStatusCounts tallies the sensor statuses stored since the run started
func logStatusCounts(store storage.Store, sensorID string, since time.Time, logger zerolog.Logger) {
	counts, err := store.GetStatusCounts(sensorID, since, time.Now().UTC())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to count poll statuses")
		return
	}

	dict := zerolog.Dict()
	for status, n := range counts {
		dict = dict.Int(status.String(), n)
	}
	logger.Info().Time("since", since).Dict("statuses", dict).Msg("Poll statuses this run")
}

// watchResults drains the monitor's result channel and logs each change
// between a healthy and a degraded board
func watchResults(ctx context.Context, results <-chan models.PollResult, logger zerolog.Logger) {
	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-results:
			if r.Healthy() == healthy {
				continue
			}
			healthy = r.Healthy()
			if healthy {
				logger.Info().Str("time", r.Time.String()).Msg("Board healthy again")
				continue
			}
			logger.Error().
				Str("status", r.Status.String()).
				Str("clock_status", r.ClockStatus.String()).
				Str("error", r.Err).
				Msg("Board degraded")
		}
	}
}
