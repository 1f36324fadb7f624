package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RetentionCleaner bounds the poll_results table by age and, optionally, by
// row count so a board's flash card does not fill up
type RetentionCleaner struct {
	store  Store
	cfg    RetentionCleanerConfig
	logger zerolog.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.RWMutex
	stats RetentionCleanerStats
}

// RetentionCleanerConfig holds configuration for the cleaner
type RetentionCleanerConfig struct {
	RetentionDays int           // default: 7
	MaxRows       int64         // newest rows kept after the age pass; 0 keeps all
	CleanupPeriod time.Duration // default: 1h
}

// DefaultRetentionCleanerConfig returns the board defaults
func DefaultRetentionCleanerConfig() RetentionCleanerConfig {
	return RetentionCleanerConfig{
		RetentionDays: 7,
		CleanupPeriod: time.Hour,
	}
}

// RetentionCleanerStats reports what the cleaner has removed
type RetentionCleanerStats struct {
	TotalExpired  int64     `json:"total_expired"`
	TotalTrimmed  int64     `json:"total_trimmed"`
	TotalCleanups int64     `json:"total_cleanups"`
	TotalErrors   int64     `json:"total_errors"`
	LastCleanup   time.Time `json:"last_cleanup,omitempty"`
	LastRemoved   int64     `json:"last_removed"`
	RetentionDays int       `json:"retention_days"`
	MaxRows       int64     `json:"max_rows"`
}

// NewRetentionCleaner runs one cleanup immediately, then every CleanupPeriod
// until Stop
func NewRetentionCleaner(store Store, cfg RetentionCleanerConfig, logger zerolog.Logger) *RetentionCleaner {
	defaults := DefaultRetentionCleanerConfig()
	if cfg.CleanupPeriod <= 0 {
		logger.Warn().
			Dur("provided_period", cfg.CleanupPeriod).
			Dur("default_period", defaults.CleanupPeriod).
			Msg("Invalid CleanupPeriod, using default")
		cfg.CleanupPeriod = defaults.CleanupPeriod
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaults.RetentionDays
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &RetentionCleaner{
		store:  store,
		cfg:    cfg,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
		stats: RetentionCleanerStats{
			RetentionDays: cfg.RetentionDays,
			MaxRows:       cfg.MaxRows,
		},
	}

	go c.loop(ctx)

	logger.Info().
		Int("retention_days", cfg.RetentionDays).
		Int64("max_rows", cfg.MaxRows).
		Dur("cleanup_period", cfg.CleanupPeriod).
		Msg("RetentionCleaner started")

	return c
}

func (c *RetentionCleaner) loop(ctx context.Context) {
	defer close(c.done)

	c.RunNow()

	ticker := time.NewTicker(c.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.RunNow()
		case <-ctx.Done():
			c.logger.Info().Msg("RetentionCleaner stopped")
			return
		}
	}
}

// RunNow runs one cleanup pass on the caller's goroutine and returns the
// number of rows removed
func (c *RetentionCleaner) RunNow() int64 {
	expired, err := c.store.DeleteOlderThan(c.cfg.RetentionDays)
	var trimmed int64
	if err == nil && c.cfg.MaxRows > 0 {
		trimmed, err = c.store.TrimToLatest(c.cfg.MaxRows)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.TotalCleanups++
	c.stats.LastCleanup = time.Now()
	c.stats.TotalExpired += expired
	c.stats.TotalTrimmed += trimmed
	c.stats.LastRemoved = expired + trimmed

	if err != nil {
		c.stats.TotalErrors++
		c.logger.Error().Err(err).Msg("Retention cleanup failed")
		return expired + trimmed
	}

	event := c.logger.Debug()
	if expired+trimmed > 0 {
		event = c.logger.Info()
	}
	event.Int64("expired", expired).Int64("trimmed", trimmed).Msg("Retention cleanup completed")

	return expired + trimmed
}

// Stop ends the periodic loop and waits for it. Safe to call more than once.
func (c *RetentionCleaner) Stop() {
	c.cancel()
	<-c.done
}

// Stats returns current cleaner statistics
func (c *RetentionCleaner) Stats() RetentionCleanerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
