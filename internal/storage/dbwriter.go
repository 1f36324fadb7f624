package storage

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/airquality-monitor/internal/models"
)

// DBWriter persists poll results off the poll goroutine. Results are queued
// by Publish and committed in batches when the batch fills, when the flush
// period elapses, on Flush and on Stop.
type DBWriter struct {
	store  Store
	cfg    DBWriterConfig
	logger zerolog.Logger

	queue   chan *models.PollResult
	flushRq chan chan struct{}
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once

	mu    sync.RWMutex
	stats DBWriterStats
}

// DBWriterConfig holds configuration for the async writer
type DBWriterConfig struct {
	BatchSize   int           // results per transaction (default: 20)
	FlushPeriod time.Duration // max time a result waits in memory (default: 1m)
	ChannelSize int           // queue depth before results are dropped (default: 100)
}

// DefaultDBWriterConfig returns the board defaults
func DefaultDBWriterConfig() DBWriterConfig {
	return DBWriterConfig{
		BatchSize:   20,
		FlushPeriod: time.Minute,
		ChannelSize: 100,
	}
}

// DBWriterStats contains statistics about the writer
type DBWriterStats struct {
	TotalWritten  int64     `json:"total_written"`
	TotalBatches  int64     `json:"total_batches"`
	TotalErrors   int64     `json:"total_errors"`
	TotalDropped  int64     `json:"total_dropped"`
	LastWriteTime time.Time `json:"last_write_time,omitempty"`
	QueueLength   int       `json:"queue_length"`
}

// NewDBWriter starts a writer on store. Zero config fields take their defaults.
func NewDBWriter(store Store, cfg DBWriterConfig, logger zerolog.Logger) *DBWriter {
	defaults := DefaultDBWriterConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushPeriod <= 0 {
		cfg.FlushPeriod = defaults.FlushPeriod
	}
	if cfg.ChannelSize <= 0 {
		cfg.ChannelSize = defaults.ChannelSize
	}

	w := &DBWriter{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		queue:   make(chan *models.PollResult, cfg.ChannelSize),
		flushRq: make(chan chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go w.loop()

	logger.Info().
		Int("batch_size", cfg.BatchSize).
		Dur("flush_period", cfg.FlushPeriod).
		Int("channel_size", cfg.ChannelSize).
		Msg("DBWriter started")

	return w
}

// Write queues a result for the next batch.
// Returns false if the queue was full and the result was dropped.
func (w *DBWriter) Write(result *models.PollResult) bool {
	select {
	case w.queue <- result:
		return true
	default:
	}

	w.mu.Lock()
	w.stats.TotalDropped++
	w.mu.Unlock()
	w.logger.Warn().Str("sensor_id", result.SensorID).Msg("DBWriter queue full, dropping result")
	return false
}

// Publish queues a copy of result
func (w *DBWriter) Publish(result models.PollResult) {
	w.Write(&result)
}

// Flush commits everything queued so far and returns once it is on disk.
// It returns immediately after Stop.
func (w *DBWriter) Flush() {
	ack := make(chan struct{})
	select {
	case w.flushRq <- ack:
		<-ack
	case <-w.done:
	}
}

func (w *DBWriter) loop() {
	defer close(w.done)

	batch := make([]*models.PollResult, 0, w.cfg.BatchSize)
	commit := func() {
		if len(batch) > 0 {
			w.commit(batch)
			batch = make([]*models.PollResult, 0, w.cfg.BatchSize)
		}
	}
	drain := func() {
		for {
			select {
			case r := <-w.queue:
				batch = append(batch, r)
			default:
				return
			}
		}
	}

	ticker := time.NewTicker(w.cfg.FlushPeriod)
	defer ticker.Stop()

	for {
		select {
		case r := <-w.queue:
			batch = append(batch, r)
			if len(batch) >= w.cfg.BatchSize {
				commit()
			}
		case <-ticker.C:
			commit()
		case ack := <-w.flushRq:
			drain()
			commit()
			close(ack)
		case <-w.quit:
			drain()
			commit()
			w.logger.Info().Msg("DBWriter stopped")
			return
		}
	}
}

func (w *DBWriter) commit(batch []*models.PollResult) {
	err := w.store.InsertBatch(batch)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.stats.TotalErrors++
		w.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to write batch")
		return
	}
	w.stats.TotalWritten += int64(len(batch))
	w.stats.TotalBatches++
	w.stats.LastWriteTime = time.Now()
	w.logger.Debug().Int("count", len(batch)).Msg("Flushed batch")
}

// Stop commits whatever is queued and waits for the writer to exit
func (w *DBWriter) Stop() {
	w.once.Do(func() { close(w.quit) })
	<-w.done
}

// Stats returns current writer statistics
func (w *DBWriter) Stats() DBWriterStats {
	w.mu.RLock()
	stats := w.stats
	w.mu.RUnlock()

	stats.QueueLength = len(w.queue)
	return stats
}
