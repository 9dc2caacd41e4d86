package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SweeperConfig holds configuration for the receipt retention sweep.
type SweeperConfig struct {
	// Retention is how long receipts are kept.
	Retention time.Duration

	// Schedule is a standard five-field cron spec, evaluated in UTC.
	Schedule string

	// BatchSize is the number of deletes per store round trip. Capped at 500,
	// the document store's batch write limit.
	BatchSize int
}

// MaxBatchSize is the largest batched write the document store accepts.
const MaxBatchSize = 500

// Sweeper periodically deletes receipts past the retention window. Badge counts and
// the anti-spam gate only ever look at recent receipts, so old ones are dead weight.
type Sweeper struct {
	receipts ReceiptStore
	config   SweeperConfig
	cron     *cron.Cron
	now      func() time.Time
}

// NewSweeper creates a new retention sweeper.
func NewSweeper(receipts ReceiptStore, cfg SweeperConfig) *Sweeper {
	// Sensible defaults
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 4 * * *"
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}

	return &Sweeper{
		receipts: receipts,
		config:   cfg,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		now:      time.Now,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.config.Schedule, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("registering retention sweep %q: %w", s.config.Schedule, err)
	}
	s.cron.Start()

	slog.Info("retention sweeper started",
		"schedule", s.config.Schedule,
		"retention", s.config.Retention,
		"batch_size", s.config.BatchSize,
	)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("retention sweeper stopped")
}

// Sweep performs one cycle: delete batches until a short batch comes back.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.config.Retention)

	total := 0
	for {
		if ctx.Err() != nil {
			break
		}
		n, err := s.receipts.PurgeOlderThan(ctx, cutoff, s.config.BatchSize)
		if err != nil {
			slog.Error("retention sweep: purge failed", "error", err, "deleted_so_far", total)
			break
		}
		total += n
		if n < s.config.BatchSize {
			break
		}
	}

	if total > 0 {
		slog.Info("retention sweep complete", "deleted", total, "cutoff", cutoff)
	}
	return total
}
