package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tendalyze/tendalyze/internal/etl"
)

// Normalizer fills in missing normalized formations
type Normalizer interface {
	NormalizeFormations(ctx context.Context, batchSize int, reporter etl.Reporter) (int, error)
}

// Orchestrator runs background maintenance for the datastore
type Orchestrator struct {
	normalizer Normalizer
	config     *Config
	logger     *zap.Logger

	mu                sync.Mutex
	cancel            context.CancelFunc
	done              chan struct{}
	runs              int
	consecutiveErrors int
}

// maxConsecutiveErrors failed sweeps in a row trigger a one-interval backoff
const maxConsecutiveErrors = 5

// Config holds scheduler configuration
type Config struct {
	NormalizeInterval  time.Duration // Default: 15m
	NormalizeBatchSize int           // Default: 500
	MaxRetries         int           // Default: 3
	RetryDelay         time.Duration // Default: 5s
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		NormalizeInterval:  15 * time.Minute,
		NormalizeBatchSize: 500,
		MaxRetries:         3,
		RetryDelay:         5 * time.Second,
	}
}

// NewOrchestrator creates a new scheduler orchestrator
func NewOrchestrator(normalizer Normalizer, config *Config, logger *zap.Logger) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		normalizer: normalizer,
		config:     config,
		logger:     logger.With(zap.String("component", "scheduler")),
	}
}

// Start runs the formation sweep every NormalizeInterval until ctx is
// cancelled or Stop is called. It blocks.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	o.mu.Lock()
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()
	defer close(done)

	if o.config.NormalizeInterval <= 0 {
		o.logger.Info("Formation sweep disabled")
		<-ctx.Done()
		return
	}

	o.logger.Info("→ Formation sweep started", zap.Duration("interval", o.config.NormalizeInterval))

	ticker := time.NewTicker(o.config.NormalizeInterval)
	defer ticker.Stop()

	// Run immediately on start
	o.sweepWithRetry(ctx)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("→ Formation sweep stopped")
			return
		case <-ticker.C:
			o.sweepWithRetry(ctx)
		}
	}
}

// sweepWithRetry normalizes pending formations with retry logic
func (o *Orchestrator) sweepWithRetry(ctx context.Context) {
	var (
		updated int
		err     error
	)

	for attempt := 1; attempt <= o.config.MaxRetries; attempt++ {
		updated, err = o.normalizer.NormalizeFormations(ctx, o.config.NormalizeBatchSize, nil)
		if err == nil {
			break
		}

		o.logger.Warn("formation sweep attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.config.MaxRetries),
			zap.Error(err),
		)

		if attempt < o.config.MaxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.config.RetryDelay):
			}
		}
	}

	o.mu.Lock()
	o.runs++
	if err != nil {
		o.consecutiveErrors++
	} else {
		o.consecutiveErrors = 0
	}
	consecutive := o.consecutiveErrors
	o.mu.Unlock()

	if err != nil {
		o.logger.Error("formation sweep failed",
			zap.Int("consecutive_errors", consecutive),
			zap.Error(err),
		)
		if consecutive >= maxConsecutiveErrors {
			o.logger.Warn("high error rate detected, backing off")
			select {
			case <-ctx.Done():
			case <-time.After(o.config.NormalizeInterval):
			}
		}
		return
	}

	if updated > 0 {
		o.logger.Info("✓ Formation sweep complete", zap.Int("updated", updated))
	}
}

// Stop cancels the sweep and waits for Start to return
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() map[string]interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	return map[string]interface{}{
		"normalize_interval":   o.config.NormalizeInterval.String(),
		"normalize_batch_size": o.config.NormalizeBatchSize,
		"sweeps":               o.runs,
		"consecutive_errors":   o.consecutiveErrors,
	}
}
