// Package sweep periodically deactivates coupons whose validity window has closed.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/metrics"

	"github.com/rs/zerolog"
)

const defaultInterval = 24 * time.Hour

// Expirer switches off coupons that expired before now and reports how many changed.
type Expirer interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// ServiceParams configure the sweep service.
type ServiceParams struct {
	Coupons  Expirer
	Lock     Lock
	Metrics  *metrics.Metrics
	Interval time.Duration
	Now      func() time.Time
	Logger   zerolog.Logger
}

// Service runs the coupon expiry sweep on a fixed cadence.
type Service struct {
	coupons  Expirer
	lock     Lock
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService builds a sweep service.
func NewService(p ServiceParams) (*Service, error) {
	if p.Coupons == nil {
		return nil, errors.New("coupon store required")
	}
	lock := p.Lock
	if lock == nil {
		lock = NewLocalLock()
	}
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		coupons:  p.Coupons,
		lock:     lock,
		metrics:  p.Metrics,
		interval: interval,
		now:      now,
		logger:   p.Logger.With().Str("component", "sweep").Logger(),
	}, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("coupon sweep started")

	s.cycle(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("coupon sweep stopped")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("coupon sweep failed")
	}
}

// RunOnce performs one sweep if the lock is free. skipped runs return zero.
func (s *Service) RunOnce(ctx context.Context) (n int64, err error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.metrics.SweepRun("error", 0)
		return 0, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logger.Info().Msg("another sweep is running; skipping this cycle")
		s.metrics.SweepRun("skipped", 0)
		return 0, nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logger.Error().Err(relErr).Msg("failed to release sweep lock")
		}
	}()

	start := time.Now()
	n, err = s.coupons.DeactivateExpired(ctx, s.now())
	duration := time.Since(start)
	if err != nil {
		s.metrics.SweepRun("error", duration)
		return 0, fmt.Errorf("deactivate expired coupons: %w", err)
	}
	s.metrics.SweepRun("success", duration)

	s.logger.Info().
		Int64("deactivated", n).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("coupon sweep complete")
	return n, nil
}
