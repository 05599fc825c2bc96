package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CouponDeactivator is implemented by service.CouponService.
type CouponDeactivator interface {
	DeactivateExpired(ctx context.Context) (int64, error)
}

// CouponSweeper periodically flips expired coupons to inactive. Checkout
// re-checks expiry on the locked row, so the sweep only keeps listings tidy.
type CouponSweeper struct {
	coupons  CouponDeactivator
	interval time.Duration
}

// NewCouponSweeper creates a sweeper running every interval.
func NewCouponSweeper(coupons CouponDeactivator, interval time.Duration) *CouponSweeper {
	return &CouponSweeper{coupons: coupons, interval: interval}
}

// SweepOnce runs a single pass and returns how many coupons were deactivated.
func (s *CouponSweeper) SweepOnce(ctx context.Context) (int64, error) {
	return s.coupons.DeactivateExpired(ctx)
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// A non-positive interval disables the sweeper.
func (s *CouponSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		log.Info().Msg("coupon sweeper disabled")
		return
	}
	log.Info().Dur("interval", s.interval).Msg("coupon sweeper started")
	defer log.Info().Msg("coupon sweeper stopped")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		n, err := s.SweepOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Error().Err(err).Msg("coupon sweep failed")
		case n > 0:
			log.Info().Int64("deactivated", n).Msg("expired coupons deactivated")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
