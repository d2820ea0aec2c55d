package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retentionAge is how long finished data is kept before the sweeper
// removes it.
const retentionAge = 6 // months

// BookingPruner deletes old booking rows.
type BookingPruner interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ShowPruner deletes shows whose screening time has long passed,
// together with their seat rows.
type ShowPruner interface {
	DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSweeper periodically removes bookings and shows older than
// the retention window.
type RetentionSweeper struct {
	bookings BookingPruner
	shows    ShowPruner
	log      *zap.Logger
}

// NewRetentionSweeper wires a RetentionSweeper.
func NewRetentionSweeper(bookings BookingPruner, shows ShowPruner, log *zap.Logger) *RetentionSweeper {
	return &RetentionSweeper{bookings: bookings, shows: shows, log: log}
}

// Run sweeps once immediately and then on every tick until the context
// is cancelled.
func (r *RetentionSweeper) Run(ctx context.Context, interval time.Duration) {
	r.Sweep(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep deletes everything past the retention window. Paid and unpaid
// bookings alike are removed; unpaid ones that old are leftovers from
// broker outages and their seats go away with the show rows.
func (r *RetentionSweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, -retentionAge, 0)

	if n, err := r.bookings.DeleteCreatedBefore(ctx, cutoff); err != nil {
		r.log.Error("booking retention sweep failed", zap.Error(err))
	} else if n > 0 {
		r.log.Info("old bookings removed", zap.Int64("count", n))
	}

	if n, err := r.shows.DeleteStartedBefore(ctx, cutoff); err != nil {
		r.log.Error("show retention sweep failed", zap.Error(err))
	} else if n > 0 {
		r.log.Info("old shows removed", zap.Int64("count", n))
	}
}
