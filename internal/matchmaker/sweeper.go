package matchmaker

import (
	"context"
	"log/slog"
	"time"

	"github.com/oggyb/muzz-match/internal/db"
)

// Sweeper periodically repairs likes that nobody reads: missed matches,
// half-linked pairs, legacy logs and likes of deleted users.
type Sweeper struct {
	*deps
	guard *Guard
	log   *slog.Logger
}

// SweepStats summarizes one sweep.
type SweepStats struct {
	Scanned  int
	Repaired int
	Pruned   int
	Failed   int
}

// Run sweeps every SweepInterval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("sweeper started", "interval", s.opts.SweepInterval, "batch", s.opts.SweepBatch)
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			stats, err := s.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.Error("sweep failed", "err", err)
			}
			if stats.Scanned > 0 {
				s.log.Info("sweep done",
					"scanned", stats.Scanned, "repaired", stats.Repaired,
					"pruned", stats.Pruned, "failed", stats.Failed)
			}
		}
	}
}

// Sweep makes one pass over every like that needs repair, in id order.
// A like that fails is counted and skipped; it is picked up by the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) (SweepStats, error) {
	var (
		stats SweepStats
		after uint64
		batch = s.opts.SweepBatch
	)
	for {
		likes, err := call(ctx, s.exec, "likes.list_repair", func(ctx context.Context) ([]db.Like, error) {
			return s.stores.Likes.ListNeedingRepair(ctx, after, batch)
		})
		if err != nil {
			return stats, err
		}

		for i := range likes {
			like := &likes[i]
			after = like.ID
			stats.Scanned++

			pruned, err := s.guard.heal(ctx, like)
			switch {
			case err != nil:
				stats.Failed++
				s.log.Warn("like not repaired", "like", like.ID, "err", err)
			case pruned:
				stats.Pruned++
			default:
				stats.Repaired++
			}
		}

		if len(likes) < batch {
			return stats, nil
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
	}
}
