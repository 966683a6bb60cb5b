package relay

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"minicalen/internal/platform/clock"
)

// Retention sweeps sessions that have not been written in the
// configured number of days. A zero retention keeps everything and
// the sweeper stays off.
type Retention struct {
	store *SQLiteSessionStore
	clock clock.Clock
	log   zerolog.Logger
	days  int
	cron  *cron.Cron
}

func NewRetention(store *SQLiteSessionStore, clk clock.Clock, log zerolog.Logger, days int) *Retention {
	return &Retention{store: store, clock: clk, log: log, days: days}
}

// Start schedules a nightly sweep. No-op when retention is disabled.
func (r *Retention) Start() error {
	if r.days <= 0 {
		return nil
	}
	r.cron = cron.New()
	if _, err := r.cron.AddFunc("@daily", func() {
		r.Sweep(context.Background())
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info().Int("days", r.days).Msg("retention sweep scheduled")
	return nil
}

// Sweep deletes sessions older than the cutoff once, immediately.
func (r *Retention) Sweep(ctx context.Context) {
	cutoff := r.clock.Now().AddDate(0, 0, -r.days)
	removed, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		r.log.Error().Err(err).Msg("retention sweep failed")
		return
	}
	if removed > 0 {
		r.log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("swept stale sessions")
	}
}

func (r *Retention) Stop() {
	if r.cron != nil {
		ctx := r.cron.Stop()
		<-ctx.Done()
	}
}
