package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/infrastructure/metrics"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

const (
	DefaultRetentionSchedule = "0 * * * *"
	CronJobTimeout           = 10 * time.Minute // Timeout for each cron job execution
)

// Purger drops conversations untouched for longer than retention.
type Purger interface {
	PurgeStale(ctx context.Context, retention time.Duration) (int, error)
}

type Crontab struct {
	ctab      *crontab.Crontab
	purger    Purger
	schedule  string
	retention time.Duration
	log       zerolog.Logger
}

func NewCrontab(cfg *config.Config, purger Purger, log zerolog.Logger) *Crontab {
	schedule := cfg.RetentionSchedule
	if schedule == "" {
		schedule = DefaultRetentionSchedule
	}
	return &Crontab{
		ctab:      crontab.New(),
		purger:    purger,
		schedule:  schedule,
		retention: cfg.ConversationRetention,
		log:       log.With().Str("component", "crontab").Logger(),
	}
}

// Run schedules the retention sweep and blocks until ctx is done.
// A non-positive retention disables the sweep.
func (c *Crontab) Run(ctx context.Context) error {
	if c.retention <= 0 {
		c.log.Info().Msg("conversation retention disabled")
		<-ctx.Done()
		return nil
	}

	// execute once on server start
	c.sweep(ctx)

	if err := c.ctab.AddJob(c.schedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, CronJobTimeout)
		defer cancel()
		c.sweep(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add retention job")
	}
	c.log.Info().
		Str("schedule", c.schedule).
		Dur("retention", c.retention).
		Msg("conversation retention sweep scheduled")

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	removed, err := c.purger.PurgeStale(ctx, c.retention)
	if err != nil {
		c.log.Error().Err(err).Msg("retention sweep failed")
		return
	}
	metrics.RecordPurge(removed)
	if removed > 0 {
		c.log.Info().
			Int("removed", removed).
			Dur("took", time.Since(started)).
			Msg("purged stale conversations")
	}
}
