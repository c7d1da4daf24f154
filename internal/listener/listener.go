package listener

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"campaign-generator/internal/cache"
	"campaign-generator/internal/observability"
	"campaign-generator/internal/platform"
)

// Debounce collapses bursts of change events (editors often write twice).
const Debounce = 200 * time.Millisecond

// Reloader resolves the limit table from the current configuration.
type Reloader func() (platform.LimitTable, error)

// ListenAndRefresh rebuilds snap whenever events fires. A failed reload keeps
// the previous table and is retried after a jittered backoff.
func ListenAndRefresh(ctx context.Context, events <-chan struct{}, reload Reloader, snap *cache.Snapshot[platform.LimitTable], baseBackoff time.Duration) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	log.Info().Msg("listening for limit changes")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return
		case <-events:
			timer.Reset(Debounce)
		case <-timer.C:
			if err := refresh(reload, snap); err != nil {
				backoff := jitter(baseBackoff)
				log.Error().Err(err).Dur("retry_in", backoff).Msg("refresh limits error; keeping previous table")
				timer.Reset(backoff)
			}
		}
	}
}

func refresh(reload Reloader, snap *cache.Snapshot[platform.LimitTable]) error {
	table, err := reload()
	if err == nil {
		err = table.Validate()
	}
	if err != nil {
		observability.LimitReloads.WithLabelValues("error").Inc()
		return err
	}
	snap.Store(table)
	observability.LimitReloads.WithLabelValues("ok").Inc()
	log.Info().Int("platforms", len(table)).Msg("limits refreshed")
	return nil
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}
