package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
)

type refresher interface {
	FetchAll(ctx context.Context) error
}

// Poll refreshes list until ctx is done, calling report after every attempt.
// Consecutive failures back off exponentially up to maxBackoff.
func Poll(ctx context.Context, list refresher, interval time.Duration, report func(error)) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	logger := zerolog.Ctx(ctx)
	failures := 0

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := list.FetchAll(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			logger.Warn().Err(err).Int("failures", failures).Msg("story refresh failed")
		} else {
			failures = 0
		}
		report(err)
		timer.Reset(calculateBackoff(failures, interval))
	}
}

func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
