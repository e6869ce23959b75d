package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// TokenPurger clears stored tokens whose expiry has passed.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler periodically sweeps expired session tokens out of the users table.
type Scheduler struct {
	purger  TokenPurger
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
}

// NewScheduler creates a scheduler that runs the sweep on the given cron spec.
// Both standard five-field expressions and descriptors such as "@every 15m" are accepted.
func NewScheduler(purger TokenPurger, spec string) (*Scheduler, error) {
	s := &Scheduler{
		purger:  purger,
		cron:    cron.New(),
		timeout: 30 * time.Second,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid token sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run sweeps once immediately, then starts the cron loop in the background.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting token sweeper")
	s.sweep()
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped token sweeper")
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.purger.PurgeExpiredTokens(ctx, s.now())
	if err != nil {
		log.Error().Err(err).Msg("Token sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int64("cleared", n).Msg("Cleared expired tokens")
	}
}
