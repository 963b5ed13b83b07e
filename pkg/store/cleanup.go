package store

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CleanupService prunes sessions that have been idle past a cutoff. It runs
// on a cron schedule so long-lived daemons do not accumulate dead sessions.
type CleanupService struct {
	store   Store
	maxIdle time.Duration
	cron    *cron.Cron
	logger  zerolog.Logger
}

// NewCleanupService creates a cleanup service. schedule is a standard cron
// spec (e.g. "0 * * * *" for hourly).
func NewCleanupService(s Store, schedule string, maxIdle time.Duration, logger zerolog.Logger) (*CleanupService, error) {
	if maxIdle <= 0 {
		return nil, fmt.Errorf("max idle duration must be positive")
	}

	cs := &CleanupService{
		store:   s,
		maxIdle: maxIdle,
		cron:    cron.New(),
		logger:  logger,
	}

	if _, err := cs.cron.AddFunc(schedule, func() {
		pruned, err := cs.RunOnce()
		if err != nil {
			logger.Error().Err(err).Msg("Session cleanup failed")
			return
		}
		if pruned > 0 {
			logger.Info().Int("pruned", pruned).Msg("Idle sessions pruned")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	return cs, nil
}

// Start begins the schedule
func (cs *CleanupService) Start() {
	cs.cron.Start()
	cs.logger.Info().Dur("max_idle", cs.maxIdle).Msg("Session cleanup scheduled")
}

// Stop halts the schedule, waiting for a running job to finish
func (cs *CleanupService) Stop() {
	ctx := cs.cron.Stop()
	<-ctx.Done()
}

// RunOnce deletes every session idle past the cutoff and returns the count
func (cs *CleanupService) RunOnce() (int, error) {
	sessions, err := cs.store.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-cs.maxIdle)
	pruned := 0
	for _, session := range sessions {
		if session.UpdatedAt.After(cutoff) {
			continue
		}
		existed, err := cs.store.Delete(session.ID)
		if err != nil {
			cs.logger.Warn().Str("session_id", session.ID).Err(err).Msg("Failed to prune session")
			continue
		}
		if existed {
			pruned++
		}
	}

	return pruned, nil
}
