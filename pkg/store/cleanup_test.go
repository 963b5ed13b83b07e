package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupService_RunOnce(t *testing.T) {
	s := newTestStore()

	stale, _ := s.Create("stale", "")
	fresh, _ := s.Create("fresh", "")

	// Backdate the stale session past the cutoff.
	s.sessions[stale.ID].session.UpdatedAt = time.Now().Add(-2 * time.Hour)

	cs, err := NewCleanupService(s, "@hourly", time.Hour, zerolog.Nop())
	require.NoError(t, err)

	pruned, err := cs.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, err = s.Get(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestCleanupService_InvalidSchedule(t *testing.T) {
	s := newTestStore()
	_, err := NewCleanupService(s, "not a schedule", time.Hour, zerolog.Nop())
	assert.Error(t, err)
}

func TestCleanupService_RequiresPositiveIdle(t *testing.T) {
	s := newTestStore()
	_, err := NewCleanupService(s, "@hourly", 0, zerolog.Nop())
	assert.Error(t, err)
}
