package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"courtside/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegenerateAllSkipsInactiveUsers(t *testing.T) {
	f := newFixture(t)
	svc := NewHPService(f.db, f.eco, f.log)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := f.eco.SpendHP(ctx, fmt.Sprintf("u%d", i), 40)
		require.NoError(t, err)
	}
	// u5 went quiet long ago.
	require.NoError(t, f.db.Model(&models.UserProgress{}).Where("user_id = ?", "u5").
		Update("last_active_at", f.clock.Now().Add(-30*24*time.Hour)).Error)

	f.clock.Advance(3 * time.Hour)
	n, err := svc.RegenerateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	for i := 0; i < 5; i++ {
		assert.Equal(t, 75, f.progress(t, fmt.Sprintf("u%d", i)).HP)
	}
	assert.Equal(t, 60, f.progress(t, "u5").HP)
}

func TestDecayInactiveIsIdempotentPerDay(t *testing.T) {
	f := newFixture(t)
	svc := NewHPService(f.db, f.eco, f.log)
	ctx := context.Background()

	_, err := f.eco.RegenerateHP(ctx, "idle")
	require.NoError(t, err)
	_, err = f.eco.RegenerateHP(ctx, "fresh")
	require.NoError(t, err)

	// Idle for the 7 day window plus 3 whole days.
	require.NoError(t, f.db.Model(&models.UserProgress{}).Where("user_id = ?", "idle").
		Update("last_active_at", f.clock.Now().Add(-(10*24*time.Hour+time.Hour))).Error)

	n, err := svc.DecayInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 94, f.progress(t, "idle").HP)
	assert.Equal(t, 100, f.progress(t, "fresh").HP)

	// Same day: nothing more.
	n, err = svc.DecayInactive(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 94, f.progress(t, "idle").HP)

	f.clock.Advance(24 * time.Hour)
	_, err = svc.DecayInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 92, f.progress(t, "idle").HP)
}

func TestDecayStopsAtFloor(t *testing.T) {
	f := newFixture(t)
	svc := NewHPService(f.db, f.eco, f.log)
	ctx := context.Background()

	_, err := f.eco.RegenerateHP(ctx, "ghost")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.UserProgress{}).Where("user_id = ?", "ghost").
		Update("last_active_at", f.clock.Now().Add(-400*24*time.Hour)).Error)

	_, err = svc.DecayInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.eco.Config.HP.Floor, f.progress(t, "ghost").HP)

	n, err := svc.DecayInactive(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
