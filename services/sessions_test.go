package services

import (
	"context"
	"testing"
	"time"

	"courtside/economy"
	"courtside/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService(f *fixture) *SessionService {
	svc := NewSessionService(f.db, f.eco, f.pub, f.log, 2*time.Hour)
	svc.Now = f.clock.Now
	return svc
}

func createSession(t *testing.T, f *fixture, svc *SessionService, capacity int, cost int64) *models.TrainingSession {
	t.Helper()
	sess, err := svc.Create(context.Background(), "coach", CreateSessionInput{
		Title:      "Serve clinic",
		StartsAt:   f.clock.Now().Add(24 * time.Hour),
		Capacity:   capacity,
		CostTokens: cost,
	})
	require.NoError(t, err)
	return sess
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)
	ctx := context.Background()

	_, err := svc.Create(ctx, "coach", CreateSessionInput{Title: "", StartsAt: f.clock.Now().Add(time.Hour), Capacity: 2})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, "coach", CreateSessionInput{Title: "Past", StartsAt: f.clock.Now().Add(-time.Hour), Capacity: 2})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, "coach", CreateSessionInput{Title: "Huge", StartsAt: f.clock.Now().Add(time.Hour), Capacity: 500})
	assert.ErrorIs(t, err, ErrInvalidInput)

	sess := createSession(t, f, svc, 2, 0)
	assert.Equal(t, 60, sess.DurationMin)
	assert.Equal(t, models.SessionOpen, sess.Status)
}

func TestJoinChargesAndFillsSession(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)
	ctx := context.Background()
	sess := createSession(t, f, svc, 2, 10)

	_, err := svc.Join(ctx, sess.ID, "coach")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := svc.Join(ctx, sess.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Joined)
	assert.Equal(t, models.SessionOpen, got.Status)
	p1 := f.progress(t, "p1")
	assert.Equal(t, int64(90), p1.Tokens)
	assert.Equal(t, 100-economy.HPCostSession, p1.HP)

	_, err = svc.Join(ctx, sess.ID, "p1")
	assert.ErrorIs(t, err, ErrConflict)

	got, err = svc.Join(ctx, sess.ID, "p2")
	require.NoError(t, err)
	assert.Equal(t, models.SessionFull, got.Status)

	_, err = svc.Join(ctx, sess.ID, "p3")
	assert.ErrorIs(t, err, ErrInvalidState)
	var charged int64
	require.NoError(t, f.db.Model(&models.TokenTransaction{}).Where("user_id = ? AND amount < 0", "p3").Count(&charged).Error)
	assert.Zero(t, charged)
}

func TestLeaveRefundsOnlyBeforeCutoff(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)
	ctx := context.Background()
	sess := createSession(t, f, svc, 2, 10)

	_, err := svc.Join(ctx, sess.ID, "p1")
	require.NoError(t, err)
	_, err = svc.Join(ctx, sess.ID, "p2")
	require.NoError(t, err)

	refunded, err := svc.Leave(ctx, sess.ID, "p1")
	require.NoError(t, err)
	assert.True(t, refunded)
	assert.Equal(t, int64(100), f.progress(t, "p1").Tokens)

	var reopened models.TrainingSession
	require.NoError(t, f.db.First(&reopened, "id = ?", sess.ID).Error)
	assert.Equal(t, models.SessionOpen, reopened.Status)
	assert.Equal(t, 1, reopened.Joined)

	f.clock.Advance(23 * time.Hour)
	refunded, err = svc.Leave(ctx, sess.ID, "p2")
	require.NoError(t, err)
	assert.False(t, refunded)
	assert.Equal(t, int64(90), f.progress(t, "p2").Tokens)

	_, err = svc.Leave(ctx, sess.ID, "p2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForfeitedFeeGoesToHost(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)
	ctx := context.Background()
	f.seed(t, "coach", "p1", "p2")
	total := func() int64 {
		var sum int64
		for _, uid := range []string{"coach", "p1", "p2"} {
			sum += f.progress(t, uid).Tokens
		}
		return sum
	}
	before := total()

	sess := createSession(t, f, svc, 2, 15)
	for _, uid := range []string{"p1", "p2"} {
		_, err := svc.Join(ctx, sess.ID, uid)
		require.NoError(t, err)
	}

	f.clock.Advance(23 * time.Hour)
	refunded, err := svc.Leave(ctx, sess.ID, "p1")
	require.NoError(t, err)
	assert.False(t, refunded)
	_, err = svc.Join(ctx, sess.ID, "p1")
	assert.ErrorIs(t, err, ErrConflict)

	f.clock.Advance(2 * time.Hour)
	_, err = svc.Leave(ctx, sess.ID, "p2")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Complete(ctx, sess.ID, "coach")
	require.NoError(t, err)
	assert.Equal(t, int64(130), f.progress(t, "coach").Tokens)
	assert.Equal(t, before, total())

	p1 := f.progress(t, "p1")
	assert.Zero(t, p1.SessionsAttended)
	assert.Zero(t, p1.TotalXP)
	assert.Equal(t, int64(1), f.progress(t, "p2").SessionsAttended)
}

func TestCompletePaysHostAndCreditsAttendance(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)
	ctx := context.Background()
	sess := createSession(t, f, svc, 3, 10)

	for _, uid := range []string{"p1", "p2"} {
		_, err := svc.Join(ctx, sess.ID, uid)
		require.NoError(t, err)
	}

	_, err := svc.Complete(ctx, sess.ID, "coach")
	assert.ErrorIs(t, err, ErrInvalidState)

	f.clock.Advance(25 * time.Hour)
	_, err = svc.Complete(ctx, sess.ID, "p1")
	assert.ErrorIs(t, err, ErrForbidden)

	done, err := svc.Complete(ctx, sess.ID, "coach")
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, done.Status)
	assert.Equal(t, int64(120), f.progress(t, "coach").Tokens)

	p1 := f.progress(t, "p1")
	assert.Equal(t, int64(1), p1.SessionsAttended)
	assert.Equal(t, int64(SessionAttendXP), p1.TotalXP)

	_, err = svc.Complete(ctx, sess.ID, "coach")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestExpireStaleRefundsParticipants(t *testing.T) {
	f := newFixture(t)
	svc := newSessionService(f)
	ctx := context.Background()
	stale := createSession(t, f, svc, 2, 15)
	_, err := svc.Join(ctx, stale.ID, "p1")
	require.NoError(t, err)

	later, err := svc.Create(ctx, "coach", CreateSessionInput{
		Title: "Evening drills", StartsAt: f.clock.Now().Add(72 * time.Hour), Capacity: 4,
	})
	require.NoError(t, err)

	// Started but not yet over: untouched.
	n, err := svc.ExpireStale(ctx, stale.StartsAt.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.ExpireStale(ctx, stale.StartsAt.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(100), f.progress(t, "p1").Tokens)

	var got models.TrainingSession
	require.NoError(t, f.db.First(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, models.SessionExpired, got.Status)
	var other models.TrainingSession
	require.NoError(t, f.db.First(&other, "id = ?", later.ID).Error)
	assert.Equal(t, models.SessionOpen, other.Status)

	n, err = svc.ExpireStale(ctx, stale.StartsAt.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}
