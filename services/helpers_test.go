package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"courtside/models"
	"courtside/realtime"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (r *recordingPublisher) Publish(_ context.Context, c realtime.Change) error {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
	return nil
}

func (r *recordingPublisher) forTable(table string) []realtime.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.Change
	for _, c := range r.changes {
		if c.Table == table {
			out = append(out, c)
		}
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	n.sent = append(n.sent, msg)
	n.mu.Unlock()
	return nil
}

type fakeMedia struct {
	keys []string
}

func (f *fakeMedia) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type fixture struct {
	db    *gorm.DB
	eco   *Economy
	ach   *AchievementService
	pub   *recordingPublisher
	clock *testClock
	log   *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop()
	ach := NewAchievementService(db, log)
	require.NoError(t, ach.Seed(context.Background()))
	clock := newTestClock()
	eco := NewEconomy(db, DefaultEconomyConfig, ach, log)
	eco.Now = clock.Now
	return &fixture{db: db, eco: eco, ach: ach, pub: &recordingPublisher{}, clock: clock, log: log}
}

func (f *fixture) progress(t *testing.T, userID string) models.UserProgress {
	t.Helper()
	var p models.UserProgress
	require.NoError(t, f.db.Where("user_id = ?", userID).First(&p).Error)
	return p
}

// seed creates progress rows with the starter balance.
func (f *fixture) seed(t *testing.T, userIDs ...string) {
	t.Helper()
	for _, id := range userIDs {
		_, err := f.eco.AwardXP(context.Background(), id, 0, "seed")
		require.NoError(t, err)
	}
}

func (f *fixture) profile(t *testing.T, userID, name string, role models.Role) models.PlayerProfile {
	t.Helper()
	p := models.PlayerProfile{UserID: userID, DisplayName: name, SearchName: searchKey(name), Role: role, SkillLevel: "intermediate", Email: userID + "@example.com"}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}
