package cron

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"carquote_backend/internal/model"
	"carquote_backend/pkg/database"
	"carquote_backend/pkg/email"
	"carquote_backend/pkg/lock"
	"carquote_backend/pkg/voice"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	followups []email.FollowupsQueuedData
}

func (n *recordingNotifier) SendQuoteReceived(context.Context, string, email.QuoteReceivedData) error {
	return nil
}

func (n *recordingNotifier) SendFollowupsQueued(_ context.Context, _ string, data email.FollowupsQueuedData) error {
	n.followups = append(n.followups, data)
	return nil
}

type recordingVoice struct {
	calls []voice.CallRequest
}

func (v *recordingVoice) SubmitCalls(_ context.Context, calls []voice.CallRequest) error {
	v.calls = append(v.calls, calls...)
	return nil
}

func setupOverdue(t *testing.T, now time.Time) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "cron.db")))
	require.NoError(t, err)
	require.NoError(t, database.MigrateDatabase(db, model.Models()...))

	session := model.Session{UserID: "u1", CarType: "Toyota Camry", CarModel: "Camry", Version: "LE",
		ZipCode: "94105", RadiusMiles: 25, Status: model.SessionStatusCompleted}
	require.NoError(t, db.Create(&session).Error)
	listing := model.Listing{SessionID: session.ID, DealerName: "Bay Toyota", Phone: "4155550100",
		MSRP: 30000, DiscountedPrice: 29000, Selected: true}
	require.NoError(t, db.Create(&listing).Error)

	due := now.Add(-time.Hour)
	created := now.Add(-2 * time.Hour)
	call := model.Call{
		Model:     gorm.Model{CreatedAt: created, UpdatedAt: created},
		SessionID: session.ID, ListingID: listing.ID, Phone: listing.Phone,
		ScriptText: "Requesting an out-the-door quote.", Status: model.CallStatusCompleted,
		DealerPromisedQuote: true, QuoteDueAt: &due,
	}
	require.NoError(t, db.Create(&call).Error)
	return db
}

func TestFollowupJobRun(t *testing.T) {
	now := time.Now()
	db := setupOverdue(t, now)
	notifier := &recordingNotifier{}
	agent := &recordingVoice{}

	job := &FollowupJob{
		DB:          db,
		MinAge:      time.Hour,
		AutoDial:    true,
		Voice:       agent,
		DefaultMake: "Toyota",
		Notifier:    notifier,
		NotifyTo:    "ops@example.com",
		Now:         func() time.Time { return now },
	}

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Dispatched)
	require.Len(t, notifier.followups, 1)
	assert.Equal(t, "Bay Toyota", notifier.followups[0].Items[0].DealerName)
	require.Len(t, agent.calls, 1)

	res, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Len(t, notifier.followups, 1)
}

func TestFollowupJobSkipsWhenLocked(t *testing.T) {
	now := time.Now()
	db := setupOverdue(t, now)
	srv := miniredis.RunT(t)
	locker, err := lock.NewRedisLocker(srv.Addr(), "", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = locker.Close() })

	release, ok, err := locker.Acquire(context.Background(), followupLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	job := &FollowupJob{DB: db, MinAge: time.Hour, Locker: locker, LockTTL: time.Minute, Now: func() time.Time { return now }}
	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, res.Created)

	release()
	res, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Created)
	assert.False(t, srv.Exists("test:"+followupLockKey), "lease released after run")
}

func TestInitQuoteFollowupCronRejectsBadSpec(t *testing.T) {
	_, err := InitQuoteFollowupCron("every ten minutes", &FollowupJob{})
	assert.Error(t, err)

	c, err := InitQuoteFollowupCron("@every 10m", &FollowupJob{})
	require.NoError(t, err)
	c.Stop()
}
