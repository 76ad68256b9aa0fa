package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carquote_backend/internal/model"
	"carquote_backend/internal/service"
	"carquote_backend/pkg/email"
	"carquote_backend/pkg/lock"
	"carquote_backend/pkg/voice"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const followupLockKey = "quote-followups"

// FollowupJob is one tick of the quote follow-up scheduler. Locker,
// Voice and Notifier are optional.
type FollowupJob struct {
	DB          *gorm.DB
	MinAge      time.Duration
	Locker      lock.Locker
	LockTTL     time.Duration
	AutoDial    bool
	Voice       voice.Submitter
	DefaultMake string
	Notifier    email.Notifier
	NotifyTo    string
	Now         func() time.Time
}

type RunResult struct {
	Skipped    bool
	Created    int
	Dispatched int
}

func (j *FollowupJob) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Run queues follow-ups for overdue quote promises. With a Locker, a run
// that cannot take the lease is skipped.
func (j *FollowupJob) Run(ctx context.Context) (RunResult, error) {
	var res RunResult
	if j.Locker != nil {
		ttl := j.LockTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		release, ok, err := j.Locker.Acquire(ctx, followupLockKey, ttl)
		if err != nil {
			return res, fmt.Errorf("acquire follow-up lock: %w", err)
		}
		if !ok {
			res.Skipped = true
			return res, nil
		}
		defer release()
	}

	runAt := j.now()
	created, err := service.QueueQuoteFollowups(ctx, j.DB, runAt, j.MinAge)
	res.Created = len(created)
	if err != nil {
		return res, err
	}

	if len(created) > 0 && j.Notifier != nil && j.NotifyTo != "" {
		j.notify(ctx, created, runAt)
	}

	if j.AutoDial && j.Voice != nil {
		n, err := service.DispatchFollowups(ctx, j.DB, j.Voice, j.DefaultMake)
		res.Dispatched = n
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (j *FollowupJob) notify(ctx context.Context, created []model.Call, runAt time.Time) {
	data := email.FollowupsQueuedData{RunAt: runAt}
	for _, c := range created {
		item := email.FollowupItem{CallID: c.ID, Phone: c.Phone}
		if l, err := service.GetListing(j.DB, c.ListingID); err == nil {
			item.DealerName = l.DealerName
		}
		data.Items = append(data.Items, item)
	}
	if err := j.Notifier.SendFollowupsQueued(ctx, j.NotifyTo, data); err != nil {
		slog.Error("follow-up notification failed", "error", err)
	}
}

// InitQuoteFollowupCron schedules job on spec (e.g. "@every 10m") and
// starts the scheduler. The caller stops it on shutdown.
func InitQuoteFollowupCron(spec string, job *FollowupJob) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		res, err := job.Run(ctx)
		switch {
		case err != nil:
			slog.Error("quote follow-up run failed", "error", err, "created", res.Created)
		case res.Skipped:
			slog.Info("quote follow-up run skipped, another instance holds the lock")
		default:
			slog.Info("quote follow-up run finished", "created", res.Created, "dispatched", res.Dispatched)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("could not initialize quote follow-up cron: %w", err)
	}

	c.Start()
	return c, nil
}
