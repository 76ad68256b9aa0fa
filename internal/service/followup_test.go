package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"carquote_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

func TestQueueQuoteFollowupsCreatesExactlyOne(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	s := seedSession(t, db, model.SessionStatusCompleted)
	l := seedListing(t, db, s.ID, "Bay Toyota", 35000, 33000, true)
	original := seedCall(t, db, model.Call{
		Model:               gormModelAt(now.Add(-3 * time.Hour)),
		SessionID:           s.ID,
		ListingID:           l.ID,
		Phone:               "4155550199",
		Status:              model.CallStatusCompleted,
		DealerPromisedQuote: true,
		QuoteDueAt:          ptrTime(now.Add(-time.Hour)),
	})

	created, err := QueueQuoteFollowups(ctx, db, now, time.Hour)
	require.NoError(t, err)
	require.Len(t, created, 1)
	f := created[0]
	assert.Equal(t, model.CallStatusQueued, f.Status)
	assert.False(t, f.DealerPromisedQuote)
	assert.Nil(t, f.QuoteDueAt)
	assert.Equal(t, "4155550199", f.Phone)
	assert.Equal(t, s.ID, f.SessionID)
	require.NotNil(t, f.FollowUpOf)
	assert.Equal(t, original.ID, *f.FollowUpOf)
	assert.Equal(t,
		"Follow-up call to Bay Toyota. Previous call indicated they would provide a quote for Camry XSE. Following up to request the quote.",
		f.ScriptText)

	for i := 0; i < 3; i++ {
		n, err := CheckQuoteFollowups(ctx, db, now.Add(time.Duration(i+1)*10*time.Minute), time.Hour)
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	var count int64
	require.NoError(t, db.Model(&model.Call{}).Where("listing_id = ?", l.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	unchanged, err := GetCall(db, original.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusCompleted, unchanged.Status)
	assert.True(t, unchanged.DealerPromisedQuote)
}

func TestQueueQuoteFollowupsSuppressedByQuote(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	s := seedSession(t, db, model.SessionStatusCompleted)
	l := seedListing(t, db, s.ID, "Bay Toyota", 35000, 33000, true)
	first := seedCall(t, db, model.Call{
		Model: gormModelAt(now.Add(-5 * time.Hour)), SessionID: s.ID, ListingID: l.ID,
		Status: model.CallStatusCompleted,
	})
	seedCall(t, db, model.Call{
		Model: gormModelAt(now.Add(-3 * time.Hour)), SessionID: s.ID, ListingID: l.ID,
		Status: model.CallStatusCompleted, DealerPromisedQuote: true, QuoteDueAt: ptrTime(now.Add(-time.Hour)),
	})
	_, err := RecordQuote(db, RecordQuoteInput{CallID: first.ID, OTDPrice: 33000, ReceivedVia: model.QuoteSourceEmail})
	require.NoError(t, err)

	n, err := CheckQuoteFollowups(context.Background(), db, now, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueQuoteFollowupsRespectsMinAgeAndLaterCalls(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	s := seedSession(t, db, model.SessionStatusCompleted)
	fresh := seedListing(t, db, s.ID, "Fresh Toyota", 35000, 33000, true)
	retried := seedListing(t, db, s.ID, "Retried Toyota", 35000, 33000, true)

	// completed 30 minutes ago: below the minimum age
	seedCall(t, db, model.Call{
		Model: gormModelAt(now.Add(-30 * time.Minute)), SessionID: s.ID, ListingID: fresh.ID,
		Status: model.CallStatusCompleted, DealerPromisedQuote: true, QuoteDueAt: ptrTime(now.Add(-time.Minute)),
	})
	// overdue, but a newer call to the same dealer already exists
	seedCall(t, db, model.Call{
		Model: gormModelAt(now.Add(-4 * time.Hour)), SessionID: s.ID, ListingID: retried.ID,
		Status: model.CallStatusCompleted, DealerPromisedQuote: true, QuoteDueAt: ptrTime(now.Add(-2 * time.Hour)),
	})
	seedCall(t, db, model.Call{
		Model: gormModelAt(now.Add(-2 * time.Hour)), SessionID: s.ID, ListingID: retried.ID,
		Status: model.CallStatusFailed,
	})

	n, err := CheckQuoteFollowups(context.Background(), db, now, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueQuoteFollowupsSkipsMissingParents(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	s := seedSession(t, db, model.SessionStatusCompleted)
	l := seedListing(t, db, s.ID, "Gone Toyota", 35000, 33000, true)
	kept := seedListing(t, db, s.ID, "Kept Toyota", 35000, 33000, true)
	for _, listingID := range []uint{l.ID, kept.ID} {
		seedCall(t, db, model.Call{
			Model: gormModelAt(now.Add(-3 * time.Hour)), SessionID: s.ID, ListingID: listingID,
			Status: model.CallStatusCompleted, DealerPromisedQuote: true, QuoteDueAt: ptrTime(now.Add(-time.Hour)),
		})
	}
	require.NoError(t, DeleteListing(db, l.ID))

	created, err := QueueQuoteFollowups(context.Background(), db, now, time.Hour)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, kept.ID, created[0].ListingID)

	orphan := seedSession(t, db, model.SessionStatusCompleted)
	orphanListing := seedListing(t, db, orphan.ID, "Orphan Toyota", 35000, 33000, true)
	seedCall(t, db, model.Call{
		Model: gormModelAt(now.Add(-3 * time.Hour)), SessionID: orphan.ID, ListingID: orphanListing.ID,
		Status: model.CallStatusCompleted, DealerPromisedQuote: true, QuoteDueAt: ptrTime(now.Add(-time.Hour)),
	})
	require.NoError(t, DeleteSession(db, orphan.ID))

	n, err := CheckQuoteFollowups(context.Background(), db, now.Add(time.Minute), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFollowupUniqueIndexRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	s := seedSession(t, db, model.SessionStatusCompleted)
	l := seedListing(t, db, s.ID, "Bay Toyota", 35000, 33000, true)
	parent := seedCall(t, db, model.Call{SessionID: s.ID, ListingID: l.ID, Status: model.CallStatusCompleted})

	insert := func() int64 {
		parentID := parent.ID
		c := model.Call{
			SessionID: s.ID, ListingID: l.ID, Phone: "1", ScriptText: FollowupScript("Bay Toyota", "Camry", "XSE"),
			Status: model.CallStatusQueued, FollowUpOf: &parentID,
		}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&c)
		require.NoError(t, result.Error)
		return result.RowsAffected
	}
	assert.EqualValues(t, 1, insert())
	assert.EqualValues(t, 0, insert())

	require.NoError(t, db.Where("follow_up_of = ?", parent.ID).Delete(&model.Call{}).Error)
	assert.EqualValues(t, 1, insert())
}

func TestQueueQuoteFollowupsRequeuesAfterDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	s := seedSession(t, db, model.SessionStatusCompleted)
	l := seedListing(t, db, s.ID, "Bay Toyota", 35000, 33000, true)
	seedCall(t, db, model.Call{
		Model: gormModelAt(now.Add(-3 * time.Hour)), SessionID: s.ID, ListingID: l.ID,
		Status: model.CallStatusCompleted, DealerPromisedQuote: true, QuoteDueAt: ptrTime(now.Add(-time.Hour)),
	})

	created, err := QueueQuoteFollowups(ctx, db, now, time.Hour)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NoError(t, DeleteCall(db, created[0].ID))

	again, err := QueueQuoteFollowups(ctx, db, now, time.Hour)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.NotEqual(t, created[0].ID, again[0].ID)
}

func TestDispatchFollowups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	s := seedSession(t, db, model.SessionStatusCompleted)
	l := seedListing(t, db, s.ID, "Bay Toyota", 35000, 33000, true)
	seedCall(t, db, model.Call{
		Model: gormModelAt(now.Add(-3 * time.Hour)), SessionID: s.ID, ListingID: l.ID,
		Status: model.CallStatusCompleted, DealerPromisedQuote: true, QuoteDueAt: ptrTime(now.Add(-time.Hour)),
	})
	created, err := QueueQuoteFollowups(ctx, db, now, time.Hour)
	require.NoError(t, err)
	require.Len(t, created, 1)

	failing := &fakeVoice{err: errors.New("agent down")}
	n, err := DispatchFollowups(ctx, db, failing, "Toyota")
	require.NoError(t, err)
	assert.Zero(t, n)
	still, err := GetCall(db, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusQueued, still.Status)
	assert.Empty(t, still.ExternalCallID)

	agent := &fakeVoice{}
	n, err = DispatchFollowups(ctx, db, agent, "Toyota")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, agent.batches, 1)
	require.Len(t, agent.batches[0], 1)
	job := agent.batches[0][0]
	assert.Equal(t, "toyota", job.Make)
	assert.Equal(t, "Bay Toyota", job.DealerName)

	dialing, err := GetCall(db, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStatusDialing, dialing.Status)
	assert.Equal(t, job.UserID, dialing.ExternalCallID)

	n, err = DispatchFollowups(ctx, db, agent, "Toyota")
	require.NoError(t, err)
	assert.Zero(t, n)
}
