package service

import (
	"testing"

	"carquote_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteStatsPicksBestQuote(t *testing.T) {
	db := newTestDB(t)
	s := seedSession(t, db, model.SessionStatusCompleted)
	bay := seedListing(t, db, s.ID, "Bay Toyota", 35000, 34000, true)
	oak := seedListing(t, db, s.ID, "Oak Toyota", 35000, 33500, true)
	bayCall := seedCall(t, db, model.Call{SessionID: s.ID, ListingID: bay.ID, Status: model.CallStatusCompleted})
	oakCall := seedCall(t, db, model.Call{SessionID: s.ID, ListingID: oak.ID, Status: model.CallStatusCompleted})

	_, err := RecordQuote(db, RecordQuoteInput{CallID: bayCall.ID, OTDPrice: 33000, ReceivedVia: model.QuoteSourceEmail})
	require.NoError(t, err)
	manual, err := RecordQuote(db, RecordQuoteInput{
		CallID: oakCall.ID, OTDPrice: 32500, AddOns: []string{"extended warranty"}, ReceivedVia: model.QuoteSourceManual,
	})
	require.NoError(t, err)
	assert.Equal(t, oak.ID, manual.ListingID)
	assert.Equal(t, s.ID, manual.SessionID)

	stats, err := GetQuoteStats(db, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalQuotes)
	assert.Equal(t, 32750.0, stats.AvgPrice)
	assert.Equal(t, 32500.0, stats.MinPrice)
	assert.Equal(t, 33000.0, stats.MaxPrice)
	assert.Equal(t, 1, stats.EmailQuotes)
	assert.Equal(t, 1, stats.ManualQuotes)
	require.NotNil(t, stats.Best)
	assert.Equal(t, manual.ID, stats.Best.QuoteID)
	assert.Equal(t, "Oak Toyota", stats.Best.DealerName)
	assert.Equal(t, 32500.0, stats.Best.OTDPrice)
	assert.Equal(t, 2500.0, stats.Best.Savings)
}

func TestQuoteStatsEmptySession(t *testing.T) {
	db := newTestDB(t)
	s := seedSession(t, db, model.SessionStatusCompleted)

	stats, err := GetQuoteStats(db, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalQuotes)
	assert.Nil(t, stats.Best)
}

func TestSortQuotesBestBreaksTiesByAge(t *testing.T) {
	db := newTestDB(t)
	s := seedSession(t, db, model.SessionStatusCompleted)
	l := seedListing(t, db, s.ID, "Bay Toyota", 35000, 34000, true)
	c := seedCall(t, db, model.Call{SessionID: s.ID, ListingID: l.ID, Status: model.CallStatusCompleted})

	first, err := RecordQuote(db, RecordQuoteInput{CallID: c.ID, OTDPrice: 32000, ReceivedVia: model.QuoteSourceEmail})
	require.NoError(t, err)
	_, err = RecordQuote(db, RecordQuoteInput{CallID: c.ID, OTDPrice: 32000, ReceivedVia: model.QuoteSourceManual})
	require.NoError(t, err)

	quotes, err := ListQuotesBySession(db, s.ID)
	require.NoError(t, err)
	SortQuotesBest(quotes)
	assert.Equal(t, first.ID, quotes[0].ID)
}

func TestRecordQuoteValidates(t *testing.T) {
	db := newTestDB(t)
	s := seedSession(t, db, model.SessionStatusCompleted)
	l := seedListing(t, db, s.ID, "Bay Toyota", 35000, 34000, true)
	c := seedCall(t, db, model.Call{SessionID: s.ID, ListingID: l.ID, Status: model.CallStatusCompleted})

	_, err := RecordQuote(db, RecordQuoteInput{CallID: c.ID, OTDPrice: 0, ReceivedVia: model.QuoteSourceEmail})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = RecordQuote(db, RecordQuoteInput{CallID: c.ID, OTDPrice: 100, ReceivedVia: "fax"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = RecordQuote(db, RecordQuoteInput{CallID: 999, OTDPrice: 100, ReceivedVia: model.QuoteSourceEmail})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndDeleteQuote(t *testing.T) {
	db := newTestDB(t)
	s := seedSession(t, db, model.SessionStatusCompleted)
	l := seedListing(t, db, s.ID, "Bay Toyota", 35000, 34000, true)
	c := seedCall(t, db, model.Call{SessionID: s.ID, ListingID: l.ID, Status: model.CallStatusCompleted})
	q, err := RecordQuote(db, RecordQuoteInput{CallID: c.ID, OTDPrice: 33000, ReceivedVia: model.QuoteSourceEmail})
	require.NoError(t, err)

	price := 32000.0
	notes := "includes mats"
	updated, err := UpdateQuote(db, q.ID, QuotePatch{OTDPrice: &price, Notes: &notes, AddOns: []string{"floor mats"}})
	require.NoError(t, err)
	assert.Equal(t, 32000.0, updated.OTDPrice)
	assert.Equal(t, "includes mats", updated.Notes)
	assert.Equal(t, []string{"floor mats"}, []string(updated.AddOns))
	assert.Equal(t, c.ID, updated.CallID)

	bad := -1.0
	_, err = UpdateQuote(db, q.ID, QuotePatch{OTDPrice: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	byCall, err := GetQuoteByCall(db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, byCall.ID)
	byListing, err := GetQuoteByListing(db, l.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, byListing.ID)

	require.NoError(t, DeleteQuote(db, q.ID))
	_, err = GetQuote(db, q.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
