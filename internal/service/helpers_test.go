package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"carquote_backend/internal/model"
	"carquote_backend/pkg/database"
	"carquote_backend/pkg/inventory"
	"carquote_backend/pkg/voice"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	require.NoError(t, database.MigrateDatabase(db, model.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedSession(t *testing.T, db *gorm.DB, status model.SessionStatus) *model.Session {
	t.Helper()
	s, err := CreateSession(db, CreateSessionInput{
		UserID:      "user-1",
		CarType:     "Toyota Camry",
		Model:       "Camry",
		Version:     "XSE",
		Year:        2025,
		ZipCode:     "94105",
		RadiusMiles: 50,
	})
	require.NoError(t, err)
	if status != model.SessionStatusDraft {
		require.NoError(t, db.Model(s).Update("status", status).Error)
		s.Status = status
	}
	return s
}

func seedListing(t *testing.T, db *gorm.DB, sessionID uint, dealer string, msrp, price float64, selected bool) *model.Listing {
	t.Helper()
	l, err := CreateListing(db, sessionID, ListingInput{
		DealerName:      dealer,
		Phone:           "4155550100",
		MSRP:            msrp,
		DiscountedPrice: price,
	})
	require.NoError(t, err)
	if selected {
		l, err = SetListingSelected(db, l.ID, true)
		require.NoError(t, err)
	}
	return l
}

// seedCall inserts a call directly so tests control status and timestamps.
func seedCall(t *testing.T, db *gorm.DB, c model.Call) *model.Call {
	t.Helper()
	if c.Phone == "" {
		c.Phone = "4155550100"
	}
	if c.ScriptText == "" {
		c.ScriptText = "Requesting an out-the-door quote."
	}
	require.NoError(t, db.Create(&c).Error)
	return &c
}

func ptrTime(t time.Time) *time.Time { return &t }

type fakeInventory struct {
	resp *inventory.SearchResponse
	err  error
	got  inventory.SearchParams
}

func (f *fakeInventory) Search(_ context.Context, p inventory.SearchParams) (*inventory.SearchResponse, error) {
	f.got = p
	return f.resp, f.err
}

type fakeVoice struct {
	err      error
	batches  [][]voice.CallRequest
	statuses []voice.CallStatus
}

func (f *fakeVoice) SubmitCalls(_ context.Context, calls []voice.CallRequest) error {
	f.batches = append(f.batches, calls)
	return f.err
}

func (f *fakeVoice) CallStatuses(_ context.Context) ([]voice.CallStatus, error) {
	return f.statuses, f.err
}

func gormModelAt(created time.Time) gorm.Model {
	return gorm.Model{CreatedAt: created, UpdatedAt: created}
}
