package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carquote_backend/internal/model"
	"carquote_backend/pkg/voice"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFollowupMinAge keeps the scheduler away from calls that were
// only just completed.
const DefaultFollowupMinAge = time.Hour

// FollowupScript is the text read on a follow-up call.
func FollowupScript(dealer, carModel, version string) string {
	return fmt.Sprintf("Follow-up call to %s. Previous call indicated they would provide a quote for %s %s. Following up to request the quote.",
		dealer, carModel, version)
}

// CheckQuoteFollowups queues a follow-up call for every overdue quote
// promise and returns how many were created.
func CheckQuoteFollowups(ctx context.Context, db *gorm.DB, now time.Time, minAge time.Duration) (int, error) {
	created, err := QueueQuoteFollowups(ctx, db, now, minAge)
	return len(created), err
}

// QueueQuoteFollowups is CheckQuoteFollowups returning the created calls.
// Existing calls are never modified. Missing listings or sessions are
// logged and skipped.
func QueueQuoteFollowups(ctx context.Context, db *gorm.DB, now time.Time, minAge time.Duration) ([]model.Call, error) {
	if minAge <= 0 {
		minAge = DefaultFollowupMinAge
	}
	db = db.WithContext(ctx)

	var overdue []model.Call
	if err := db.Where("status = ? AND dealer_promised_quote = ? AND quote_due_at < ? AND created_at < ?",
		model.CallStatusCompleted, true, now, now.Add(-minAge)).
		Order("id ASC").
		Find(&overdue).Error; err != nil {
		return nil, fmt.Errorf("find overdue calls: %w", err)
	}

	created := []model.Call{}
	for _, call := range overdue {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		var quotes int64
		if err := db.Model(&model.Quote{}).Where("listing_id = ?", call.ListingID).Count(&quotes).Error; err != nil {
			return created, fmt.Errorf("count quotes for listing %d: %w", call.ListingID, err)
		}
		if quotes > 0 {
			continue
		}

		var later int64
		if err := db.Model(&model.Call{}).
			Where("listing_id = ? AND id <> ? AND created_at > ?", call.ListingID, call.ID, call.CreatedAt).
			Count(&later).Error; err != nil {
			return created, fmt.Errorf("count later calls for listing %d: %w", call.ListingID, err)
		}
		if later > 0 {
			continue
		}

		listing, err := GetListing(db, call.ListingID)
		if err != nil {
			slog.Warn("follow-up skipped: listing lookup failed", "call_id", call.ID, "listing_id", call.ListingID, "error", err)
			continue
		}
		session, err := GetSession(db, call.SessionID)
		if err != nil {
			slog.Warn("follow-up skipped: session lookup failed", "call_id", call.ID, "session_id", call.SessionID, "error", err)
			continue
		}

		parentID := call.ID
		followup := model.Call{
			SessionID:           call.SessionID,
			ListingID:           call.ListingID,
			Phone:               call.Phone,
			ScriptText:          FollowupScript(listing.DealerName, session.CarModel, session.Version),
			Status:              model.CallStatusQueued,
			DealerPromisedQuote: false,
			FollowUpOf:          &parentID,
		}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&followup)
		if result.Error != nil {
			return created, fmt.Errorf("insert follow-up for call %d: %w", call.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			slog.Info("follow-up already queued by a concurrent run", "call_id", call.ID)
			continue
		}
		created = append(created, followup)
	}
	return created, nil
}

// DispatchFollowups submits queued follow-up calls that have no provider
// reference yet. A provider error leaves the call queued for the next run.
func DispatchFollowups(ctx context.Context, db *gorm.DB, submitter voice.Submitter, defaultMake string) (int, error) {
	db = db.WithContext(ctx)

	var pending []model.Call
	if err := db.Where("status = ? AND follow_up_of IS NOT NULL AND (external_call_id = '' OR external_call_id IS NULL)",
		model.CallStatusQueued).
		Order("id ASC").
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("find queued follow-ups: %w", err)
	}

	dispatched := 0
	for _, call := range pending {
		listing, err := GetListing(db, call.ListingID)
		if err != nil {
			slog.Warn("follow-up dispatch skipped", "call_id", call.ID, "error", err)
			continue
		}
		session, err := GetSession(db, call.SessionID)
		if err != nil {
			slog.Warn("follow-up dispatch skipped", "call_id", call.ID, "error", err)
			continue
		}

		ref := uuid.NewString()
		req := buildCallRequest(ref, session, listing, defaultMake)
		if err := submitter.SubmitCalls(ctx, []voice.CallRequest{req}); err != nil {
			slog.Error("follow-up dispatch failed", "call_id", call.ID, "error", err)
			continue
		}

		result := db.Model(&model.Call{}).
			Where("id = ? AND status = ?", call.ID, model.CallStatusQueued).
			Updates(map[string]interface{}{
				"external_call_id": ref,
				"status":           model.CallStatusDialing,
			})
		if result.Error != nil {
			return dispatched, fmt.Errorf("mark follow-up %d dialing: %w", call.ID, result.Error)
		}
		dispatched++
	}
	return dispatched, nil
}
