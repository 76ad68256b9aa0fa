package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"carquote_backend/internal/model"
	"carquote_backend/pkg/utils/validation"

	"gorm.io/gorm"
)

// DefaultQuoteWindow is the due date given to a promised quote when the
// caller does not supply one.
const DefaultQuoteWindow = 24 * time.Hour

type CreateCallInput struct {
	SessionID      uint   `json:"session_id"`
	ListingID      uint   `json:"listing_id"`
	Phone          string `json:"phone"`
	ScriptText     string `json:"script_text"`
	ExternalCallID string `json:"external_call_id"`
}

// CallPatch carries the optional fields of a status update.
type CallPatch struct {
	Status              model.CallStatus `json:"status"`
	ExternalCallID      *string          `json:"external_call_id"`
	Transcript          *string          `json:"transcript"`
	DealerPromisedQuote *bool            `json:"dealer_promised_quote"`
	QuoteDueAt          *time.Time       `json:"quote_due_at"`
}

// FinishInput is the voice agent's end-of-call report.
type FinishInput struct {
	CallRef       string     `json:"call_ref"`
	IsAvailable   bool       `json:"is_available"`
	DealPrice     float64    `json:"deal_price"`
	Remarks       string     `json:"remarks"`
	Transcript    *string    `json:"transcript"`
	PromisedQuote *bool      `json:"promised_quote"`
	QuoteDueAt    *time.Time `json:"quote_due_at"`
}

func CreateCall(db *gorm.DB, in CreateCallInput) (*model.Call, error) {
	if err := validation.ValidateCallScript(in.Phone, in.ScriptText); err != nil {
		return nil, invalid(err)
	}
	if _, err := GetSession(db, in.SessionID); err != nil {
		return nil, err
	}
	listing, err := GetListing(db, in.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.SessionID != in.SessionID {
		return nil, invalid(fmt.Errorf("listing %d does not belong to session %d", listing.ID, in.SessionID))
	}

	call := model.Call{
		SessionID:      in.SessionID,
		ListingID:      in.ListingID,
		Phone:          strings.TrimSpace(in.Phone),
		ScriptText:     in.ScriptText,
		ExternalCallID: strings.TrimSpace(in.ExternalCallID),
		Status:         model.CallStatusQueued,
	}
	if err := db.Create(&call).Error; err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	return &call, nil
}

func GetCall(db *gorm.DB, id uint) (*model.Call, error) {
	var call model.Call
	if err := db.First(&call, id).Error; err != nil {
		return nil, notFound(err, "call")
	}
	return &call, nil
}

func GetCallByRef(db *gorm.DB, ref string) (*model.Call, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, invalid(errors.New("call_ref is required"))
	}
	var call model.Call
	if err := db.Where("external_call_id = ?", ref).First(&call).Error; err != nil {
		return nil, notFound(err, "call")
	}
	return &call, nil
}

func ListCallsBySession(db *gorm.DB, sessionID uint) ([]model.Call, error) {
	calls := []model.Call{}
	if err := db.Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	return calls, nil
}

// GetLatestCallForListing returns the most recent call placed for a listing.
func GetLatestCallForListing(db *gorm.DB, listingID uint) (*model.Call, error) {
	var call model.Call
	if err := db.Where("listing_id = ?", listingID).
		Order("created_at DESC, id DESC").
		First(&call).Error; err != nil {
		return nil, notFound(err, "call")
	}
	return &call, nil
}

// ListOverdueCalls returns completed calls whose promised quote is past due.
func ListOverdueCalls(db *gorm.DB, now time.Time) ([]model.Call, error) {
	calls := []model.Call{}
	if err := db.Where("status = ? AND dealer_promised_quote = ? AND quote_due_at < ?",
		model.CallStatusCompleted, true, now).
		Order("quote_due_at ASC, id ASC").
		Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("list overdue calls: %w", err)
	}
	return calls, nil
}

// UpdateCallStatus applies the status and the provided optional fields.
func UpdateCallStatus(db *gorm.DB, id uint, patch CallPatch) (*model.Call, error) {
	if !patch.Status.Valid() {
		return nil, invalid(fmt.Errorf("unknown call status %q", patch.Status))
	}
	call, err := GetCall(db, id)
	if err != nil {
		return nil, err
	}
	if err := applyCallUpdate(db, call, patch.Status, callFields(patch)); err != nil {
		return nil, err
	}
	return GetCall(db, id)
}

func callFields(patch CallPatch) map[string]interface{} {
	updates := map[string]interface{}{}
	if patch.ExternalCallID != nil {
		updates["external_call_id"] = strings.TrimSpace(*patch.ExternalCallID)
	}
	if patch.Transcript != nil {
		updates["transcript"] = *patch.Transcript
	}
	if patch.DealerPromisedQuote != nil {
		updates["dealer_promised_quote"] = *patch.DealerPromisedQuote
	}
	if patch.QuoteDueAt != nil {
		updates["quote_due_at"] = *patch.QuoteDueAt
	}
	return updates
}

// applyCallUpdate checks the transition and writes status plus updates,
// conditional on the status that was read.
func applyCallUpdate(db *gorm.DB, call *model.Call, next model.CallStatus, updates map[string]interface{}) error {
	if !call.Status.CanTransition(next) {
		return fmt.Errorf("%w: call %s -> %s", ErrInvalidTransition, call.Status, next)
	}
	updates["status"] = next
	result := db.Model(call).Where("status = ?", call.Status).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update call: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: call %d changed concurrently", ErrInvalidTransition, call.ID)
	}
	return nil
}

// FinishCall records the agent's outcome for the call identified by
// CallRef. Once every call of the session is terminal, a calling session
// moves to completed.
func FinishCall(db *gorm.DB, in FinishInput, now time.Time) (*model.Call, error) {
	call, err := GetCallByRef(db, in.CallRef)
	if err != nil {
		return nil, err
	}

	next := model.CallStatusFailed
	if in.IsAvailable {
		next = model.CallStatusCompleted
	}
	updates := map[string]interface{}{
		"is_available": in.IsAvailable,
		"deal_price":   in.DealPrice,
		"remarks":      in.Remarks,
	}
	if in.Transcript != nil {
		updates["transcript"] = *in.Transcript
	}
	if in.PromisedQuote != nil {
		updates["dealer_promised_quote"] = *in.PromisedQuote
		if *in.PromisedQuote {
			due := now.Add(DefaultQuoteWindow)
			if in.QuoteDueAt != nil {
				due = *in.QuoteDueAt
			}
			updates["quote_due_at"] = due
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := applyCallUpdate(tx, call, next, updates); err != nil {
			return err
		}
		return completeSessionIfDone(tx, call.SessionID)
	})
	if err != nil {
		return nil, err
	}
	return GetCall(db, call.ID)
}

// completeSessionIfDone counts only calls handed to the voice agent, i.e.
// with a non-empty reference, as open.
func completeSessionIfDone(tx *gorm.DB, sessionID uint) error {
	var open int64
	if err := tx.Model(&model.Call{}).
		Where("session_id = ? AND external_call_id <> '' AND status NOT IN ?", sessionID,
			[]model.CallStatus{model.CallStatusCompleted, model.CallStatusFailed}).
		Count(&open).Error; err != nil {
		return fmt.Errorf("count open calls: %w", err)
	}
	if open > 0 {
		return nil
	}
	result := tx.Model(&model.Session{}).
		Where("id = ? AND status = ?", sessionID, model.SessionStatusCalling).
		Update("status", model.SessionStatusCompleted)
	if result.Error != nil {
		return fmt.Errorf("complete session: %w", result.Error)
	}
	return nil
}

func DeleteCall(db *gorm.DB, id uint) error {
	result := db.Delete(&model.Call{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete call: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("call: %w", ErrNotFound)
	}
	return nil
}
