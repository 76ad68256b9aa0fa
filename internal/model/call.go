package model

import (
	"time"

	"gorm.io/gorm"
)

// Call Status
type CallStatus string

const (
	CallStatusQueued    CallStatus = "queued"
	CallStatusDialing   CallStatus = "dialing"
	CallStatusConnected CallStatus = "connected"
	CallStatusCompleted CallStatus = "completed"
	CallStatusFailed    CallStatus = "failed"
)

// progression rank; completed and failed share the terminal rank
var callStatusRank = map[CallStatus]int{
	CallStatusQueued:    0,
	CallStatusDialing:   1,
	CallStatusConnected: 2,
	CallStatusCompleted: 3,
	CallStatusFailed:    3,
}

func (s CallStatus) Valid() bool {
	_, ok := callStatusRank[s]
	return ok
}

func (s CallStatus) Terminal() bool {
	return s == CallStatusCompleted || s == CallStatusFailed
}

// CanTransition allows forward moves only. Terminal states accept
// re-writes of themselves so late transcripts can still be patched in.
func (s CallStatus) CanTransition(next CallStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	return callStatusRank[next] > callStatusRank[s]
}

func CallStatuses() []string {
	return []string{
		string(CallStatusQueued),
		string(CallStatusDialing),
		string(CallStatusConnected),
		string(CallStatusCompleted),
		string(CallStatusFailed),
	}
}

type Call struct {
	gorm.Model
	SessionID           uint       `json:"session_id" gorm:"not null;index"`
	ListingID           uint       `json:"listing_id" gorm:"not null;index"`
	Phone               string     `json:"phone" gorm:"not null"`
	ScriptText          string     `json:"script_text" gorm:"type:text"`
	ExternalCallID      string     `json:"external_call_id" gorm:"index"`
	Status              CallStatus `json:"status" gorm:"not null;default:'queued';index"`
	DealerPromisedQuote bool       `json:"dealer_promised_quote" gorm:"not null;default:false"`
	QuoteDueAt          *time.Time `json:"quote_due_at" gorm:"index"`
	Transcript          string     `json:"transcript,omitempty" gorm:"type:text"`

	// provider outcome reported by the finish callback
	IsAvailable *bool   `json:"is_available,omitempty"`
	DealPrice   float64 `json:"deal_price,omitempty"`
	Remarks     string  `json:"remarks,omitempty" gorm:"type:text"`

	// FollowUpOf points at the overdue call this one follows up. At most one
	// live (not soft-deleted) call may follow up a given call.
	FollowUpOf *uint `json:"follow_up_of,omitempty" gorm:"uniqueIndex:idx_calls_follow_up_of,where:deleted_at IS NULL"`
}

// QuoteOverdue reports whether the dealer promised a quote whose due time
// has passed at now.
func (c *Call) QuoteOverdue(now time.Time) bool {
	return c.Status == CallStatusCompleted &&
		c.DealerPromisedQuote &&
		c.QuoteDueAt != nil &&
		c.QuoteDueAt.Before(now)
}
