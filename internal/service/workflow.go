package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"carquote_backend/internal/model"
	"carquote_backend/pkg/inventory"
	"carquote_backend/pkg/voice"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventorySearcher is the part of the inventory client the workflow uses.
type InventorySearcher interface {
	Search(ctx context.Context, p inventory.SearchParams) (*inventory.SearchResponse, error)
}

// Workflow wires the session lifecycle to the inventory and voice services.
type Workflow struct {
	DB          *gorm.DB
	Inventory   InventorySearcher
	Voice       voice.Submitter
	StatusFeed  voice.StatusFeed // optional
	DefaultMake string
}

type FetchResult struct {
	Count      int    `json:"count"`
	ListingIDs []uint `json:"listing_ids"`
	Rejected   int    `json:"rejected"`
}

// CallStatusView is one call of a session merged with the provider's view.
type CallStatusView struct {
	CallID         uint             `json:"call_id"`
	ListingID      uint             `json:"listing_id"`
	DealerName     string           `json:"dealer_name"`
	Phone          string           `json:"phone"`
	CallRef        string           `json:"call_ref"`
	Status         model.CallStatus `json:"status"`
	ProviderStatus string           `json:"provider_status,omitempty"`
	IsAvailable    *bool            `json:"is_available,omitempty"`
	DealPrice      *float64         `json:"deal_price,omitempty"`
}

// FetchDealers pulls listings for a draft or ready session. Any upstream
// failure puts the session back to draft and returns ErrUpstream.
func (w *Workflow) FetchDealers(ctx context.Context, sessionID uint) (*FetchResult, error) {
	db := w.DB.WithContext(ctx)
	session, err := GetSession(db, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusDraft && session.Status != model.SessionStatusReady {
		return nil, fmt.Errorf("%w: cannot fetch dealers while %s", ErrInvalidTransition, session.Status)
	}
	if err := transitionSession(db, session, model.SessionStatusFetching); err != nil {
		return nil, err
	}

	resp, err := w.Inventory.Search(ctx, inventory.SearchParams{
		Make:        session.VehicleMake(w.DefaultMake),
		Model:       session.CarModel,
		Version:     session.Version,
		ZipCode:     session.ZipCode,
		RadiusMiles: session.RadiusMiles,
	})
	if err != nil {
		w.rollback(db, session, model.SessionStatusDraft)
		return nil, fmt.Errorf("%w: inventory search: %v", ErrUpstream, err)
	}

	offers, rejected := inventory.ToOffers(resp.Listings)
	for _, r := range rejected {
		slog.Warn("inventory listing rejected", "session_id", session.ID, "reason", r)
	}
	items := make([]ListingInput, 0, len(offers))
	for _, o := range offers {
		items = append(items, ListingInput{
			DealerName:      o.DealerName,
			Phone:           o.Phone,
			Address:         o.Address,
			VIN:             o.VIN,
			MSRP:            o.MSRP,
			DiscountedPrice: o.DiscountedPrice,
			Mileage:         o.Mileage,
			MPG:             o.MPG,
			Distance:        o.Distance,
			ImageURLs:       o.ImageURLs,
			Link:            o.Link,
		})
	}
	ids, err := BulkCreateListings(db, session.ID, items)
	if err != nil {
		w.rollback(db, session, model.SessionStatusDraft)
		return nil, err
	}

	if err := transitionSession(db, session, model.SessionStatusReady); err != nil {
		return nil, err
	}
	slog.Info("dealers fetched", "session_id", session.ID, "inserted", len(ids), "rejected", len(rejected))
	return &FetchResult{Count: len(ids), ListingIDs: ids, Rejected: len(rejected)}, nil
}

// SubmitCalls sends one call job per selected listing to the voice agent
// and records a queued call for each. listingIDs narrows the batch; every
// id given must be a selected listing of the session. Nothing is recorded
// when the agent rejects the batch.
func (w *Workflow) SubmitCalls(ctx context.Context, sessionID uint, listingIDs []uint) ([]model.Call, error) {
	db := w.DB.WithContext(ctx)
	session, err := GetSession(db, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusReady && session.Status != model.SessionStatusCompleted {
		return nil, fmt.Errorf("%w: cannot submit calls while %s", ErrInvalidTransition, session.Status)
	}

	listings, err := w.callTargets(db, session.ID, listingIDs)
	if err != nil {
		return nil, err
	}

	prior := session.Status
	if err := transitionSession(db, session, model.SessionStatusCalling); err != nil {
		return nil, err
	}

	jobs := make([]voice.CallRequest, 0, len(listings))
	for i := range listings {
		jobs = append(jobs, buildCallRequest(uuid.NewString(), session, &listings[i], w.DefaultMake))
	}
	if err := w.Voice.SubmitCalls(ctx, jobs); err != nil {
		w.rollback(db, session, prior)
		return nil, fmt.Errorf("%w: submit calls: %v", ErrUpstream, err)
	}

	calls := make([]model.Call, 0, len(jobs))
	for i, job := range jobs {
		calls = append(calls, model.Call{
			SessionID:      session.ID,
			ListingID:      listings[i].ID,
			Phone:          listings[i].Phone,
			ScriptText:     InitialScript(session, &listings[i], w.DefaultMake),
			ExternalCallID: job.UserID,
			Status:         model.CallStatusQueued,
		})
	}
	if err := db.Create(&calls).Error; err != nil {
		return nil, fmt.Errorf("record submitted calls: %w", err)
	}
	slog.Info("calls submitted", "session_id", session.ID, "count", len(calls))
	return calls, nil
}

func (w *Workflow) callTargets(db *gorm.DB, sessionID uint, listingIDs []uint) ([]model.Listing, error) {
	if len(listingIDs) == 0 {
		listings, err := ListSelectedListings(db, sessionID)
		if err != nil {
			return nil, err
		}
		if len(listings) == 0 {
			return nil, invalid(errors.New("no listings selected"))
		}
		return listings, nil
	}

	listings := []model.Listing{}
	if err := db.Where("session_id = ? AND selected = ? AND id IN ?", sessionID, true, listingIDs).
		Order("id ASC").
		Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	if len(listings) != len(uniqueIDs(listingIDs)) {
		return nil, invalid(errors.New("listing_ids must reference selected listings of this session"))
	}
	return listings, nil
}

// rollback restores a stable status after an upstream failure. A failed
// rollback is logged; the original error is what the caller sees.
func (w *Workflow) rollback(db *gorm.DB, session *model.Session, to model.SessionStatus) {
	if err := transitionSession(db, session, to); err != nil {
		slog.Error("session status rollback failed", "session_id", session.ID, "to", to, "error", err)
	}
}

// CallStatuses lists a session's calls joined with their listings. When a
// status feed is configured it is read once and merged by call reference.
// A feed failure degrades to the local view.
func (w *Workflow) CallStatuses(ctx context.Context, sessionID uint) ([]CallStatusView, error) {
	db := w.DB.WithContext(ctx)
	if _, err := GetSession(db, sessionID); err != nil {
		return nil, err
	}
	calls, err := ListCallsBySession(db, sessionID)
	if err != nil {
		return nil, err
	}

	listingIDs := make([]uint, 0, len(calls))
	for _, c := range calls {
		listingIDs = append(listingIDs, c.ListingID)
	}
	listings := []model.Listing{}
	if len(listingIDs) > 0 {
		if err := db.Unscoped().Where("id IN ?", uniqueIDs(listingIDs)).Find(&listings).Error; err != nil {
			return nil, fmt.Errorf("load listings: %w", err)
		}
	}
	dealers := make(map[uint]string, len(listings))
	for _, l := range listings {
		dealers[l.ID] = l.DealerName
	}

	provider := map[string]voice.CallStatus{}
	if w.StatusFeed != nil && len(calls) > 0 {
		records, err := w.StatusFeed.CallStatuses(ctx)
		if err != nil {
			slog.Warn("call status feed unavailable", "session_id", sessionID, "error", err)
		}
		for _, r := range records {
			if r.UserID != "" {
				provider[r.UserID] = r
			}
		}
	}

	views := make([]CallStatusView, 0, len(calls))
	for _, c := range calls {
		v := CallStatusView{
			CallID:      c.ID,
			ListingID:   c.ListingID,
			DealerName:  dealers[c.ListingID],
			Phone:       c.Phone,
			CallRef:     c.ExternalCallID,
			Status:      c.Status,
			IsAvailable: c.IsAvailable,
		}
		if c.DealPrice > 0 {
			price := c.DealPrice
			v.DealPrice = &price
		}
		if r, ok := provider[c.ExternalCallID]; ok && c.ExternalCallID != "" {
			v.ProviderStatus = voice.NormalizeStatus(r.Status)
			if v.IsAvailable == nil {
				v.IsAvailable = r.IsAvailable
			}
			if v.DealPrice == nil {
				v.DealPrice = r.DealPrice
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// InitialScript is the opening script recorded for a first call to a dealer.
func InitialScript(session *model.Session, listing *model.Listing, defaultMake string) string {
	vehicle := strings.Join(strings.Fields(fmt.Sprintf("%d %s %s %s",
		session.ModelYear(), session.VehicleMake(defaultMake), session.CarModel, session.Version)), " ")
	return fmt.Sprintf("Call to %s about the %s listed at $%.0f. Requesting an out-the-door price quote.",
		listing.DealerName, vehicle, listing.DiscountedPrice)
}

func buildCallRequest(ref string, session *model.Session, listing *model.Listing, defaultMake string) voice.CallRequest {
	return voice.CallRequest{
		UserID:       ref,
		Make:         strings.ToLower(session.VehicleMake(defaultMake)),
		Model:        session.CarModel,
		Year:         strconv.Itoa(session.ModelYear()),
		ZipCode:      session.ZipCode,
		DealerName:   listing.DealerName,
		PhoneNumber:  listing.Phone,
		MSRP:         strconv.FormatFloat(listing.MSRP, 'f', 2, 64),
		ListingPrice: strconv.FormatFloat(listing.DiscountedPrice, 'f', 2, 64),
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
