package service

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"carquote_backend/internal/model"
	"carquote_backend/pkg/utils/validation"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RecordQuoteInput struct {
	CallID      uint              `json:"call_id"`
	OTDPrice    float64           `json:"otd_price"`
	AddOns      []string          `json:"add_ons"`
	Notes       string            `json:"notes"`
	ReceivedVia model.QuoteSource `json:"received_via"`
}

type QuotePatch struct {
	OTDPrice *float64 `json:"otd_price"`
	AddOns   []string `json:"add_ons"`
	Notes    *string  `json:"notes"`
}

type BestQuote struct {
	QuoteID    uint    `json:"quote_id"`
	ListingID  uint    `json:"listing_id"`
	DealerName string  `json:"dealer_name"`
	OTDPrice   float64 `json:"otd_price"`
	MSRP       float64 `json:"msrp"`
	Savings    float64 `json:"savings"`
}

type QuoteStats struct {
	TotalQuotes  int        `json:"total_quotes"`
	AvgPrice     float64    `json:"avg_price"`
	MinPrice     float64    `json:"min_price"`
	MaxPrice     float64    `json:"max_price"`
	EmailQuotes  int        `json:"email_quotes"`
	ManualQuotes int        `json:"manual_quotes"`
	Best         *BestQuote `json:"best_quote"`
}

// RecordQuote stores a dealer's quote against the call it came from. The
// listing and session are taken from that call.
func RecordQuote(db *gorm.DB, in RecordQuoteInput) (*model.Quote, error) {
	if err := validation.ValidateOTDPrice(in.OTDPrice); err != nil {
		return nil, invalid(err)
	}
	if !in.ReceivedVia.Valid() {
		return nil, invalid(fmt.Errorf("received_via must be email or manual"))
	}
	call, err := GetCall(db, in.CallID)
	if err != nil {
		return nil, err
	}

	quote := model.Quote{
		CallID:      call.ID,
		ListingID:   call.ListingID,
		SessionID:   call.SessionID,
		OTDPrice:    in.OTDPrice,
		AddOns:      nonNil(in.AddOns),
		Notes:       in.Notes,
		ReceivedVia: in.ReceivedVia,
	}
	if err := db.Create(&quote).Error; err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}
	return &quote, nil
}

func GetQuote(db *gorm.DB, id uint) (*model.Quote, error) {
	var quote model.Quote
	if err := db.First(&quote, id).Error; err != nil {
		return nil, notFound(err, "quote")
	}
	return &quote, nil
}

func GetQuoteByCall(db *gorm.DB, callID uint) (*model.Quote, error) {
	var quote model.Quote
	if err := db.Where("call_id = ?", callID).Order("created_at DESC, id DESC").First(&quote).Error; err != nil {
		return nil, notFound(err, "quote")
	}
	return &quote, nil
}

func GetQuoteByListing(db *gorm.DB, listingID uint) (*model.Quote, error) {
	var quote model.Quote
	if err := db.Where("listing_id = ?", listingID).Order("created_at DESC, id DESC").First(&quote).Error; err != nil {
		return nil, notFound(err, "quote")
	}
	return &quote, nil
}

func ListQuotesBySession(db *gorm.DB, sessionID uint) ([]model.Quote, error) {
	quotes := []model.Quote{}
	if err := db.Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Find(&quotes).Error; err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return quotes, nil
}

// UpdateQuote patches the editable fields. The links to call, listing and
// session never change.
func UpdateQuote(db *gorm.DB, id uint, patch QuotePatch) (*model.Quote, error) {
	quote, err := GetQuote(db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.OTDPrice != nil {
		if err := validation.ValidateOTDPrice(*patch.OTDPrice); err != nil {
			return nil, invalid(err)
		}
		updates["otd_price"] = *patch.OTDPrice
	}
	if patch.AddOns != nil {
		updates["add_ons"] = datatypes.JSONSlice[string](patch.AddOns)
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if len(updates) == 0 {
		return nil, invalid(errors.New("nothing to update"))
	}
	if err := db.Model(quote).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update quote: %w", err)
	}
	return GetQuote(db, id)
}

func DeleteQuote(db *gorm.DB, id uint) error {
	result := db.Delete(&model.Quote{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete quote: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("quote: %w", ErrNotFound)
	}
	return nil
}

// GetQuoteStats summarizes a session's quotes and picks the best one:
// lowest OTD price, earliest recorded on a tie.
func GetQuoteStats(db *gorm.DB, sessionID uint) (*QuoteStats, error) {
	quotes, err := ListQuotesBySession(db, sessionID)
	if err != nil {
		return nil, err
	}
	stats := &QuoteStats{TotalQuotes: len(quotes)}
	if len(quotes) == 0 {
		return stats, nil
	}

	SortQuotesBest(quotes)
	stats.MinPrice = math.Inf(1)
	stats.MaxPrice = math.Inf(-1)
	var sum float64
	for _, q := range quotes {
		sum += q.OTDPrice
		stats.MinPrice = math.Min(stats.MinPrice, q.OTDPrice)
		stats.MaxPrice = math.Max(stats.MaxPrice, q.OTDPrice)
		switch q.ReceivedVia {
		case model.QuoteSourceEmail:
			stats.EmailQuotes++
		case model.QuoteSourceManual:
			stats.ManualQuotes++
		}
	}
	stats.AvgPrice = sum / float64(len(quotes))

	best := quotes[0]
	stats.Best = &BestQuote{QuoteID: best.ID, ListingID: best.ListingID, OTDPrice: best.OTDPrice}
	if listing, err := GetListing(db, best.ListingID); err == nil {
		stats.Best.DealerName = listing.DealerName
		stats.Best.MSRP = listing.MSRP
		stats.Best.Savings = listing.MSRP - best.OTDPrice
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return stats, nil
}

// SortQuotesBest orders quotes by OTD price, then by creation time.
func SortQuotesBest(quotes []model.Quote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if quotes[i].OTDPrice != quotes[j].OTDPrice {
			return quotes[i].OTDPrice < quotes[j].OTDPrice
		}
		if !quotes[i].CreatedAt.Equal(quotes[j].CreatedAt) {
			return quotes[i].CreatedAt.Before(quotes[j].CreatedAt)
		}
		return quotes[i].ID < quotes[j].ID
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
