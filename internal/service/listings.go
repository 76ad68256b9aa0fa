package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"carquote_backend/internal/model"

	"gorm.io/gorm"
)

type ListingInput struct {
	DealerName      string   `json:"dealer_name"`
	Phone           string   `json:"phone"`
	Address         string   `json:"address"`
	VIN             string   `json:"vin"`
	MSRP            float64  `json:"msrp"`
	DiscountedPrice float64  `json:"discounted_price"`
	Mileage         int      `json:"mileage"`
	MPG             float64  `json:"mpg"`
	Distance        float64  `json:"distance"`
	ImageURLs       []string `json:"image_urls"`
	Link            string   `json:"link"`
}

func (in ListingInput) validate() error {
	if strings.TrimSpace(in.DealerName) == "" {
		return errors.New("dealer name is required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return errors.New("dealer phone is required")
	}
	if in.DiscountedPrice <= 0 && in.MSRP <= 0 {
		return errors.New("listing needs a price")
	}
	return nil
}

func (in ListingInput) toModel(sessionID uint) model.Listing {
	return model.Listing{
		SessionID:       sessionID,
		DealerName:      strings.TrimSpace(in.DealerName),
		Phone:           strings.TrimSpace(in.Phone),
		Address:         in.Address,
		VIN:             in.VIN,
		MSRP:            in.MSRP,
		DiscountedPrice: in.DiscountedPrice,
		Mileage:         in.Mileage,
		MPG:             in.MPG,
		Distance:        in.Distance,
		ImageURLs:       in.ImageURLs,
		Link:            in.Link,
	}
}

func CreateListing(db *gorm.DB, sessionID uint, in ListingInput) (*model.Listing, error) {
	if err := in.validate(); err != nil {
		return nil, invalid(err)
	}
	if _, err := GetSession(db, sessionID); err != nil {
		return nil, err
	}
	listing := in.toModel(sessionID)
	if err := db.Create(&listing).Error; err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return &listing, nil
}

// BulkCreateListings inserts each listing on its own. Invalid items and
// failed inserts are logged and skipped; the ids of stored rows are returned.
func BulkCreateListings(db *gorm.DB, sessionID uint, items []ListingInput) ([]uint, error) {
	if _, err := GetSession(db, sessionID); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(items))
	for i, in := range items {
		if err := in.validate(); err != nil {
			slog.Warn("skipping listing", "session_id", sessionID, "index", i, "error", err)
			continue
		}
		listing := in.toModel(sessionID)
		if err := db.Create(&listing).Error; err != nil {
			slog.Error("insert listing failed", "session_id", sessionID, "dealer", listing.DealerName, "error", err)
			continue
		}
		ids = append(ids, listing.ID)
	}
	return ids, nil
}

func GetListing(db *gorm.DB, id uint) (*model.Listing, error) {
	var listing model.Listing
	if err := db.First(&listing, id).Error; err != nil {
		return nil, notFound(err, "listing")
	}
	return &listing, nil
}

// ListListings returns a session's listings newest first, optionally
// filtered on the selected flag.
func ListListings(db *gorm.DB, sessionID uint, selected *bool) ([]model.Listing, error) {
	listings := []model.Listing{}
	q := db.Where("session_id = ?", sessionID)
	if selected != nil {
		q = q.Where("selected = ?", *selected)
	}
	if err := q.Order("created_at DESC, id DESC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return listings, nil
}

func ListSelectedListings(db *gorm.DB, sessionID uint) ([]model.Listing, error) {
	selected := true
	return ListListings(db, sessionID, &selected)
}

// SetListingSelected writes the flag; repeating the same value is a no-op.
func SetListingSelected(db *gorm.DB, id uint, selected bool) (*model.Listing, error) {
	listing, err := GetListing(db, id)
	if err != nil {
		return nil, err
	}
	if listing.Selected == selected {
		return listing, nil
	}
	if err := db.Model(listing).Update("selected", selected).Error; err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}
	listing.Selected = selected
	return listing, nil
}

// SetListingsSelected updates every listing in ids and reports how many
// rows matched.
func SetListingsSelected(db *gorm.DB, ids []uint, selected bool) (int64, error) {
	if len(ids) == 0 {
		return 0, invalid(errors.New("listing_ids is required"))
	}
	result := db.Model(&model.Listing{}).Where("id IN ?", ids).Update("selected", selected)
	if result.Error != nil {
		return 0, fmt.Errorf("bulk select listings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func DeleteListing(db *gorm.DB, id uint) error {
	result := db.Delete(&model.Listing{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete listing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("listing: %w", ErrNotFound)
	}
	return nil
}
