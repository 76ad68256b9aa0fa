package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Listing struct {
	gorm.Model
	SessionID       uint                        `json:"session_id" gorm:"not null;index;index:idx_listing_session_selected,priority:1"`
	DealerName      string                      `json:"dealer_name" gorm:"not null"`
	Phone           string                      `json:"phone" gorm:"not null"`
	Address         string                      `json:"address"`
	VIN             string                      `json:"vin"`
	MSRP            float64                     `json:"msrp" gorm:"not null"`
	DiscountedPrice float64                     `json:"discounted_price" gorm:"not null"`
	Mileage         int                         `json:"mileage"`
	MPG             float64                     `json:"mpg"`
	Distance        float64                     `json:"distance"`
	Selected        bool                        `json:"selected" gorm:"not null;default:false;index:idx_listing_session_selected,priority:2"`
	ImageURLs       datatypes.JSONSlice[string] `json:"image_urls"`
	Link            string                      `json:"link"`
}
