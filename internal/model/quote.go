package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quote Source
type QuoteSource string

const (
	QuoteSourceEmail  QuoteSource = "email"
	QuoteSourceManual QuoteSource = "manual"
)

func (s QuoteSource) Valid() bool {
	return s == QuoteSourceEmail || s == QuoteSourceManual
}

type Quote struct {
	gorm.Model
	CallID      uint                        `json:"call_id" gorm:"not null;index"`
	ListingID   uint                        `json:"listing_id" gorm:"not null;index"`
	SessionID   uint                        `json:"session_id" gorm:"not null;index"`
	OTDPrice    float64                     `json:"otd_price" gorm:"not null"`
	AddOns      datatypes.JSONSlice[string] `json:"add_ons"`
	Notes       string                      `json:"notes" gorm:"type:text"`
	ReceivedVia QuoteSource                 `json:"received_via" gorm:"not null"`
}
